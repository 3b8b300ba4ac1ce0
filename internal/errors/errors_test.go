package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodesAreUnique(t *testing.T) {
	codes := []string{CodeAuth, CodePersist, CodeFetch, CodeRevoked, CodeNetwork, CodeParse, CodeConfig}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code)
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  New(CodeFetch, "malformed monitors response"),
			want: "malformed monitors response",
		},
		{
			name: "with cause",
			err:  Wrap(fmt.Errorf("connection refused"), CodeNetwork, "request /api/monitors.json"),
			want: "request /api/monitors.json: connection refused",
		},
		{
			name: "with detail",
			err:  New(CodeAuth, "login response missing tokens").WithDetail(`{"success":false}`),
			want: `login response missing tokens ({"success":false})`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsCodeWalksChain(t *testing.T) {
	network := Wrap(fmt.Errorf("timeout"), CodeNetwork, "request login")
	auth := Wrap(network, CodeAuth, "login failed")
	wrapped := fmt.Errorf("cycle: %w", auth)

	assert.True(t, IsCode(wrapped, CodeAuth))
	assert.True(t, IsCode(wrapped, CodeNetwork))
	assert.False(t, IsCode(wrapped, CodeRevoked))
	assert.False(t, IsCode(nil, CodeAuth))
	assert.False(t, IsCode(fmt.Errorf("plain"), CodeAuth))
}

func TestCodeOfReturnsOutermost(t *testing.T) {
	err := Wrap(New(CodeParse, "bad json"), CodeAuth, "login failed")
	assert.Equal(t, CodeAuth, CodeOf(err))
	assert.Equal(t, "", CodeOf(fmt.Errorf("plain")))
}

func TestUnwrap(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := Wrap(sentinel, CodePersist, "write token file")

	require.ErrorIs(t, err, sentinel)

	var coded *Error
	require.True(t, errors.As(fmt.Errorf("outer: %w", err), &coded))
	assert.Equal(t, CodePersist, coded.Code)
}
