package main

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestPrintBanner(t *testing.T) {
	out := captureStdout(t, func() { printBanner("RUN") })

	assert.True(t, strings.HasPrefix(out, asciiLogo), "logo printed as-is")
	rest := strings.TrimPrefix(out, asciiLogo)
	assert.Equal(t, "  ► zmtalon "+version+"  |  Author: vesaa  |  Mode: RUN\n\n", rest)
}

func TestDemoMonitors(t *testing.T) {
	mons := demoMonitors(6)
	require.Len(t, mons, 6)
	assert.Equal(t, "1", mons[0].ID)
	assert.Equal(t, "None", mons[4].Function)
	assert.Equal(t, "Modect", mons[5].Function)
	assert.Equal(t, int64(2)<<30, mons[1].DiskSpaceBytes)
}
