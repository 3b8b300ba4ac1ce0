package zoneminder

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// ZoneMinder serializes most numeric columns as strings ("5.00", "1") and
// sometimes as null. These types accept any of those forms.

type looseFloat float64

func (f *looseFloat) UnmarshalJSON(b []byte) error {
	v, err := decodeScalar(b)
	if err != nil || v == nil {
		*f = 0
		return err
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		*f = 0
		return nil
	}
	n, err := cast.ToFloat64E(v)
	if err != nil {
		return fmt.Errorf("expected number, got %s", b)
	}
	*f = looseFloat(n)
	return nil
}

type looseBool bool

func (p *looseBool) UnmarshalJSON(b []byte) error {
	v, err := decodeScalar(b)
	if err != nil || v == nil {
		*p = false
		return err
	}
	if n, ok := v.(float64); ok {
		*p = n != 0
		return nil
	}
	out, err := cast.ToBoolE(v)
	if err != nil {
		return fmt.Errorf("expected boolean, got %s", b)
	}
	*p = looseBool(out)
	return nil
}

type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	v, err := decodeScalar(b)
	if err != nil || v == nil {
		*s = ""
		return err
	}
	out, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Errorf("expected string, got %s", b)
	}
	*s = looseString(out)
	return nil
}

func decodeScalar(b []byte) (any, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	switch v.(type) {
	case nil, string, float64, bool:
		return v, nil
	default:
		return nil, fmt.Errorf("expected scalar, got %s", b)
	}
}

// ── Wire shapes ──────────────────────────────────────────────────────────────

type monitorsResponse struct {
	// Raw so that an odd success value cannot fail the whole response.
	Success json.RawMessage `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// succeeded reads the optional success flag. Absent, null or values that
// are not boolean-like count as success.
func (r monitorsResponse) succeeded() bool {
	raw := bytes.TrimSpace(r.Success)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return true
	}
	var ok looseBool
	if err := json.Unmarshal(raw, &ok); err != nil {
		return true
	}
	return bool(ok)
}

type errorData struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type monitorEntry struct {
	Monitor struct {
		ID                  looseString `json:"Id"`
		Name                string      `json:"Name"`
		Function            string      `json:"Function"`
		Enabled             looseBool   `json:"Enabled"`
		TotalEvents         looseFloat  `json:"TotalEvents"`
		TotalEventDiskSpace looseFloat  `json:"TotalEventDiskSpace"`
	} `json:"Monitor"`
	// Absent for monitors that are not running.
	Status *struct {
		CaptureFPS       looseFloat `json:"CaptureFPS"`
		CaptureBandwidth looseFloat `json:"CaptureBandwidth"`
	} `json:"Monitor_Status"`
}
