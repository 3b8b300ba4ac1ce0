package zoneminder

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	zmerr "github.com/vesaa/zmtalon/internal/errors"
	"github.com/vesaa/zmtalon/internal/models"
)

// MonitorClient fetches the monitor list with a valid access token.
type MonitorClient struct {
	api *api
}

// NewMonitorClient returns a client for baseURL/api/monitors.json. Every
// request is bounded by timeout.
func NewMonitorClient(baseURL string, timeout time.Duration, opts ...Option) *MonitorClient {
	return &MonitorClient{api: newAPI(baseURL, timeout, opts)}
}

// MonitorList is a successfully parsed monitors response.
type MonitorList struct {
	Monitors []models.MonitorRecord
	// Success mirrors the optional "success" field; true when absent.
	Success bool
}

// FetchMonitors lists all monitors. An empty accessToken sends no token,
// for servers with authentication disabled.
//
// Errors: CodeNetwork on transport failure, CodeParse when the body is not
// JSON, CodeRevoked when the server reports the token as revoked, CodeFetch
// when the body has no "monitors" key.
func (c *MonitorClient) FetchMonitors(ctx context.Context, accessToken string) (MonitorList, error) {
	var query url.Values
	if accessToken != "" {
		query = url.Values{}
		query.Set("token", accessToken)
	}

	resp, err := c.api.do(ctx, http.MethodGet, monitorsPath, query, nil)
	if err != nil {
		return MonitorList{}, err
	}
	return parseMonitors(resp)
}

func parseMonitors(resp response) (MonitorList, error) {
	// Keys are decoded first so that an absent "monitors" key can be told
	// apart from "monitors": null.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(resp.body, &keys); err != nil {
		return MonitorList{}, zmerr.Wrap(err, zmerr.CodeParse, "decode monitors response").
			WithDetail(snippet(resp.body))
	}
	var out monitorsResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return MonitorList{}, zmerr.Wrap(err, zmerr.CodeParse, "decode monitors response").
			WithDetail(snippet(resp.body))
	}

	success := out.succeeded()
	if !success && len(out.Data) > 0 {
		var data errorData
		// data is free-form; only its name matters here
		if err := json.Unmarshal(out.Data, &data); err == nil && isRevocation(data.Name) {
			return MonitorList{}, zmerr.New(zmerr.CodeRevoked, "token revoked").WithDetail(data.Name)
		}
	}

	raw, present := keys["monitors"]
	if !present {
		return MonitorList{}, zmerr.New(zmerr.CodeFetch,
			fmt.Sprintf("invalid zoneminder api response (status %d)", resp.status)).WithDetail(snippet(resp.body))
	}

	var entries []monitorEntry
	if raw = bytes.TrimSpace(raw); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return MonitorList{}, zmerr.Wrap(err, zmerr.CodeParse, "decode monitors list").
				WithDetail(snippet(resp.body))
		}
	}

	list := MonitorList{Success: success, Monitors: make([]models.MonitorRecord, 0, len(entries))}
	for _, e := range entries {
		rec := models.MonitorRecord{
			ID:                       string(e.Monitor.ID),
			Name:                     e.Monitor.Name,
			Function:                 e.Monitor.Function,
			Enabled:                  bool(e.Monitor.Enabled),
			TotalEvents:              int64(e.Monitor.TotalEvents),
			TotalEventDiskSpaceBytes: float64(e.Monitor.TotalEventDiskSpace),
		}
		if e.Status != nil {
			rec.CaptureFPS = float64(e.Status.CaptureFPS)
			rec.CaptureBandwidth = float64(e.Status.CaptureBandwidth)
		}
		list.Monitors = append(list.Monitors, rec)
	}
	return list, nil
}

func isRevocation(name string) bool {
	return strings.Contains(strings.ToLower(name), "revoked")
}
