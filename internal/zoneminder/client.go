// Package zoneminder is a minimal client for the ZoneMinder REST API: the
// login endpoint (token exchange and refresh) and the monitors listing.
package zoneminder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	zmerr "github.com/vesaa/zmtalon/internal/errors"
)

const (
	loginPath    = "/api/host/login.json"
	monitorsPath = "/api/monitors.json"

	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 8 << 20
	// maxDetailBytes caps how much of a body is kept as an error detail.
	maxDetailBytes = 512
)

// api is the transport shared by AuthClient and MonitorClient.
type api struct {
	baseURL string
	http    *http.Client
}

// Option configures a client.
type Option func(*api)

// WithHTTPClient replaces the underlying *http.Client. The configured
// timeout is not applied to a replaced client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *api) { a.http = c }
}

func newAPI(baseURL string, timeout time.Duration, opts []Option) *api {
	a := &api{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// response is a fully read HTTP response.
type response struct {
	status int
	body   []byte
}

// do sends the request and reads the whole body. ZoneMinder reports errors
// in the JSON body, so a non-2xx status is not an error here. Transport
// failures are returned as CodeNetwork.
func (a *api) do(ctx context.Context, method, path string, query, form url.Values) (response, error) {
	endpoint := a.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return response{}, zmerr.Wrap(err, zmerr.CodeNetwork, fmt.Sprintf("build request %s", path))
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return response{}, zmerr.Wrap(err, zmerr.CodeNetwork, fmt.Sprintf("request %s", path))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return response{}, zmerr.Wrap(err, zmerr.CodeNetwork, fmt.Sprintf("read response %s", path))
	}
	return response{status: resp.StatusCode, body: data}, nil
}

// snippet trims a body for use as an error detail.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxDetailBytes {
		s = s[:maxDetailBytes] + "..."
	}
	return s
}
