package zoneminder

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	zmerr "github.com/vesaa/zmtalon/internal/errors"
	"github.com/vesaa/zmtalon/internal/models"
)

// AuthClient exchanges credentials or a refresh token for new tokens.
type AuthClient struct {
	api *api
}

// NewAuthClient returns a client for baseURL/api/host/login.json. Every
// request is bounded by timeout.
func NewAuthClient(baseURL string, timeout time.Duration, opts ...Option) *AuthClient {
	return &AuthClient{api: newAPI(baseURL, timeout, opts)}
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login posts user/pass as form fields and returns the new pair. The
// response must carry both tokens.
func (c *AuthClient) Login(ctx context.Context, user, password string) (models.TokenPair, error) {
	form := url.Values{}
	form.Set("user", user)
	form.Set("pass", password)

	resp, err := c.api.do(ctx, http.MethodPost, loginPath, nil, form)
	if err != nil {
		return models.TokenPair{}, zmerr.Wrap(err, zmerr.CodeAuth, "login failed")
	}

	var out loginResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return models.TokenPair{}, zmerr.Wrap(
			zmerr.Wrap(err, zmerr.CodeParse, "decode login response").WithDetail(snippet(resp.body)),
			zmerr.CodeAuth, "login failed")
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return models.TokenPair{}, zmerr.New(zmerr.CodeAuth,
			"invalid api response when trying to generate new access and refresh tokens").WithDetail(snippet(resp.body))
	}
	return models.TokenPair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}

// Refresh posts the refresh token as the token query parameter and returns
// the new access token.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	query := url.Values{}
	query.Set("token", refreshToken)

	resp, err := c.api.do(ctx, http.MethodPost, loginPath, query, nil)
	if err != nil {
		return "", zmerr.Wrap(err, zmerr.CodeAuth, "token refresh failed")
	}

	var out loginResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return "", zmerr.Wrap(
			zmerr.Wrap(err, zmerr.CodeParse, "decode refresh response").WithDetail(snippet(resp.body)),
			zmerr.CodeAuth, "token refresh failed")
	}
	if out.AccessToken == "" {
		return "", zmerr.New(zmerr.CodeAuth,
			"invalid api response when trying to generate new access token").WithDetail(snippet(resp.body))
	}
	return out.AccessToken, nil
}
