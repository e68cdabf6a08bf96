package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RefreshPath is the backend endpoint that trades a refresh token for a new
// access token.
const RefreshPath = "/auth/refresh-token"

// RefreshClient calls the refresh endpoint over a plain http.Client, outside the
// interceptor chain.
type RefreshClient struct {
	baseURL string
	http    *http.Client
}

// NewRefreshClient builds a refresher. raw must not route through the pipeline.
func NewRefreshClient(baseURL string, raw *http.Client) *RefreshClient {
	if raw == nil {
		raw = http.DefaultClient
	}
	return &RefreshClient{baseURL: strings.TrimRight(baseURL, "/"), http: raw}
}

type refreshResponse struct {
	Data struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

// Refresh implements Refresher.
func (c *RefreshClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+RefreshPath, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+refreshToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: status %d", ErrRefreshRejected, resp.StatusCode)
	}

	var body refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshMalformed, err)
	}
	if body.Data.AccessToken == "" {
		return "", ErrRefreshMalformed
	}
	return body.Data.AccessToken, nil
}
