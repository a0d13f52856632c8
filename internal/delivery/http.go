package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
	"github.com/avoronkov/laptopshop-backend/pkg/redis"
)

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}

	endpoint := c.cfg.BaseAPIURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build delivery request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode delivery request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseAPIURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build delivery request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delivery api unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logg.Error(req.Context(), "delivery api rejected request",
			fmt.Errorf("status %d: %s", resp.StatusCode, snippet))
		return pkgerrors.New(pkgerrors.CodeDependency, "delivery api request failed")
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode delivery response")
	}
	return nil
}

// authToken returns a cached bearer token, requesting a fresh one only when
// the current token's exp claim has passed.
func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Add(tokenRefreshSlack).Before(c.tokenExp) {
		return c.token, nil
	}

	query := url.Values{}
	query.Set("grant_type", "client_credentials")
	query.Set("client_id", c.cfg.Account)
	query.Set("client_secret", c.cfg.SecurePassword)

	endpoint := c.cfg.BaseAPIURL + "/oauth/token?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build token request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delivery auth unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "delivery auth rejected credentials")
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode token response")
	}
	if payload.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "delivery auth returned empty token")
	}

	c.token = payload.AccessToken
	c.tokenExp = tokenExpiry(payload.AccessToken, c.now())
	return c.token, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// carrier signs with its own key and only the lifetime matters here.
func tokenExpiry(token string, now time.Time) time.Time {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return now
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return now
	}
	return exp.Time
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.cache == nil {
		return false
	}
	raw, err := c.cache.Get(ctx, c.cache.CacheKey("delivery", key))
	if err != nil {
		if err != redis.ErrCacheMiss {
			c.logg.Error(ctx, "delivery cache read", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, value any) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, c.cache.CacheKey("delivery", key), string(data), c.cfg.CacheTTL); err != nil {
		c.logg.Error(ctx, "delivery cache write", err)
	}
}
