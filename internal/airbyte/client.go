// Package airbyte talks to the Airbyte embedded API: it exchanges the
// application credentials for an access token and the access token for a
// per-user widget token.
package airbyte

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/metrics"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL = "https://api.airbyte.com/v1"
	DefaultTimeout = 15 * time.Second

	// expirySkew is taken off a reused access token's lifetime.
	expirySkew = 30 * time.Second

	opAccessToken = "access_token"
	opWidgetToken = "widget_token"
)

var (
	ErrUpstreamAuth  = errors.New("airbyte access token request failed")
	ErrUpstreamToken = errors.New("airbyte widget token request failed")
)

// UpstreamError is returned for transport failures and non-2xx answers.
// StatusCode is zero when no response was received.
type UpstreamError struct {
	Kind       error
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%v: %d %s", e.Kind, e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Kind }

type Config struct {
	BaseURL        string
	ClientID       string
	ClientSecret   string
	OrganizationID string
	Timeout        time.Duration
	// ReuseAccessToken keeps an access token until shortly before it
	// expires instead of exchanging credentials on every widget request.
	ReuseAccessToken bool
	HTTPClient       *http.Client
}

type Client struct {
	baseURL        string
	clientID       string
	clientSecret   string
	organizationID string
	httpClient     *http.Client
	reuse          bool
	now            func() time.Time

	refresh   singleflight.Group
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:        baseURL,
		clientID:       cfg.ClientID,
		clientSecret:   cfg.ClientSecret,
		organizationID: cfg.OrganizationID,
		httpClient:     httpClient,
		reuse:          cfg.ReuseAccessToken,
		now:            time.Now,
	}
}

type accessTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant-type"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type widgetTokenRequest struct {
	ExternalUserID string `json:"externalUserId"`
	OrganizationID string `json:"organizationId"`
	AllowedOrigin  string `json:"allowedOrigin"`
}

type widgetTokenResponse struct {
	Token string `json:"token"`
}

type vendorError struct {
	Message string `json:"message"`
}

// IssueAccessToken exchanges the client credentials for a bearer token.
func (c *Client) IssueAccessToken(ctx context.Context) (string, error) {
	var out accessTokenResponse
	err := c.post(ctx, opAccessToken, "/applications/token", "", accessTokenRequest{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		GrantType:    "client_credentials",
	}, &out, ErrUpstreamAuth)
	if err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", &UpstreamError{Kind: ErrUpstreamAuth, StatusCode: http.StatusOK, Message: "response has no access_token"}
	}
	if c.reuse {
		c.remember(out)
	}
	return out.AccessToken, nil
}

// IssueWidgetToken asks for a widget token scoped to the user and origin.
func (c *Client) IssueWidgetToken(ctx context.Context, accessToken, externalUserID, allowedOrigin string) (string, error) {
	var out widgetTokenResponse
	err := c.post(ctx, opWidgetToken, "/embedded/widget_token", accessToken, widgetTokenRequest{
		ExternalUserID: externalUserID,
		OrganizationID: c.organizationID,
		AllowedOrigin:  allowedOrigin,
	}, &out, ErrUpstreamToken)
	if err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &UpstreamError{Kind: ErrUpstreamToken, StatusCode: http.StatusOK, Message: "response has no token"}
	}
	return out.Token, nil
}

// WidgetToken performs the access token exchange followed by the widget
// token request. The access token is reused only when the client was built
// with ReuseAccessToken.
func (c *Client) WidgetToken(ctx context.Context, externalUserID, allowedOrigin string) (string, error) {
	accessToken, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}
	return c.IssueWidgetToken(ctx, accessToken, externalUserID, allowedOrigin)
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	if !c.reuse {
		return c.IssueAccessToken(ctx)
	}

	c.mu.Lock()
	if c.token != "" && c.now().Before(c.expiresAt) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	// The exchange is shared, so it must outlive any single caller. The
	// http client timeout still bounds it.
	shared := context.WithoutCancel(ctx)
	ch := c.refresh.DoChan("access_token", func() (any, error) {
		return c.IssueAccessToken(shared)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// remember stores token for reuse. A token whose lifetime cannot be
// determined is not kept.
func (c *Client) remember(resp accessTokenResponse) {
	var expiresAt time.Time
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(resp.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			expiresAt = exp.Time
		}
	}
	if expiresAt.IsZero() && resp.ExpiresIn > 0 {
		expiresAt = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	if expiresAt.IsZero() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = resp.AccessToken
	c.expiresAt = expiresAt.Add(-expirySkew)
}

func (c *Client) post(ctx context.Context, op, path, bearer string, body, out any, kind error) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream(op, "error", time.Since(start).Seconds())
		return &UpstreamError{Kind: kind, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.RecordUpstream(op, "error", time.Since(start).Seconds())
		return &UpstreamError{Kind: kind, StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordUpstream(op, "rejected", time.Since(start).Seconds())
		upErr := &UpstreamError{Kind: kind, StatusCode: resp.StatusCode, Message: vendorMessage(data, resp.StatusCode)}
		slog.Warn("airbyte request rejected", "operation", op, "status", resp.StatusCode, "message", upErr.Message)
		return upErr
	}
	metrics.RecordUpstream(op, "ok", time.Since(start).Seconds())

	if err := json.Unmarshal(data, out); err != nil {
		return &UpstreamError{Kind: kind, StatusCode: resp.StatusCode, Message: "decode response: " + err.Error()}
	}
	return nil
}

// vendorMessage prefers the vendor's "message" field over the status text.
func vendorMessage(body []byte, status int) string {
	var ve vendorError
	if err := json.Unmarshal(body, &ve); err == nil && ve.Message != "" {
		return ve.Message
	}
	return http.StatusText(status)
}
