package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// refreshSkew refreshes tokens this long before they actually expire, so
// an almost-expired token is never sent with a slow request.
const refreshSkew = 60 * time.Second

// tokenManager obtains and caches AAD access tokens via the v2
// client-credentials flow. Safe for concurrent use; concurrent refreshes
// collapse into a single request.
type tokenManager struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	client       *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time

	group singleflight.Group
}

func newTokenManager(authEndpoint, tenantID, clientID, clientSecret, scope string, client *http.Client) *tokenManager {
	return &tokenManager{
		tokenURL:     strings.TrimRight(authEndpoint, "/") + "/" + tenantID + "/oauth2/v2.0/token",
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
		client:       client,
	}
}

// Token returns a valid access token, refreshing when the cached one is
// missing or inside the refresh skew.
func (m *tokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.token != "" && time.Now().Before(m.expires) {
		tok := m.token
		m.mu.Unlock()
		return tok, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do("token", func() (any, error) {
		return m.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *tokenManager) refresh(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
		"scope":         {m.scope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("monitor: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("monitor: request token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("monitor: read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "token endpoint: " + strings.TrimSpace(string(body))}
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("monitor: decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("monitor: token response missing access_token")
	}

	expiry := time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	// Prefer the token's own exp claim when it decodes; expires_in is the
	// fallback for opaque tokens.
	if tok, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, jwt.MapClaims{}); err == nil {
		if exp, err := tok.Claims.GetExpirationTime(); err == nil && exp != nil {
			expiry = exp.Time
		}
	}

	m.mu.Lock()
	m.token = tr.AccessToken
	m.expires = expiry.Add(-refreshSkew)
	m.mu.Unlock()

	return tr.AccessToken, nil
}
