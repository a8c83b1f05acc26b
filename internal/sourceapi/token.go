package sourceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"leadbridge/platform/apperr"
	"leadbridge/platform/config"
	"leadbridge/platform/logger"
)

// expirySkew is subtracted from the token lifetime so a token is refreshed
// slightly before the portal would reject it.
const expirySkew = 60 * time.Second

// cachedToken is the on-disk token cache shape.
type cachedToken struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// FileTokenSource exchanges client credentials for a bearer token and caches
// it in a JSON file across runs, refreshing only when expired.
type FileTokenSource struct {
	authURL      string
	clientID     string
	clientSecret string
	cachePath    string
	httpClient   *http.Client
	log          *logger.Logger

	mu     sync.Mutex
	cached cachedToken

	now func() time.Time
}

// NewFileTokenSource creates a token source backed by the configured cache file.
func NewFileTokenSource(cfg config.SourceAPIConfig, log *logger.Logger) *FileTokenSource {
	return &FileTokenSource{
		authURL:      cfg.GetSourceAuthURL(),
		clientID:     cfg.GetSourceClientID(),
		clientSecret: cfg.GetSourceClientSecret(),
		cachePath:    cfg.GetTokenCachePath(),
		httpClient:   &http.Client{Timeout: httpTimeout(cfg.GetHTTPTimeout())},
		log:          log,
		now:          time.Now,
	}
}

// Token returns a valid bearer token, reusing the in-memory or on-disk cache
// when the stored token has not expired.
func (t *FileTokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.valid(t.cached) {
		return t.cached.AccessToken, nil
	}

	if disk, err := t.readCache(); err == nil && t.valid(disk) {
		t.cached = disk
		return disk.AccessToken, nil
	}

	fresh, err := t.fetch(ctx)
	if err != nil {
		return "", err
	}

	t.cached = fresh
	if err := t.writeCache(fresh); err != nil {
		// A missing cache only costs an extra token round trip next run.
		t.log.Warn("failed to persist token cache", "path", t.cachePath, "error", err)
	}

	return fresh.AccessToken, nil
}

func (t *FileTokenSource) valid(tok cachedToken) bool {
	if tok.AccessToken == "" {
		return false
	}
	return t.now().Add(expirySkew).Unix() < tok.ExpiresAt
}

func (t *FileTokenSource) readCache() (cachedToken, error) {
	data, err := os.ReadFile(t.cachePath)
	if err != nil {
		return cachedToken{}, err
	}

	var tok cachedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return cachedToken{}, err
	}
	return tok, nil
}

func (t *FileTokenSource) writeCache(tok cachedToken) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(t.cachePath, data, 0o600)
}

func (t *FileTokenSource) fetch(ctx context.Context) (cachedToken, error) {
	body, err := json.Marshal(map[string]string{
		"scope":      "openid",
		"grant_type": "client_credentials",
	})
	if err != nil {
		return cachedToken{}, apperr.UpstreamWrap("marshal token request", err).WithOp("sourceapi.Token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.authURL, bytes.NewReader(body))
	if err != nil {
		return cachedToken{}, apperr.UpstreamWrap("build token request", err).WithOp("sourceapi.Token")
	}
	req.SetBasicAuth(t.clientID, t.clientSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.log.UpstreamError("portal-auth", "token", err)
		return cachedToken{}, apperr.UpstreamWrap("token request failed", err).WithOp("sourceapi.Token")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("token endpoint returned %d", resp.StatusCode)
		t.log.UpstreamError("portal-auth", "token", err)
		return cachedToken{}, apperr.UpstreamWrap("token request rejected", err).WithOp("sourceapi.Token")
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return cachedToken{}, apperr.UpstreamWrap("decode token response", err).WithOp("sourceapi.Token")
	}
	if payload.AccessToken == "" {
		return cachedToken{}, apperr.Upstream("token response missing access_token").WithOp("sourceapi.Token")
	}

	return cachedToken{
		AccessToken: payload.AccessToken,
		ExpiresAt:   t.now().Unix() + payload.ExpiresIn,
	}, nil
}
