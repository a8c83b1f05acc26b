package sourceapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newAuthServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++

		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			t.Errorf("unexpected basic auth %q/%q", user, pass)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode token request: %v", err)
		}
		if body["grant_type"] != "client_credentials" || body["scope"] != "openid" {
			t.Errorf("unexpected token request body %v", body)
		}

		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":3600}`, *calls)
	}))
}

func TestTokenFetchesAndCaches(t *testing.T) {
	var calls int
	server := newAuthServer(t, &calls)
	defer server.Close()

	cachePath := filepath.Join(t.TempDir(), "auth_token.json")
	source := NewFileTokenSource(fakeSourceConfig{authURL: server.URL, cachePath: cachePath}, testLogger())

	tok, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "tok-1" {
		t.Fatalf("expected tok-1, got %q", tok)
	}

	tok, err = source.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "tok-1" {
		t.Fatalf("expected cached token, got %q", tok)
	}
	if calls != 1 {
		t.Fatalf("expected a single token exchange, got %d", calls)
	}

	data, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatalf("read cache file: %v", err)
	}
	var cached cachedToken
	if err := json.Unmarshal(data, &cached); err != nil {
		t.Fatalf("decode cache file: %v", err)
	}
	if cached.AccessToken != "tok-1" || cached.ExpiresAt <= time.Now().Unix() {
		t.Fatalf("unexpected cache content %+v", cached)
	}
}

func TestTokenReusesDiskCacheAcrossProcesses(t *testing.T) {
	var calls int
	server := newAuthServer(t, &calls)
	defer server.Close()

	cachePath := filepath.Join(t.TempDir(), "auth_token.json")
	cached := cachedToken{AccessToken: "tok-disk", ExpiresAt: time.Now().Add(time.Hour).Unix()}
	data, err := json.Marshal(cached)
	if err != nil {
		t.Fatalf("marshal cache: %v", err)
	}
	if err := os.WriteFile(cachePath, data, 0o600); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	source := NewFileTokenSource(fakeSourceConfig{authURL: server.URL, cachePath: cachePath}, testLogger())

	tok, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "tok-disk" {
		t.Fatalf("expected the disk-cached token, got %q", tok)
	}
	if calls != 0 {
		t.Fatalf("expected no token exchange, got %d", calls)
	}
}

func TestTokenRefreshesWhenExpired(t *testing.T) {
	var calls int
	server := newAuthServer(t, &calls)
	defer server.Close()

	cachePath := filepath.Join(t.TempDir(), "auth_token.json")
	source := NewFileTokenSource(fakeSourceConfig{authURL: server.URL, cachePath: cachePath}, testLogger())

	now := time.Now()
	source.now = func() time.Time { return now }

	if _, err := source.Token(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Jump past the token lifetime; the cached entry is now stale.
	source.now = func() time.Time { return now.Add(2 * time.Hour) }

	tok, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "tok-2" {
		t.Fatalf("expected a fresh token, got %q", tok)
	}
	if calls != 2 {
		t.Fatalf("expected two token exchanges, got %d", calls)
	}
}

func TestTokenRefreshesInsideExpirySkew(t *testing.T) {
	var calls int
	server := newAuthServer(t, &calls)
	defer server.Close()

	cachePath := filepath.Join(t.TempDir(), "auth_token.json")
	cached := cachedToken{AccessToken: "tok-stale", ExpiresAt: time.Now().Add(30 * time.Second).Unix()}
	data, _ := json.Marshal(cached)
	if err := os.WriteFile(cachePath, data, 0o600); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	source := NewFileTokenSource(fakeSourceConfig{authURL: server.URL, cachePath: cachePath}, testLogger())

	tok, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "tok-1" {
		t.Fatalf("expected a fresh token inside the expiry skew, got %q", tok)
	}
	if calls != 1 {
		t.Fatalf("expected one token exchange, got %d", calls)
	}
}

func TestTokenMissingAccessTokenFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"expires_in":3600}`))
	}))
	defer server.Close()

	cachePath := filepath.Join(t.TempDir(), "auth_token.json")
	source := NewFileTokenSource(fakeSourceConfig{authURL: server.URL, cachePath: cachePath}, testLogger())

	if _, err := source.Token(context.Background()); err == nil {
		t.Fatalf("expected error for token response without access_token")
	}
}
