// Package sourceapi provides the HTTP client for the property-portal lead
// feeds (email leads, call trackings, WhatsApp chats).
package sourceapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"leadbridge/platform/apperr"
	"leadbridge/platform/config"
	"leadbridge/platform/logger"
)

const defaultHTTPTimeout = 30 * time.Second

// httpTimeout falls back to the default when the configured value is unset.
func httpTimeout(configured time.Duration) time.Duration {
	if configured <= 0 {
		return defaultHTTPTimeout
	}
	return configured
}

// TokenSource supplies a bearer token for portal requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client fetches raw lead records from the portal API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a portal API client.
func NewClient(cfg config.SourceAPIConfig, tokens TokenSource, log *logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.GetSourceBaseURL(),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: httpTimeout(cfg.GetHTTPTimeout())},
		log:        log,
	}
}

// envelope is the per-source response wrapper. The API keys the payload
// under a different name per feed, so all keys are declared and the caller
// picks the one matching the requested source.
type envelope struct {
	Leads         []RawLead `json:"leads"`
	CallTrackings []RawLead `json:"call_trackings"`
	WhatsApp      []RawLead `json:"whatsapp"`
}

func (e envelope) records(source SourceType) []RawLead {
	switch source {
	case SourceCall:
		return e.CallTrackings
	case SourceWhatsApp:
		return e.WhatsApp
	default:
		return e.Leads
	}
}

// FetchLeads returns all records of the given source created (or, for calls,
// placed) on the given day. A day with no records yields an empty slice, not
// an error. Network failures, non-2xx statuses and undecodable bodies are
// returned as upstream errors; no retry is attempted here.
func (c *Client) FetchLeads(ctx context.Context, source SourceType, day time.Time) ([]RawLead, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, apperr.UpstreamWrap("acquire portal token", err).WithOp("sourceapi.FetchLeads")
	}

	reqURL := c.buildURL(source, day)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperr.UpstreamWrap("build portal request", err).WithOp("sourceapi.FetchLeads")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	// Embeds agent/user objects in each record instead of bare IDs.
	req.Header.Set("X-MyCRM-Expand-Data", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.UpstreamError("portal", source.path(), err)
		return nil, apperr.UpstreamWrap("portal request failed", err).WithOp("sourceapi.FetchLeads")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("portal returned %d: %s", resp.StatusCode, string(body))
		c.log.UpstreamError("portal", source.path(), err)
		return nil, apperr.UpstreamWrap("portal request rejected", err).WithOp("sourceapi.FetchLeads")
	}

	var payload envelope
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.UpstreamError("portal", source.path(), err)
		return nil, apperr.UpstreamWrap("decode portal response", err).WithOp("sourceapi.FetchLeads")
	}

	records := payload.records(source)
	if len(records) == 0 {
		c.log.Info("no new leads available", "source", string(source), "date", day.Format("2006-01-02"))
		return []RawLead{}, nil
	}

	return records, nil
}

func (c *Client) buildURL(source SourceType, day time.Time) string {
	date := day.Format("2006-01-02")
	params := url.Values{}

	// Call trackings filter on the call date; the other feeds filter on a
	// closed created-at range for the single day.
	if source == SourceCall {
		params.Set("filters[date][from]", date)
	} else {
		params.Set("filters[created][from]", date)
		params.Set("filters[created][to]", date)
	}

	return fmt.Sprintf("%s/%s?%s", c.baseURL, source.path(), params.Encode())
}

// DownloadRecording fetches the call recording body from the portal CDN.
func (c *Client) DownloadRecording(ctx context.Context, recordingURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL, nil)
	if err != nil {
		return nil, apperr.UpstreamWrap("build recording request", err).WithOp("sourceapi.DownloadRecording")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.UpstreamError("portal", "recording download", err)
		return nil, apperr.UpstreamWrap("recording download failed", err).WithOp("sourceapi.DownloadRecording")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("recording download returned %d", resp.StatusCode)
		c.log.UpstreamError("portal", "recording download", err)
		return nil, apperr.UpstreamWrap("recording download rejected", err).WithOp("sourceapi.DownloadRecording")
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.UpstreamWrap("read recording body", err).WithOp("sourceapi.DownloadRecording")
	}

	return content, nil
}
