// Package crm provides the REST client for the CRM's inbound webhook API:
// deal and contact creation, listing and user directory queries, and external
// telephony calls.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"leadbridge/platform/apperr"
	"leadbridge/platform/config"
	"leadbridge/platform/logger"
)

const defaultHTTPTimeout = 30 * time.Second

// Client calls CRM REST methods through an inbound webhook URL. Requests are
// throttled client-side; the CRM rejects bursts above ~2 requests a second.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

// NewClient creates a CRM client.
func NewClient(cfg config.CRMConfig, log *logger.Logger) *Client {
	timeout := cfg.GetHTTPTimeout()
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.GetCRMBaseURL(), "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.GetCRMRequestsPerSecond()), 1),
		log:        log,
	}
}

// apiResponse is the CRM's uniform response envelope.
type apiResponse struct {
	Result           json.RawMessage `json:"result"`
	Total            int             `json:"total"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// call posts params to a REST method and returns the raw result payload.
func (c *Client) call(ctx context.Context, method string, params any) (apiResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return apiResponse{}, apperr.UpstreamWrap("crm rate limiter", err).WithOp(method)
	}

	body, err := json.Marshal(params)
	if err != nil {
		return apiResponse{}, apperr.UpstreamWrap("marshal crm request", err).WithOp(method)
	}

	url := fmt.Sprintf("%s/%s.json", c.baseURL, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apiResponse{}, apperr.UpstreamWrap("build crm request", err).WithOp(method)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.UpstreamError("crm", method, err)
		return apiResponse{}, apperr.UpstreamWrap("crm request failed", err).WithOp(method)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("crm returned %d", resp.StatusCode)
		c.log.UpstreamError("crm", method, err)
		return apiResponse{}, apperr.UpstreamWrap("crm request rejected", err).WithOp(method)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.UpstreamError("crm", method, err)
		return apiResponse{}, apperr.UpstreamWrap("decode crm response", err).WithOp(method)
	}

	if payload.Error != "" {
		err := fmt.Errorf("%s: %s", payload.Error, payload.ErrorDescription)
		c.log.UpstreamError("crm", method, err)
		return apiResponse{}, apperr.UpstreamWrap("crm rejected call", err).WithOp(method)
	}

	return payload, nil
}

// CreateDeal submits a deal and returns the new deal ID. The call is not
// idempotent; duplicate protection lives in the ingestion ledger.
func (c *Client) CreateDeal(ctx context.Context, fields DealFields) (string, error) {
	resp, err := c.call(ctx, "crm.deal.add", map[string]any{"fields": fields})
	if err != nil {
		return "", err
	}

	id, err := numberResult(resp.Result)
	if err != nil {
		return "", apperr.UpstreamWrap("unexpected deal.add result", err).WithOp("crm.deal.add")
	}
	return id, nil
}

// FindContactByPhone looks up an existing contact by exact phone match.
// Returns "" when no contact matches; the first match wins when several do.
func (c *Client) FindContactByPhone(ctx context.Context, phone string) (string, error) {
	resp, err := c.call(ctx, "crm.contact.list", map[string]any{
		"filter": map[string]any{"PHONE": phone},
		"select": []string{"ID", "EMAIL"},
	})
	if err != nil {
		return "", err
	}
	if resp.Total == 0 {
		return "", nil
	}

	var contacts []struct {
		ID json.Number `json:"ID"`
	}
	if err := json.Unmarshal(resp.Result, &contacts); err != nil {
		return "", apperr.UpstreamWrap("unexpected contact.list result", err).WithOp("crm.contact.list")
	}
	if len(contacts) == 0 || contacts[0].ID.String() == "" {
		return "", nil
	}
	return contacts[0].ID.String(), nil
}

// CreateContact creates a contact and returns its ID.
func (c *Client) CreateContact(ctx context.Context, fields ContactFields) (string, error) {
	resp, err := c.call(ctx, "crm.contact.add", map[string]any{"fields": fields})
	if err != nil {
		return "", err
	}

	id, err := numberResult(resp.Result)
	if err != nil {
		return "", apperr.UpstreamWrap("unexpected contact.add result", err).WithOp("crm.contact.add")
	}
	return id, nil
}

// ListItems queries a smart-process directory (listings) by filter.
func (c *Client) ListItems(ctx context.Context, entityTypeID int, filter map[string]any, selectFields []string) ([]Item, error) {
	resp, err := c.call(ctx, "crm.item.list", map[string]any{
		"entityTypeId": entityTypeID,
		"filter":       filter,
		"select":       selectFields,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Items []Item `json:"items"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, apperr.UpstreamWrap("unexpected item.list result", err).WithOp("crm.item.list")
	}
	return result.Items, nil
}

// GetUsers queries the user directory with a raw filter.
func (c *Client) GetUsers(ctx context.Context, filter map[string]any) ([]User, error) {
	resp, err := c.call(ctx, "user.get", map[string]any{
		"filter": filter,
		"select": []string{"ID", "NAME", "EMAIL"},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, nil
	}

	var users []User
	if err := json.Unmarshal(resp.Result, &users); err != nil {
		return nil, apperr.UpstreamWrap("unexpected user.get result", err).WithOp("user.get")
	}
	return users, nil
}

// RegisterExternalCall registers an inbound call against a deal. Returns the
// CRM call ID, which may be empty when the CRM accepts the call but declines
// to open a telephony session.
func (c *Client) RegisterExternalCall(ctx context.Context, params RegisterCallParams) (string, error) {
	resp, err := c.call(ctx, "telephony.externalcall.register", params)
	if err != nil {
		return "", err
	}

	var result struct {
		CallID string `json:"CALL_ID"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return "", apperr.UpstreamWrap("unexpected externalcall.register result", err).WithOp("telephony.externalcall.register")
	}
	return result.CallID, nil
}

// FinishExternalCall closes a registered call.
func (c *Client) FinishExternalCall(ctx context.Context, params FinishCallParams) error {
	_, err := c.call(ctx, "telephony.externalcall.finish", params)
	return err
}

// AttachCallRecording uploads a base64-encoded recording to a finished call.
func (c *Client) AttachCallRecording(ctx context.Context, callID, filename, contentBase64 string) error {
	_, err := c.call(ctx, "telephony.externalcall.attachRecord", map[string]any{
		"CALL_ID":      callID,
		"FILENAME":     filename,
		"FILE_CONTENT": contentBase64,
	})
	return err
}

// numberResult decodes a scalar numeric result, which the CRM returns either
// as a number or a quoted string depending on the method.
func numberResult(raw json.RawMessage) (string, error) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String(), nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, nil
	}
	return "", fmt.Errorf("result %q is not an identifier", string(raw))
}
