// Package ingest implements the lead-to-CRM ingestion pipeline: normalizing
// raw portal records, resolving the responsible owner and contact, mapping
// deal fields, and orchestrating per-lead processing behind the dedup ledger.
package ingest

import (
	"regexp"
	"strings"

	"leadbridge/internal/sourceapi"
)

// UnknownClientName is the display name used when no client name survives
// normalization.
const UnknownClientName = "Unknown"

// LeadData is the uniform view of a lead extracted from any raw record
// shape. All fields except ID degrade to empty strings when absent.
type LeadData struct {
	ID                string
	PropertyReference string
	AgentName         string
	AgentPhone        string
	AgentEmail        string
	ClientPhone       string
	ClientEmail       string
	ClientName        string
	Message           string
	EnquiryDatetime   string
}

// referencePattern extracts a "ref: ABC-123" token from free-text notes.
var referencePattern = regexp.MustCompile(`ref:\s*([a-zA-Z0-9-]+)`)

// Normalize extracts a LeadData from a raw record. Pure; performs no I/O
// and never fails. Field fallback order is part of the contract:
//   - property reference: explicit field, then a ref: token in the first
//     note body, then the generic reference field
//   - client name: explicit field, then first+last name, then "Unknown"
//   - client phone: phone field, then mobile field
func Normalize(raw sourceapi.RawLead) LeadData {
	agent := raw.User.Public

	message := ""
	if len(raw.Notes) > 0 {
		message = raw.Notes[0].Body
	}

	return LeadData{
		ID:                raw.ID.String(),
		PropertyReference: resolveReference(raw, message),
		AgentName:         strings.TrimSpace(agent.FirstName + " " + agent.LastName),
		AgentPhone:        agent.Phone,
		AgentEmail:        agent.Email,
		ClientPhone:       firstNonEmpty(raw.Phone, raw.Mobile),
		ClientEmail:       raw.Email,
		ClientName:        resolveClientName(raw),
		Message:           message,
		EnquiryDatetime:   raw.CreatedAt,
	}
}

func resolveReference(raw sourceapi.RawLead, message string) string {
	if raw.PropertyReference != "" {
		return raw.PropertyReference
	}
	if m := referencePattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return raw.Reference
}

func resolveClientName(raw sourceapi.RawLead) string {
	if raw.ClientName != "" {
		return raw.ClientName
	}
	if name := strings.TrimSpace(raw.FirstName + " " + raw.LastName); name != "" {
		return name
	}
	return UnknownClientName
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
