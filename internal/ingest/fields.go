package ingest

import (
	"context"
	"fmt"
	"strings"

	"leadbridge/internal/crm"
	"leadbridge/internal/sourceapi"
	"leadbridge/platform/logger"
)

// noReferencePlaceholder appears in deal titles for leads without a
// property reference.
const noReferencePlaceholder = "No reference"

// CallDetails carries the call-tracking attributes that replace the deal
// comment for phone leads.
type CallDetails struct {
	AgentPhone   string
	Status       string
	CallStart    string
	CallEnd      string
	CallTime     string
	TalkTime     string
	WaitTime     string
	RecordingURL string
}

// CallDetailsFromRaw builds CallDetails from a call-tracking record.
func CallDetailsFromRaw(raw sourceapi.RawLead) CallDetails {
	return CallDetails{
		AgentPhone:   raw.User.Public.Phone,
		Status:       raw.Status,
		CallStart:    raw.CallStart,
		CallEnd:      raw.CallEnd,
		CallTime:     raw.CallTime,
		TalkTime:     raw.TalkTime,
		WaitTime:     raw.WaitTime,
		RecordingURL: raw.DownloadURL,
	}
}

// FieldMapper assembles the CRM deal payload from a normalized lead and the
// resolved owner and contact. Deterministic apart from the price lookup.
type FieldMapper struct {
	listings ListingDirectory
	campaign CampaignConfig
	log      *logger.Logger
}

// NewFieldMapper creates a field mapper for the campaign.
func NewFieldMapper(listings ListingDirectory, campaign CampaignConfig, log *logger.Logger) *FieldMapper {
	return &FieldMapper{
		listings: listings,
		campaign: campaign,
		log:      log,
	}
}

// Map builds the deal payload. call is non-nil only for phone leads with a
// recording, in which case the formatted call block replaces the comment.
func (m *FieldMapper) Map(ctx context.Context, lead LeadData, ownerID, contactID string, source sourceapi.SourceType, call *CallDetails) crm.DealFields {
	campaign := m.campaign

	comments := lead.Message
	if call != nil {
		comments = formatCallComments(*call)
	}

	fields := crm.DealFields{
		"TITLE":          m.title(lead, source),
		"COMMENTS":       comments,
		"SOURCE_ID":      campaign.SourceTag(source),
		"CATEGORY_ID":    campaign.CategoryID,
		"ASSIGNED_BY_ID": ownerID,
		"CONTACT_ID":     contactID,
		"OPPORTUNITY":    m.priceForReference(ctx, lead.PropertyReference),
	}

	fields[campaign.Deal.PropertyReference] = lead.PropertyReference
	fields[campaign.Deal.ClientName] = lead.ClientName
	fields[campaign.Deal.ClientEmail] = lead.ClientEmail
	fields[campaign.Deal.ClientEmailAlt] = lead.ClientEmail
	fields[campaign.Deal.ClientPhoneWork] = lead.ClientPhone
	fields[campaign.Deal.ClientPhoneAlt] = lead.ClientPhone
	fields[campaign.Deal.EnquiryDate] = lead.EnquiryDatetime

	return fields
}

// title synthesizes "<Brand> - <Mode> - <reference>" with a placeholder for
// reference-less leads.
func (m *FieldMapper) title(lead LeadData, source sourceapi.SourceType) string {
	reference := lead.PropertyReference
	if reference == "" {
		reference = noReferencePlaceholder
	}
	return fmt.Sprintf("%s - %s - %s", m.campaign.Brand, titleCase(source.Mode()), reference)
}

// priceForReference looks up the listing's asking price as the deal's
// opportunity estimate. Any miss or error degrades to an empty estimate.
func (m *FieldMapper) priceForReference(ctx context.Context, reference string) string {
	if reference == "" {
		return ""
	}

	fields := m.campaign.Listing
	items, err := m.listings.ListItems(ctx, m.campaign.ListingsEntityTypeID,
		map[string]any{fields.Reference: reference},
		[]string{fields.Reference, fields.Price},
	)
	if err != nil {
		m.log.Warn("price lookup failed", "reference", reference, "error", err)
		return ""
	}
	if len(items) == 0 {
		return ""
	}

	return items[0].StringField(fields.Price)
}

func formatCallComments(call CallDetails) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Receiver Number: %s\n", call.AgentPhone)
	fmt.Fprintf(&b, "Call Status: %s\n", call.Status)
	fmt.Fprintf(&b, "Call Start Time: %s\n", call.CallStart)
	fmt.Fprintf(&b, "Call End Time: %s\n", call.CallEnd)
	fmt.Fprintf(&b, "Call Duration: %s\n", call.CallTime)
	fmt.Fprintf(&b, "Call Connected Duration: %s\n", call.TalkTime)
	fmt.Fprintf(&b, "Call Waiting Duration: %s\n", call.WaitTime)
	fmt.Fprintf(&b, "Call Recording URL: %s", call.RecordingURL)
	return b.String()
}

// titleCase renders an enquiry mode tag like "EMAIL" as "Email".
func titleCase(mode string) string {
	if mode == "" {
		return mode
	}
	lower := strings.ToLower(mode)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
