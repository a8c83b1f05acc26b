package ingest

import (
	"context"
	"fmt"

	"leadbridge/internal/crm"
	"leadbridge/internal/sourceapi"
	"leadbridge/platform/logger"
	"leadbridge/platform/phone"
)

// ContactDirectory finds and creates CRM contacts. Satisfied by crm.Client.
type ContactDirectory interface {
	FindContactByPhone(ctx context.Context, phone string) (string, error)
	CreateContact(ctx context.Context, fields crm.ContactFields) (string, error)
}

// ContactResolver finds an existing CRM contact by phone or creates one.
// A phone cache makes consecutive leads from the same caller share one
// contact without repeating the directory round trip; the cache is scoped
// to a single run and the pipeline resets it before each one. The resolver
// is not safe for concurrent use; the pipeline is strictly sequential.
type ContactResolver struct {
	contacts ContactDirectory
	campaign CampaignConfig
	log      *logger.Logger
	byPhone  map[string]string
}

// NewContactResolver creates a contact resolver for the campaign.
func NewContactResolver(contacts ContactDirectory, campaign CampaignConfig, log *logger.Logger) *ContactResolver {
	return &ContactResolver{
		contacts: contacts,
		campaign: campaign,
		log:      log,
		byPhone:  make(map[string]string),
	}
}

// Reset drops the phone cache. A contact merged or deleted in the CRM
// between runs must not keep resolving to its old ID.
func (c *ContactResolver) Reset() {
	c.byPhone = make(map[string]string)
}

// Resolve returns the contact ID for the lead's client, creating a contact
// owned by ownerID when no phone match exists. Creation failure is fatal for
// the lead: a deal is never created without a contact.
func (c *ContactResolver) Resolve(ctx context.Context, lead LeadData, ownerID string, source sourceapi.SourceType) (string, error) {
	normalized := phone.NormalizeE164(lead.ClientPhone)

	if normalized != "" {
		if id, ok := c.byPhone[normalized]; ok {
			return id, nil
		}

		id, err := c.contacts.FindContactByPhone(ctx, normalized)
		if err != nil {
			return "", err
		}
		if id != "" {
			c.byPhone[normalized] = id
			return id, nil
		}
	}

	fields := crm.ContactFields{
		Name:       c.displayName(lead, source),
		AssignedBy: ownerID,
	}
	if normalized != "" {
		fields.Phone = []crm.MultiField{{Value: normalized, ValueType: "WORK"}}
	}
	if lead.ClientEmail != "" {
		fields.Email = []crm.MultiField{{Value: lead.ClientEmail, ValueType: "WORK"}}
	}

	id, err := c.contacts.CreateContact(ctx, fields)
	if err != nil {
		return "", err
	}

	c.log.Info("contact created", "contact_id", id, "owner_id", ownerID)
	if normalized != "" {
		c.byPhone[normalized] = id
	}
	return id, nil
}

// displayName falls back to a synthesized name embedding the campaign brand
// and enquiry mode when the client's own name is unknown.
func (c *ContactResolver) displayName(lead LeadData, source sourceapi.SourceType) string {
	if lead.ClientName != "" && lead.ClientName != UnknownClientName {
		return lead.ClientName
	}
	return fmt.Sprintf("Unknown from %s %s (%s)", c.campaign.Brand, titleCase(source.Mode()), lead.ClientPhone)
}
