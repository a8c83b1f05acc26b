package ingest

import (
	"context"
	"strings"

	"leadbridge/internal/crm"
	"leadbridge/platform/logger"
)

// ListingDirectory queries the CRM's listing smart process.
// Satisfied by crm.Client.
type ListingDirectory interface {
	ListItems(ctx context.Context, entityTypeID int, filter map[string]any, selectFields []string) ([]crm.Item, error)
}

// UserDirectory queries the CRM's user directory. Satisfied by crm.Client.
type UserDirectory interface {
	GetUsers(ctx context.Context, filter map[string]any) ([]crm.User, error)
}

// OwnerResolver determines the CRM user a lead is assigned to. Resolution
// never fails: lookup errors and misses fall through the chain and end at
// the campaign's default owner.
type OwnerResolver struct {
	listings ListingDirectory
	users    UserDirectory
	campaign CampaignConfig
	log      *logger.Logger
}

// NewOwnerResolver creates an owner resolver for the campaign.
func NewOwnerResolver(listings ListingDirectory, users UserDirectory, campaign CampaignConfig, log *logger.Logger) *OwnerResolver {
	return &OwnerResolver{
		listings: listings,
		users:    users,
		campaign: campaign,
		log:      log,
	}
}

// Resolve walks the lookup chain: listing by property reference (direct
// owner ID, then listing-owner name, then agent email), then the lead's
// agent name, then the configured default.
func (r *OwnerResolver) Resolve(ctx context.Context, lead LeadData) string {
	if lead.PropertyReference != "" {
		if ownerID := r.resolveByReference(ctx, lead.PropertyReference); ownerID != "" {
			return ownerID
		}
	}

	if ownerID := r.resolveByAgentName(ctx, lead.AgentName); ownerID != "" {
		return ownerID
	}

	return r.campaign.DefaultOwnerID
}

func (r *OwnerResolver) resolveByReference(ctx context.Context, reference string) string {
	fields := r.campaign.Listing
	items, err := r.listings.ListItems(ctx, r.campaign.ListingsEntityTypeID,
		map[string]any{fields.Reference: reference},
		[]string{fields.Reference, fields.OwnerID, fields.OwnerName, fields.AgentEmail},
	)
	if err != nil {
		r.log.Warn("listing lookup failed, falling through", "reference", reference, "error", err)
		return ""
	}
	if len(items) == 0 {
		r.log.Warn("no listing found for reference", "reference", reference)
		return ""
	}

	listing := items[0]

	// The directory stores the literal string "null" for listings whose
	// owner was cleared, not an empty value.
	if ownerID := listing.StringField(fields.OwnerID); ownerID != "" && ownerID != "null" {
		return ownerID
	}

	if ownerName := strings.TrimSpace(listing.StringField(fields.OwnerName)); ownerName != "" {
		if ownerID := r.lookupByFullName(ctx, ownerName); ownerID != "" {
			return ownerID
		}
	}

	if agentEmail := listing.StringField(fields.AgentEmail); agentEmail != "" {
		return r.lookupUser(ctx, map[string]any{"EMAIL": agentEmail})
	}

	r.log.Warn("listing has no owner, name or agent email", "reference", reference)
	return ""
}

// lookupByFullName splits a free-text owner name into first/middle/last
// parts and performs a prefix-style directory match.
func (r *OwnerResolver) lookupByFullName(ctx context.Context, fullName string) string {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return ""
	}

	filter := map[string]any{"%NAME": parts[0]}
	if len(parts) > 1 {
		filter["%LAST_NAME"] = parts[len(parts)-1]
	}
	if len(parts) > 2 {
		filter["%SECOND_NAME"] = strings.Join(parts[1:len(parts)-1], " ")
	}

	return r.lookupUser(ctx, filter)
}

// resolveByAgentName matches on the first two whitespace-separated tokens
// only. A single-token name yields no last-name component and deliberately
// misses, falling through to the default owner.
func (r *OwnerResolver) resolveByAgentName(ctx context.Context, agentName string) string {
	parts := strings.Fields(agentName)
	if len(parts) < 2 {
		return ""
	}

	return r.lookupUser(ctx, map[string]any{
		"%NAME":      parts[0],
		"%LAST_NAME": parts[1],
	})
}

// lookupUser runs a user.get with the campaign's disabled accounts excluded.
// Errors and empty results both read as a miss.
func (r *OwnerResolver) lookupUser(ctx context.Context, filter map[string]any) string {
	filter["!ID"] = r.campaign.ExcludedUserIDs

	users, err := r.users.GetUsers(ctx, filter)
	if err != nil {
		r.log.Warn("user lookup failed, falling through", "error", err)
		return ""
	}
	if len(users) == 0 {
		return ""
	}

	return users[0].ID.String()
}
