package ingest

import (
	"context"
	"encoding/json"
	"testing"

	"leadbridge/internal/crm"
	"leadbridge/platform/logger"
)

func testLogger() *logger.Logger {
	return logger.New("production")
}

func testCampaign(t *testing.T) CampaignConfig {
	t.Helper()
	campaign, err := CampaignByName("primary")
	if err != nil {
		t.Fatalf("load primary campaign: %v", err)
	}
	return campaign
}

type fakeListings struct {
	items   []crm.Item
	err     error
	filters []map[string]any
}

func (f *fakeListings) ListItems(_ context.Context, _ int, filter map[string]any, _ []string) ([]crm.Item, error) {
	f.filters = append(f.filters, filter)
	return f.items, f.err
}

type fakeUsers struct {
	users   []crm.User
	err     error
	filters []map[string]any
}

func (f *fakeUsers) GetUsers(_ context.Context, filter map[string]any) ([]crm.User, error) {
	f.filters = append(f.filters, filter)
	return f.users, f.err
}

func listingItem(fields map[string]string) crm.Item {
	item := crm.Item{}
	for key, value := range fields {
		encoded, _ := json.Marshal(value)
		item[key] = encoded
	}
	return item
}

func TestOwnerResolverUsesListingOwnerID(t *testing.T) {
	campaign := testCampaign(t)
	listings := &fakeListings{items: []crm.Item{
		listingItem(map[string]string{campaign.Listing.OwnerID: "42"}),
	}}
	users := &fakeUsers{}
	resolver := NewOwnerResolver(listings, users, campaign, testLogger())

	ownerID := resolver.Resolve(context.Background(), LeadData{ID: "L1", PropertyReference: "AP-100"})
	if ownerID != "42" {
		t.Fatalf("expected owner=%q, got %q", "42", ownerID)
	}
	if len(users.filters) != 0 {
		t.Fatalf("expected no user lookup when listing carries an owner id, got %d", len(users.filters))
	}
}

func TestOwnerResolverTreatsNullOwnerIDAsMissing(t *testing.T) {
	campaign := testCampaign(t)
	listings := &fakeListings{items: []crm.Item{
		listingItem(map[string]string{
			campaign.Listing.OwnerID:    "null",
			campaign.Listing.AgentEmail: "agent@example.com",
		}),
	}}
	users := &fakeUsers{users: []crm.User{{ID: json.Number("77")}}}
	resolver := NewOwnerResolver(listings, users, campaign, testLogger())

	ownerID := resolver.Resolve(context.Background(), LeadData{ID: "L1", PropertyReference: "AP-100"})
	if ownerID != "77" {
		t.Fatalf("expected email lookup to resolve owner 77, got %q", ownerID)
	}
	if got := users.filters[0]["EMAIL"]; got != "agent@example.com" {
		t.Fatalf("expected email filter %q, got %v", "agent@example.com", got)
	}
}

func TestOwnerResolverSplitsListingOwnerName(t *testing.T) {
	campaign := testCampaign(t)
	listings := &fakeListings{items: []crm.Item{
		listingItem(map[string]string{campaign.Listing.OwnerName: "Jane Marie Anne Doe"}),
	}}
	users := &fakeUsers{users: []crm.User{{ID: json.Number("12")}}}
	resolver := NewOwnerResolver(listings, users, campaign, testLogger())

	ownerID := resolver.Resolve(context.Background(), LeadData{ID: "L1", PropertyReference: "AP-100"})
	if ownerID != "12" {
		t.Fatalf("expected owner=%q, got %q", "12", ownerID)
	}

	filter := users.filters[0]
	if filter["%NAME"] != "Jane" {
		t.Fatalf("expected first name %q, got %v", "Jane", filter["%NAME"])
	}
	if filter["%LAST_NAME"] != "Doe" {
		t.Fatalf("expected last name %q, got %v", "Doe", filter["%LAST_NAME"])
	}
	if filter["%SECOND_NAME"] != "Marie Anne" {
		t.Fatalf("expected middle names %q, got %v", "Marie Anne", filter["%SECOND_NAME"])
	}
}

func TestOwnerResolverExcludesDisabledAccounts(t *testing.T) {
	campaign := testCampaign(t)
	listings := &fakeListings{}
	users := &fakeUsers{users: []crm.User{{ID: json.Number("9")}}}
	resolver := NewOwnerResolver(listings, users, campaign, testLogger())

	resolver.Resolve(context.Background(), LeadData{ID: "L1", AgentName: "Omar Khalil"})

	excluded, ok := users.filters[0]["!ID"].([]string)
	if !ok {
		t.Fatalf("expected !ID exclusion filter, got %v", users.filters[0]["!ID"])
	}
	if len(excluded) != 2 || excluded[0] != "3" || excluded[1] != "268" {
		t.Fatalf("expected exclusions [3 268], got %v", excluded)
	}
}

func TestOwnerResolverAgentNameNeedsTwoTokens(t *testing.T) {
	campaign := testCampaign(t)
	users := &fakeUsers{users: []crm.User{{ID: json.Number("9")}}}
	resolver := NewOwnerResolver(&fakeListings{}, users, campaign, testLogger())

	ownerID := resolver.Resolve(context.Background(), LeadData{ID: "L1", AgentName: "Madonna"})
	if ownerID != campaign.DefaultOwnerID {
		t.Fatalf("expected default owner %q for single-token agent name, got %q", campaign.DefaultOwnerID, ownerID)
	}
	if len(users.filters) != 0 {
		t.Fatalf("expected no user lookup for single-token agent name, got %d", len(users.filters))
	}
}

func TestOwnerResolverFallsThroughListingMissToAgentName(t *testing.T) {
	campaign := testCampaign(t)
	listings := &fakeListings{}
	users := &fakeUsers{users: []crm.User{{ID: json.Number("55")}}}
	resolver := NewOwnerResolver(listings, users, campaign, testLogger())

	ownerID := resolver.Resolve(context.Background(), LeadData{
		ID:                "L1",
		PropertyReference: "AP-404",
		AgentName:         "Omar Khalil",
	})
	if ownerID != "55" {
		t.Fatalf("expected agent-name lookup to resolve owner 55, got %q", ownerID)
	}
	if users.filters[0]["%NAME"] != "Omar" || users.filters[0]["%LAST_NAME"] != "Khalil" {
		t.Fatalf("unexpected agent-name filter %v", users.filters[0])
	}
}

func TestOwnerResolverErrorsCollapseToDefault(t *testing.T) {
	campaign := testCampaign(t)
	listings := &fakeListings{err: context.DeadlineExceeded}
	users := &fakeUsers{err: context.DeadlineExceeded}
	resolver := NewOwnerResolver(listings, users, campaign, testLogger())

	ownerID := resolver.Resolve(context.Background(), LeadData{
		ID:                "L1",
		PropertyReference: "AP-100",
		AgentName:         "Omar Khalil",
	})
	if ownerID != campaign.DefaultOwnerID {
		t.Fatalf("expected default owner %q when every lookup fails, got %q", campaign.DefaultOwnerID, ownerID)
	}
}

func TestOwnerResolverDefaultWithoutAnySignal(t *testing.T) {
	campaign := testCampaign(t)
	resolver := NewOwnerResolver(&fakeListings{}, &fakeUsers{}, campaign, testLogger())

	ownerID := resolver.Resolve(context.Background(), LeadData{ID: "L1"})
	if ownerID != campaign.DefaultOwnerID {
		t.Fatalf("expected default owner %q, got %q", campaign.DefaultOwnerID, ownerID)
	}
}
