package ingest

import (
	"fmt"

	"leadbridge/internal/sourceapi"
)

// DealFieldIDs is the campaign's custom-field vocabulary on the deal entity.
// The identifiers are opaque CRM configuration, not semantics.
type DealFieldIDs struct {
	PropertyReference string
	ClientName        string
	ClientEmail       string
	ClientEmailAlt    string
	ClientPhoneWork   string
	ClientPhoneAlt    string
	EnquiryDate       string
}

// ListingFieldIDs names the listing-directory fields consulted during owner
// resolution and price lookup.
type ListingFieldIDs struct {
	Reference  string
	OwnerID    string
	OwnerName  string
	AgentEmail string
	Price      string
}

// CampaignConfig carries everything that varies per campaign deployment:
// field vocabularies, source tags, the default owner and the disabled
// accounts excluded from user lookups. It is immutable after construction
// and injected into the resolvers and the field mapper.
type CampaignConfig struct {
	Name                 string
	Brand                string
	DefaultOwnerID       string
	ExcludedUserIDs      []string
	ListingsEntityTypeID int
	CategoryID           int
	SourceTags           map[string]string
	TelephonySource      int
	TelephonyLinePrefix  string
	Deal                 DealFieldIDs
	Listing              ListingFieldIDs
}

// SourceTag returns the CRM source tag for an enquiry mode, falling back to
// the email tag for modes without a dedicated one.
func (c CampaignConfig) SourceTag(source sourceapi.SourceType) string {
	if tag, ok := c.SourceTags[source.Mode()]; ok {
		return tag
	}
	return c.SourceTags[sourceapi.SourceEmail.Mode()]
}

var campaigns = map[string]CampaignConfig{
	"primary": {
		Name:                 "primary",
		Brand:                "Property Finder",
		DefaultOwnerID:       "1593",
		ExcludedUserIDs:      []string{"3", "268"},
		ListingsEntityTypeID: 1084,
		CategoryID:           24,
		SourceTags: map[string]string{
			"CALL":     "UC_L31Q25",
			"EMAIL":    "RC_GENERATOR",
			"WHATSAPP": "RC_GENERATOR",
		},
		TelephonySource:     41,
		TelephonyLinePrefix: "PF ",
		Deal: DealFieldIDs{
			PropertyReference: "UF_CRM_1739890146108",
			ClientName:        "UF_CRM_1701770331658",
			ClientEmail:       "UF_CRM_65732038DAD70",
			ClientEmailAlt:    "UF_CRM_1721198325274",
			ClientPhoneWork:   "UF_CRM_PHONE_WORK",
			ClientPhoneAlt:    "UF_CRM_1736406984",
			EnquiryDate:       "UF_CRM_1739890222315",
		},
		Listing: ListingFieldIDs{
			Reference:  "ufCrm37ReferenceNumber",
			OwnerID:    "ufCrm37OwnerId",
			OwnerName:  "ufCrm37ListingOwner",
			AgentEmail: "ufCrm37AgentEmail",
			Price:      "ufCrm37Price",
		},
	},
	"secondary": {
		Name:                 "secondary",
		Brand:                "Property Finder",
		DefaultOwnerID:       "1893",
		ExcludedUserIDs:      []string{"3", "268"},
		ListingsEntityTypeID: 1046,
		CategoryID:           24,
		SourceTags: map[string]string{
			"CALL":     "UC_L31Q25",
			"EMAIL":    "RC_GENERATOR",
			"WHATSAPP": "RC_GENERATOR",
		},
		TelephonySource:     41,
		TelephonyLinePrefix: "PF ",
		Deal: DealFieldIDs{
			PropertyReference: "UF_CRM_1731419307811",
			ClientName:        "UF_CRM_1701770331658",
			ClientEmail:       "UF_CRM_65732038DAD70",
			ClientEmailAlt:    "UF_CRM_1721198325274",
			ClientPhoneWork:   "UF_CRM_PHONE_WORK",
			ClientPhoneAlt:    "UF_CRM_1736406984",
			EnquiryDate:       "UF_CRM_1731419355402",
		},
		Listing: ListingFieldIDs{
			Reference:  "ufCrm5ReferenceNumber",
			OwnerID:    "ufCrm5OwnerId",
			OwnerName:  "ufCrm5AgentName",
			AgentEmail: "ufCrm5AgentEmail",
			Price:      "ufCrm5Price",
		},
	},
}

// CampaignByName returns the named campaign configuration.
func CampaignByName(name string) (CampaignConfig, error) {
	campaign, ok := campaigns[name]
	if !ok {
		return CampaignConfig{}, fmt.Errorf("unknown campaign %q", name)
	}
	return campaign, nil
}
