package sourceapi

import (
	"encoding/json"
	"fmt"
)

// SourceType identifies one of the portal's lead feeds.
type SourceType string

const (
	SourceCall     SourceType = "call"
	SourceEmail    SourceType = "email"
	SourceWhatsApp SourceType = "whatsapp"
)

// Mode returns the campaign enquiry mode tag for this source.
func (s SourceType) Mode() string {
	switch s {
	case SourceCall:
		return "CALL"
	case SourceWhatsApp:
		return "WHATSAPP"
	default:
		return "EMAIL"
	}
}

// path returns the API resource for this source.
func (s SourceType) path() string {
	switch s {
	case SourceCall:
		return "calltrackings"
	case SourceWhatsApp:
		return "whatsapp-leads"
	default:
		return "leads"
	}
}

// envelopeKey returns the JSON key the API nests this source's records under.
func (s SourceType) envelopeKey() string {
	switch s {
	case SourceCall:
		return "call_trackings"
	case SourceWhatsApp:
		return "whatsapp"
	default:
		return "leads"
	}
}

// FlexString handles JSON values that can be either string or number.
// The portal API is inconsistent about numeric identifiers.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*f = FlexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexString(num.String())
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into FlexString", string(data))
}

func (f FlexString) String() string { return string(f) }

// RawAgent is the portal agent attached to a lead, under user.public.
type RawAgent struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// RawNote is a free-text note on a lead.
type RawNote struct {
	Body string `json:"body"`
}

// RawLead is a lead record as returned by the portal, covering the union of
// the call, email and chat shapes. Absent fields decode to zero values and
// are resolved by the normalizer's fallback rules; the record itself is
// never mutated after decoding.
type RawLead struct {
	ID                FlexString `json:"id"`
	PropertyReference string     `json:"property_reference"`
	Reference         string     `json:"reference"`
	ClientName        string     `json:"client_name"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Phone             string     `json:"phone"`
	Mobile            string     `json:"mobile"`
	Email             string     `json:"email"`
	CreatedAt         string     `json:"created_at"`
	Notes             []RawNote  `json:"notes"`

	User struct {
		Public RawAgent `json:"public"`
	} `json:"user"`

	// Call-tracking shape only.
	Status      string `json:"status"`
	CallStart   string `json:"call_start"`
	CallEnd     string `json:"call_end"`
	CallTime    string `json:"call_time"`
	TalkTime    string `json:"talk_time"`
	WaitTime    string `json:"wait_time"`
	DownloadURL string `json:"download_url"`
}

// IsCallRecord reports whether the record carries call-tracking fields.
func (r RawLead) IsCallRecord() bool {
	return r.CallStart != "" || r.DownloadURL != ""
}

// TalkTimeSeconds converts the hh:mm:ss talk time into seconds.
// Returns 0 for missing or malformed values.
func (r RawLead) TalkTimeSeconds() int {
	return clockToSeconds(r.TalkTime)
}

func clockToSeconds(clock string) int {
	var h, m, s int
	if _, err := fmt.Sscanf(clock, "%d:%d:%d", &h, &m, &s); err != nil {
		return 0
	}
	return h*3600 + m*60 + s
}
