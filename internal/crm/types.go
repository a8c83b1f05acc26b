package crm

import "encoding/json"

// DealFields is the deal payload submitted to the CRM. Custom-field keys are
// campaign configuration and are passed through verbatim, so the payload is
// an open map rather than a fixed struct.
type DealFields map[string]any

// MultiField is the CRM's phone/email list entry shape.
type MultiField struct {
	Value     string `json:"VALUE"`
	ValueType string `json:"VALUE_TYPE"`
}

// ContactFields is the payload for contact creation.
type ContactFields struct {
	Name       string       `json:"NAME"`
	Phone      []MultiField `json:"PHONE,omitempty"`
	Email      []MultiField `json:"EMAIL,omitempty"`
	AssignedBy string       `json:"ASSIGNED_BY_ID,omitempty"`
}

// User is a CRM user directory entry.
type User struct {
	ID    json.Number `json:"ID"`
	Name  string      `json:"NAME"`
	Email string      `json:"EMAIL"`
}

// Item is a CRM smart-process item (listing directory row). Field names are
// campaign-specific, so values are kept raw and read through StringField.
type Item map[string]json.RawMessage

// StringField returns the item field as a string, tolerating the CRM's habit
// of returning numbers for some custom fields. Missing fields yield "".
func (i Item) StringField(key string) string {
	raw, ok := i[key]
	if !ok {
		return ""
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}
	return ""
}

// RegisterCallParams describes an external call being registered against a
// freshly created deal.
type RegisterCallParams struct {
	UserPhoneInner string `json:"USER_PHONE_INNER"`
	UserID         string `json:"USER_ID"`
	PhoneNumber    string `json:"PHONE_NUMBER"`
	CallStartDate  string `json:"CALL_START_DATE"`
	CRMCreate      bool   `json:"CRM_CREATE"`
	CRMSource      int    `json:"CRM_SOURCE"`
	CRMEntityType  string `json:"CRM_ENTITY_TYPE"`
	CRMEntityID    string `json:"CRM_ENTITY_ID"`
	Show           bool   `json:"SHOW"`
	Type           int    `json:"TYPE"`
	LineNumber     string `json:"LINE_NUMBER"`
}

// FinishCallParams closes out a registered external call.
type FinishCallParams struct {
	CallID     string `json:"CALL_ID"`
	UserID     string `json:"USER_ID"`
	Duration   int    `json:"DURATION"`
	StatusCode int    `json:"STATUS_CODE"`
}
