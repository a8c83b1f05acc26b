// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "AE"

// NormalizeE164 formats a phone number to E.164. Interior whitespace is
// stripped first so fallthrough values still match the CRM's stored
// numbers on exact lookup. If parsing fails, it returns the stripped input.
func NormalizeE164(input string) string {
	stripped := strings.Join(strings.Fields(input), "")
	if stripped == "" {
		return stripped
	}

	number, err := phonenumbers.Parse(stripped, defaultRegion)
	if err != nil {
		return stripped
	}

	if !phonenumbers.IsValidNumber(number) {
		return stripped
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
