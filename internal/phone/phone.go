// Package phone normalizes Kenyan MSISDNs to the canonical 254XXXXXXXXX
// format expected by the M-Pesa Daraja API.
package phone

import "regexp"

// Accepted input formats: 254XXXXXXXXX, +254XXXXXXXXX, 0XXXXXXXXX.
var kenyanPattern = regexp.MustCompile(`^(?:254|\+254|0)([0-9]{9})$`)

// Valid reports whether the number is in one of the accepted formats.
func Valid(number string) bool {
	return kenyanPattern.MatchString(number)
}

// Normalize converts an accepted number to 254XXXXXXXXX. Input already in
// canonical form passes through unchanged, so Normalize is idempotent.
// The second return value is false when the number is not normalizable.
func Normalize(number string) (string, bool) {
	m := kenyanPattern.FindStringSubmatch(number)
	if m == nil {
		return "", false
	}
	return "254" + m[1], true
}
