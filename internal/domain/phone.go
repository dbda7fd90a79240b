package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^\+\d{10,15}$`)

// NormalizePhone cleans a user-supplied phone number into the +<digits> form
// the order backend expects. Whitespace, hyphens, and parentheses are
// stripped; a leading + is prepended when absent. The cleaned value must be
// a + followed by 10 to 15 digits.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return "", fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if !strings.HasPrefix(cleaned, "+") {
		cleaned = "+" + cleaned
	}
	if !phonePattern.MatchString(cleaned) {
		return "", fmt.Errorf("%w: invalid phone number %q", ErrValidation, raw)
	}
	return cleaned, nil
}
