package validate

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Default message templates per rule kind, used when a rule declares none.
const (
	defaultRequiredMessage = "{field} is required"
	defaultPatternMessage  = "{field} {hint}"
	defaultLengthMessage   = "{field} has an invalid length"
	defaultRangeMessage    = "{field} is out of range"
	defaultEnumMessage     = "{field} must be one of the allowed values"
	defaultCustomMessage   = "{field} is invalid"
	defaultOverflowMessage = "{field} exceeds its digit capacity"
	// genericRuleErrorMessage covers rules that failed to evaluate.
	genericRuleErrorMessage = "validation rule error"
)

var (
	valuePolicyOnce sync.Once
	valuePolicy     *bluemonday.Policy
)

// sanitizeValue strips any markup from a raw value before it is
// interpolated into a user-facing message. Raw input travels back to the
// UI layer inside error text, so it passes through a strict policy first.
func sanitizeValue(raw string) string {
	valuePolicyOnce.Do(func() {
		valuePolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(valuePolicy.Sanitize(raw))
}

// renderMessage expands the {field}, {value}, and {hint} placeholders.
func renderMessage(template, fieldName, raw, hint string) string {
	replacer := strings.NewReplacer(
		"{field}", fieldName,
		"{value}", sanitizeValue(raw),
		"{hint}", hint,
	)
	return strings.TrimSpace(replacer.Replace(template))
}
