package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-fieldmask/pkg/field"
	"github.com/goliatone/go-fieldmask/pkg/money"
)

// Snapshot carries the form's current raw values by field name. Field-level
// validation is strictly per-field; sibling values belong to the
// cross-field machinery, which receives its own canonical snapshot.
type Snapshot map[string]string

// Outcome is the verdict for one field. Canonical holds the value after
// mask parsing (or the raw value when the field has no mask) and is only
// meaningful when Valid is true.
type Outcome struct {
	Valid     bool
	Status    Status
	Message   string
	Canonical string
}

func ok(canonical string) Outcome {
	return Outcome{Valid: true, Status: StatusOK, Canonical: canonical}
}

func fail(message string) Outcome {
	return Outcome{Status: StatusFieldError, Message: message}
}

// Field evaluates one field's raw value against its attribute and declared
// rules. Rules run in declaration order and the first failure wins, with
// one exception the engine enforces itself: numericRange and
// enumeratedValues operate on the parsed value, so they always run after a
// successful mask check regardless of where the caller declared them.
//
// Field is pure. A custom predicate that panics degrades to a generic
// message with StatusRuleError; it never escapes.
func Field(attr *field.Attribute, rules []field.Rule, raw string, snapshot Snapshot) Outcome {
	if attr == nil {
		return Outcome{Status: StatusRuleError, Message: genericRuleErrorMessage}
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		if attr.Required {
			return fail(renderMessage(requiredTemplate(rules), attr.Name, raw, maskHint(attr)))
		}
		return ok("")
	}

	if utf8.RuneCountInString(raw) > attr.MaxLength {
		return fail(fmt.Sprintf("%s must be at most %d characters", attr.Name, attr.MaxLength))
	}

	// First pass: declaration order, skipping the parsed-value kinds.
	var deferred []field.Rule
	for _, rule := range rules {
		switch rule.Kind {
		case field.RuleRequired:
			// handled above
		case field.RuleNumericRange, field.RuleEnumeratedValues:
			deferred = append(deferred, rule)
		case field.RulePattern:
			if attr.Mask != nil && !attr.Mask.Match(raw) {
				return fail(renderMessage(templateOr(rule.Message, defaultPatternMessage),
					attr.Name, raw, attr.Mask.Hint()))
			}
		case field.RuleLength:
			if outcome, failed := checkLength(attr, rule, raw); failed {
				return outcome
			}
		case field.RuleCustom:
			if outcome, failed := checkCustom(attr, rule, raw); failed {
				return outcome
			}
		default:
			return Outcome{Status: StatusRuleError, Message: genericRuleErrorMessage}
		}
	}

	canonical := raw
	if attr.Mask != nil {
		parsed, err := attr.Mask.Parse(raw)
		if err != nil {
			return fail(renderMessage(defaultPatternMessage, attr.Name, raw, attr.Mask.Hint()))
		}
		canonical = parsed
	}

	// Second pass: parsed-value rules, still in declaration order.
	for _, rule := range deferred {
		switch rule.Kind {
		case field.RuleNumericRange:
			if outcome, failed := checkNumericRange(attr, rule, canonical, raw); failed {
				return outcome
			}
		case field.RuleEnumeratedValues:
			if outcome, failed := checkEnumerated(attr, rule, canonical, raw); failed {
				return outcome
			}
		}
	}

	return ok(canonical)
}

func checkLength(attr *field.Attribute, rule field.Rule, raw string) (Outcome, bool) {
	length := utf8.RuneCountInString(raw)
	if rule.MinLength > 0 && length < rule.MinLength {
		return fail(renderMessage(templateOr(rule.Message, defaultLengthMessage),
			attr.Name, raw, maskHint(attr))), true
	}
	if rule.MaxLength > 0 && length > rule.MaxLength {
		return fail(renderMessage(templateOr(rule.Message, defaultLengthMessage),
			attr.Name, raw, maskHint(attr))), true
	}
	return Outcome{}, false
}

func checkCustom(attr *field.Attribute, rule field.Rule, raw string) (outcome Outcome, failed bool) {
	if rule.Predicate == nil {
		return Outcome{}, false
	}

	defer func() {
		if recover() != nil {
			outcome = Outcome{Status: StatusRuleError, Message: genericRuleErrorMessage}
			failed = true
		}
	}()

	if err := rule.Predicate(raw); err != nil {
		message := rule.Message
		if message == "" {
			message = err.Error()
		}
		if message == "" {
			message = defaultCustomMessage
		}
		return fail(renderMessage(message, attr.Name, raw, maskHint(attr))), true
	}
	return Outcome{}, false
}

func checkNumericRange(attr *field.Attribute, rule field.Rule, canonical, raw string) (Outcome, bool) {
	value, err := money.Parse(canonical)
	if err != nil {
		return fail(renderMessage(templateOr(rule.Message, defaultRangeMessage),
			attr.Name, raw, maskHint(attr))), true
	}

	if rule.Min != "" {
		min, err := money.Parse(rule.Min)
		if err != nil {
			return Outcome{Status: StatusRuleError, Message: genericRuleErrorMessage}, true
		}
		if value.Compare(min) < 0 {
			return fail(renderMessage(templateOr(rule.Message, defaultRangeMessage),
				attr.Name, raw, maskHint(attr))), true
		}
	}
	if rule.Max != "" {
		max, err := money.Parse(rule.Max)
		if err != nil {
			return Outcome{Status: StatusRuleError, Message: genericRuleErrorMessage}, true
		}
		if value.Compare(max) > 0 {
			return fail(renderMessage(templateOr(rule.Message, defaultRangeMessage),
				attr.Name, raw, maskHint(attr))), true
		}
	}
	return Outcome{}, false
}

func checkEnumerated(attr *field.Attribute, rule field.Rule, canonical, raw string) (Outcome, bool) {
	for _, allowed := range rule.Values {
		if canonical == allowed {
			return Outcome{}, false
		}
	}
	return fail(renderMessage(templateOr(rule.Message, defaultEnumMessage),
		attr.Name, raw, maskHint(attr))), true
}

// requiredTemplate returns the declared required rule's template when one
// exists, so callers control the wording of the most common failure.
func requiredTemplate(rules []field.Rule) string {
	for _, rule := range rules {
		if rule.Kind == field.RuleRequired && rule.Message != "" {
			return rule.Message
		}
	}
	return defaultRequiredMessage
}

func templateOr(template, fallback string) string {
	if template == "" {
		return fallback
	}
	return template
}

func maskHint(attr *field.Attribute) string {
	if attr.Mask == nil {
		return ""
	}
	return attr.Mask.Hint()
}
