package field

// RuleKind enumerates the declarative per-field rule kinds.
type RuleKind string

const (
	RuleRequired         RuleKind = "required"
	RulePattern          RuleKind = "pattern"
	RuleLength           RuleKind = "length"
	RuleNumericRange     RuleKind = "numericRange"
	RuleEnumeratedValues RuleKind = "enumeratedValues"
	RuleCustom           RuleKind = "custom"
)

// Predicate is a pure check for RuleCustom. A nil return means the value
// passes; a non-nil error supplies the failure text (the rule's Message
// template wins when set).
type Predicate func(value string) error

// Rule is one declarative validation constraint bound to a field. Message
// is a template: `{field}`, `{value}`, and `{hint}` expand to the field
// name, the (sanitised) raw value, and the mask hint.
type Rule struct {
	Kind    RuleKind
	Message string

	// Min and Max bound RuleNumericRange as exact decimal strings; an
	// empty bound is open. MinLength/MaxLength bound RuleLength.
	Min       string
	Max       string
	MinLength int
	MaxLength int

	// Values lists the admissible inputs for RuleEnumeratedValues.
	Values []string

	// Predicate backs RuleCustom.
	Predicate Predicate
}
