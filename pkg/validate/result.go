// Package validate evaluates one field's raw value against its attribute
// contract and declared rule set, and defines the consolidated result shape
// shared with the cross-field engine. Evaluation is pure: the same inputs
// always produce the same outcome, and nothing here performs I/O.
package validate

// Status is the canonical taxonomy for validation outcomes. The legacy
// source material carries several mutually inconsistent status-code
// enumerations; this semantic set is the one this engine speaks, and other
// code systems map onto it at the boundary.
type Status string

const (
	StatusOK              Status = "ok"
	StatusFieldError      Status = "fieldError"
	StatusCrossFieldError Status = "crossFieldError"
	// StatusRuleError marks a rule that itself failed to evaluate; the
	// user sees a generic message and the incident is logged.
	StatusRuleError Status = "ruleError"
)

// CrossFieldError is one failed multi-field rule, in evaluation order.
type CrossFieldError struct {
	RuleID  string `json:"ruleId"`
	Message string `json:"message"`
	Status  Status `json:"status"`
}

// Result is the consolidated snapshot handed to the UI layer. A
// recomputation always builds a fresh Result; callers never observe
// in-place mutation. FieldErrors holds at most one message per field, the
// first failing rule in declaration order.
type Result struct {
	IsValid          bool              `json:"isValid"`
	FieldErrors      map[string]string `json:"fieldErrors,omitempty"`
	CrossFieldErrors []CrossFieldError `json:"crossFieldErrors,omitempty"`
}

// NewResult assembles a Result from accumulated errors, copying both
// collections so later mutation by the caller cannot leak into a snapshot
// already handed out.
func NewResult(fieldErrors map[string]string, crossErrors []CrossFieldError) Result {
	result := Result{
		IsValid: len(fieldErrors) == 0 && len(crossErrors) == 0,
	}
	if len(fieldErrors) > 0 {
		result.FieldErrors = make(map[string]string, len(fieldErrors))
		for name, message := range fieldErrors {
			result.FieldErrors[name] = message
		}
	}
	if len(crossErrors) > 0 {
		result.CrossFieldErrors = append([]CrossFieldError(nil), crossErrors...)
	}
	return result
}
