package form

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-fieldmask/pkg/field"
	"github.com/goliatone/go-fieldmask/pkg/formdef"
	"github.com/goliatone/go-fieldmask/pkg/money"
	"github.com/goliatone/go-fieldmask/pkg/picture"
	"github.com/goliatone/go-fieldmask/pkg/validate"
)

// genericRuleErrorMessage is what the user sees when a rule itself failed
// to evaluate; the real cause goes to the logger.
const genericRuleErrorMessage = "validation rule error"

// errRulePanicked marks evaluator panics internally so they degrade to the
// generic message instead of crashing the session.
var errRulePanicked = errors.New("form: rule evaluation panicked")

// errRuleUnevaluable marks a built-in rule that could not interpret a field
// value it reads. It surfaces as a rule error, never a silent pass.
var errRuleUnevaluable = errors.New("form: rule field value could not be interpreted")

// Session owns one screen's attributes, rules, values, and latest
// validation state. Each session is exclusive to one form instance; no
// state is shared across sessions. Sessions are event-driven and
// single-threaded: methods must be called from one goroutine at a time.
type Session struct {
	name   string
	logger *zap.Logger

	order []string
	attrs map[string]*field.Attribute
	rules map[string][]field.Rule

	cross        []CrossFieldRule
	crossByField map[string][]int
	async        []AsyncRule
	asyncState   map[string]AsyncState

	values      map[string]string
	generations map[string]uint64
	fieldErrors map[string]string
	crossErrors map[string]validate.CrossFieldError
}

// NewSession builds a session from a definition. Construction fails on any
// malformed mask (CompileError), attribute invariant violation, unknown or
// unsatisfied cross rule, or a dependency cycle across the rule set; a
// form never starts in a state that could surprise at runtime.
func NewSession(def *formdef.Definition, opts ...Option) (*Session, error) {
	if def == nil {
		return nil, errors.New("form: definition is nil")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Session{
		name:         def.Name,
		logger:       cfg.logger,
		attrs:        make(map[string]*field.Attribute, len(def.Fields)),
		rules:        make(map[string][]field.Rule, len(def.Fields)),
		crossByField: make(map[string][]int),
		asyncState:   make(map[string]AsyncState),
		values:       make(map[string]string),
		generations:  make(map[string]uint64),
		fieldErrors:  make(map[string]string),
		crossErrors:  make(map[string]validate.CrossFieldError),
	}

	for _, fd := range def.Fields {
		attr, err := field.NewAttribute(fd.Attribute)
		if err != nil {
			return nil, err
		}
		s.order = append(s.order, attr.Name)
		s.attrs[attr.Name] = attr
		s.rules[attr.Name] = append(fd.FieldRules(), cfg.fieldRules[attr.Name]...)
		s.values[attr.Name] = attr.InitialValue
	}
	for name, rules := range cfg.fieldRules {
		attr, ok := s.attrs[name]
		if !ok {
			return nil, fmt.Errorf("form %q: rules declared for unknown field %q", def.Name, name)
		}
		for _, rule := range rules {
			if rule.Kind == field.RulePattern && attr.Mask == nil {
				return nil, fmt.Errorf("form %q: field %q has a pattern rule but no mask", def.Name, name)
			}
		}
	}

	for _, crd := range def.CrossRules {
		rule, err := buildCrossRule(crd, cfg.evaluators)
		if err != nil {
			return nil, err
		}
		s.cross = append(s.cross, rule)
	}
	s.cross = append(s.cross, cfg.crossRules...)

	seenRules := make(map[string]struct{}, len(s.cross))
	for idx, rule := range s.cross {
		if rule.ID == "" {
			return nil, fmt.Errorf("form %q: cross rule without id", def.Name)
		}
		if _, dup := seenRules[rule.ID]; dup {
			return nil, fmt.Errorf("form %q: duplicate cross rule %q", def.Name, rule.ID)
		}
		seenRules[rule.ID] = struct{}{}
		if rule.Evaluate == nil {
			return nil, fmt.Errorf("form %q: cross rule %q has no evaluator", def.Name, rule.ID)
		}
		for _, fname := range rule.Fields {
			if _, ok := s.attrs[fname]; !ok {
				return nil, fmt.Errorf("form %q: cross rule %q reads unknown field %q",
					def.Name, rule.ID, fname)
			}
			s.crossByField[fname] = append(s.crossByField[fname], idx)
		}
	}

	if err := checkDAG(s.cross); err != nil {
		return nil, err
	}

	for _, rule := range cfg.asyncRules {
		if rule.ID == "" || rule.Resolve == nil {
			return nil, fmt.Errorf("form %q: async rule needs an id and a resolver", def.Name)
		}
		for _, fname := range rule.Fields {
			if _, ok := s.attrs[fname]; !ok {
				return nil, fmt.Errorf("form %q: async rule %q reads unknown field %q",
					def.Name, rule.ID, fname)
			}
		}
		s.async = append(s.async, rule)
	}

	return s, nil
}

// Name returns the definition name the session was built from.
func (s *Session) Name() string { return s.name }

// Fields returns the field names in declaration order.
func (s *Session) Fields() []string {
	return append([]string(nil), s.order...)
}

// Attribute returns a field's static contract.
func (s *Session) Attribute(name string) (*field.Attribute, bool) {
	attr, ok := s.attrs[name]
	return attr, ok
}

// Value returns a field's current raw value.
func (s *Session) Value(name string) string { return s.values[name] }

// Check trial-validates a candidate value against the current snapshot
// without committing it: no state changes, no cross-field propagation, and
// no async checks are issued.
func (s *Session) Check(name, raw string) (validate.Outcome, error) {
	attr, ok := s.attrs[name]
	if !ok {
		return validate.Outcome{}, fmt.Errorf("form %q: unknown field %q", s.name, name)
	}
	return validate.Field(attr, s.rules[name], raw, s.snapshot()), nil
}

// SetValue is the FieldChanged transition: it stores the raw value,
// validates the field, evaluates every cross-field rule reading it, and
// re-validates dependents transitively. The visited set bounds propagation
// so no field is re-validated more than once per trigger. The returned
// result is a fresh snapshot; pending checks cover any async rules the
// change triggered and must be awaited by the caller.
func (s *Session) SetValue(ctx context.Context, name, raw string) (validate.Result, []*PendingCheck, error) {
	if err := ctx.Err(); err != nil {
		return validate.Result{}, nil, err
	}
	attr, ok := s.attrs[name]
	if !ok {
		return validate.Result{}, nil, fmt.Errorf("form %q: unknown field %q", s.name, name)
	}
	if !attr.Editable() {
		return validate.Result{}, nil, fmt.Errorf("form %q: field %q is not editable", s.name, name)
	}

	s.generations[name]++
	s.values[name] = raw
	s.revalidateField(name)
	s.propagate(name)

	checks := s.issueAsyncChecks(name)
	return s.snapshotResult(), checks, nil
}

// Submit is the SubmitRequested transition: a full sweep of every field,
// every cross-field rule, and every async rule, ignoring all incremental
// state. The form is accepted iff the returned result is valid; nothing
// partial is ever handed on.
func (s *Session) Submit(ctx context.Context) (validate.Result, error) {
	if err := ctx.Err(); err != nil {
		return validate.Result{}, err
	}

	s.fieldErrors = make(map[string]string)
	s.crossErrors = make(map[string]validate.CrossFieldError)

	for _, name := range s.order {
		s.revalidateField(name)
	}
	for _, rule := range s.cross {
		s.evaluateCross(rule)
	}
	for _, rule := range s.async {
		if err := ctx.Err(); err != nil {
			return validate.Result{}, err
		}
		s.asyncState[rule.ID] = AsyncPending
		s.applyAsyncVerdict(rule, s.resolveAsync(ctx, rule))
	}

	return s.snapshotResult(), nil
}

// Canonical returns the canonicalized value set handed to the transport
// layer: mask-parsed values, with monetary fields rendered as exact
// two-decimal strings. It fails if any field is currently invalid.
func (s *Session) Canonical() (map[string]string, error) {
	out := make(map[string]string, len(s.order))
	for _, name := range s.order {
		attr := s.attrs[name]
		outcome := validate.Field(attr, s.rules[name], s.values[name], s.snapshot())
		if !outcome.Valid {
			return nil, fmt.Errorf("form %q: field %q is invalid: %s", s.name, name, outcome.Message)
		}
		canonical := outcome.Canonical
		if canonical != "" && isMonetary(attr.Mask) {
			amount, err := money.Parse(canonical)
			if err != nil {
				return nil, fmt.Errorf("form %q: field %q: %w", s.name, name, err)
			}
			canonical = amount.Format()
		}
		out[name] = canonical
	}
	return out, nil
}

// Result returns the latest consolidated snapshot.
func (s *Session) Result() validate.Result {
	return s.snapshotResult()
}

func isMonetary(mask *picture.Mask) bool {
	return mask != nil && mask.Kind() == picture.KindNumericSigned && mask.FractionDigits() == 2
}

// revalidateField runs one field's rule set against the current snapshot
// and records at most one message.
func (s *Session) revalidateField(name string) {
	outcome := validate.Field(s.attrs[name], s.rules[name], s.values[name], s.snapshot())
	if outcome.Valid {
		delete(s.fieldErrors, name)
		return
	}
	if outcome.Status == validate.StatusRuleError {
		s.logger.Error("field rule failed to evaluate",
			zap.String("form", s.name),
			zap.String("field", name))
	}
	s.fieldErrors[name] = outcome.Message
}

// propagate walks cross rules breadth-first from the changed field. Each
// rule evaluates at most once and each dependent re-validates at most once
// per trigger.
func (s *Session) propagate(origin string) {
	fieldSeen := map[string]bool{origin: true}
	ruleSeen := make(map[string]bool)
	queue := []string{origin}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, idx := range s.crossByField[current] {
			rule := s.cross[idx]
			if ruleSeen[rule.ID] {
				continue
			}
			ruleSeen[rule.ID] = true
			s.evaluateCross(rule)

			for _, dependent := range rule.Dependents {
				if fieldSeen[dependent] {
					continue
				}
				fieldSeen[dependent] = true
				s.revalidateField(dependent)
				queue = append(queue, dependent)
			}
		}
	}
}

// evaluateCross runs one rule with panic containment and updates the
// recorded cross-field errors. A rule whose read fields are not all
// individually valid is held back; the field errors own those failures.
func (s *Session) evaluateCross(rule CrossFieldRule) {
	for _, name := range rule.Fields {
		if _, bad := s.fieldErrors[name]; bad {
			delete(s.crossErrors, rule.ID)
			return
		}
	}

	err := s.safeEvaluate(rule)
	switch {
	case err == nil:
		delete(s.crossErrors, rule.ID)
	case errors.Is(err, errRuleUnevaluable):
		s.logger.Error("cross-field rule could not read its fields",
			zap.String("form", s.name),
			zap.String("rule", rule.ID),
			zap.Error(err))
		s.crossErrors[rule.ID] = validate.CrossFieldError{
			RuleID:  rule.ID,
			Message: genericRuleErrorMessage,
			Status:  validate.StatusRuleError,
		}
	case errors.Is(err, errRulePanicked):
		s.crossErrors[rule.ID] = validate.CrossFieldError{
			RuleID:  rule.ID,
			Message: genericRuleErrorMessage,
			Status:  validate.StatusRuleError,
		}
	default:
		s.crossErrors[rule.ID] = validate.CrossFieldError{
			RuleID:  rule.ID,
			Message: err.Error(),
			Status:  validate.StatusCrossFieldError,
		}
	}
}

func (s *Session) safeEvaluate(rule CrossFieldRule) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cross-field rule panicked",
				zap.String("form", s.name),
				zap.String("rule", rule.ID),
				zap.Any("panic", r))
			err = fmt.Errorf("%w: %v", errRulePanicked, r)
		}
	}()
	return rule.Evaluate(s.canonicalValues())
}

// snapshot copies the current raw values so evaluators cannot mutate
// session state.
func (s *Session) snapshot() map[string]string {
	out := make(map[string]string, len(s.values))
	for name, value := range s.values {
		out[name] = value
	}
	return out
}

// canonicalValues is the snapshot cross-field rules and async resolvers
// see: mask-parsed values wherever the mask accepts the raw input, so a
// display-formatted entry like "+6,000.00" reads as "6000.00". Values the
// mask rejects pass through raw.
func (s *Session) canonicalValues() map[string]string {
	out := make(map[string]string, len(s.values))
	for name, value := range s.values {
		if attr := s.attrs[name]; attr.Mask != nil && value != "" {
			if parsed, err := attr.Mask.Parse(value); err == nil {
				out[name] = parsed
				continue
			}
		}
		out[name] = value
	}
	return out
}

// snapshotResult assembles a fresh Result, ordering cross-field errors by
// rule declaration: definition rules first, then programmatic, then async.
func (s *Session) snapshotResult() validate.Result {
	var crossErrs []validate.CrossFieldError
	for _, rule := range s.cross {
		if cfe, ok := s.crossErrors[rule.ID]; ok {
			crossErrs = append(crossErrs, cfe)
		}
	}
	for _, rule := range s.async {
		if cfe, ok := s.crossErrors[rule.ID]; ok {
			crossErrs = append(crossErrs, cfe)
		}
	}
	return validate.NewResult(s.fieldErrors, crossErrs)
}
