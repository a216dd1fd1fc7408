package form

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-fieldmask/pkg/validate"
)

// AsyncRule is a cross-field check that needs external data, such as "the
// account exists". Resolve must honour its context; a nil return means the
// check passed, any other error becomes the rule's failure message.
type AsyncRule struct {
	ID      string
	Fields  []string
	Resolve func(ctx context.Context, values map[string]string) error
}

// AsyncState is the UI-visible lifecycle of one async rule.
type AsyncState string

const (
	// AsyncIdle means no evaluation has been requested yet.
	AsyncIdle AsyncState = "idle"
	// AsyncPending means a check was issued and has not been awaited.
	AsyncPending AsyncState = "pending"
	// AsyncResolved means the latest issued check has been applied.
	AsyncResolved AsyncState = "resolved"
)

// ErrStaleCheck is returned by PendingCheck.Await when a newer change to
// one of the rule's fields superseded the check; its result was discarded.
var ErrStaleCheck = errors.New("form: async check superseded by a newer change")

// PendingCheck is an issued async evaluation the caller awaits. The
// session hands one out per triggered async rule so the UI can show a
// transient "checking" indicator and apply the result when it lands.
type PendingCheck struct {
	session     *Session
	rule        AsyncRule
	generations map[string]uint64
}

// RuleID names the async rule behind the check.
func (p *PendingCheck) RuleID() string { return p.rule.ID }

// Await runs the resolver and folds its verdict into the session,
// returning the refreshed consolidated result. A check made stale by a
// newer change to any of its fields returns ErrStaleCheck and leaves the
// session untouched. A resolver panic degrades to the generic rule-error
// message and is logged, matching synchronous rule failure semantics.
func (p *PendingCheck) Await(ctx context.Context) (validate.Result, error) {
	if err := ctx.Err(); err != nil {
		return validate.Result{}, err
	}
	if p.stale() {
		return validate.Result{}, ErrStaleCheck
	}

	err := p.session.resolveAsync(ctx, p.rule)

	if p.stale() {
		return validate.Result{}, ErrStaleCheck
	}
	p.session.applyAsyncVerdict(p.rule, err)
	return p.session.snapshotResult(), nil
}

func (p *PendingCheck) stale() bool {
	for name, gen := range p.generations {
		if p.session.generations[name] != gen {
			return true
		}
	}
	return false
}

// resolveAsync runs the resolver with panic containment.
func (s *Session) resolveAsync(ctx context.Context, rule AsyncRule) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("async rule panicked",
				zap.String("form", s.name),
				zap.String("rule", rule.ID),
				zap.Any("panic", r))
			err = fmt.Errorf("%w: %v", errRulePanicked, r)
		}
	}()
	return rule.Resolve(ctx, s.canonicalValues())
}

// applyAsyncVerdict records the resolver outcome and marks the rule
// resolved.
func (s *Session) applyAsyncVerdict(rule AsyncRule, err error) {
	s.asyncState[rule.ID] = AsyncResolved
	switch {
	case err == nil:
		delete(s.crossErrors, rule.ID)
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

// AsyncStatus reports the lifecycle state of an async rule.
func (s *Session) AsyncStatus(ruleID string) AsyncState {
	if state, ok := s.asyncState[ruleID]; ok {
		return state
	}
	return AsyncIdle
}

// issueAsyncChecks marks and returns pending checks for every async rule
// reading the changed field.
func (s *Session) issueAsyncChecks(changed string) []*PendingCheck {
	var checks []*PendingCheck
	for _, rule := range s.async {
		if !containsName(rule.Fields, changed) {
			continue
		}
		s.asyncState[rule.ID] = AsyncPending
		generations := make(map[string]uint64, len(rule.Fields))
		for _, name := range rule.Fields {
			generations[name] = s.generations[name]
		}
		checks = append(checks, &PendingCheck{
			session:     s,
			rule:        rule,
			generations: generations,
		})
	}
	return checks
}

func containsName(names []string, target string) bool {
	for _, name := range names {
		if name == target {
			return true
		}
	}
	return false
}
