// Package form runs a form session: it owns one screen's attributes, rule
// sets, and current values, validates fields through pkg/validate as they
// change, and propagates cross-field rules along a dependency graph that is
// proven acyclic at construction time.
package form

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dominikbraun/graph"

	"github.com/goliatone/go-fieldmask/pkg/formdef"
	"github.com/goliatone/go-fieldmask/pkg/money"
)

// Evaluator checks a set of current values. The session hands it canonical
// values: mask-parsed wherever the mask accepts the input, raw otherwise.
// A nil return means the rule passes; a non-nil error supplies the failure
// message.
type Evaluator func(values map[string]string) error

// CrossFieldRule spans multiple fields. Fields lists what the rule reads;
// Dependents lists fields whose validation re-runs when any read field
// changes. Dependents may overlap Fields, but across the whole rule set
// they must form a DAG, which NewSession enforces.
type CrossFieldRule struct {
	ID         string
	Fields     []string
	Dependents []string
	Evaluate   Evaluator
}

// Built-in cross-rule kinds usable from declarative definitions.
const (
	CrossKindAmountNotAbove = "amountNotAbove"
	CrossKindValidDate      = "validDate"
	CrossKindFieldsEqual    = "fieldsEqual"
	CrossKindCustom         = "custom"
)

// buildCrossRule turns a declarative rule into an executable one. Custom
// kinds resolve against the evaluators supplied via WithEvaluator.
func buildCrossRule(def formdef.CrossRuleDef, evaluators map[string]Evaluator) (CrossFieldRule, error) {
	rule := CrossFieldRule{
		ID:         def.ID,
		Fields:     append([]string(nil), def.Fields...),
		Dependents: append([]string(nil), def.Dependents...),
	}

	switch def.Kind {
	case CrossKindAmountNotAbove:
		if len(def.Fields) != 2 {
			return CrossFieldRule{}, fmt.Errorf("form: cross rule %q: amountNotAbove needs exactly two fields", def.ID)
		}
		rule.Evaluate = amountNotAbove(def.Fields[0], def.Fields[1], def.Message)
	case CrossKindValidDate:
		if len(def.Fields) != 3 {
			return CrossFieldRule{}, fmt.Errorf("form: cross rule %q: validDate needs year, month, and day fields", def.ID)
		}
		rule.Evaluate = validDate(def.Fields[0], def.Fields[1], def.Fields[2], def.Message)
	case CrossKindFieldsEqual:
		rule.Evaluate = fieldsEqual(def.Fields, def.Message)
	case CrossKindCustom, "":
		eval, ok := evaluators[def.ID]
		if !ok {
			return CrossFieldRule{}, fmt.Errorf("form: cross rule %q: no evaluator supplied for custom kind", def.ID)
		}
		rule.Evaluate = eval
	default:
		return CrossFieldRule{}, fmt.Errorf("form: cross rule %q: unknown kind %q", def.ID, def.Kind)
	}
	return rule, nil
}

// amountNotAbove fails when the first field's amount exceeds the second's.
// Blank values pass; the per-field rules own presence checks. Values arrive
// canonical, so a value that still cannot be read as an amount is a rule
// error, never a silent pass.
func amountNotAbove(lower, upper, message string) Evaluator {
	return func(values map[string]string) error {
		a, b := values[lower], values[upper]
		if a == "" || b == "" {
			return nil
		}
		left, err := money.Parse(a)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", errRuleUnevaluable, lower, err)
		}
		right, err := money.Parse(b)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", errRuleUnevaluable, upper, err)
		}
		if left.Compare(right) > 0 {
			if message != "" {
				return errors.New(message)
			}
			return fmt.Errorf("%s must not exceed %s", lower, upper)
		}
		return nil
	}
}

// validDate fails when the three parts do not name a real calendar date.
func validDate(yearField, monthField, dayField, message string) Evaluator {
	return func(values map[string]string) error {
		y, m, d := values[yearField], values[monthField], values[dayField]
		if y == "" || m == "" || d == "" {
			return nil
		}
		var year, month, day int
		if _, err := fmt.Sscanf(y+" "+m+" "+d, "%d %d %d", &year, &month, &day); err != nil {
			return fmt.Errorf("%w: %s/%s/%s are not numeric", errRuleUnevaluable, yearField, monthField, dayField)
		}
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
			if message != "" {
				return errors.New(message)
			}
			return fmt.Errorf("%s, %s, and %s do not form a valid date", yearField, monthField, dayField)
		}
		return nil
	}
}

// fieldsEqual fails when the listed fields disagree while all are filled.
func fieldsEqual(fields []string, message string) Evaluator {
	return func(values map[string]string) error {
		first := ""
		for i, name := range fields {
			value := values[name]
			if value == "" {
				return nil
			}
			if i == 0 {
				first = value
				continue
			}
			if value != first {
				if message != "" {
					return errors.New(message)
				}
				return fmt.Errorf("%s must all match", strings.Join(fields, ", "))
			}
		}
		return nil
	}
}

// checkDAG proves that dependents form a DAG over the rule set: an edge
// runs from rule A to rule B when re-validating one of A's dependents would
// re-evaluate B. Self-edges are excluded: a rule whose dependents overlap
// its own fields is bounded at runtime by the per-trigger visited set.
func checkDAG(rules []CrossFieldRule) error {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	for _, rule := range rules {
		if err := g.AddVertex(rule.ID); err != nil {
			return fmt.Errorf("form: cross rule %q: %w", rule.ID, err)
		}
	}

	reads := make(map[string][]string) // field name -> rule IDs reading it
	for _, rule := range rules {
		for _, name := range rule.Fields {
			reads[name] = append(reads[name], rule.ID)
		}
	}

	for _, rule := range rules {
		for _, dependent := range rule.Dependents {
			for _, target := range reads[dependent] {
				if target == rule.ID {
					continue
				}
				err := g.AddEdge(rule.ID, target)
				if err == nil || errors.Is(err, graph.ErrEdgeAlreadyExists) {
					continue
				}
				if errors.Is(err, graph.ErrEdgeCreatesCycle) {
					return fmt.Errorf("form: cross rules %q and %q depend on each other's re-evaluation",
						rule.ID, target)
				}
				return fmt.Errorf("form: cross rule %q: %w", rule.ID, err)
			}
		}
	}
	return nil
}
