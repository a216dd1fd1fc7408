// Package formdef declares the static form-definition contract: the field
// attributes, per-field rules, and cross-field rules one screen is built
// from. Definitions arrive from configuration (YAML, OpenAPI) once per
// screen; loader implementations live under internal/formdef.
package formdef

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-fieldmask/pkg/field"
)

// FieldDef pairs an attribute spec with its declared rules.
type FieldDef struct {
	Attribute field.AttributeSpec
	Rules     []RuleDef
}

// RuleDef is the declarative, serialisable form of a field rule. Custom
// predicates cannot travel through configuration; a RuleDef of kind
// "custom" is satisfied at session construction by code-supplied rules.
type RuleDef struct {
	Kind      field.RuleKind
	Message   string
	Min       string
	Max       string
	MinLength int
	MaxLength int
	Values    []string
}

// CrossRuleDef is the declarative form of a cross-field rule. Kind selects
// one of the built-in evaluators (amountNotAbove, validDate, fieldsEqual)
// or "custom" for rules whose evaluator is attached in code. Params carries
// kind-specific settings.
type CrossRuleDef struct {
	ID         string
	Kind       string
	Fields     []string
	Dependents []string
	Message    string
	Params     map[string]string
}

// Definition is one screen's complete static contract.
type Definition struct {
	Name       string
	Fields     []FieldDef
	CrossRules []CrossRuleDef
}

// Loader fetches and decodes a form definition from some source. Loading
// compiles every mask, so a malformed picture clause fails here, at
// form-definition load time, never per keystroke.
type Loader interface {
	Load(ctx context.Context, name string) (*Definition, error)
}

// LoaderFunc adapts a function into a Loader.
type LoaderFunc func(ctx context.Context, name string) (*Definition, error)

// Load delegates to the underlying function.
func (fn LoaderFunc) Load(ctx context.Context, name string) (*Definition, error) {
	return fn(ctx, name)
}

var errNoFields = errors.New("formdef: definition has no fields")

// Validate checks the definition's internal consistency: every attribute
// spec constructs (which compiles every mask), every cross rule reads and
// re-triggers only known fields, and rule IDs are unique. It returns the
// first problem found.
func (d *Definition) Validate() error {
	if len(d.Fields) == 0 {
		return errNoFields
	}

	known := make(map[string]struct{}, len(d.Fields))
	for _, fd := range d.Fields {
		if _, err := field.NewAttribute(fd.Attribute); err != nil {
			return fmt.Errorf("formdef %q: %w", d.Name, err)
		}
		if _, dup := known[fd.Attribute.Name]; dup {
			return fmt.Errorf("formdef %q: duplicate field %q", d.Name, fd.Attribute.Name)
		}
		known[fd.Attribute.Name] = struct{}{}

		for _, rd := range fd.Rules {
			if rd.Kind == field.RulePattern && fd.Attribute.Mask == "" {
				return fmt.Errorf("formdef %q: field %q declares a pattern rule but no mask",
					d.Name, fd.Attribute.Name)
			}
		}
	}

	seen := make(map[string]struct{}, len(d.CrossRules))
	for _, rule := range d.CrossRules {
		if rule.ID == "" {
			return fmt.Errorf("formdef %q: cross rule without id", d.Name)
		}
		if _, dup := seen[rule.ID]; dup {
			return fmt.Errorf("formdef %q: duplicate cross rule %q", d.Name, rule.ID)
		}
		seen[rule.ID] = struct{}{}

		if len(rule.Fields) == 0 {
			return fmt.Errorf("formdef %q: cross rule %q reads no fields", d.Name, rule.ID)
		}
		for _, name := range rule.Fields {
			if _, ok := known[name]; !ok {
				return fmt.Errorf("formdef %q: cross rule %q reads unknown field %q",
					d.Name, rule.ID, name)
			}
		}
		for _, name := range rule.Dependents {
			if _, ok := known[name]; !ok {
				return fmt.Errorf("formdef %q: cross rule %q re-triggers unknown field %q",
					d.Name, rule.ID, name)
			}
		}
	}
	return nil
}

// FieldRules converts a field's RuleDefs into engine rules.
func (fd FieldDef) FieldRules() []field.Rule {
	if len(fd.Rules) == 0 {
		return nil
	}
	rules := make([]field.Rule, 0, len(fd.Rules))
	for _, rd := range fd.Rules {
		rules = append(rules, field.Rule{
			Kind:      rd.Kind,
			Message:   rd.Message,
			Min:       rd.Min,
			Max:       rd.Max,
			MinLength: rd.MinLength,
			MaxLength: rd.MaxLength,
			Values:    append([]string(nil), rd.Values...),
		})
	}
	return rules
}
