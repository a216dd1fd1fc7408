// Package yamlloader loads form definitions from YAML documents on an
// fs.FS. Loading validates the definition, which compiles every picture
// mask, so a malformed mask aborts here rather than during form use.
package yamlloader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-fieldmask/pkg/field"
	"github.com/goliatone/go-fieldmask/pkg/formdef"
)

// Loader implements formdef.Loader over a file system. Names passed to
// Load are paths relative to the FS root.
type Loader struct {
	fs fs.FS
}

// Ensure the implementation satisfies the public interface.
var _ formdef.Loader = (*Loader)(nil)

// New constructs a Loader reading from the given file system.
func New(fsys fs.FS) *Loader {
	return &Loader{fs: fsys}
}

// Load reads and validates one definition document.
func (l *Loader) Load(ctx context.Context, name string) (*formdef.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.fs == nil {
		return nil, errors.New("yamlloader: file system is nil")
	}

	data, err := fs.ReadFile(l.fs, name)
	if err != nil {
		return nil, fmt.Errorf("yamlloader: read %q: %w", name, err)
	}
	return Parse(data)
}

// Parse decodes and validates a definition document held in memory.
func Parse(data []byte) (*formdef.Definition, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yamlloader: decode definition: %w", err)
	}

	def := doc.toDefinition()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// document mirrors the YAML shape of a form definition.
type document struct {
	Name       string         `yaml:"name"`
	Fields     []fieldDoc     `yaml:"fields"`
	CrossRules []crossRuleDoc `yaml:"crossRules"`
}

type fieldDoc struct {
	Name         string    `yaml:"name"`
	Protection   string    `yaml:"protection"`
	Emphasis     string    `yaml:"emphasis"`
	MaxLength    int       `yaml:"maxLength"`
	Mask         string    `yaml:"mask"`
	Required     bool      `yaml:"required"`
	InitialValue string    `yaml:"initialValue"`
	Rules        []ruleDoc `yaml:"rules"`
}

type ruleDoc struct {
	Kind      string   `yaml:"kind"`
	Message   string   `yaml:"message"`
	Min       string   `yaml:"min"`
	Max       string   `yaml:"max"`
	MinLength int      `yaml:"minLength"`
	MaxLength int      `yaml:"maxLength"`
	Values    []string `yaml:"values"`
}

type crossRuleDoc struct {
	ID         string            `yaml:"id"`
	Kind       string            `yaml:"kind"`
	Fields     []string          `yaml:"fields"`
	Dependents []string          `yaml:"dependents"`
	Message    string            `yaml:"message"`
	Params     map[string]string `yaml:"params"`
}

func (d document) toDefinition() *formdef.Definition {
	def := &formdef.Definition{Name: d.Name}

	for _, fd := range d.Fields {
		converted := formdef.FieldDef{
			Attribute: field.AttributeSpec{
				Name:         fd.Name,
				Protection:   field.Protection(fd.Protection),
				Emphasis:     field.Emphasis(fd.Emphasis),
				MaxLength:    fd.MaxLength,
				Mask:         fd.Mask,
				Required:     fd.Required,
				InitialValue: fd.InitialValue,
			},
		}
		for _, rd := range fd.Rules {
			converted.Rules = append(converted.Rules, formdef.RuleDef{
				Kind:      field.RuleKind(rd.Kind),
				Message:   rd.Message,
				Min:       rd.Min,
				Max:       rd.Max,
				MinLength: rd.MinLength,
				MaxLength: rd.MaxLength,
				Values:    append([]string(nil), rd.Values...),
			})
		}
		def.Fields = append(def.Fields, converted)
	}

	for _, cr := range d.CrossRules {
		def.CrossRules = append(def.CrossRules, formdef.CrossRuleDef{
			ID:         cr.ID,
			Kind:       cr.Kind,
			Fields:     append([]string(nil), cr.Fields...),
			Dependents: append([]string(nil), cr.Dependents...),
			Message:    cr.Message,
			Params:     cr.Params,
		})
	}
	return def
}
