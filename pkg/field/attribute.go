// Package field models the static contract of one terminal-style field:
// protection state, display emphasis, length bound, optional picture mask,
// and required-ness. Attributes are constructed once at form-load time and
// are immutable for the lifetime of a form session.
package field

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-fieldmask/pkg/picture"
)

// Protection describes whether the user can edit a field. The legacy
// attribute bytes UNPROT, ASKIP, and DRK map onto the three variants.
type Protection string

const (
	ProtectionEditable Protection = "editable"
	ProtectionReadOnly Protection = "readOnly"
	ProtectionHidden   Protection = "hidden"
)

// Emphasis is a display hint with no validation effect.
type Emphasis string

const (
	EmphasisNormal Emphasis = "normal"
	EmphasisBright Emphasis = "bright"
)

var (
	errNameMissing       = errors.New("field: attribute name is required")
	errMaxLengthInvalid  = errors.New("field: max length must be a positive integer")
	errProtectedRequired = errors.New("field: a read-only or hidden field cannot be required")
)

// AttributeSpec is the declarative input to NewAttribute. Zero values for
// Protection and Emphasis default to editable and normal.
type AttributeSpec struct {
	Name         string
	Protection   Protection
	Emphasis     Emphasis
	MaxLength    int
	Mask         string // picture clause; empty means free text up to MaxLength
	Required     bool
	InitialValue string
}

// Attribute is one field's validated static contract. Treat it as
// immutable: the engines read it, nothing writes it after construction.
type Attribute struct {
	Name         string
	Protection   Protection
	Emphasis     Emphasis
	MaxLength    int
	Mask         *picture.Mask
	Required     bool
	InitialValue string
}

// NewAttribute validates a spec and compiles its mask. Violations,
// including the "protected fields cannot be required" invariant and any
// mask CompileError, are construction-time failures so a form never runs
// with a bad definition.
func NewAttribute(spec AttributeSpec) (*Attribute, error) {
	if spec.Name == "" {
		return nil, errNameMissing
	}
	if spec.MaxLength <= 0 {
		return nil, fmt.Errorf("field %q: %w", spec.Name, errMaxLengthInvalid)
	}

	protection := spec.Protection
	if protection == "" {
		protection = ProtectionEditable
	}
	switch protection {
	case ProtectionEditable, ProtectionReadOnly, ProtectionHidden:
	default:
		return nil, fmt.Errorf("field %q: unknown protection %q", spec.Name, protection)
	}

	emphasis := spec.Emphasis
	if emphasis == "" {
		emphasis = EmphasisNormal
	}
	switch emphasis {
	case EmphasisNormal, EmphasisBright:
	default:
		return nil, fmt.Errorf("field %q: unknown emphasis %q", spec.Name, emphasis)
	}

	if protection != ProtectionEditable && spec.Required {
		return nil, fmt.Errorf("field %q: %w", spec.Name, errProtectedRequired)
	}

	var mask *picture.Mask
	if spec.Mask != "" {
		compiled, err := picture.Compile(spec.Mask)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", spec.Name, err)
		}
		mask = compiled
	}

	return &Attribute{
		Name:         spec.Name,
		Protection:   protection,
		Emphasis:     emphasis,
		MaxLength:    spec.MaxLength,
		Mask:         mask,
		Required:     spec.Required,
		InitialValue: spec.InitialValue,
	}, nil
}

// Editable reports whether the user may change the field's value.
func (a *Attribute) Editable() bool {
	return a.Protection == ProtectionEditable
}
