package field_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-fieldmask/pkg/field"
	"github.com/goliatone/go-fieldmask/pkg/picture"
)

func TestNewAttributeDefaults(t *testing.T) {
	attr, err := field.NewAttribute(field.AttributeSpec{
		Name:      "accountId",
		MaxLength: 11,
		Mask:      "9(11)",
		Required:  true,
	})
	if err != nil {
		t.Fatalf("NewAttribute returned error: %v", err)
	}

	if attr.Protection != field.ProtectionEditable {
		t.Fatalf("protection = %q, want editable default", attr.Protection)
	}
	if attr.Emphasis != field.EmphasisNormal {
		t.Fatalf("emphasis = %q, want normal default", attr.Emphasis)
	}
	if attr.Mask == nil || attr.Mask.Capacity() != 11 {
		t.Fatal("mask was not compiled")
	}
	if !attr.Editable() {
		t.Fatal("editable attribute reported as not editable")
	}
}

func TestProtectedFieldCannotBeRequired(t *testing.T) {
	for _, protection := range []field.Protection{field.ProtectionReadOnly, field.ProtectionHidden} {
		_, err := field.NewAttribute(field.AttributeSpec{
			Name:       "status",
			Protection: protection,
			MaxLength:  2,
			Required:   true,
		})
		if err == nil {
			t.Fatalf("required %s field should be rejected at construction", protection)
		}
	}
}

func TestNewAttributeRejectsBadSpecs(t *testing.T) {
	cases := []field.AttributeSpec{
		{Name: "", MaxLength: 5},
		{Name: "n", MaxLength: 0},
		{Name: "n", MaxLength: -1},
		{Name: "n", MaxLength: 5, Protection: "blinking"},
		{Name: "n", MaxLength: 5, Emphasis: "loud"},
	}
	for _, spec := range cases {
		if _, err := field.NewAttribute(spec); err == nil {
			t.Fatalf("spec %+v should be rejected", spec)
		}
	}
}

func TestMalformedMaskFailsConstruction(t *testing.T) {
	_, err := field.NewAttribute(field.AttributeSpec{
		Name:      "amount",
		MaxLength: 15,
		Mask:      "ZZ9Z.99",
	})
	if err == nil {
		t.Fatal("malformed mask should fail attribute construction")
	}

	var cerr *picture.CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("error type = %T, want wrapped *picture.CompileError", err)
	}
}
