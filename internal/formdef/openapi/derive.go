// Package openapi derives form definitions from an OpenAPI document. One
// operation's request body becomes one screen: string properties map to
// attributes, schema constraints (maxLength, enum, minimum/maximum) map to
// field rules, and the x-picture extension carries the legacy mask.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-fieldmask/pkg/field"
	"github.com/goliatone/go-fieldmask/pkg/formdef"
	"github.com/goliatone/go-fieldmask/pkg/picture"
)

// Extension keys recognised on property schemas.
const (
	maskExtensionKey       = "x-picture"
	protectionExtensionKey = "x-protection"
	emphasisExtensionKey   = "x-emphasis"
)

// Derive loads an OpenAPI document from raw bytes and builds the form
// definition for the named operation's request body.
func Derive(ctx context.Context, raw []byte, operationID string) (*formdef.Definition, error) {
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}

	operation := findOperation(spec, operationID)
	if operation == nil {
		return nil, fmt.Errorf("openapi: operation %q not found", operationID)
	}

	schema := requestSchema(operation)
	if schema == nil {
		return nil, fmt.Errorf("openapi: operation %q has no request body schema", operationID)
	}

	def, err := definitionFromSchema(operationID, schema)
	if err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func findOperation(spec *openapi3.T, operationID string) *openapi3.Operation {
	if spec.Paths == nil {
		return nil
	}
	for _, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for _, operation := range []*openapi3.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Patch,
		} {
			if operation != nil && operation.OperationID == operationID {
				return operation
			}
		}
	}
	return nil
}

func requestSchema(operation *openapi3.Operation) *openapi3.Schema {
	if operation.RequestBody == nil || operation.RequestBody.Value == nil {
		return nil
	}
	for _, contentType := range []string{"application/json", "application/x-www-form-urlencoded"} {
		if mt := operation.RequestBody.Value.Content.Get(contentType); mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func definitionFromSchema(name string, schema *openapi3.Schema) (*formdef.Definition, error) {
	required := make(map[string]bool, len(schema.Required))
	for _, propName := range schema.Required {
		required[propName] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for propName := range schema.Properties {
		names = append(names, propName)
	}
	sort.Strings(names)

	def := &formdef.Definition{Name: name}
	for _, propName := range names {
		ref := schema.Properties[propName]
		if ref == nil || ref.Value == nil {
			continue
		}
		fd, err := fieldFromProperty(propName, ref.Value, required[propName])
		if err != nil {
			return nil, err
		}
		def.Fields = append(def.Fields, fd)
	}
	return def, nil
}

func fieldFromProperty(name string, prop *openapi3.Schema, required bool) (formdef.FieldDef, error) {
	spec := field.AttributeSpec{
		Name:       name,
		Required:   required,
		Protection: field.Protection(stringExtension(prop.Extensions, protectionExtensionKey)),
		Emphasis:   field.Emphasis(stringExtension(prop.Extensions, emphasisExtensionKey)),
		Mask:       stringExtension(prop.Extensions, maskExtensionKey),
	}
	if prop.Default != nil {
		spec.InitialValue = fmt.Sprint(prop.Default)
	}

	switch {
	case prop.MaxLength != nil:
		spec.MaxLength = int(*prop.MaxLength)
	case spec.Mask != "":
		width, err := maskDisplayWidth(spec.Mask)
		if err != nil {
			return formdef.FieldDef{}, fmt.Errorf("openapi: property %q: %w", name, err)
		}
		spec.MaxLength = width
	default:
		spec.MaxLength = 255
	}

	fd := formdef.FieldDef{Attribute: spec}
	if required {
		fd.Rules = append(fd.Rules, formdef.RuleDef{Kind: field.RuleRequired})
	}
	if spec.Mask != "" {
		fd.Rules = append(fd.Rules, formdef.RuleDef{Kind: field.RulePattern})
	}
	if len(prop.Enum) > 0 {
		rule := formdef.RuleDef{Kind: field.RuleEnumeratedValues}
		for _, value := range prop.Enum {
			rule.Values = append(rule.Values, fmt.Sprint(value))
		}
		fd.Rules = append(fd.Rules, rule)
	}
	if prop.Min != nil || prop.Max != nil {
		rule := formdef.RuleDef{Kind: field.RuleNumericRange}
		if prop.Min != nil {
			rule.Min = formatBound(*prop.Min)
		}
		if prop.Max != nil {
			rule.Max = formatBound(*prop.Max)
		}
		fd.Rules = append(fd.Rules, rule)
	}
	if prop.MinLength > 0 {
		fd.Rules = append(fd.Rules, formdef.RuleDef{
			Kind:      field.RuleLength,
			MinLength: int(prop.MinLength),
		})
	}
	return fd, nil
}

// maskDisplayWidth is the widest display string a mask can produce: its
// digit or character capacity plus sign, separator, and decimal-point
// literals.
func maskDisplayWidth(maskSpec string) (int, error) {
	mask, err := picture.Compile(maskSpec)
	if err != nil {
		return 0, err
	}
	width := mask.Capacity() + len(mask.SeparatorPositions())
	if mask.Signed() {
		width++
	}
	if mask.FractionDigits() > 0 {
		width++
	}
	return width, nil
}

func formatBound(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func stringExtension(extensions map[string]any, key string) string {
	if len(extensions) == 0 {
		return ""
	}
	if value, ok := extensions[key].(string); ok {
		return value
	}
	return ""
}
