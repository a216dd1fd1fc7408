package fieldmask

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-fieldmask/internal/formdef/openapi"
	"github.com/goliatone/go-fieldmask/internal/formdef/yamlloader"
	"github.com/goliatone/go-fieldmask/pkg/form"
	"github.com/goliatone/go-fieldmask/pkg/formdef"
	"github.com/goliatone/go-fieldmask/pkg/validate"
)

// Definition aliases formdef.Definition; exported via the root package for
// convenience.
type Definition = formdef.Definition

// Session aliases form.Session, the stateful validation surface for one form.
type Session = form.Session

// Result aliases validate.Result, the aggregate outcome of a validation pass.
type Result = validate.Result

// Option aliases form.Option for configuring sessions from the root package.
type Option = form.Option

// LoadYAML reads a YAML form definition from fsys and validates it.
func LoadYAML(ctx context.Context, fsys fs.FS, name string) (*Definition, error) {
	return yamlloader.New(fsys).Load(ctx, name)
}

// DeriveOpenAPI builds a form definition from the request schema of the named
// operation in a raw OpenAPI document.
func DeriveOpenAPI(ctx context.Context, raw []byte, operationID string) (*Definition, error) {
	return openapi.Derive(ctx, raw, operationID)
}

// NewSession exposes the session constructor from the top-level module. It is
// the simplest entry point for callers that load a definition and want to
// start accepting values.
func NewSession(def *Definition, options ...Option) (*Session, error) {
	return form.NewSession(def, options...)
}

// Validate loads a YAML definition, constructs a session, applies the given
// values in definition order, and returns the submit result.
func Validate(ctx context.Context, fsys fs.FS, name string, values map[string]string, options ...Option) (Result, error) {
	def, err := LoadYAML(ctx, fsys, name)
	if err != nil {
		return Result{}, err
	}
	session, err := form.NewSession(def, options...)
	if err != nil {
		return Result{}, err
	}
	for _, field := range session.Fields() {
		raw, ok := values[field]
		if !ok {
			continue
		}
		if _, _, err := session.SetValue(ctx, field, raw); err != nil {
			return Result{}, err
		}
	}
	return session.Submit(ctx)
}
