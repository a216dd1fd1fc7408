package picture

import "fmt"

// CompileError reports a malformed mask. Position is the 1-based column of
// the offending character in the mask string. Compile errors surface at
// form-definition load time and abort form initialisation.
type CompileError struct {
	Spec     string
	Position int
	Char     rune
	Reason   string
}

func (e *CompileError) Error() string {
	if e.Char != 0 {
		return fmt.Sprintf("picture: mask %q: %s at column %d (%q)",
			e.Spec, e.Reason, e.Position, e.Char)
	}
	return fmt.Sprintf("picture: mask %q: %s", e.Spec, e.Reason)
}

// ParseError reports a raw value that does not conform to a compiled mask.
// It is recoverable and is surfaced to callers as a field error.
type ParseError struct {
	Spec   string
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("picture: value %q does not match mask %q: %s",
		e.Input, e.Spec, e.Reason)
}

func newParseError(m *Mask, input, reason string) *ParseError {
	return &ParseError{Spec: m.spec, Input: input, Reason: reason}
}

func compileErrorAt(spec string, pos int, ch rune, reason string) *CompileError {
	return &CompileError{Spec: spec, Position: pos + 1, Char: ch, Reason: reason}
}
