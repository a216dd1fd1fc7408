// Package picture compiles legacy picture-clause masks (for example
// `9(11)`, `+ZZZ,ZZZ,ZZZ.99`, `X(50)`) into a matcher plus a
// formatter/parser pair. The matcher answers "does this raw value conform",
// the formatter renders a canonical value for display (sign, grouping, zero
// suppression), and the parser is its inverse back to canonical form.
//
// Compilation happens once, at form-definition load time. A malformed mask
// is a *CompileError naming the offending character; per-value failures are
// *ParseError and never panic.
package picture

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind classifies the three supported mask families.
type Kind string

const (
	// KindNumericInteger covers pure-digit masks such as `9(11)`.
	KindNumericInteger Kind = "numericInteger"
	// KindNumericSigned covers signed/grouped output masks such as
	// `+ZZZ,ZZZ,ZZZ.99`.
	KindNumericSigned Kind = "numericSigned"
	// KindAlphanumeric covers free-text masks such as `X(50)`.
	KindAlphanumeric Kind = "alphanumeric"
)

// SignMode records which sign placeholder, if any, a mask starts with.
type SignMode int

const (
	// SignNone means the mask has no sign position; values are unsigned.
	SignNone SignMode = iota
	// SignAlways (`+` placeholder) emits an explicit sign for every value.
	SignAlways
	// SignNegativeOnly (`-` placeholder) emits a sign only for negatives.
	SignNegativeOnly
)

// Mask is the compiled form of a picture clause. Masks are immutable and
// safe for concurrent use; equal mask strings compile to behaviourally
// equal masks.
type Mask struct {
	spec       string
	kind       Kind
	sign       SignMode
	intDigits  int   // integer digit capacity (Z + 9 positions)
	minDigits  int   // mandatory integer digits (9 positions)
	fracDigits int   // digits after the decimal point
	separators []int // byte offsets of group separators in the mask spec
	length     int   // alphanumeric capacity
}

// Spec returns the original mask string.
func (m *Mask) Spec() string { return m.spec }

// Kind reports the mask family.
func (m *Mask) Kind() Kind { return m.kind }

// Signed reports whether the mask carries a sign placeholder.
func (m *Mask) Signed() bool { return m.sign != SignNone }

// Capacity returns the total digit capacity (integer plus fractional) for
// numeric masks, or the character capacity for alphanumeric masks.
func (m *Mask) Capacity() int {
	if m.kind == KindAlphanumeric {
		return m.length
	}
	return m.intDigits + m.fracDigits
}

// FractionDigits returns the number of digits after the decimal point.
func (m *Mask) FractionDigits() int { return m.fracDigits }

// SeparatorPositions returns the byte offsets of group-separator literals
// within the mask spec. The slice is a copy.
func (m *Mask) SeparatorPositions() []int {
	return append([]int(nil), m.separators...)
}

// Match reports whether raw conforms to the mask. It is exactly "Parse
// succeeds": display artifacts the formatter emits (explicit sign, group
// separators) are accepted alongside canonical input.
func (m *Mask) Match(raw string) bool {
	_, err := m.Parse(raw)
	return err == nil
}

// Hint returns the user-facing description of the mask, suitable for
// inclusion in a validation message.
func (m *Mask) Hint() string {
	switch m.kind {
	case KindNumericInteger:
		if m.intDigits == 1 {
			return "must be 1 digit"
		}
		return fmt.Sprintf("must be %d digits", m.intDigits)
	case KindAlphanumeric:
		if m.length == 1 {
			return "must be at most 1 character"
		}
		return fmt.Sprintf("must be at most %d characters", m.length)
	default:
		var b strings.Builder
		b.WriteString("must be a")
		if m.sign != SignNone {
			b.WriteString(" signed")
		}
		b.WriteString(" number like ")
		b.WriteString(m.example())
		return b.String()
	}
}

// example renders a sample value at full capacity, used by Hint.
func (m *Mask) example() string {
	digits := make([]byte, 0, m.intDigits)
	for i := 0; i < m.intDigits; i++ {
		digits = append(digits, byte('1'+(i%9)))
	}
	sample := string(digits)
	if m.fracDigits > 0 {
		sample += "." + strings.Repeat("9", m.fracDigits)
	}
	formatted, err := m.Format(sample)
	if err != nil {
		return sample
	}
	return formatted
}

// Format renders a canonical value for display. For numeric masks the
// canonical form is an optional leading minus, integer digits without
// excess leading zeros, and exactly FractionDigits fractional digits.
// Alphanumeric and pure-digit masks format verbatim.
func (m *Mask) Format(canonical string) (string, error) {
	switch m.kind {
	case KindAlphanumeric:
		if utf8.RuneCountInString(canonical) > m.length {
			return "", newParseError(m, canonical, "value is too long")
		}
		return canonical, nil
	case KindNumericInteger:
		if err := m.checkDigitRun(canonical); err != nil {
			return "", err
		}
		return canonical, nil
	}

	neg, intPart, fracPart, err := m.splitCanonical(canonical)
	if err != nil {
		return "", err
	}

	out := groupDigits(intPart, len(m.separators) > 0)
	if m.fracDigits > 0 {
		out += "." + fracPart
	}

	switch {
	case m.sign == SignAlways && neg:
		out = "-" + out
	case m.sign == SignAlways:
		out = "+" + out
	case neg:
		out = "-" + out
	}
	return out, nil
}

// Parse is the inverse of Format: it accepts a display or raw string and
// returns the canonical value, rejecting malformed input with a
// *ParseError. Leading zeros beyond the mandatory digit count are
// normalised away so that Parse(Format(v)) == v for every accepted v.
func (m *Mask) Parse(display string) (string, error) {
	switch m.kind {
	case KindAlphanumeric:
		if utf8.RuneCountInString(display) > m.length {
			return "", newParseError(m, display, "value is too long")
		}
		return display, nil
	case KindNumericInteger:
		if err := m.checkDigitRun(display); err != nil {
			return "", err
		}
		return display, nil
	}

	neg, rest, err := m.consumeSign(display)
	if err != nil {
		return "", err
	}

	intPart, fracPart, err := m.splitNumber(rest, display)
	if err != nil {
		return "", err
	}

	intPart = trimLeadingZeros(intPart)
	if len(intPart) > m.intDigits {
		return "", newParseError(m, display,
			fmt.Sprintf("more than %d integer digits", m.intDigits))
	}

	canonical := intPart
	if m.fracDigits > 0 {
		canonical += "." + fracPart
	}
	if neg && !isZeroNumber(intPart, fracPart) {
		canonical = "-" + canonical
	}
	return canonical, nil
}

func (m *Mask) consumeSign(display string) (neg bool, rest string, err error) {
	if display == "" {
		return false, "", newParseError(m, display, "value is empty")
	}
	switch display[0] {
	case '+', '-':
		if m.sign == SignNone {
			return false, "", newParseError(m, display, "mask does not allow a sign")
		}
		return display[0] == '-', display[1:], nil
	default:
		return false, display, nil
	}
}

// splitNumber validates digits and separators and returns the integer and
// fractional digit runs. display is the original input, used in errors.
func (m *Mask) splitNumber(s, display string) (intPart, fracPart string, err error) {
	if s == "" {
		return "", "", newParseError(m, display, "value has no digits")
	}

	body := s
	if m.fracDigits > 0 {
		dot := strings.LastIndexByte(s, '.')
		if dot < 0 {
			return "", "", newParseError(m, display,
				fmt.Sprintf("expected %d fractional digits", m.fracDigits))
		}
		body, fracPart = s[:dot], s[dot+1:]
		if len(fracPart) != m.fracDigits || !allDigits(fracPart) {
			return "", "", newParseError(m, display,
				fmt.Sprintf("expected %d fractional digits", m.fracDigits))
		}
	} else if strings.ContainsRune(s, '.') {
		return "", "", newParseError(m, display, "mask does not allow a decimal point")
	}

	var digits strings.Builder
	for i := 0; i < len(body); i++ {
		switch ch := body[i]; {
		case ch >= '0' && ch <= '9':
			digits.WriteByte(ch)
		case ch == ',' && len(m.separators) > 0 && i > 0 && i < len(body)-1:
			// group separator between digits
		default:
			return "", "", newParseError(m, display,
				fmt.Sprintf("unexpected character %q", ch))
		}
	}
	intPart = digits.String()
	if intPart == "" {
		return "", "", newParseError(m, display, "value has no integer digits")
	}
	return intPart, fracPart, nil
}

// splitCanonical validates a canonical numeric value and splits it into
// sign, integer digits, and fractional digits.
func (m *Mask) splitCanonical(canonical string) (neg bool, intPart, fracPart string, err error) {
	s := canonical
	if strings.HasPrefix(s, "-") {
		if m.sign == SignNone {
			return false, "", "", newParseError(m, canonical, "mask does not allow a sign")
		}
		neg = true
		s = s[1:]
	}

	if m.fracDigits > 0 {
		dot := strings.IndexByte(s, '.')
		if dot < 0 {
			return false, "", "", newParseError(m, canonical,
				fmt.Sprintf("expected %d fractional digits", m.fracDigits))
		}
		s, fracPart = s[:dot], s[dot+1:]
		if len(fracPart) != m.fracDigits || !allDigits(fracPart) {
			return false, "", "", newParseError(m, canonical,
				fmt.Sprintf("expected %d fractional digits", m.fracDigits))
		}
	}

	if s == "" || !allDigits(s) {
		return false, "", "", newParseError(m, canonical, "value has malformed integer digits")
	}
	if len(s) > 1 && s[0] == '0' {
		return false, "", "", newParseError(m, canonical, "value has excess leading zeros")
	}
	if len(s) > m.intDigits {
		return false, "", "", newParseError(m, canonical,
			fmt.Sprintf("more than %d integer digits", m.intDigits))
	}
	// Parse never produces a negative zero, so the formatter's domain
	// excludes it.
	if neg && isZeroNumber(s, fracPart) {
		return false, "", "", newParseError(m, canonical, "negative zero is not canonical")
	}
	return neg, s, fracPart, nil
}

func (m *Mask) checkDigitRun(s string) error {
	if len(s) != m.intDigits || !allDigits(s) {
		return newParseError(m, s, m.Hint())
	}
	return nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// trimLeadingZeros normalises a digit run, always retaining one digit.
func trimLeadingZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

func isZeroNumber(intPart, fracPart string) bool {
	return strings.Trim(intPart, "0") == "" && strings.Trim(fracPart, "0") == ""
}

// groupDigits inserts a comma every three digits from the right when the
// mask declares group separators.
func groupDigits(digits string, grouped bool) string {
	if !grouped || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
