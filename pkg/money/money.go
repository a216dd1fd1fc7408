// Package money provides an exact fixed-point monetary amount backed by a
// signed integer count of minor units (cents). Every value carries exactly
// two fractional digits; arithmetic never drifts the way binary floats do,
// and values that exceed the legacy 12-digit field budget are reported as
// overflow rather than silently truncated.
package money

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-fieldmask/pkg/picture"
)

// maxMinorUnits is the magnitude ceiling imposed by 12-digit legacy fields:
// 9,999,999,999.99 expressed in cents.
const maxMinorUnits = 999_999_999_999

// Amount is an exact decimal value with two fractional digits. The zero
// value is 0.00. Amount is comparable and safe to copy.
type Amount struct {
	cents int64
}

// ParseError reports raw text that cannot be read as a monetary amount.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("money: cannot parse %q: %s", e.Input, e.Reason)
}

// OverflowError reports a value or arithmetic result exceeding the digit
// budget. It is recoverable and surfaces as a field error, never a panic.
type OverflowError struct {
	Input    string
	Capacity int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("money: %q exceeds the %d-digit capacity", e.Input, e.Capacity)
}

// FromMinorUnits builds an Amount from a cent count, enforcing the digit
// budget.
func FromMinorUnits(cents int64) (Amount, error) {
	if cents > maxMinorUnits || cents < -maxMinorUnits {
		return Amount{}, &OverflowError{Input: fmt.Sprintf("%d", cents), Capacity: 12}
	}
	return Amount{cents: cents}, nil
}

// MinorUnits returns the signed cent count.
func (a Amount) MinorUnits() int64 { return a.cents }

// Parse reads a decimal string such as "1234.56", "-0.01", or "1234" into
// an Amount. At most two fractional digits are accepted; a missing fraction
// means whole units. Group separators are not accepted here; use
// ParseWithMask for display-formatted input.
func Parse(text string) (Amount, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Amount{}, &ParseError{Input: text, Reason: "value is empty"}
	}

	neg := false
	s := trimmed
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, fracPart = s[:dot], s[dot+1:]
		if len(fracPart) == 0 || len(fracPart) > 2 {
			return Amount{}, &ParseError{Input: text, Reason: "expected at most 2 fractional digits"}
		}
	}
	if intPart == "" || !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return Amount{}, &ParseError{Input: text, Reason: "not a decimal number"}
	}

	intPart = strings.TrimLeft(intPart, "0")
	if len(intPart) > 10 {
		return Amount{}, &OverflowError{Input: text, Capacity: 12}
	}

	cents := int64(0)
	for i := 0; i < len(intPart); i++ {
		cents = cents*10 + int64(intPart[i]-'0')
	}
	cents *= 100
	switch len(fracPart) {
	case 1:
		cents += int64(fracPart[0]-'0') * 10
	case 2:
		cents += int64(fracPart[0]-'0')*10 + int64(fracPart[1]-'0')
	}

	if neg {
		cents = -cents
	}
	return Amount{cents: cents}, nil
}

// ParseWithMask parses display input against a compiled picture mask. A
// value whose digit count exceeds the mask's capacity is an *OverflowError;
// other mismatches are *ParseError. The mask must carry exactly two
// fractional digits.
func ParseWithMask(text string, mask *picture.Mask) (Amount, error) {
	if mask == nil {
		return Parse(text)
	}
	if mask.FractionDigits() != 2 {
		return Amount{}, &ParseError{Input: text, Reason: "mask does not carry two fractional digits"}
	}

	canonical, err := mask.Parse(text)
	if err != nil {
		if integerDigitCount(text) > mask.Capacity()-mask.FractionDigits() {
			return Amount{}, &OverflowError{Input: text, Capacity: mask.Capacity()}
		}
		return Amount{}, &ParseError{Input: text, Reason: err.Error()}
	}
	return Parse(canonical)
}

// Format renders the amount with exactly two fractional digits and a minus
// sign only when negative.
func (a Amount) Format() string {
	cents := a.cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// FormatExplicitSign renders the amount with a leading sign regardless of
// value, matching signed picture families.
func (a Amount) FormatExplicitSign() string {
	if a.cents >= 0 {
		return "+" + a.Format()
	}
	return a.Format()
}

// FormatWithMask renders the amount through a compiled picture mask,
// applying its sign placeholder and group separators.
func (a Amount) FormatWithMask(mask *picture.Mask) (string, error) {
	if mask == nil {
		return a.Format(), nil
	}
	if mask.FractionDigits() != 2 {
		return "", &ParseError{Input: a.Format(), Reason: "mask does not carry two fractional digits"}
	}
	if integerDigitCount(a.Format()) > mask.Capacity()-mask.FractionDigits() {
		return "", &OverflowError{Input: a.Format(), Capacity: mask.Capacity()}
	}
	return mask.Format(a.Format())
}

// Add returns a+b, reporting overflow past the digit budget.
func (a Amount) Add(b Amount) (Amount, error) {
	return FromMinorUnits(a.cents + b.cents)
}

// Sub returns a-b, reporting overflow past the digit budget.
func (a Amount) Sub(b Amount) (Amount, error) {
	return FromMinorUnits(a.cents - b.cents)
}

// Neg returns the amount with its sign flipped.
func (a Amount) Neg() Amount { return Amount{cents: -a.cents} }

// Compare returns -1, 0, or 1 ordering by signed minor-unit value.
func (a Amount) Compare(b Amount) int {
	switch {
	case a.cents < b.cents:
		return -1
	case a.cents > b.cents:
		return 1
	default:
		return 0
	}
}

// IsNegative reports whether the amount is below zero.
func (a Amount) IsNegative() bool { return a.cents < 0 }

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.cents == 0 }

// MarshalText emits the wire form: a decimal string with exactly two
// fractional digits, never a native float.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.Format()), nil
}

// UnmarshalText reads the wire form produced by MarshalText.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// String implements fmt.Stringer.
func (a Amount) String() string { return a.Format() }

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// integerDigitCount counts digits before the decimal point, skipping sign
// and group separators.
func integerDigitCount(s string) int {
	count := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '.':
			return count
		case s[i] >= '0' && s[i] <= '9':
			count++
		}
	}
	return count
}
