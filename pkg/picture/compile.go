package picture

import (
	"strconv"
	"strings"
)

// maxRepeat bounds the count accepted in 9(n) / X(n) masks. Legacy screens
// never exceed 80 columns; the bound exists to reject typos like 9(9999).
const maxRepeat = 999

// Compile parses a picture clause into a Mask. Compilation is pure and
// deterministic: equal mask strings always yield behaviourally equal masks.
// Malformed masks return a *CompileError naming the offending character and
// its 1-based column.
func Compile(spec string) (*Mask, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return nil, &CompileError{Spec: spec, Reason: "mask is empty"}
	}

	if strings.ContainsAny(trimmed, "+-Z.,") {
		return compileNumericOutput(trimmed)
	}

	switch trimmed[0] {
	case 'X':
		return compileRun(trimmed, 'X')
	case '9':
		return compileRun(trimmed, '9')
	default:
		return nil, compileErrorAt(trimmed, 0, rune(trimmed[0]), "unknown mask character")
	}
}

// MustCompile is like Compile but panics on error. It is intended for
// masks fixed at program start, mirroring regexp.MustCompile.
func MustCompile(spec string) *Mask {
	mask, err := Compile(spec)
	if err != nil {
		panic(err)
	}
	return mask
}

// compileRun handles the repeated-placeholder families: `9…`/`9(n)` and
// `X…`/`X(n)`.
func compileRun(spec string, placeholder byte) (*Mask, error) {
	count := 0
	for count < len(spec) && spec[count] == placeholder {
		count++
	}

	rest := spec[count:]
	if rest != "" {
		if rest[0] != '(' {
			return nil, compileErrorAt(spec, count, rune(rest[0]), "unknown mask character")
		}
		if count != 1 {
			return nil, compileErrorAt(spec, count, '(',
				"repeat count must follow a single placeholder")
		}
		n, err := parseRepeat(spec, count)
		if err != nil {
			return nil, err
		}
		count = n
	}

	if placeholder == 'X' {
		return &Mask{spec: spec, kind: KindAlphanumeric, length: count}, nil
	}
	return &Mask{spec: spec, kind: KindNumericInteger, intDigits: count, minDigits: count}, nil
}

// parseRepeat reads the `(n)` suffix beginning at the byte offset of `(`.
func parseRepeat(spec string, open int) (int, error) {
	closing := strings.IndexByte(spec[open:], ')')
	if closing < 0 {
		return 0, compileErrorAt(spec, open, '(', "unbalanced parenthesis")
	}
	closing += open
	if closing != len(spec)-1 {
		return 0, compileErrorAt(spec, closing+1, rune(spec[closing+1]),
			"trailing characters after repeat count")
	}

	body := spec[open+1 : closing]
	n, err := strconv.Atoi(body)
	if err != nil || n < 1 {
		return 0, compileErrorAt(spec, open+1, 0,
			"repeat count must be a positive integer")
	}
	if n > maxRepeat {
		return 0, compileErrorAt(spec, open+1, 0, "repeat count is too large")
	}
	return n, nil
}

// compileNumericOutput handles the signed/grouped family: an optional
// leading sign, zero-suppressed (`Z`) then mandatory (`9`) integer digits
// with optional `,` group separators, and an optional `.99…` fraction.
func compileNumericOutput(spec string) (*Mask, error) {
	mask := &Mask{spec: spec, kind: KindNumericSigned}

	i := 0
	switch spec[0] {
	case '+':
		mask.sign = SignAlways
		i++
	case '-':
		mask.sign = SignNegativeOnly
		i++
	}

	sawMandatory := false
	for i < len(spec) {
		ch := spec[i]
		switch ch {
		case 'Z':
			if sawMandatory {
				return nil, compileErrorAt(spec, i, 'Z',
					"zero-suppressed digit after mandatory digit")
			}
			mask.intDigits++
		case '9':
			sawMandatory = true
			mask.intDigits++
			mask.minDigits++
		case ',':
			if !isPlaceholder(spec, i-1) || !isPlaceholder(spec, i+1) {
				return nil, compileErrorAt(spec, i, ',',
					"group separator must sit between digit placeholders")
			}
			mask.separators = append(mask.separators, i)
		case '.':
			frac, err := compileFraction(spec, i)
			if err != nil {
				return nil, err
			}
			mask.fracDigits = frac
			i = len(spec)
			continue
		default:
			return nil, compileErrorAt(spec, i, rune(ch), "unknown mask character")
		}
		i++
	}

	if mask.intDigits == 0 {
		return nil, &CompileError{Spec: spec, Reason: "mask has no digit placeholders"}
	}
	return mask, nil
}

// compileFraction reads the `.99…` tail beginning at the byte offset of
// the decimal point.
func compileFraction(spec string, dot int) (int, error) {
	tail := spec[dot+1:]
	if tail == "" {
		return 0, compileErrorAt(spec, dot, '.', "decimal point with no fractional digits")
	}
	for j := 0; j < len(tail); j++ {
		if tail[j] != '9' {
			return 0, compileErrorAt(spec, dot+1+j, rune(tail[j]),
				"fractional positions must be mandatory digits")
		}
	}
	return len(tail), nil
}

func isPlaceholder(spec string, i int) bool {
	if i < 0 || i >= len(spec) {
		return false
	}
	return spec[i] == 'Z' || spec[i] == '9'
}
