package coerce

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize bounds a single posted value (4KB).
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize overrides DefaultMaxInputSize.
	EnvMaxInputSize = "ARBOR_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput enforces the size limit, rejects invalid UTF-8 and strips control
// characters other than newline, tab and carriage return from a posted value.
// Oversized values are rejected rather than truncated so state stays deterministic.
func SanitizeInput(input string) (string, error) {
	limit := getMaxInputSize()
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	if strings.IndexFunc(input, isUnsafeControl) < 0 {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !isUnsafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isUnsafeControl(r rune) bool {
	return unicode.IsControl(r) && !isSafeControl(r)
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

func getMaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}

// SanitizeValues applies SanitizeInput to every posted value.
func SanitizeValues(values url.Values) (url.Values, error) {
	out := make(url.Values, len(values))
	for k, vs := range values {
		cleanKey, err := SanitizeInput(k)
		if err != nil {
			return nil, fmt.Errorf("field name: %w", err)
		}
		clean := make([]string, len(vs))
		for i, v := range vs {
			if clean[i], err = SanitizeInput(v); err != nil {
				return nil, fmt.Errorf("field %q: %w", cleanKey, err)
			}
		}
		out[cleanKey] = clean
	}
	return out, nil
}
