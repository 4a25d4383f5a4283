// Package reference derives human-readable complaint references such as "TT-1001".
package reference

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultPrefix      = "TT-"
	DefaultStart       = 1001
	DefaultMaxAttempts = 5
)

// Allocator computes the next reference from the latest allocated one.
// It holds no state; uniqueness is enforced by the storage layer.
type Allocator struct {
	prefix string
	start  int64
}

// NewAllocator creates an Allocator. Empty prefix or non-positive start fall back to the defaults.
func NewAllocator(prefix string, start int64) *Allocator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if start <= 0 {
		start = DefaultStart
	}
	return &Allocator{prefix: prefix, start: start}
}

// Prefix returns the reference prefix
func (a *Allocator) Prefix() string {
	return a.prefix
}

// MatchPattern returns an anchored regular expression, valid for both Go and PostgreSQL,
// matching only well-formed references: the prefix followed by digits. Rows with a
// malformed suffix never take part in numbering.
func (a *Allocator) MatchPattern() string {
	return "^" + regexp.QuoteMeta(a.prefix) + "[0-9]+$"
}

// Next returns the reference following last. An empty last starts the sequence.
func (a *Allocator) Next(last string) (string, error) {
	if last == "" {
		return a.Format(a.start), nil
	}

	n, err := a.Parse(last)
	if err != nil {
		return "", err
	}

	return a.Format(n + 1), nil
}

// Parse extracts the numeric suffix of a reference
func (a *Allocator) Parse(ref string) (int64, error) {
	suffix, ok := strings.CutPrefix(ref, a.prefix)
	if !ok {
		return 0, fmt.Errorf("reference %q does not have prefix %q", ref, a.prefix)
	}

	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("reference %q has a non-numeric suffix", ref)
	}
	return n, nil
}

// Format renders a reference for the given number
func (a *Allocator) Format(n int64) string {
	return a.prefix + strconv.FormatInt(n, 10)
}
