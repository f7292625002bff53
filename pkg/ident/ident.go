// Package ident assigns the stable identifiers that address action nodes across
// independent, stateless requests.
//
// An identifier is re-derived from structural position alone: the normalized label
// plus the ordinal of the action node in depth-first declaration order. No table of
// identifiers is ever persisted, so reordering or inserting action nodes between a
// render and the click it produced invalidates the identifier.
package ident

import (
	"strconv"
	"strings"
)

// FirstOrdinal is the ordinal assigned to the first action node of a build.
const FirstOrdinal = 1

// Normalize lower-cases label and collapses every run of characters outside
// [a-z0-9] into a single underscore.
func Normalize(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	pendingSep := false
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	if b.Len() == 0 {
		return "action"
	}
	return b.String()
}

// Format builds the identifier of an action node. It is pure.
func Format(prefix, label string, ordinal int) string {
	return prefix + Normalize(label) + "_" + strconv.Itoa(ordinal)
}

// Assigner hands out identifiers for one Tree Build.
type Assigner struct {
	prefix string
	next   int
}

// New creates an Assigner whose counter starts at FirstOrdinal.
func New(prefix string) *Assigner {
	return &Assigner{prefix: prefix, next: FirstOrdinal}
}

// Next returns the identifier for the next action node and advances the counter.
func (a *Assigner) Next(label string) string {
	id := Format(a.prefix, label, a.next)
	a.next++
	return id
}

// Reset rewinds the counter, as at the start of a new build.
func (a *Assigner) Reset() {
	a.next = FirstOrdinal
}
