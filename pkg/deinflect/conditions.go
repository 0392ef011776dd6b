// Package deinflect generates dictionary-form candidates for inflected
// Japanese words. A static rule table undoes one grammatical
// transformation per step; chaining steps recovers lemmas from compound
// inflections such as causative+passive+negative+past.
package deinflect

import "strings"

// Conditions is a bitmask of grammatical classes. A dictionary entry's
// rule string parses into the same space, so a candidate and an entry are
// compatible when their masks intersect.
type Conditions uint16

const (
	// GodanVerb covers the v5 classes (五段).
	GodanVerb Conditions = 1 << iota
	// IchidanVerb covers v1 (一段).
	IchidanVerb
	// SuruVerb covers vs (する and -する compounds).
	SuruVerb
	// KuruVerb covers vk (来る).
	KuruVerb
	// AdjI covers adj-i (い-adjectives). Several verb forms (ない, たい)
	// conjugate as い-adjectives, so this class also threads those chains.
	AdjI
	// TeForm marks an intermediate て/で-form candidate. It is never
	// produced by ParseRules; it only exists mid-chain so that auxiliaries
	// (ている, ておく, てしまう) resolve through the て-form rules.
	TeForm
)

// All matches every rule class. The initial candidate for a query carries
// All: an uninflected surface form is compatible with any entry.
const All = GodanVerb | IchidanVerb | SuruVerb | KuruVerb | AdjI | TeForm

// Unspecified is the mask of an entry that declares no rule restriction.
// Such entries match every candidate.
const Unspecified Conditions = 0

// ConditionsMatch reports whether the two masks share a class.
func ConditionsMatch(a, b Conditions) bool {
	return a&b != 0
}

// ParseRules decodes a dictionary entry's space-delimited rule-class
// string ("v5r vt", "adj-i", ...) into a condition mask. Unrecognized
// classes are ignored; an empty string yields Unspecified.
func ParseRules(s string) Conditions {
	var c Conditions
	for _, f := range strings.Fields(s) {
		switch {
		case f == "adj-i":
			c |= AdjI
		case f == "vk":
			c |= KuruVerb
		case strings.HasPrefix(f, "vs"):
			c |= SuruVerb
		case strings.HasPrefix(f, "v1"):
			c |= IchidanVerb
		case strings.HasPrefix(f, "v5"):
			c |= GodanVerb
		}
	}
	return c
}
