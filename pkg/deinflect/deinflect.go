package deinflect

import "strings"

// Candidate is one plausible dictionary form for an inflected input.
// Chain lists the rule names applied, outermost first. Candidates are
// produced per query and never persisted.
type Candidate struct {
	Term       string
	Conditions Conditions
	Chain      []string
}

// maxDepth bounds rule chaining. Real Japanese inflection chains are
// short (causative+passive+progressive+past+polite stays under this), so
// the cap only guards termination against pathological inputs.
const maxDepth = 8

// Deinflect generates every dictionary-form candidate reachable from word
// by undoing inflection rules. The input itself is always the first
// candidate, carrying All. Output order is generation order; ranking is
// the caller's concern. Distinct (term, conditions) pairs appear once.
func Deinflect(word string) []Candidate {
	if word == "" {
		return nil
	}

	type key struct {
		term string
		cond Conditions
	}
	seen := map[key]bool{{term: word, cond: All}: true}
	out := []Candidate{{Term: word, Conditions: All}}

	table := rules()
	for depth, start := 0, 0; depth < maxDepth; depth++ {
		end := len(out)
		if start == end {
			break
		}
		for i := start; i < end; i++ {
			c := out[i]
			for _, r := range table {
				if !ConditionsMatch(c.Conditions, r.condIn) {
					continue
				}
				if !strings.HasSuffix(c.Term, r.kanaIn) {
					continue
				}
				term := c.Term[:len(c.Term)-len(r.kanaIn)] + r.kanaOut
				if term == "" {
					continue
				}
				k := key{term: term, cond: r.condOut}
				if seen[k] {
					continue
				}
				seen[k] = true

				chain := make([]string, 0, len(c.Chain)+1)
				chain = append(chain, c.Chain...)
				chain = append(chain, r.name)
				out = append(out, Candidate{Term: term, Conditions: r.condOut, Chain: chain})
			}
		}
		start = end
	}
	return out
}
