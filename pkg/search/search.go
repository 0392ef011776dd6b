// Package search answers dictionary lookups: it normalizes query text,
// expands it through the deinflection engine, validates store matches
// against the candidates' grammatical conditions, and performs
// longest-match segmentation for tap-to-define style consumers.
package search

import (
	"context"
	"strings"
	"unicode"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/deinflect"
	"github.com/japaniel/jiten/pkg/kana"
)

// DefaultMaxResults caps Search output.
const DefaultMaxResults = 100

// maxWordLength bounds the substring lengths FindFirstWord probes, in
// runes. Dictionary expressions longer than this are effectively
// unreachable by segmentation, which matches how lookup consumers use it.
const maxWordLength = 20

// leadingPunctuation is stripped from the head of FindFirstWord input
// alongside whitespace.
const leadingPunctuation = "「」『』【】《》〈〉（）()\"'“”‘’、。・：；！？!?.,:;…‥~～→"

// Engine combines the store, the deinflector and kana normalization.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	store *db.Store

	// MaxResults caps Search output; zero means DefaultMaxResults.
	MaxResults int
}

// NewEngine creates an Engine over a store.
func NewEngine(store *db.Store) *Engine {
	return &Engine{store: store}
}

func (e *Engine) maxResults() int {
	if e.MaxResults > 0 {
		return e.MaxResults
	}
	return DefaultMaxResults
}

// Search returns the dictionary terms matching query in any grammatical
// form, restricted to dictIDs. Results keep candidate-generation order
// first and store (priority) order second; duplicates are dropped by term
// identity and output is capped at MaxResults. An empty dictionary set or
// an unrecognizable query yields an empty result, never an error.
func (e *Engine) Search(ctx context.Context, query string, dictIDs []int64) ([]db.Term, error) {
	if len(dictIDs) == 0 {
		return nil, nil
	}
	normalized := kana.Normalize(strings.TrimSpace(query))
	if normalized == "" {
		return nil, nil
	}

	candidates := deinflect.Deinflect(normalized)
	if len(candidates) == 0 {
		return nil, nil
	}
	groups := groupCandidates(candidates)

	max := e.maxResults()
	seen := make(map[int64]bool)
	var out []db.Term
	for _, c := range candidates {
		if len(out) >= max {
			break
		}
		terms, err := e.store.TermsByText(ctx, c.Term, dictIDs)
		if err != nil {
			return nil, err
		}
		for _, t := range terms {
			if seen[t.ID] {
				continue
			}
			group, ok := groups[t.Expression]
			if !ok {
				group, ok = groups[t.Reading]
			}
			if !ok || !isValidMatch(t.Rules, group) {
				continue
			}
			seen[t.ID] = true
			out = append(out, t)
			if len(out) >= max {
				break
			}
		}
	}
	return out, nil
}

// FindFirstWord segments the longest dictionary word off the front of
// sentence. Leading punctuation and whitespace are skipped. If nothing
// matches, the first character is returned as a degraded guess; input that
// is entirely punctuation or whitespace yields "", since no character
// remains to guess with. The function only fails on store errors.
func (e *Engine) FindFirstWord(ctx context.Context, sentence string, dictIDs []int64) (string, error) {
	trimmed := strings.TrimLeftFunc(sentence, isSkippable)
	normalized := kana.Normalize(trimmed)
	if normalized == "" {
		return "", nil
	}

	runes := []rune(normalized)
	longest := len(runes)
	if longest > maxWordLength {
		longest = maxWordLength
	}

	for l := longest; l >= 1; l-- {
		sub := string(runes[:l])
		candidates := deinflect.Deinflect(sub)
		if len(candidates) == 0 {
			continue
		}
		groups := groupCandidates(candidates)
		for _, c := range candidates {
			terms, err := e.store.TermsByText(ctx, c.Term, dictIDs)
			if err != nil {
				return "", err
			}
			for _, t := range terms {
				group, ok := groups[t.Expression]
				if !ok {
					group, ok = groups[t.Reading]
				}
				if ok && isValidMatch(t.Rules, group) {
					return sub, nil
				}
			}
		}
	}
	return string(runes[:1]), nil
}

func isSkippable(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(leadingPunctuation, r)
}

// Segment splits text into dictionary words by repeated longest-match
// lookup. Punctuation and whitespace between words is dropped. The words
// come back in normalized form.
func (e *Engine) Segment(ctx context.Context, text string, dictIDs []int64) ([]string, error) {
	// Normalizing once up front keeps FindFirstWord's output a literal
	// prefix of the remaining text; Normalize is idempotent.
	rest := kana.Normalize(text)
	var words []string
	for {
		word, err := e.FindFirstWord(ctx, rest, dictIDs)
		if err != nil {
			return nil, err
		}
		if word == "" {
			return words, nil
		}
		trimmed := strings.TrimLeftFunc(rest, isSkippable)
		if !strings.HasPrefix(trimmed, word) {
			return words, nil
		}
		words = append(words, word)
		rest = trimmed[len(word):]
	}
}

// TermMeta returns per-expression metadata for each expression, restricted
// to dictIDs. Expressions with no metadata are absent from the map.
func (e *Engine) TermMeta(ctx context.Context, expressions []string, dictIDs []int64) (map[string][]db.TermMeta, error) {
	out := make(map[string][]db.TermMeta, len(expressions))
	for _, expr := range expressions {
		metas, err := e.store.TermMetaByExpression(ctx, expr, dictIDs)
		if err != nil {
			return nil, err
		}
		if len(metas) > 0 {
			out[expr] = metas
		}
	}
	return out, nil
}

func groupCandidates(candidates []deinflect.Candidate) map[string][]deinflect.Candidate {
	groups := make(map[string][]deinflect.Candidate, len(candidates))
	for _, c := range candidates {
		groups[c.Term] = append(groups[c.Term], c)
	}
	return groups
}

// isValidMatch reports whether a term with the given rule string is a
// legitimate hit for any of the candidates that produced its text: an
// unrestricted candidate matches anything, an entry with no declared
// rules matches any candidate, and otherwise the condition masks must
// intersect.
func isValidMatch(rules string, candidates []deinflect.Candidate) bool {
	for _, c := range candidates {
		if c.Conditions == deinflect.All {
			return true
		}
	}
	mask := deinflect.ParseRules(rules)
	if mask == deinflect.Unspecified {
		return true
	}
	for _, c := range candidates {
		if deinflect.ConditionsMatch(c.Conditions, mask) {
			return true
		}
	}
	return false
}
