// Package analyze segments Japanese text into tokens and sentences so
// each surface form can be looked up in the dictionary store. It wraps a
// kagome tokenizer with the IPA dictionary.
package analyze

import (
	"regexp"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/japaniel/jiten/pkg/kana"
)

// Token is one analyzed unit of text.
type Token struct {
	// Surface is the text as written, e.g. "食べて".
	Surface string
	// Lemma is the dictionary form, e.g. "食べる". Falls back to Surface
	// when the tokenizer has no lemma.
	Lemma string
	// Reading is the pronunciation in hiragana, e.g. "たべ".
	Reading string
	// POS holds the tokenizer's part-of-speech feature labels.
	POS []string
}

// kagome IPA feature slots.
const (
	featLemma   = 6
	featReading = 7
)

// IsContentWord reports whether the token is worth a dictionary lookup:
// nouns, verbs, adjectives and adverbs, excluding pure symbols and
// particles.
func (t Token) IsContentWord() bool {
	if len(t.POS) == 0 {
		return false
	}
	switch t.POS[0] {
	case "名詞", "動詞", "形容詞", "副詞":
		return true
	}
	return false
}

// Sentence is a sentence with its tokens.
type Sentence struct {
	Text   string
	Tokens []Token
}

// Analyzer tokenizes Japanese text.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer builds a tokenizer over the bundled IPA dictionary.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Analyze tokenizes text. Whitespace-only tokens are dropped.
func (a *Analyzer) Analyze(text string) []Token {
	var out []Token
	for _, tok := range a.t.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(tok.Surface) == "" {
			continue
		}

		features := tok.Features()

		lemma := tok.Surface
		if len(features) > featLemma && features[featLemma] != "*" {
			lemma = features[featLemma]
		}
		var reading string
		if len(features) > featReading && features[featReading] != "*" {
			// IPA readings come back in katakana.
			reading = kana.ToHiragana(features[featReading])
		}

		out = append(out, Token{
			Surface: tok.Surface,
			Lemma:   lemma,
			Reading: reading,
			POS:     features,
		})
	}
	return out
}

// AnalyzeDocument splits text into sentences and tokenizes each one.
func (a *Analyzer) AnalyzeDocument(text string) []Sentence {
	var out []Sentence
	for _, s := range splitSentences(text) {
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, Sentence{Text: s, Tokens: a.Analyze(s)})
	}
	return out
}

// splitSentences cuts on 。！？ and newlines, keeping the delimiter with
// the sentence it ends.
func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if r == '。' || r == '！' || r == '？' || r == '\n' {
			sentences = append(sentences, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		sentences = append(sentences, cur.String())
	}
	return sentences
}

var (
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby strips <rt> and <rp> elements from HTML so furigana is not
// duplicated into extracted text ("漢字かんじ" for "漢字").
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	return reRP.ReplaceAll(cleaned, []byte{})
}
