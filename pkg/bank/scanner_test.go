package bank

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/glossary"
)

func reader(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func scanTerms(t *testing.T, data string, version int) []db.Term {
	t.Helper()
	s, err := NewTermScanner(reader(data), "term_bank_1.json", version)
	if err != nil {
		t.Fatalf("new term scanner: %v", err)
	}
	defer s.Close()
	var out []db.Term
	for s.Next() {
		out = append(out, s.Term())
	}
	if err := s.Err(); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	return out
}

func TestTermScannerV1(t *testing.T) {
	data := `[["食べる","たべる","","v1",0,"to eat"]]`
	terms := scanTerms(t, data, 1)
	if len(terms) != 1 {
		t.Fatalf("expected 1 term, got %d", len(terms))
	}
	want := db.Term{
		Expression: "食べる",
		Reading:    "たべる",
		Rules:      "v1",
		Glossary:   []glossary.Entry{glossary.TextDefinition{Text: "to eat"}},
	}
	if diff := cmp.Diff(want, terms[0]); diff != "" {
		t.Errorf("term mismatch (-want +got):\n%s", diff)
	}
}

func TestTermScannerV1TrailingGlossary(t *testing.T) {
	// v1 glossary occupies every slot past the score.
	data := `[["走る","はしる","common","v5",10,"to run","to dash"]]`
	terms := scanTerms(t, data, 1)
	want := []glossary.Entry{
		glossary.TextDefinition{Text: "to run"},
		glossary.TextDefinition{Text: "to dash"},
	}
	if diff := cmp.Diff(want, terms[0].Glossary); diff != "" {
		t.Errorf("glossary mismatch (-want +got):\n%s", diff)
	}
	if terms[0].DefinitionTags != "common" || terms[0].Score != 10 {
		t.Errorf("unexpected term fields: %+v", terms[0])
	}
}

func TestTermScannerV3(t *testing.T) {
	data := `[["食べる","たべる","","v1",0,["to eat"],1330,"spec"]]`
	terms := scanTerms(t, data, 3)
	want := db.Term{
		Expression: "食べる",
		Reading:    "たべる",
		Rules:      "v1",
		Glossary:   []glossary.Entry{glossary.TextDefinition{Text: "to eat"}},
		Sequence:   1330,
		TermTags:   "spec",
	}
	if diff := cmp.Diff(want, terms[0]); diff != "" {
		t.Errorf("term mismatch (-want +got):\n%s", diff)
	}
}

func TestTermScannerV1V3Equivalence(t *testing.T) {
	v1 := scanTerms(t, `[["食べる","たべる","","v1",0,"to eat"]]`, 1)
	v3 := scanTerms(t, `[["食べる","たべる","","v1",0,["to eat"],0,""]]`, 3)
	if diff := cmp.Diff(v1[0].Glossary, v3[0].Glossary); diff != "" {
		t.Errorf("glossaries differ between versions (-v1 +v3):\n%s", diff)
	}
}

func TestTermScannerNullFields(t *testing.T) {
	data := `[["走る","はしる",null,"v5",null,"to run"]]`
	terms := scanTerms(t, data, 1)
	if terms[0].DefinitionTags != "" || terms[0].Score != 0 {
		t.Errorf("null fields not defaulted: %+v", terms[0])
	}
}

func TestTermScannerShortRow(t *testing.T) {
	s, err := NewTermScanner(reader(`[["食べる","たべる"]]`), "term_bank_1.json", 1)
	if err != nil {
		t.Fatalf("new term scanner: %v", err)
	}
	defer s.Close()
	if s.Next() {
		t.Fatal("expected scan to stop on short row")
	}
	var perr *ParseError
	if !errors.As(s.Err(), &perr) {
		t.Fatalf("expected *ParseError, got %v", s.Err())
	}
	if perr.File != "term_bank_1.json" || perr.Row != 0 {
		t.Errorf("error location = %s row %d", perr.File, perr.Row)
	}
}

func TestTermScannerBadVersion(t *testing.T) {
	_, err := NewTermScanner(reader(`[]`), "term_bank_1.json", 2)
	if !errors.Is(err, ErrVersion) {
		t.Fatalf("expected ErrVersion, got %v", err)
	}
}

func TestTermScannerNotArray(t *testing.T) {
	s, err := NewTermScanner(reader(`{"not":"a bank"}`), "term_bank_1.json", 1)
	if err != nil {
		t.Fatalf("new term scanner: %v", err)
	}
	defer s.Close()
	if s.Next() {
		t.Fatal("expected no rows")
	}
	if s.Err() == nil {
		t.Fatal("expected error for non-array bank")
	}
}

func TestTagScanner(t *testing.T) {
	data := `[["news","frequent",-2,"appears in news",0],["P","popular",-10,"",10]]`
	s := NewTagScanner(reader(data), "tag_bank_1.json")
	defer s.Close()

	var tags []db.Tag
	for s.Next() {
		tags = append(tags, s.Tag())
	}
	if err := s.Err(); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	want := []db.Tag{
		{Name: "news", Category: "frequent", Order: -2, Notes: "appears in news"},
		{Name: "P", Category: "popular", Order: -10, Score: 10},
	}
	if diff := cmp.Diff(want, tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestKanjiScannerV1(t *testing.T) {
	data := `[["食","ショク","た.べる","jouyou","food","to eat"]]`
	s, err := NewKanjiScanner(reader(data), "kanji_bank_1.json", 1)
	if err != nil {
		t.Fatalf("new kanji scanner: %v", err)
	}
	defer s.Close()
	if !s.Next() {
		t.Fatalf("expected a row: %v", s.Err())
	}
	want := db.Kanji{
		Character: "食",
		Onyomi:    "ショク",
		Kunyomi:   "た.べる",
		Tags:      "jouyou",
		Meanings:  []string{"food", "to eat"},
	}
	if diff := cmp.Diff(want, s.Kanji()); diff != "" {
		t.Errorf("kanji mismatch (-want +got):\n%s", diff)
	}
}

func TestKanjiScannerV3(t *testing.T) {
	data := `[["食","ショク","た.べる","jouyou",["food"],{"grade":"2","strokes":9}]]`
	s, err := NewKanjiScanner(reader(data), "kanji_bank_1.json", 3)
	if err != nil {
		t.Fatalf("new kanji scanner: %v", err)
	}
	defer s.Close()
	if !s.Next() {
		t.Fatalf("expected a row: %v", s.Err())
	}
	k := s.Kanji()
	// Numeric stat values survive as their literal text.
	want := map[string]string{"grade": "2", "strokes": "9"}
	if diff := cmp.Diff(want, k.Stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestTermMetaScanner(t *testing.T) {
	data := `[["食べる","freq",1330],["食べる","pitch",{"reading":"たべる","pitches":[{"position":2}]}]]`
	s := NewTermMetaScanner(reader(data), "term_meta_bank_1.json")
	defer s.Close()

	var metas []db.TermMeta
	for s.Next() {
		metas = append(metas, s.Meta())
	}
	if err := s.Err(); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(metas))
	}
	if metas[0].Mode != "freq" || string(metas[0].Data) != "1330" {
		t.Errorf("freq row = %+v", metas[0])
	}
	if metas[1].Mode != "pitch" || !strings.Contains(string(metas[1].Data), `"position":2`) {
		t.Errorf("pitch row = %+v", metas[1])
	}
}

func TestKanjiMetaScanner(t *testing.T) {
	data := `[["食","freq",220]]`
	s := NewKanjiMetaScanner(reader(data), "kanji_meta_bank_1.json")
	defer s.Close()
	if !s.Next() {
		t.Fatalf("expected a row: %v", s.Err())
	}
	m := s.Meta()
	if m.Character != "食" || m.Mode != "freq" || string(m.Data) != "220" {
		t.Errorf("meta = %+v", m)
	}
}

func TestScannerEmptyBank(t *testing.T) {
	s := NewTagScanner(reader(`[]`), "tag_bank_1.json")
	defer s.Close()
	if s.Next() {
		t.Fatal("expected no rows")
	}
	if err := s.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
