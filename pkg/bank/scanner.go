package bank

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/glossary"
)

// ErrVersion indicates an unsupported declared bank schema version.
var ErrVersion = fmt.Errorf("unsupported bank version")

// rowScanner walks the elements of a top-level JSON array one at a time
// using the decoder's token stream, so the file is never held in memory.
type rowScanner struct {
	r       io.ReadCloser
	dec     *json.Decoder
	file    string
	row     int
	err     error
	started bool
	done    bool
}

func newRowScanner(r io.ReadCloser, file string) rowScanner {
	return rowScanner{r: r, dec: json.NewDecoder(r), file: file, row: -1}
}

func (s *rowScanner) next() (json.RawMessage, bool) {
	if s.err != nil || s.done {
		return nil, false
	}
	if !s.started {
		tok, err := s.dec.Token()
		if err != nil {
			s.err = parseErr(s.file, -1, "malformed bank: %w", err)
			return nil, false
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			s.err = parseErr(s.file, -1, "bank is not a JSON array")
			return nil, false
		}
		s.started = true
	}
	if !s.dec.More() {
		if _, err := s.dec.Token(); err != nil {
			s.err = parseErr(s.file, s.row, "malformed bank tail: %w", err)
			return nil, false
		}
		s.done = true
		return nil, false
	}
	var raw json.RawMessage
	if err := s.dec.Decode(&raw); err != nil {
		s.err = parseErr(s.file, s.row+1, "malformed row: %w", err)
		return nil, false
	}
	s.row++
	return raw, true
}

// Err returns the first error encountered while scanning.
func (s *rowScanner) Err() error {
	return s.err
}

// Close releases the underlying reader. Safe to call after a partial scan.
func (s *rowScanner) Close() error {
	return s.r.Close()
}

// fields splits a row into its positional slots, enforcing a minimum arity.
func (s *rowScanner) fields(raw json.RawMessage, minLen int) ([]json.RawMessage, bool) {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		s.err = parseErr(s.file, s.row, "row is not an array: %w", err)
		return nil, false
	}
	if len(fields) < minLen {
		s.err = parseErr(s.file, s.row, "row has %d elements, want at least %d", len(fields), minLen)
		return nil, false
	}
	return fields, true
}

func (s *rowScanner) str(raw json.RawMessage, slot int) (string, bool) {
	// Several published banks use null where the schema says empty string.
	if string(raw) == "null" {
		return "", true
	}
	var v string
	if err := decodeField(raw, &v, s.file, s.row, slot); err != nil {
		s.err = err
		return "", false
	}
	return v, true
}

func (s *rowScanner) num(raw json.RawMessage, slot int) (float64, bool) {
	if string(raw) == "null" {
		return 0, true
	}
	var v float64
	if err := decodeField(raw, &v, s.file, s.row, slot); err != nil {
		s.err = err
		return 0, false
	}
	return v, true
}

// TagScanner scans a tag bank: rows [name, category, order, notes, score].
type TagScanner struct {
	rowScanner
	cur db.Tag
}

// NewTagScanner returns a scanner over a tag bank stream. The scanner
// assumes ownership of r.
func NewTagScanner(r io.ReadCloser, file string) *TagScanner {
	return &TagScanner{rowScanner: newRowScanner(r, file)}
}

// Next advances to the next tag. It returns false at end of input or on
// the first error.
func (s *TagScanner) Next() bool {
	raw, ok := s.next()
	if !ok {
		return false
	}
	fields, ok := s.fields(raw, 5)
	if !ok {
		return false
	}
	var t db.Tag
	if t.Name, ok = s.str(fields[0], 0); !ok {
		return false
	}
	if t.Category, ok = s.str(fields[1], 1); !ok {
		return false
	}
	order, ok := s.num(fields[2], 2)
	if !ok {
		return false
	}
	if t.Notes, ok = s.str(fields[3], 3); !ok {
		return false
	}
	score, ok := s.num(fields[4], 4)
	if !ok {
		return false
	}
	t.Order = int(order)
	t.Score = int(score)
	s.cur = t
	return true
}

// Tag returns the tag read by the last successful Next.
func (s *TagScanner) Tag() db.Tag {
	return s.cur
}

// TermScanner scans a term bank.
//
// Version 1 rows are [expression, reading, definitionTags, rules, score,
// ...glossary], the glossary occupying every trailing slot. Version 3 rows
// are [expression, reading, definitionTags, rules, score, glossary[],
// sequence, termTags]. The version is declared by the caller, never
// sniffed from content.
type TermScanner struct {
	rowScanner
	version int
	cur     db.Term
}

// NewTermScanner returns a scanner over a term bank stream of the declared
// schema version (1 or 3). The scanner assumes ownership of r.
func NewTermScanner(r io.ReadCloser, file string, version int) (*TermScanner, error) {
	if version != 1 && version != 3 {
		return nil, fmt.Errorf("%w: %d", ErrVersion, version)
	}
	return &TermScanner{rowScanner: newRowScanner(r, file), version: version}, nil
}

// Next advances to the next term.
func (s *TermScanner) Next() bool {
	raw, ok := s.next()
	if !ok {
		return false
	}
	minLen := 5
	if s.version == 3 {
		minLen = 8
	}
	fields, ok := s.fields(raw, minLen)
	if !ok {
		return false
	}

	var t db.Term
	if t.Expression, ok = s.str(fields[0], 0); !ok {
		return false
	}
	if t.Reading, ok = s.str(fields[1], 1); !ok {
		return false
	}
	if t.DefinitionTags, ok = s.str(fields[2], 2); !ok {
		return false
	}
	if t.Rules, ok = s.str(fields[3], 3); !ok {
		return false
	}
	score, ok := s.num(fields[4], 4)
	if !ok {
		return false
	}
	t.Score = int(score)

	if s.version == 1 {
		t.Glossary = glossary.ParseAll(fields[5:])
	} else {
		var glossRaws []json.RawMessage
		if err := decodeField(fields[5], &glossRaws, s.file, s.row, 5); err != nil {
			s.err = err
			return false
		}
		t.Glossary = glossary.ParseAll(glossRaws)
		seq, ok := s.num(fields[6], 6)
		if !ok {
			return false
		}
		t.Sequence = int64(seq)
		if t.TermTags, ok = s.str(fields[7], 7); !ok {
			return false
		}
	}
	s.cur = t
	return true
}

// Term returns the term read by the last successful Next.
func (s *TermScanner) Term() db.Term {
	return s.cur
}

// KanjiScanner scans a kanji bank.
//
// Version 1 rows are [character, onyomi, kunyomi, tags, ...meanings];
// version 3 rows are [character, onyomi, kunyomi, tags, meanings[], stats{}].
type KanjiScanner struct {
	rowScanner
	version int
	cur     db.Kanji
}

// NewKanjiScanner returns a scanner over a kanji bank stream of the
// declared schema version (1 or 3). The scanner assumes ownership of r.
func NewKanjiScanner(r io.ReadCloser, file string, version int) (*KanjiScanner, error) {
	if version != 1 && version != 3 {
		return nil, fmt.Errorf("%w: %d", ErrVersion, version)
	}
	return &KanjiScanner{rowScanner: newRowScanner(r, file), version: version}, nil
}

// Next advances to the next kanji entry.
func (s *KanjiScanner) Next() bool {
	raw, ok := s.next()
	if !ok {
		return false
	}
	minLen := 4
	if s.version == 3 {
		minLen = 6
	}
	fields, ok := s.fields(raw, minLen)
	if !ok {
		return false
	}

	var k db.Kanji
	if k.Character, ok = s.str(fields[0], 0); !ok {
		return false
	}
	if k.Onyomi, ok = s.str(fields[1], 1); !ok {
		return false
	}
	if k.Kunyomi, ok = s.str(fields[2], 2); !ok {
		return false
	}
	if k.Tags, ok = s.str(fields[3], 3); !ok {
		return false
	}

	if s.version == 1 {
		for i, f := range fields[4:] {
			m, ok := s.str(f, 4+i)
			if !ok {
				return false
			}
			k.Meanings = append(k.Meanings, m)
		}
	} else {
		if err := decodeField(fields[4], &k.Meanings, s.file, s.row, 4); err != nil {
			s.err = err
			return false
		}
		var stats map[string]json.RawMessage
		if err := decodeField(fields[5], &stats, s.file, s.row, 5); err != nil {
			s.err = err
			return false
		}
		if len(stats) > 0 {
			k.Stats = make(map[string]string, len(stats))
			for name, v := range stats {
				var sv string
				if err := json.Unmarshal(v, &sv); err != nil {
					// Numeric stat values are kept as their literal text.
					sv = string(v)
				}
				k.Stats[name] = sv
			}
		}
	}
	s.cur = k
	return true
}

// Kanji returns the entry read by the last successful Next.
func (s *KanjiScanner) Kanji() db.Kanji {
	return s.cur
}

// metaRow decodes a [key, mode, data] meta bank row. The data payload's
// shape depends on mode and is preserved opaquely.
func (s *rowScanner) metaRow(raw json.RawMessage) (key, mode string, data json.RawMessage, ok bool) {
	fields, ok := s.fields(raw, 3)
	if !ok {
		return "", "", nil, false
	}
	if key, ok = s.str(fields[0], 0); !ok {
		return "", "", nil, false
	}
	if mode, ok = s.str(fields[1], 1); !ok {
		return "", "", nil, false
	}
	data = make(json.RawMessage, len(fields[2]))
	copy(data, fields[2])
	return key, mode, data, true
}

// TermMetaScanner scans a term meta bank: rows [expression, mode, data].
type TermMetaScanner struct {
	rowScanner
	cur db.TermMeta
}

// NewTermMetaScanner returns a scanner over a term meta bank stream. The
// scanner assumes ownership of r.
func NewTermMetaScanner(r io.ReadCloser, file string) *TermMetaScanner {
	return &TermMetaScanner{rowScanner: newRowScanner(r, file)}
}

// Next advances to the next meta row.
func (s *TermMetaScanner) Next() bool {
	raw, ok := s.next()
	if !ok {
		return false
	}
	key, mode, data, ok := s.metaRow(raw)
	if !ok {
		return false
	}
	s.cur = db.TermMeta{Expression: key, Mode: mode, Data: data}
	return true
}

// Meta returns the row read by the last successful Next.
func (s *TermMetaScanner) Meta() db.TermMeta {
	return s.cur
}

// KanjiMetaScanner scans a kanji meta bank: rows [character, mode, data].
type KanjiMetaScanner struct {
	rowScanner
	cur db.KanjiMeta
}

// NewKanjiMetaScanner returns a scanner over a kanji meta bank stream. The
// scanner assumes ownership of r.
func NewKanjiMetaScanner(r io.ReadCloser, file string) *KanjiMetaScanner {
	return &KanjiMetaScanner{rowScanner: newRowScanner(r, file)}
}

// Next advances to the next meta row.
func (s *KanjiMetaScanner) Next() bool {
	raw, ok := s.next()
	if !ok {
		return false
	}
	key, mode, data, ok := s.metaRow(raw)
	if !ok {
		return false
	}
	s.cur = db.KanjiMeta{Character: key, Mode: mode, Data: data}
	return true
}

// Meta returns the row read by the last successful Next.
func (s *KanjiMetaScanner) Meta() db.KanjiMeta {
	return s.cur
}
