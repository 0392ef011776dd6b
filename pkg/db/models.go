package db

import (
	"encoding/json"
	"time"

	"github.com/japaniel/jiten/pkg/glossary"
)

// Dictionary is an imported dictionary. Priorities form a dense 1..N
// ranking across all dictionaries, enabled or not; 1 is highest precedence.
type Dictionary struct {
	ID          int64
	Title       string
	Revision    string
	Version     int
	Author      string
	URL         string
	Description string
	Attribution string
	Styles      string
	Enabled     bool
	Priority    int
	AddedAt     time.Time
}

// Tag is a dictionary-scoped tag definition.
type Tag struct {
	ID           int64
	DictionaryID int64
	Name         string
	Category     string
	Order        int
	Notes        string
	Score        int
}

// Term is a single dictionary term entry. Rules is the space-delimited
// part-of-speech class string matched against deinflection candidates.
type Term struct {
	ID             int64
	DictionaryID   int64
	Expression     string
	Reading        string
	DefinitionTags string
	Rules          string
	Score          int
	Glossary       []glossary.Entry
	Sequence       int64
	TermTags       string
}

// Kanji is a single kanji entry.
type Kanji struct {
	ID           int64
	DictionaryID int64
	Character    string
	Onyomi       string
	Kunyomi      string
	Tags         string
	Meanings     []string
	Stats        map[string]string
}

// TermMeta is per-expression metadata (frequency, pitch accent). Data is
// the mode-dependent payload, preserved opaquely.
type TermMeta struct {
	ID           int64
	DictionaryID int64
	Expression   string
	Mode         string
	Data         json.RawMessage
}

// KanjiMeta is per-character metadata, shaped like TermMeta.
type KanjiMeta struct {
	ID           int64
	DictionaryID int64
	Character    string
	Mode         string
	Data         json.RawMessage
}
