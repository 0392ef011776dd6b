package bank

import (
	"encoding/json"
)

// TagMeta is inline tag metadata from an index.json without a tag bank.
type TagMeta struct {
	Category string
	Order    int
	Notes    string
	Score    int
}

// Index is the parsed dictionary manifest. It is consumed once during
// import and never persisted as-is.
type Index struct {
	Title       string
	Revision    string
	Author      string
	URL         string
	Description string
	Attribution string
	Sequenced   bool

	format  int
	version int

	// TagMeta maps tag name to its metadata when the dictionary declares
	// tags inline instead of shipping a tag bank.
	TagMeta map[string]TagMeta
}

// EffectiveVersion resolves the bank schema version: the manifest's
// "format" key wins over the legacy "version" key; absent both, version 1.
func (ix *Index) EffectiveVersion() int {
	if ix.format != 0 {
		return ix.format
	}
	if ix.version != 0 {
		return ix.version
	}
	return 1
}

// ParseIndex parses an index.json manifest. Title and revision are
// required; their absence is a *ParseError.
func ParseIndex(data []byte) (*Index, error) {
	const file = "index.json"

	var raw struct {
		Title       string `json:"title"`
		Revision    string `json:"revision"`
		Sequenced   bool   `json:"sequenced"`
		Format      int    `json:"format"`
		Version     int    `json:"version"`
		Author      string `json:"author"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Attribution string `json:"attribution"`
		TagMeta     map[string]struct {
			Category string  `json:"category"`
			Order    float64 `json:"order"`
			Notes    string  `json:"notes"`
			Score    float64 `json:"score"`
		} `json:"tagMeta"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, parseErr(file, -1, "malformed manifest: %w", err)
	}
	if raw.Title == "" {
		return nil, parseErr(file, -1, "manifest missing title")
	}
	if raw.Revision == "" {
		return nil, parseErr(file, -1, "manifest missing revision")
	}

	ix := &Index{
		Title:       raw.Title,
		Revision:    raw.Revision,
		Author:      raw.Author,
		URL:         raw.URL,
		Description: raw.Description,
		Attribution: raw.Attribution,
		Sequenced:   raw.Sequenced,
		format:      raw.Format,
		version:     raw.Version,
	}
	if len(raw.TagMeta) > 0 {
		ix.TagMeta = make(map[string]TagMeta, len(raw.TagMeta))
		for name, m := range raw.TagMeta {
			ix.TagMeta[name] = TagMeta{
				Category: m.Category,
				Order:    int(m.Order),
				Notes:    m.Notes,
				Score:    int(m.Score),
			}
		}
	}
	return ix, nil
}
