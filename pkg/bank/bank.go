// Package bank decodes Yomitan dictionary bank files: the index.json
// manifest and the tag/term/kanji/meta JSON array banks, in schema versions
// 1 and 3.
//
// Bank files can hold tens of thousands of rows, so every bank is exposed
// as a single-pass scanner over a stream rather than a fully materialized
// slice. Scanners own their reader and must be closed.
package bank

import (
	"encoding/json"
	"fmt"
)

// ParseError reports malformed or schema-violating bank content. Row is
// the zero-based index of the offending array element, or -1 when the file
// failed before any row was read.
type ParseError struct {
	File string
	Row  int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("bank %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("bank %s: row %d: %v", e.File, e.Row, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseErr(file string, row int, format string, args ...interface{}) *ParseError {
	return &ParseError{File: file, Row: row, Err: fmt.Errorf(format, args...)}
}

// decodeField unmarshals one positional slot of a row, reporting the slot
// on failure.
func decodeField(raw json.RawMessage, v interface{}, file string, row, slot int) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return parseErr(file, row, "field %d: %w", slot, err)
	}
	return nil
}
