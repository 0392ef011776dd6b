package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/japaniel/jiten/pkg/glossary"
)

// DBExecutor is an interface that allows helpers to accept either *sql.DB
// or *sql.Tx.
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// ErrNotFound indicates the referenced dictionary does not exist.
var ErrNotFound = errors.New("dictionary not found")

// Store wraps a SQLite connection with the dictionary-registry invariants.
// Priority mutations (create, delete, swap) are serialized by a single
// mutex so that readers never observe two dictionaries sharing a priority.
// Reads go straight to the connection and may observe the previous, still
// internally consistent, ordering.
type Store struct {
	conn *sql.DB

	prioMu sync.Mutex
}

// NewStore creates a Store over an initialized connection.
func NewStore(conn *sql.DB) *Store {
	return &Store{conn: conn}
}

// DB exposes the underlying connection for transactional batch writers.
func (s *Store) DB() *sql.DB {
	return s.conn
}

// CreateDictionary inserts d at priority 1, bumping every existing
// dictionary's priority by one. Returns the new dictionary's id.
func (s *Store) CreateDictionary(ctx context.Context, d *Dictionary) (int64, error) {
	s.prioMu.Lock()
	defer s.prioMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create dictionary: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE dictionaries SET priority = priority + 1`); err != nil {
		return 0, fmt.Errorf("bump priorities: %w", err)
	}

	res, err := tx.Exec(`INSERT INTO dictionaries
		(title, revision, version, author, url, description, attribution, styles, is_enabled, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		d.Title, d.Revision, d.Version, d.Author, d.URL, d.Description, d.Attribution, d.Styles, boolInt(d.Enabled))
	if err != nil {
		return 0, fmt.Errorf("insert dictionary %q: %w", d.Title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create dictionary: %w", err)
	}
	d.ID = id
	d.Priority = 1
	return id, nil
}

// DeleteDictionary removes the dictionary and every dependent row, then
// closes the priority gap it leaves behind.
func (s *Store) DeleteDictionary(ctx context.Context, id int64) error {
	s.prioMu.Lock()
	defer s.prioMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete dictionary: %w", err)
	}
	defer tx.Rollback()

	var priority int
	err = tx.QueryRow(`SELECT priority FROM dictionaries WHERE id = ?`, id).Scan(&priority)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	for _, table := range []string{"tags", "terms", "kanji", "term_meta", "kanji_meta"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE dictionary_id = ?`, id); err != nil {
			return fmt.Errorf("delete %s for dictionary %d: %w", table, id, err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM dictionaries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete dictionary %d: %w", id, err)
	}
	if _, err := tx.Exec(`UPDATE dictionaries SET priority = priority - 1 WHERE priority > ?`, priority); err != nil {
		return fmt.Errorf("close priority gap: %w", err)
	}

	return tx.Commit()
}

// SwapPriorities exchanges the priorities of two dictionaries.
func (s *Store) SwapPriorities(ctx context.Context, a, b int64) error {
	s.prioMu.Lock()
	defer s.prioMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin swap: %w", err)
	}
	defer tx.Rollback()

	var pa, pb int
	if err := tx.QueryRow(`SELECT priority FROM dictionaries WHERE id = ?`, a).Scan(&pa); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	if err := tx.QueryRow(`SELECT priority FROM dictionaries WHERE id = ?`, b).Scan(&pb); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	if _, err := tx.Exec(`UPDATE dictionaries SET priority = ? WHERE id = ?`, pb, a); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE dictionaries SET priority = ? WHERE id = ?`, pa, b); err != nil {
		return err
	}
	return tx.Commit()
}

// SetEnabled toggles a dictionary's participation in default searches.
func (s *Store) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := s.conn.ExecContext(ctx, `UPDATE dictionaries SET is_enabled = ? WHERE id = ?`, boolInt(enabled), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsImported reports whether a dictionary with the exact title and revision
// already exists.
func (s *Store) IsImported(ctx context.Context, title, revision string) (bool, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dictionaries WHERE title = ? AND revision = ?`, title, revision).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TermCount returns the number of term rows in a dictionary.
func (s *Store) TermCount(ctx context.Context, dictID int64) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM terms WHERE dictionary_id = ?`, dictID).Scan(&n)
	return n, err
}

// Dictionaries returns all dictionaries ordered by priority.
func (s *Store) Dictionaries(ctx context.Context) ([]Dictionary, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT
		id, title, revision, version, author, url, description, attribution, styles, is_enabled, priority, added_at
		FROM dictionaries ORDER BY priority`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dictionary
	for rows.Next() {
		var d Dictionary
		var enabled int
		if err := rows.Scan(&d.ID, &d.Title, &d.Revision, &d.Version, &d.Author, &d.URL,
			&d.Description, &d.Attribution, &d.Styles, &enabled, &d.Priority, &d.AddedAt); err != nil {
			return nil, err
		}
		d.Enabled = enabled != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

// Dictionary returns a single dictionary by id.
func (s *Store) Dictionary(ctx context.Context, id int64) (*Dictionary, error) {
	var d Dictionary
	var enabled int
	err := s.conn.QueryRowContext(ctx, `SELECT
		id, title, revision, version, author, url, description, attribution, styles, is_enabled, priority, added_at
		FROM dictionaries WHERE id = ?`, id).Scan(
		&d.ID, &d.Title, &d.Revision, &d.Version, &d.Author, &d.URL,
		&d.Description, &d.Attribution, &d.Styles, &enabled, &d.Priority, &d.AddedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Enabled = enabled != 0
	return &d, nil
}

// EnabledDictionaryIDs returns ids of enabled dictionaries in priority order.
func (s *Store) EnabledDictionaryIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id FROM dictionaries WHERE is_enabled = 1 ORDER BY priority`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TermsByText returns every term whose expression or reading equals text,
// restricted to dictIDs, ordered by dictionary priority then insertion
// order. An empty dictIDs set matches nothing.
func (s *Store) TermsByText(ctx context.Context, text string, dictIDs []int64) ([]Term, error) {
	if len(dictIDs) == 0 {
		return nil, nil
	}
	query := `SELECT t.id, t.dictionary_id, t.expression, t.reading, t.definition_tags,
			t.rules, t.score, t.glossary, t.sequence, t.term_tags
		FROM terms t JOIN dictionaries d ON d.id = t.dictionary_id
		WHERE (t.expression = ? OR t.reading = ?) AND t.dictionary_id IN (` + placeholders(len(dictIDs)) + `)
		ORDER BY d.priority, t.id`
	args := make([]interface{}, 0, len(dictIDs)+2)
	args = append(args, text, text)
	for _, id := range dictIDs {
		args = append(args, id)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Term
	for rows.Next() {
		var t Term
		var gloss string
		if err := rows.Scan(&t.ID, &t.DictionaryID, &t.Expression, &t.Reading, &t.DefinitionTags,
			&t.Rules, &t.Score, &gloss, &t.Sequence, &t.TermTags); err != nil {
			return nil, err
		}
		if t.Glossary, err = glossary.Decode(gloss); err != nil {
			return nil, fmt.Errorf("term %d: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TermMetaByExpression returns term metadata rows for one expression.
func (s *Store) TermMetaByExpression(ctx context.Context, expression string, dictIDs []int64) ([]TermMeta, error) {
	if len(dictIDs) == 0 {
		return nil, nil
	}
	query := `SELECT m.id, m.dictionary_id, m.expression, m.mode, m.data
		FROM term_meta m JOIN dictionaries d ON d.id = m.dictionary_id
		WHERE m.expression = ? AND m.dictionary_id IN (` + placeholders(len(dictIDs)) + `)
		ORDER BY d.priority, m.id`
	args := make([]interface{}, 0, len(dictIDs)+1)
	args = append(args, expression)
	for _, id := range dictIDs {
		args = append(args, id)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TermMeta
	for rows.Next() {
		var m TermMeta
		var data string
		if err := rows.Scan(&m.ID, &m.DictionaryID, &m.Expression, &m.Mode, &data); err != nil {
			return nil, err
		}
		m.Data = json.RawMessage(data)
		out = append(out, m)
	}
	return out, rows.Err()
}

// KanjiByCharacter returns kanji entries for one character.
func (s *Store) KanjiByCharacter(ctx context.Context, character string, dictIDs []int64) ([]Kanji, error) {
	if len(dictIDs) == 0 {
		return nil, nil
	}
	query := `SELECT k.id, k.dictionary_id, k.character, k.onyomi, k.kunyomi, k.tags, k.meanings, k.stats
		FROM kanji k JOIN dictionaries d ON d.id = k.dictionary_id
		WHERE k.character = ? AND k.dictionary_id IN (` + placeholders(len(dictIDs)) + `)
		ORDER BY d.priority, k.id`
	args := make([]interface{}, 0, len(dictIDs)+1)
	args = append(args, character)
	for _, id := range dictIDs {
		args = append(args, id)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Kanji
	for rows.Next() {
		var k Kanji
		var meanings, stats string
		if err := rows.Scan(&k.ID, &k.DictionaryID, &k.Character, &k.Onyomi, &k.Kunyomi, &k.Tags, &meanings, &stats); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meanings), &k.Meanings); err != nil {
			return nil, fmt.Errorf("kanji %d meanings: %w", k.ID, err)
		}
		if err := json.Unmarshal([]byte(stats), &k.Stats); err != nil {
			return nil, fmt.Errorf("kanji %d stats: %w", k.ID, err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// insertChunk is the number of rows per multi-row INSERT, kept well under
// SQLite's bound-variable limit at our widest table.
const insertChunk = 100

// InsertTags bulk-inserts tags stamped with dictID. No-op on empty input.
func InsertTags(ex DBExecutor, dictID int64, tags []Tag) error {
	for start := 0; start < len(tags); start += insertChunk {
		chunk := tags[start:min(start+insertChunk, len(tags))]
		var sb strings.Builder
		sb.WriteString(`INSERT INTO tags (dictionary_id, name, category, sort_order, notes, score) VALUES `)
		args := make([]interface{}, 0, len(chunk)*6)
		for i, t := range chunk {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?)")
			args = append(args, dictID, t.Name, t.Category, t.Order, t.Notes, t.Score)
		}
		if _, err := ex.Exec(sb.String(), args...); err != nil {
			return fmt.Errorf("insert tags: %w", err)
		}
	}
	return nil
}

// InsertTerms bulk-inserts terms stamped with dictID. No-op on empty input.
func InsertTerms(ex DBExecutor, dictID int64, terms []Term) error {
	for start := 0; start < len(terms); start += insertChunk {
		chunk := terms[start:min(start+insertChunk, len(terms))]
		var sb strings.Builder
		sb.WriteString(`INSERT INTO terms
			(dictionary_id, expression, reading, definition_tags, rules, score, glossary, sequence, term_tags) VALUES `)
		args := make([]interface{}, 0, len(chunk)*9)
		for i, t := range chunk {
			gloss, err := glossary.Encode(t.Glossary)
			if err != nil {
				return fmt.Errorf("term %q: %w", t.Expression, err)
			}
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, dictID, t.Expression, t.Reading, t.DefinitionTags, t.Rules, t.Score, gloss, t.Sequence, t.TermTags)
		}
		if _, err := ex.Exec(sb.String(), args...); err != nil {
			return fmt.Errorf("insert terms: %w", err)
		}
	}
	return nil
}

// InsertKanji bulk-inserts kanji stamped with dictID. No-op on empty input.
func InsertKanji(ex DBExecutor, dictID int64, entries []Kanji) error {
	for start := 0; start < len(entries); start += insertChunk {
		chunk := entries[start:min(start+insertChunk, len(entries))]
		var sb strings.Builder
		sb.WriteString(`INSERT INTO kanji
			(dictionary_id, character, onyomi, kunyomi, tags, meanings, stats) VALUES `)
		args := make([]interface{}, 0, len(chunk)*7)
		for i, k := range chunk {
			meanings, err := json.Marshal(emptySlice(k.Meanings))
			if err != nil {
				return fmt.Errorf("kanji %q meanings: %w", k.Character, err)
			}
			stats, err := json.Marshal(emptyMap(k.Stats))
			if err != nil {
				return fmt.Errorf("kanji %q stats: %w", k.Character, err)
			}
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, dictID, k.Character, k.Onyomi, k.Kunyomi, k.Tags, string(meanings), string(stats))
		}
		if _, err := ex.Exec(sb.String(), args...); err != nil {
			return fmt.Errorf("insert kanji: %w", err)
		}
	}
	return nil
}

// InsertTermMeta bulk-inserts term metadata stamped with dictID.
func InsertTermMeta(ex DBExecutor, dictID int64, metas []TermMeta) error {
	for start := 0; start < len(metas); start += insertChunk {
		chunk := metas[start:min(start+insertChunk, len(metas))]
		var sb strings.Builder
		sb.WriteString(`INSERT INTO term_meta (dictionary_id, expression, mode, data) VALUES `)
		args := make([]interface{}, 0, len(chunk)*4)
		for i, m := range chunk {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?, ?, ?, ?)")
			args = append(args, dictID, m.Expression, m.Mode, rawString(m.Data))
		}
		if _, err := ex.Exec(sb.String(), args...); err != nil {
			return fmt.Errorf("insert term meta: %w", err)
		}
	}
	return nil
}

// InsertKanjiMeta bulk-inserts kanji metadata stamped with dictID.
func InsertKanjiMeta(ex DBExecutor, dictID int64, metas []KanjiMeta) error {
	for start := 0; start < len(metas); start += insertChunk {
		chunk := metas[start:min(start+insertChunk, len(metas))]
		var sb strings.Builder
		sb.WriteString(`INSERT INTO kanji_meta (dictionary_id, character, mode, data) VALUES `)
		args := make([]interface{}, 0, len(chunk)*4)
		for i, m := range chunk {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?, ?, ?, ?)")
			args = append(args, dictID, m.Character, m.Mode, rawString(m.Data))
		}
		if _, err := ex.Exec(sb.String(), args...); err != nil {
			return fmt.Errorf("insert kanji meta: %w", err)
		}
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}

func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
