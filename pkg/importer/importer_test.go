package importer

import (
	"archive/zip"
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/japaniel/jiten/pkg/db"

	_ "github.com/mattn/go-sqlite3"
)

func importTestStore(t *testing.T) *db.Store {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	if err := db.InitDB(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return db.NewStore(conn)
}

// writeArchiveDir lays out a dictionary archive in a temp directory.
func writeArchiveDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func writeArchiveZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dict.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close zip file: %v", err)
	}
	return path
}

var sampleArchive = map[string]string{
	"index.json": `{"title":"Test Dict","revision":"1","format":3}`,
	"tag_bank_1.json": `[["P","popular",-10,"popular term",10]]`,
	"term_bank_1.json": `[
		["食べる","たべる","","v1",0,["to eat"],1,"P"],
		["行く","いく","","v5k-s",0,["to go"],2,""]
	]`,
	"term_bank_2.json":      `[["高い","たかい","","adj-i",0,["tall"],3,""]]`,
	"kanji_bank_1.json":     `[["食","ショク","た.べる","jouyou",["food"],{"grade":"2"}]]`,
	"term_meta_bank_1.json": `[["食べる","freq",1330]]`,
	"kanji_meta_bank_1.json": `[["食","freq",220]]`,
	"styles.css":            `.gloss { color: green; }`,
}

func TestImportDirectoryArchive(t *testing.T) {
	store := importTestStore(t)
	ctx := context.Background()
	dir := writeArchiveDir(t, sampleArchive)

	im := New(store)
	id, err := im.ImportArchive(ctx, dir)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	d, err := store.Dictionary(ctx, id)
	if err != nil {
		t.Fatalf("load dictionary: %v", err)
	}
	if d.Title != "Test Dict" || d.Revision != "1" || d.Version != 3 {
		t.Errorf("dictionary = %+v", d)
	}
	if d.Priority != 1 || !d.Enabled {
		t.Errorf("expected enabled at priority 1: %+v", d)
	}
	if d.Styles == "" {
		t.Error("styles.css not captured")
	}

	n, err := store.TermCount(ctx, id)
	if err != nil {
		t.Fatalf("term count: %v", err)
	}
	if n != 3 {
		t.Errorf("term count = %d, want 3", n)
	}

	terms, err := store.TermsByText(ctx, "食べる", []int64{id})
	if err != nil {
		t.Fatalf("terms: %v", err)
	}
	if len(terms) != 1 || terms[0].Rules != "v1" || terms[0].Sequence != 1 {
		t.Errorf("terms = %+v", terms)
	}

	kanji, err := store.KanjiByCharacter(ctx, "食", []int64{id})
	if err != nil {
		t.Fatalf("kanji: %v", err)
	}
	if len(kanji) != 1 || kanji[0].Stats["grade"] != "2" {
		t.Errorf("kanji = %+v", kanji)
	}

	metas, err := store.TermMetaByExpression(ctx, "食べる", []int64{id})
	if err != nil {
		t.Fatalf("term meta: %v", err)
	}
	if len(metas) != 1 || string(metas[0].Data) != "1330" {
		t.Errorf("term meta = %+v", metas)
	}
}

func TestImportZipArchive(t *testing.T) {
	store := importTestStore(t)
	ctx := context.Background()
	path := writeArchiveZip(t, sampleArchive)

	im := New(store)
	id, err := im.ImportArchive(ctx, path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	n, err := store.TermCount(ctx, id)
	if err != nil {
		t.Fatalf("term count: %v", err)
	}
	if n != 3 {
		t.Errorf("term count = %d, want 3", n)
	}
}

func TestImportDuplicateRejected(t *testing.T) {
	store := importTestStore(t)
	ctx := context.Background()
	dir := writeArchiveDir(t, sampleArchive)

	im := New(store)
	if _, err := im.ImportArchive(ctx, dir); err != nil {
		t.Fatalf("first import: %v", err)
	}
	_, err := im.ImportArchive(ctx, dir)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	dicts, err := store.Dictionaries(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dicts) != 1 {
		t.Errorf("duplicate import left %d dictionaries", len(dicts))
	}
}

func TestImportCorruptBankLeavesNothingBehind(t *testing.T) {
	store := importTestStore(t)
	ctx := context.Background()

	archive := map[string]string{
		"index.json":       `{"title":"Broken","revision":"1","format":3}`,
		"term_bank_1.json": `[["ok","おけ","","",0,["fine"],1,""]]`,
		"term_bank_2.json": `[["short row"]]`,
	}
	dir := writeArchiveDir(t, archive)

	im := New(store)
	if _, err := im.ImportArchive(ctx, dir); err == nil {
		t.Fatal("expected import to fail on corrupt bank")
	}

	dicts, err := store.Dictionaries(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dicts) != 0 {
		t.Errorf("failed import left %d dictionaries behind", len(dicts))
	}
	var n int
	if err := store.DB().QueryRow("SELECT COUNT(*) FROM terms").Scan(&n); err != nil {
		t.Fatalf("count terms: %v", err)
	}
	if n != 0 {
		t.Errorf("failed import left %d term rows behind", n)
	}
}

// cancelOnOpenFS cancels a context the first time a term bank is opened,
// simulating an interrupt arriving while banks are still loading.
type cancelOnOpenFS struct {
	inner  fs.FS
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancelOnOpenFS) Open(name string) (fs.File, error) {
	if strings.HasPrefix(name, "term_bank_") {
		c.once.Do(c.cancel)
	}
	return c.inner.Open(name)
}

func TestImportCanceledLeavesNothingBehind(t *testing.T) {
	store := importTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := writeArchiveDir(t, sampleArchive)
	fsys := &cancelOnOpenFS{inner: os.DirFS(dir), cancel: cancel}

	im := New(store)
	if _, err := im.Import(ctx, fsys); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	dicts, err := store.Dictionaries(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dicts) != 0 {
		t.Errorf("canceled import left %d dictionaries behind", len(dicts))
	}
	var n int
	if err := store.DB().QueryRow("SELECT COUNT(*) FROM terms").Scan(&n); err != nil {
		t.Fatalf("count terms: %v", err)
	}
	if n != 0 {
		t.Errorf("canceled import left %d term rows behind", n)
	}
}

func TestImportMissingIndex(t *testing.T) {
	store := importTestStore(t)
	dir := writeArchiveDir(t, map[string]string{
		"term_bank_1.json": `[]`,
	})
	im := New(store)
	if _, err := im.ImportArchive(context.Background(), dir); err == nil {
		t.Fatal("expected error for missing index.json")
	}
}

func TestImportInlineTagMeta(t *testing.T) {
	store := importTestStore(t)
	ctx := context.Background()

	archive := map[string]string{
		"index.json": `{
			"title": "Inline Tags",
			"revision": "1",
			"format": 3,
			"tagMeta": {"news": {"category": "frequent", "order": -2, "notes": "newspaper", "score": 0}}
		}`,
		"term_bank_1.json": `[["新聞","しんぶん","news","",0,["newspaper"],1,""]]`,
	}
	dir := writeArchiveDir(t, archive)

	im := New(store)
	id, err := im.ImportArchive(ctx, dir)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	var name, category string
	err = store.DB().QueryRow(
		"SELECT name, category FROM tags WHERE dictionary_id = ?", id).Scan(&name, &category)
	if err != nil {
		t.Fatalf("query tags: %v", err)
	}
	if name != "news" || category != "frequent" {
		t.Errorf("inline tag = %s/%s", name, category)
	}
}

func TestImportV1Banks(t *testing.T) {
	store := importTestStore(t)
	ctx := context.Background()

	archive := map[string]string{
		"index.json":        `{"title":"Legacy","revision":"1","version":1}`,
		"term_bank_1.json":  `[["食べる","たべる","","v1",0,"to eat","to dine"]]`,
		"kanji_bank_1.json": `[["食","ショク","た.べる","jouyou","food"]]`,
	}
	dir := writeArchiveDir(t, archive)

	im := New(store)
	id, err := im.ImportArchive(ctx, dir)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	terms, err := store.TermsByText(ctx, "食べる", []int64{id})
	if err != nil {
		t.Fatalf("terms: %v", err)
	}
	if len(terms) != 1 || len(terms[0].Glossary) != 2 {
		t.Errorf("v1 trailing glossary not captured: %+v", terms)
	}
}

func TestImportNewestGetsTopPriority(t *testing.T) {
	store := importTestStore(t)
	ctx := context.Background()
	im := New(store)

	first := writeArchiveDir(t, map[string]string{
		"index.json":       `{"title":"First","revision":"1","format":3}`,
		"term_bank_1.json": `[]`,
	})
	second := writeArchiveDir(t, map[string]string{
		"index.json":       `{"title":"Second","revision":"1","format":3}`,
		"term_bank_1.json": `[]`,
	})

	id1, err := im.ImportArchive(ctx, first)
	if err != nil {
		t.Fatalf("import first: %v", err)
	}
	id2, err := im.ImportArchive(ctx, second)
	if err != nil {
		t.Fatalf("import second: %v", err)
	}

	d1, err := store.Dictionary(ctx, id1)
	if err != nil {
		t.Fatalf("load first: %v", err)
	}
	d2, err := store.Dictionary(ctx, id2)
	if err != nil {
		t.Fatalf("load second: %v", err)
	}
	if d2.Priority != 1 || d1.Priority != 2 {
		t.Errorf("priorities = %d and %d, want 1 and 2", d2.Priority, d1.Priority)
	}
}
