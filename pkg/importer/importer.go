// Package importer registers Yomitan dictionary archives in the store:
// manifest parsing, duplicate rejection, priority assignment, and bulk
// loading of all bank files. Bank parsing runs on a worker pool while a
// batch writer groups the inserts into transactions.
package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/japaniel/jiten/pkg/bank"
	"github.com/japaniel/jiten/pkg/db"
)

// ErrDuplicate rejects an archive whose title and revision are already
// imported.
var ErrDuplicate = errors.New("dictionary already imported")

// Importer runs the import pipeline against a store.
type Importer struct {
	store *db.Store

	// Workers is the number of concurrent bank parsers.
	Workers int
	// BatchSize is the number of rows per insert transaction.
	BatchSize int
	// Logger receives informational messages. nil means no logging.
	Logger *log.Logger
}

// New creates an Importer with default concurrency settings.
func New(store *db.Store) *Importer {
	return &Importer{
		store:     store,
		Workers:   4,
		BatchSize: 500,
	}
}

func (im *Importer) logf(format string, args ...interface{}) {
	if im.Logger != nil {
		im.Logger.Printf(format, args...)
	}
}

// ImportArchive imports the dictionary archive at path, a directory or
// .zip laid out per the Yomitan schema. It returns the new dictionary id.
func (im *Importer) ImportArchive(ctx context.Context, path string) (int64, error) {
	fsys, closer, err := openArchive(path)
	if err != nil {
		return 0, err
	}
	if closer != nil {
		defer closer.Close()
	}
	return im.Import(ctx, fsys)
}

// Import imports a dictionary from an already-opened archive file system.
// The dictionary becomes visible to search only if every bank file loads;
// on any failure the half-imported dictionary is deleted before the error
// is returned.
func (im *Importer) Import(ctx context.Context, fsys fs.FS) (int64, error) {
	data, err := fs.ReadFile(fsys, "index.json")
	if err != nil {
		return 0, fmt.Errorf("read index.json: %w", err)
	}
	ix, err := bank.ParseIndex(data)
	if err != nil {
		return 0, err
	}

	imported, err := im.store.IsImported(ctx, ix.Title, ix.Revision)
	if err != nil {
		return 0, err
	}
	if imported {
		return 0, fmt.Errorf("%w: %s (%s)", ErrDuplicate, ix.Title, ix.Revision)
	}

	var styles string
	if css, err := fs.ReadFile(fsys, "styles.css"); err == nil {
		styles = string(css)
	}

	d := &db.Dictionary{
		Title:       ix.Title,
		Revision:    ix.Revision,
		Version:     ix.EffectiveVersion(),
		Author:      ix.Author,
		URL:         ix.URL,
		Description: ix.Description,
		Attribution: ix.Attribution,
		Styles:      styles,
		Enabled:     true,
	}
	id, err := im.store.CreateDictionary(ctx, d)
	if err != nil {
		return 0, err
	}
	im.logf("importing %s (%s) as dictionary %d", ix.Title, ix.Revision, id)

	if err := im.importBanks(ctx, fsys, ix, id); err != nil {
		// A partial dictionary must never stay visible to search.
		if delErr := im.store.DeleteDictionary(context.WithoutCancel(ctx), id); delErr != nil {
			im.logf("cleanup of dictionary %d failed: %v", id, delErr)
		}
		return 0, err
	}
	return id, nil
}

// firstErr retains the first failure seen across worker goroutines.
type firstErr struct {
	mu  sync.Mutex
	err error
}

func (f *firstErr) set(err error) {
	f.mu.Lock()
	if f.err == nil {
		f.err = err
	}
	f.mu.Unlock()
}

func (f *firstErr) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (im *Importer) importBanks(ctx context.Context, fsys fs.FS, ix *bank.Index, dictID int64) error {
	files, err := discoverBanks(fsys)
	if err != nil {
		return err
	}
	version := ix.EffectiveVersion()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := NewWorkerPool(im.Workers, im.Workers*2)
	bw := NewBatchWriter(im.store.DB(), im.BatchSize, 100*time.Millisecond)
	var fail firstErr

	pool.Start(ctx)

	// A dictionary without a tag bank may declare its tags inline in the
	// manifest.
	if len(files.tags) == 0 && len(ix.TagMeta) > 0 {
		tags := inlineTags(ix)
		if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			return db.InsertTags(tx, dictID, tags)
		}); err != nil {
			fail.set(err)
		}
	}

	for _, name := range files.all() {
		name := name
		job := func(ctx context.Context) error {
			if err := im.importFile(fsys, name, version, dictID, bw); err != nil {
				fail.set(err)
				cancel()
			}
			return nil
		}
		if err := pool.Submit(ctx, job); err != nil {
			if err == ctx.Err() || err == ErrPoolClosed {
				break
			}
			fail.set(err)
			break
		}
	}

	pool.Close()
	closeErr := bw.Close()

	if err := fail.get(); err != nil {
		return err
	}
	// A canceled context means submission stopped early and banks are
	// missing; the dictionary must not be reported as imported.
	if err := ctx.Err(); err != nil {
		return err
	}
	return closeErr
}

func inlineTags(ix *bank.Index) []db.Tag {
	names := make([]string, 0, len(ix.TagMeta))
	for name := range ix.TagMeta {
		names = append(names, name)
	}
	sort.Strings(names)
	tags := make([]db.Tag, 0, len(names))
	for _, name := range names {
		m := ix.TagMeta[name]
		tags = append(tags, db.Tag{
			Name:     name,
			Category: m.Category,
			Order:    m.Order,
			Notes:    m.Notes,
			Score:    m.Score,
		})
	}
	return tags
}

// importFile scans one bank file and hands its rows to the batch writer.
func (im *Importer) importFile(fsys fs.FS, name string, version int, dictID int64, bw *BatchWriter) error {
	f, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}

	switch {
	case strings.HasPrefix(name, "term_meta_bank_"):
		return im.importTermMeta(f, name, dictID, bw)
	case strings.HasPrefix(name, "kanji_meta_bank_"):
		return im.importKanjiMeta(f, name, dictID, bw)
	case strings.HasPrefix(name, "term_bank_"):
		return im.importTerms(f, name, version, dictID, bw)
	case strings.HasPrefix(name, "kanji_bank_"):
		return im.importKanji(f, name, version, dictID, bw)
	case strings.HasPrefix(name, "tag_bank_"):
		return im.importTags(f, name, dictID, bw)
	default:
		f.Close()
		return fmt.Errorf("unrecognized bank file %s", name)
	}
}

func (im *Importer) importTerms(f fs.File, name string, version int, dictID int64, bw *BatchWriter) error {
	s, err := bank.NewTermScanner(f, name, version)
	if err != nil {
		f.Close()
		return err
	}
	defer s.Close()

	batch := make([]db.Term, 0, im.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		rows := batch
		batch = make([]db.Term, 0, im.BatchSize)
		return bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			return db.InsertTerms(tx, dictID, rows)
		})
	}

	for s.Next() {
		batch = append(batch, s.Term())
		if len(batch) >= im.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	return flush()
}

func (im *Importer) importTags(f fs.File, name string, dictID int64, bw *BatchWriter) error {
	s := bank.NewTagScanner(f, name)
	defer s.Close()

	batch := make([]db.Tag, 0, im.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		rows := batch
		batch = make([]db.Tag, 0, im.BatchSize)
		return bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			return db.InsertTags(tx, dictID, rows)
		})
	}

	for s.Next() {
		batch = append(batch, s.Tag())
		if len(batch) >= im.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	return flush()
}

func (im *Importer) importKanji(f fs.File, name string, version int, dictID int64, bw *BatchWriter) error {
	s, err := bank.NewKanjiScanner(f, name, version)
	if err != nil {
		f.Close()
		return err
	}
	defer s.Close()

	batch := make([]db.Kanji, 0, im.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		rows := batch
		batch = make([]db.Kanji, 0, im.BatchSize)
		return bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			return db.InsertKanji(tx, dictID, rows)
		})
	}

	for s.Next() {
		batch = append(batch, s.Kanji())
		if len(batch) >= im.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	return flush()
}

func (im *Importer) importTermMeta(f fs.File, name string, dictID int64, bw *BatchWriter) error {
	s := bank.NewTermMetaScanner(f, name)
	defer s.Close()

	batch := make([]db.TermMeta, 0, im.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		rows := batch
		batch = make([]db.TermMeta, 0, im.BatchSize)
		return bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			return db.InsertTermMeta(tx, dictID, rows)
		})
	}

	for s.Next() {
		batch = append(batch, s.Meta())
		if len(batch) >= im.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	return flush()
}

func (im *Importer) importKanjiMeta(f fs.File, name string, dictID int64, bw *BatchWriter) error {
	s := bank.NewKanjiMetaScanner(f, name)
	defer s.Close()

	batch := make([]db.KanjiMeta, 0, im.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		rows := batch
		batch = make([]db.KanjiMeta, 0, im.BatchSize)
		return bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			return db.InsertKanjiMeta(tx, dictID, rows)
		})
	}

	for s.Next() {
		batch = append(batch, s.Meta())
		if len(batch) >= im.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	return flush()
}
