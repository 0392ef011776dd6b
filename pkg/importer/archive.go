package importer

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// openArchive opens a dictionary archive as a file system: either a
// directory of bank files or a .zip containing them. The returned closer
// is nil for directories.
func openArchive(path string) (fs.FS, io.Closer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		return os.DirFS(path), nil, nil
	}
	if !strings.HasSuffix(strings.ToLower(path), ".zip") {
		return nil, nil, fmt.Errorf("archive %s: not a directory or .zip", path)
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return zr, zr, nil
}

// bankFiles lists the bank files in fsys grouped by kind, in name order.
type bankFiles struct {
	tags      []string
	terms     []string
	kanji     []string
	termMeta  []string
	kanjiMeta []string
}

func discoverBanks(fsys fs.FS) (*bankFiles, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	var files bankFiles
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := e.Name()
		switch {
		case strings.HasPrefix(name, "term_meta_bank_"):
			files.termMeta = append(files.termMeta, name)
		case strings.HasPrefix(name, "kanji_meta_bank_"):
			files.kanjiMeta = append(files.kanjiMeta, name)
		case strings.HasPrefix(name, "term_bank_"):
			files.terms = append(files.terms, name)
		case strings.HasPrefix(name, "kanji_bank_"):
			files.kanji = append(files.kanji, name)
		case strings.HasPrefix(name, "tag_bank_"):
			files.tags = append(files.tags, name)
		}
	}
	return &files, nil
}

func (f *bankFiles) all() []string {
	var names []string
	names = append(names, f.tags...)
	names = append(names, f.terms...)
	names = append(names, f.kanji...)
	names = append(names, f.termMeta...)
	names = append(names, f.kanjiMeta...)
	return names
}
