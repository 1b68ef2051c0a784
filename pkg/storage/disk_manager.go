package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/compression"
)

// DiskManager handles physical page file I/O. Every column page of every
// table lives in its own file:
//
//	<dataDir>/<table>/base/col_<i>_page_<n>.page
//	<dataDir>/<table>/tail/col_<i>_page_<n>.page
//
// Files are written atomically so a crash mid-flush never leaves a torn
// page behind.
type DiskManager struct {
	dataDir     string
	comp        *compression.Compressor
	mu          sync.Mutex
	totalReads  int64
	totalWrites int64
}

// NewDiskManager creates a disk manager rooted at dataDir
func NewDiskManager(dataDir string, comp *compression.Compressor) (*DiskManager, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if comp == nil {
		var err error
		comp, err = compression.NewCompressor(nil)
		if err != nil {
			return nil, err
		}
	}
	return &DiskManager{dataDir: dataDir, comp: comp}, nil
}

// DataDir returns the root data directory
func (dm *DiskManager) DataDir() string {
	return dm.dataDir
}

// PagePath returns the file path backing a page id
func (dm *DiskManager) PagePath(id PageID) string {
	name := fmt.Sprintf("col_%d_page_%d.page", id.Column, id.Page)
	return filepath.Join(dm.dataDir, id.Table, id.Kind.String(), name)
}

// EnsureTable creates the base and tail directories for a table
func (dm *DiskManager) EnsureTable(table string) error {
	for _, kind := range []PageKind{PageKindBase, PageKindTail} {
		dir := filepath.Join(dm.dataDir, table, kind.String())
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create table directory: %w", err)
		}
	}
	return nil
}

// RemoveTable deletes all page files of a table
func (dm *DiskManager) RemoveTable(table string) error {
	return os.RemoveAll(filepath.Join(dm.dataDir, table))
}

// ReadPage reads a page file from disk
func (dm *DiskManager) ReadPage(id PageID) (*Page, error) {
	data, err := os.ReadFile(dm.PagePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("page %s: %w", id, ErrPageNotFound)
		}
		return nil, fmt.Errorf("failed to read page %s: %w", id, err)
	}

	payload, err := dm.comp.UnwrapPayload(data)
	if err != nil {
		return nil, fmt.Errorf("page %s: %v: %w", id, err, ErrCorruptPage)
	}

	page := NewPage(id)
	if err := page.Deserialize(payload); err != nil {
		return nil, err
	}

	dm.mu.Lock()
	dm.totalReads++
	dm.mu.Unlock()
	return page, nil
}

// WritePage writes a page file to disk atomically
func (dm *DiskManager) WritePage(page *Page) error {
	data, err := dm.comp.WrapPayload(page.Serialize())
	if err != nil {
		return fmt.Errorf("failed to encode page %s: %w", page.ID, err)
	}
	if err := atomic.WriteFile(dm.PagePath(page.ID), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write page %s: %w", page.ID, err)
	}

	dm.mu.Lock()
	dm.totalWrites++
	dm.mu.Unlock()
	return nil
}

// ListPages enumerates the on-disk pages of one table and kind.
// The result maps page number to the set of column indexes that have a
// page file for it. Unparseable file names are skipped.
func (dm *DiskManager) ListPages(table string, kind PageKind) (map[int]map[int]bool, error) {
	dir := filepath.Join(dm.dataDir, table, kind.String())
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[int]map[int]bool{}, nil
		}
		return nil, fmt.Errorf("failed to list pages of %s/%s: %w", table, kind, err)
	}

	pages := make(map[int]map[int]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var column, pageNum int
		if n, err := fmt.Sscanf(entry.Name(), "col_%d_page_%d.page", &column, &pageNum); n != 2 || err != nil {
			continue
		}
		if pages[pageNum] == nil {
			pages[pageNum] = make(map[int]bool)
		}
		pages[pageNum][column] = true
	}
	return pages, nil
}

// Stats returns cumulative I/O counters
func (dm *DiskManager) Stats() (reads, writes int64) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.totalReads, dm.totalWrites
}
