package database

import (
	"fmt"
	"sort"
	"sync"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/changestream"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/compression"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/storage"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/table"
)

// Database owns the table catalog and binds the data directory. One
// buffer pool and one disk manager are shared by every table; frames are
// keyed by page id, which carries the table name.
type Database struct {
	config *Config
	disk   *storage.DiskManager
	pool   *storage.BufferPool
	events *changestream.Bus
	tables map[string]*table.Table
	mu     sync.RWMutex
	isOpen bool
}

// Config holds database configuration
type Config struct {
	DataDir          string
	BufferPoolFrames int
	Compression      *compression.Config
	// MergeOnClose compacts every table before the final flush. Merge
	// collapses version history, so it is strictly opt-in.
	MergeOnClose bool
}

// DefaultConfig returns default configuration
func DefaultConfig(dataDir string) *Config {
	return &Config{
		DataDir:          dataDir,
		BufferPoolFrames: storage.DefaultBufferPoolFrames,
		Compression:      compression.DefaultConfig(),
	}
}

// Open opens or creates a database at the configured data directory and
// recovers every cataloged table from its on-disk pages.
func Open(config *Config) (*Database, error) {
	if config == nil {
		return nil, fmt.Errorf("database: nil config")
	}

	comp, err := compression.NewCompressor(config.Compression)
	if err != nil {
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	disk, err := storage.NewDiskManager(config.DataDir, comp)
	if err != nil {
		return nil, err
	}

	db := &Database{
		config: config,
		disk:   disk,
		pool:   storage.NewBufferPool(config.BufferPoolFrames, disk),
		events: changestream.NewBus(),
		tables: make(map[string]*table.Table),
		isOpen: true,
	}

	metas, err := readMetadata(config.DataDir)
	if err != nil {
		return nil, err
	}
	for _, meta := range metas {
		t, err := table.New(meta.Name, meta.NumColumns, meta.KeyIndex, db.pool, db.disk, db.events)
		if err != nil {
			return nil, fmt.Errorf("failed to restore table %s: %w", meta.Name, err)
		}
		if err := t.Recover(); err != nil {
			return nil, fmt.Errorf("failed to recover table %s: %w", meta.Name, err)
		}
		t.SetDeleted(meta.Deleted)
		db.tables[meta.Name] = t
	}

	return db, nil
}

// CreateTable adds a table to the catalog
func (db *Database) CreateTable(name string, numColumns, keyIndex int) (*table.Table, error) {
	if name == "" {
		return nil, fmt.Errorf("database: empty table name")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.isOpen {
		return nil, fmt.Errorf("database: closed")
	}
	if _, exists := db.tables[name]; exists {
		return nil, fmt.Errorf("table %s already exists", name)
	}

	t, err := table.New(name, numColumns, keyIndex, db.pool, db.disk, db.events)
	if err != nil {
		return nil, err
	}
	db.tables[name] = t
	return t, nil
}

// GetTable returns a table from the catalog
func (db *Database) GetTable(name string) (*table.Table, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	t, ok := db.tables[name]
	return t, ok
}

// DropTable removes a table, its resident pages and its files
func (db *Database) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.tables[name]; !exists {
		return fmt.Errorf("table %s does not exist", name)
	}
	delete(db.tables, name)
	db.pool.DropTable(name)
	return db.disk.RemoveTable(name)
}

// Tables returns the catalog's table names in sorted order
func (db *Database) Tables() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Events returns the change event bus shared by all tables
func (db *Database) Events() *changestream.Bus {
	return db.events
}

// Pool returns the shared buffer pool
func (db *Database) Pool() *storage.BufferPool {
	return db.pool
}

// Disk returns the shared disk manager
func (db *Database) Disk() *storage.DiskManager {
	return db.disk
}

// DataDir returns the root data directory
func (db *Database) DataDir() string {
	return db.config.DataDir
}

// Flush writes every dirty resident page to disk
func (db *Database) Flush() error {
	return db.pool.FlushAll()
}

// MergeAll compacts every table. Returns records merged per table.
func (db *Database) MergeAll() (map[string]int, error) {
	db.mu.RLock()
	tables := make([]*table.Table, 0, len(db.tables))
	for _, t := range db.tables {
		tables = append(tables, t)
	}
	db.mu.RUnlock()

	counts := make(map[string]int, len(tables))
	for _, t := range tables {
		n, err := t.Merge()
		if err != nil {
			return counts, fmt.Errorf("failed to merge table %s: %w", t.Name(), err)
		}
		counts[t.Name()] = n
	}
	return counts, nil
}

// Close flushes dirty pages, writes the catalog metadata and shuts the
// database down. The engine is durable only after a clean Close.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.isOpen {
		return nil
	}

	if db.config.MergeOnClose {
		for _, t := range db.tables {
			if _, err := t.Merge(); err != nil {
				return fmt.Errorf("merge on close failed for table %s: %w", t.Name(), err)
			}
		}
	}

	if err := db.pool.FlushAll(); err != nil {
		return fmt.Errorf("failed to flush pages on close: %w", err)
	}

	metas := make([]tableMeta, 0, len(db.tables))
	for _, t := range db.tables {
		metas = append(metas, tableMeta{
			Name:       t.Name(),
			NumColumns: t.NumColumns(),
			KeyIndex:   t.KeyColumn(),
			Deleted:    t.DeletedRIDs(),
		})
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Name < metas[j].Name })
	if err := writeMetadata(db.config.DataDir, metas); err != nil {
		return err
	}

	db.events.Close()
	db.isOpen = false
	return nil
}
