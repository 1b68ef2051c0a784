package table

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/changestream"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/index"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/storage"
)

// Meta column layout. Every physical record carries these four columns
// ahead of the user columns.
const (
	IndirectionColumn = 0
	RIDColumn         = 1
	TimestampColumn   = 2
	SchemaColumn      = 3
	// MetaColumns is the number of meta columns per record
	MetaColumns = 4
)

// TailRIDBase is the first RID of the tail space. Base and tail RIDs are
// drawn from disjoint monotonically increasing counters.
const TailRIDBase int64 = 1 << 40

// Location records where a RID's slots live. All physical columns of a
// record share the same page number and slot index within their own
// column pages, so one location resolves every column.
type Location struct {
	Kind storage.PageKind
	Page int
	Slot int
}

// Table owns the logical schema, page directory, RID counters, deleted
// set and indexes of one table. All mutation goes through the buffer
// pool; nothing here touches page files directly except recovery's
// directory listing.
type Table struct {
	name       string
	numColumns int // user columns
	keyColumn  int

	pool    *storage.BufferPool
	disk    *storage.DiskManager
	indexes *index.Indexes
	events  *changestream.Bus

	mu            sync.RWMutex
	pageDirectory map[int64]Location
	deleted       map[int64]struct{}
	baseCount     int // physical base slots appended, including deleted
	tailCount     int
	nextBaseRID   int64
	nextTailRID   int64
	lastTimestamp int64
}

// New creates an empty table and its on-disk directories
func New(name string, numColumns, keyColumn int, pool *storage.BufferPool, disk *storage.DiskManager, events *changestream.Bus) (*Table, error) {
	if numColumns <= 0 {
		return nil, fmt.Errorf("table %s: need at least one column", name)
	}
	if keyColumn < 0 || keyColumn >= numColumns {
		return nil, fmt.Errorf("table %s: key column %d out of range", name, keyColumn)
	}
	if err := disk.EnsureTable(name); err != nil {
		return nil, err
	}
	return &Table{
		name:          name,
		numColumns:    numColumns,
		keyColumn:     keyColumn,
		pool:          pool,
		disk:          disk,
		indexes:       index.New(numColumns, keyColumn),
		events:        events,
		pageDirectory: make(map[int64]Location),
		deleted:       make(map[int64]struct{}),
		nextBaseRID:   1,
		nextTailRID:   TailRIDBase,
	}, nil
}

// Name returns the table name
func (t *Table) Name() string { return t.name }

// NumColumns returns the user column count
func (t *Table) NumColumns() int { return t.numColumns }

// KeyColumn returns the primary-key column index
func (t *Table) KeyColumn() int { return t.keyColumn }

// Indexes returns the table's index set
func (t *Table) Indexes() *index.Indexes { return t.indexes }

func (t *Table) totalColumns() int {
	return MetaColumns + t.numColumns
}

func (t *Table) pageID(loc Location, column int) storage.PageID {
	return storage.PageID{Table: t.name, Column: column, Page: loc.Page, Kind: loc.Kind}
}

// timestamp returns a strictly increasing insertion/update time.
// Must be called with t.mu held for writing.
func (t *Table) timestamp() int64 {
	now := time.Now().UnixNano()
	if now <= t.lastTimestamp {
		now = t.lastTimestamp + 1
	}
	t.lastTimestamp = now
	return now
}

// readField reads one physical column of the record at loc
func (t *Table) readField(loc Location, column int) (int64, error) {
	id := t.pageID(loc, column)
	page, err := t.pool.FetchPage(id)
	if err != nil {
		return 0, err
	}
	defer t.pool.UnpinPage(id, false)
	return page.Read(loc.Slot)
}

// writeField overwrites one physical column of the record at loc
func (t *Table) writeField(loc Location, column int, value int64) error {
	id := t.pageID(loc, column)
	page, err := t.pool.FetchPage(id)
	if err != nil {
		return err
	}
	defer t.pool.UnpinPage(id, true)
	return page.Overwrite(loc.Slot, value)
}

// appendRecord appends a full physical row (meta + user columns) to the
// given record area, allocating fresh column pages when the previous
// ones fill up. Must be called with t.mu held for writing.
func (t *Table) appendRecord(kind storage.PageKind, row []int64) (Location, error) {
	count := t.baseCount
	if kind == storage.PageKindTail {
		count = t.tailCount
	}
	pageNum := count / storage.PageCapacity
	slot := count % storage.PageCapacity

	for column, value := range row {
		id := storage.PageID{Table: t.name, Column: column, Page: pageNum, Kind: kind}
		var page *storage.Page
		var err error
		if slot == 0 {
			page, err = t.pool.NewPage(id)
		} else {
			page, err = t.pool.FetchPage(id)
		}
		if err != nil {
			return Location{}, err
		}
		written, err := page.Write(value)
		t.pool.UnpinPage(id, true)
		if err != nil {
			return Location{}, err
		}
		if written != slot {
			return Location{}, fmt.Errorf("table %s: column %d wrote slot %d, want %d: %w",
				t.name, column, written, slot, storage.ErrCorruptPage)
		}
	}

	if kind == storage.PageKindTail {
		t.tailCount++
	} else {
		t.baseCount++
	}
	return Location{Kind: kind, Page: pageNum, Slot: slot}, nil
}

// Insert appends a base record. The key column value must be unique
// among live records.
func (t *Table) Insert(values []int64) (int64, error) {
	if len(values) != t.numColumns {
		return 0, fmt.Errorf("table %s: got %d values: %w", t.name, len(values), ErrSchemaMismatch)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := values[t.keyColumn]
	if _, exists := t.indexes.LookupKey(key); exists {
		return 0, fmt.Errorf("table %s key %d: %w", t.name, key, ErrDuplicateKey)
	}

	rid := t.nextBaseRID
	ts := t.timestamp()

	row := make([]int64, t.totalColumns())
	row[IndirectionColumn] = rid // never updated: points at itself
	row[RIDColumn] = rid
	row[TimestampColumn] = ts
	row[SchemaColumn] = 0
	copy(row[MetaColumns:], values)

	loc, err := t.appendRecord(storage.PageKindBase, row)
	if err != nil {
		return 0, err
	}

	t.nextBaseRID++
	t.pageDirectory[rid] = loc
	t.indexes.InsertKey(key, rid)
	for _, col := range t.indexes.IndexedColumns() {
		t.indexes.Add(col, values[col], rid)
	}

	t.publish(changestream.OperationTypeInsert, key, rid, 0)
	return rid, nil
}

// Update appends a cumulative tail record carrying the changed columns
// and repoints the base record's indirection at it. Unset Values mean
// "keep"; the key column must be unset. Returns the tail RID, or 0 when
// nothing changed.
func (t *Table) Update(key int64, values []Value) (int64, error) {
	if len(values) != t.numColumns {
		return 0, fmt.Errorf("table %s: got %d values: %w", t.name, len(values), ErrSchemaMismatch)
	}
	if values[t.keyColumn].Valid {
		return 0, fmt.Errorf("table %s key %d: %w", t.name, key, ErrInvalidUpdate)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rid, err := t.resolveKey(key)
	if err != nil {
		return 0, err
	}

	current, err := t.composeLocked(rid, allColumns(t.numColumns), 0)
	if err != nil {
		return 0, err
	}

	var changedMask int64
	for i, v := range values {
		if v.Valid && v.Int64 != current[i] {
			changedMask |= 1 << uint(i)
		}
	}
	if changedMask == 0 {
		return 0, nil
	}

	baseLoc := t.pageDirectory[rid]
	prevHead, err := t.readField(baseLoc, IndirectionColumn)
	if err != nil {
		return 0, err
	}

	tailRID := t.nextTailRID
	ts := t.timestamp()

	row := make([]int64, t.totalColumns())
	row[IndirectionColumn] = prevHead
	row[RIDColumn] = tailRID
	row[TimestampColumn] = ts
	row[SchemaColumn] = changedMask
	for i := 0; i < t.numColumns; i++ {
		if changedMask&(1<<uint(i)) != 0 {
			row[MetaColumns+i] = values[i].Int64
		}
		// unchanged columns keep the zero placeholder; readers go by the
		// schema bitmask, never by slot contents
	}

	loc, err := t.appendRecord(storage.PageKindTail, row)
	if err != nil {
		return 0, err
	}

	t.nextTailRID++
	t.pageDirectory[tailRID] = loc

	if err := t.writeField(baseLoc, IndirectionColumn, tailRID); err != nil {
		return 0, err
	}

	for _, col := range t.indexes.IndexedColumns() {
		if changedMask&(1<<uint(col)) != 0 {
			t.indexes.Update(col, current[col], values[col].Int64, rid)
		}
	}

	t.publish(changestream.OperationTypeUpdate, key, rid, tailRID)
	return tailRID, nil
}

// Delete tombstones the record for key. The tail chain stays on disk;
// readers gate on the deleted set.
func (t *Table) Delete(key int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rid, err := t.resolveKey(key)
	if err != nil {
		return err
	}

	// Secondary index entries track current values; materialize them
	// before the record becomes invisible.
	indexed := t.indexes.IndexedColumns()
	if len(indexed) > 0 {
		current, err := t.composeLocked(rid, indexed, 0)
		if err != nil {
			return err
		}
		for _, col := range indexed {
			t.indexes.Remove(col, current[col], rid)
		}
	}

	t.deleted[rid] = struct{}{}
	t.indexes.RemoveKey(key)

	t.publish(changestream.OperationTypeDelete, key, rid, 0)
	return nil
}

// resolveKey maps a primary-key value to its live base RID.
// Must be called with t.mu held.
func (t *Table) resolveKey(key int64) (int64, error) {
	rid, ok := t.indexes.LookupKey(key)
	if !ok {
		return 0, fmt.Errorf("table %s key %d: %w", t.name, key, ErrNotFound)
	}
	if _, gone := t.deleted[rid]; gone {
		return 0, fmt.Errorf("table %s key %d: %w", t.name, key, ErrNotFound)
	}
	return rid, nil
}

// IsDeleted reports whether a base RID is tombstoned
func (t *Table) IsDeleted(rid int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, gone := t.deleted[rid]
	return gone
}

// LiveRIDs returns the base RIDs visible to reads, in RID order
func (t *Table) LiveRIDs() []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.liveRIDsLocked()
}

func (t *Table) liveRIDsLocked() []int64 {
	rids := make([]int64, 0, len(t.pageDirectory))
	for rid, loc := range t.pageDirectory {
		if loc.Kind != storage.PageKindBase {
			continue
		}
		if _, gone := t.deleted[rid]; gone {
			continue
		}
		rids = append(rids, rid)
	}
	sort.Slice(rids, func(i, j int) bool { return rids[i] < rids[j] })
	return rids
}

// CreateIndex builds a secondary index over the current values of the
// given user column
func (t *Table) CreateIndex(column int) error {
	if column < 0 || column >= t.numColumns {
		return fmt.Errorf("table %s: column %d out of range", t.name, column)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.indexes.CreateIndex(column) {
		return nil
	}
	for _, rid := range t.liveRIDsLocked() {
		row, err := t.composeLocked(rid, []int{column}, 0)
		if err != nil {
			t.indexes.DropIndex(column)
			return err
		}
		t.indexes.Add(column, row[column], rid)
	}
	return nil
}

// DropIndex releases a secondary index
func (t *Table) DropIndex(column int) {
	t.indexes.DropIndex(column)
}

// SetDeleted seeds the deleted set, used when reopening a database whose
// metadata persisted tombstones
func (t *Table) SetDeleted(rids []int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rid := range rids {
		t.deleted[rid] = struct{}{}
		if loc, ok := t.pageDirectory[rid]; ok && loc.Kind == storage.PageKindBase {
			key, err := t.readField(loc, MetaColumns+t.keyColumn)
			if err == nil {
				t.indexes.RemoveKey(key)
			}
		}
	}
}

// DeletedRIDs returns the tombstoned base RIDs, in RID order
func (t *Table) DeletedRIDs() []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rids := make([]int64, 0, len(t.deleted))
	for rid := range t.deleted {
		rids = append(rids, rid)
	}
	sort.Slice(rids, func(i, j int) bool { return rids[i] < rids[j] })
	return rids
}

// Stats describes the table's physical state
type Stats struct {
	Name        string `json:"name"`
	NumColumns  int    `json:"numColumns"`
	KeyColumn   int    `json:"keyColumn"`
	BaseRecords int    `json:"baseRecords"`
	TailRecords int    `json:"tailRecords"`
	Deleted     int    `json:"deleted"`
	Indexed     []int  `json:"indexedColumns"`
}

// Stats returns a snapshot of table counters
func (t *Table) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Stats{
		Name:        t.name,
		NumColumns:  t.numColumns,
		KeyColumn:   t.keyColumn,
		BaseRecords: t.baseCount,
		TailRecords: t.tailCount,
		Deleted:     len(t.deleted),
		Indexed:     t.indexes.IndexedColumns(),
	}
}

func (t *Table) publish(op changestream.OperationType, key, baseRID, tailRID int64) {
	if t.events == nil {
		return
	}
	t.events.Publish(changestream.ChangeEvent{
		OperationType: op,
		Table:         t.name,
		Key:           key,
		BaseRID:       baseRID,
		TailRID:       tailRID,
		Timestamp:     time.Now(),
	})
}

// allColumns returns the projection covering every user column
func allColumns(n int) []int {
	cols := make([]int, n)
	for i := range cols {
		cols[i] = i
	}
	return cols
}
