package index

import (
	"sort"
	"sync"
)

// Indexes maintains the per-column value indexes of one table.
//
// The primary-key index is always present and unique: it maps the key
// column's value to a single base RID. Secondary indexes are optional
// multi-valued hash indexes, created and dropped on demand. An ordered
// structure can replace a secondary index as long as it honors the same
// Locate/LocateRange contract.
type Indexes struct {
	numColumns int
	keyColumn  int
	pk         map[int64]int64
	secondary  map[int]map[int64]map[int64]struct{}
	mu         sync.RWMutex
}

// New creates the index set for a table with numColumns user columns,
// keyed on keyColumn
func New(numColumns, keyColumn int) *Indexes {
	return &Indexes{
		numColumns: numColumns,
		keyColumn:  keyColumn,
		pk:         make(map[int64]int64),
		secondary:  make(map[int]map[int64]map[int64]struct{}),
	}
}

// KeyColumn returns the primary-key column index
func (ix *Indexes) KeyColumn() int {
	return ix.keyColumn
}

// LookupKey resolves a primary-key value to its base RID
func (ix *Indexes) LookupKey(key int64) (int64, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rid, ok := ix.pk[key]
	return rid, ok
}

// InsertKey records a primary-key entry. Returns false if the key is
// already present (uniqueness violation), leaving the index unchanged.
func (ix *Indexes) InsertKey(key, rid int64) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, exists := ix.pk[key]; exists {
		return false
	}
	ix.pk[key] = rid
	return true
}

// RemoveKey deletes a primary-key entry
func (ix *Indexes) RemoveKey(key int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.pk, key)
}

// HasIndex reports whether a column is indexed. The key column always is.
func (ix *Indexes) HasIndex(column int) bool {
	if column == ix.keyColumn {
		return true
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.secondary[column]
	return ok
}

// CreateIndex registers an empty secondary index on a column. The caller
// populates it by scanning live base records and calling Add. Creating
// an index that already exists (or on the key column) is a no-op and
// returns false.
func (ix *Indexes) CreateIndex(column int) bool {
	if column == ix.keyColumn || column < 0 || column >= ix.numColumns {
		return false
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, exists := ix.secondary[column]; exists {
		return false
	}
	ix.secondary[column] = make(map[int64]map[int64]struct{})
	return true
}

// DropIndex releases a secondary index. The key column cannot be dropped.
func (ix *Indexes) DropIndex(column int) bool {
	if column == ix.keyColumn {
		return false
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, exists := ix.secondary[column]; !exists {
		return false
	}
	delete(ix.secondary, column)
	return true
}

// Add records value → rid in the column's secondary index, if any
func (ix *Indexes) Add(column int, value, rid int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	idx, ok := ix.secondary[column]
	if !ok {
		return
	}
	rids, ok := idx[value]
	if !ok {
		rids = make(map[int64]struct{})
		idx[value] = rids
	}
	rids[rid] = struct{}{}
}

// Remove deletes value → rid from the column's secondary index, if any
func (ix *Indexes) Remove(column int, value, rid int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	idx, ok := ix.secondary[column]
	if !ok {
		return
	}
	rids, ok := idx[value]
	if !ok {
		return
	}
	delete(rids, rid)
	if len(rids) == 0 {
		delete(idx, value)
	}
}

// Update moves a rid from oldValue to newValue in the column's secondary
// index. Maintained on every update that changes an indexed column.
func (ix *Indexes) Update(column int, oldValue, newValue, rid int64) {
	if oldValue == newValue {
		return
	}
	ix.Remove(column, oldValue, rid)
	ix.Add(column, newValue, rid)
}

// Locate returns the base RIDs whose current value in column equals
// value. ok is false when the column has no index; the caller must fall
// back to a scan.
func (ix *Indexes) Locate(column int, value int64) ([]int64, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if column == ix.keyColumn {
		if rid, ok := ix.pk[value]; ok {
			return []int64{rid}, true
		}
		return nil, true
	}

	idx, ok := ix.secondary[column]
	if !ok {
		return nil, false
	}
	return sortedRIDs(idx[value]), true
}

// LocateRange returns the base RIDs whose current value in column falls
// in [lo, hi], inclusive. ok is false when the column has no index.
func (ix *Indexes) LocateRange(column int, lo, hi int64) ([]int64, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if column == ix.keyColumn {
		var rids []int64
		for key, rid := range ix.pk {
			if key >= lo && key <= hi {
				rids = append(rids, rid)
			}
		}
		sort.Slice(rids, func(i, j int) bool { return rids[i] < rids[j] })
		return rids, true
	}

	idx, ok := ix.secondary[column]
	if !ok {
		return nil, false
	}
	merged := make(map[int64]struct{})
	for value, rids := range idx {
		if value >= lo && value <= hi {
			for rid := range rids {
				merged[rid] = struct{}{}
			}
		}
	}
	return sortedRIDs(merged), true
}

// IndexedColumns returns the columns carrying a secondary index
func (ix *Indexes) IndexedColumns() []int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	cols := make([]int, 0, len(ix.secondary))
	for col := range ix.secondary {
		cols = append(cols, col)
	}
	sort.Ints(cols)
	return cols
}

// Clear drops every entry while keeping created indexes registered.
// Used before an index rebuild during recovery.
func (ix *Indexes) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.pk = make(map[int64]int64)
	for col := range ix.secondary {
		ix.secondary[col] = make(map[int64]map[int64]struct{})
	}
}

func sortedRIDs(set map[int64]struct{}) []int64 {
	if len(set) == 0 {
		return nil
	}
	rids := make([]int64, 0, len(set))
	for rid := range set {
		rids = append(rids, rid)
	}
	sort.Slice(rids, func(i, j int) bool { return rids[i] < rids[j] })
	return rids
}
