package table

import (
	"errors"
	"log"
	"sort"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/storage"
)

// Recover rebuilds the table's in-memory state from its on-disk pages:
// the page directory, the base/tail RID counters and the primary-key
// index. Pages whose columns disagree on slot count (a crash between
// column flushes) are truncated to the common consistent prefix; a
// corrupt column file truncates its whole page group.
func (t *Table) Recover() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var maxBaseRID, maxTailRID int64

	for _, kind := range []storage.PageKind{storage.PageKindBase, storage.PageKindTail} {
		count, err := t.recoverArea(kind, &maxBaseRID, &maxTailRID)
		if err != nil {
			return err
		}
		if kind == storage.PageKindTail {
			t.tailCount = count
		} else {
			t.baseCount = count
		}
	}

	t.nextBaseRID = 1
	if maxBaseRID > 0 {
		t.nextBaseRID = maxBaseRID + 1
	}
	t.nextTailRID = TailRIDBase
	if maxTailRID > 0 {
		t.nextTailRID = maxTailRID + 1
	}

	return t.rebuildPrimaryIndex()
}

// recoverArea scans one record area (base or tail) page group by page
// group and registers every consistent slot in the page directory.
// Returns the number of recovered slots.
func (t *Table) recoverArea(kind storage.PageKind, maxBaseRID, maxTailRID *int64) (int, error) {
	groups, err := t.disk.ListPages(t.name, kind)
	if err != nil {
		return 0, err
	}

	pageNums := make([]int, 0, len(groups))
	for pageNum := range groups {
		pageNums = append(pageNums, pageNum)
	}
	sort.Ints(pageNums)

	count := 0
	for idx, pageNum := range pageNums {
		if pageNum != idx {
			log.Printf("table %s: %s page %d is not contiguous, ignoring remainder", t.name, kind, pageNum)
			break
		}

		minSlots, err := t.consistentSlotCount(kind, pageNum, groups[pageNum])
		if err != nil {
			return 0, err
		}

		if minSlots > 0 {
			ridPageID := storage.PageID{Table: t.name, Column: RIDColumn, Page: pageNum, Kind: kind}
			ridPage, err := t.pool.FetchPage(ridPageID)
			if err != nil {
				return 0, err
			}
			for slot := 0; slot < minSlots; slot++ {
				rid, err := ridPage.Read(slot)
				if err != nil {
					t.pool.UnpinPage(ridPageID, false)
					return 0, err
				}
				t.pageDirectory[rid] = Location{Kind: kind, Page: pageNum, Slot: slot}
				if rid >= TailRIDBase {
					if rid > *maxTailRID {
						*maxTailRID = rid
					}
				} else if rid > *maxBaseRID {
					*maxBaseRID = rid
				}
			}
			t.pool.UnpinPage(ridPageID, false)
		}

		count += minSlots
		// A partial page must be the last one; anything after it is an
		// orphan from a truncated crash state.
		if minSlots < storage.PageCapacity {
			if idx != len(pageNums)-1 {
				log.Printf("table %s: %s page %d recovered short (%d slots), ignoring later pages", t.name, kind, pageNum, minSlots)
			}
			break
		}
	}
	return count, nil
}

// consistentSlotCount loads every column page of one page group, takes
// the minimum slot count across them and truncates the longer ones so
// future appends line up again. A missing or corrupt column page
// truncates the group to zero.
func (t *Table) consistentSlotCount(kind storage.PageKind, pageNum int, columns map[int]bool) (int, error) {
	minSlots := storage.PageCapacity
	for column := 0; column < t.totalColumns(); column++ {
		if !columns[column] {
			log.Printf("table %s: %s page %d missing column %d, truncating page group", t.name, kind, pageNum, column)
			return 0, nil
		}
		id := storage.PageID{Table: t.name, Column: column, Page: pageNum, Kind: kind}
		page, err := t.pool.FetchPage(id)
		if err != nil {
			if errors.Is(err, storage.ErrCorruptPage) || errors.Is(err, storage.ErrPageNotFound) {
				log.Printf("table %s: %s: truncating page group %d: %v", t.name, kind, pageNum, err)
				return 0, nil
			}
			return 0, err
		}
		if page.SlotCount < minSlots {
			minSlots = page.SlotCount
		}
		t.pool.UnpinPage(id, false)
	}

	// Trim skewed columns to the agreed prefix.
	for column := 0; column < t.totalColumns(); column++ {
		id := storage.PageID{Table: t.name, Column: column, Page: pageNum, Kind: kind}
		page, err := t.pool.FetchPage(id)
		if err != nil {
			return 0, err
		}
		dirty := false
		if page.SlotCount != minSlots {
			log.Printf("table %s: %s page %d column %d truncated %d -> %d slots", t.name, kind, pageNum, column, page.SlotCount, minSlots)
			page.SlotCount = minSlots
			dirty = true
		}
		t.pool.UnpinPage(id, dirty)
	}
	return minSlots, nil
}

// rebuildPrimaryIndex scans recovered base records and reindexes their
// key column. The deleted set is seeded separately from catalog
// metadata, after which SetDeleted unindexes tombstoned keys.
func (t *Table) rebuildPrimaryIndex() error {
	t.indexes.Clear()
	for rid, loc := range t.pageDirectory {
		if loc.Kind != storage.PageKindBase {
			continue
		}
		if _, gone := t.deleted[rid]; gone {
			continue
		}
		key, err := t.readField(loc, MetaColumns+t.keyColumn)
		if err != nil {
			return err
		}
		t.indexes.InsertKey(key, rid)
	}
	return nil
}
