package table

import (
	"time"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/changestream"
)

// Merge compacts the base area: for every live record with updates it
// writes the newest user-column values into the base slots, then resets
// the base indirection to the record's own RID and its schema word to
// zero. Merge collapses history; versioned reads after a merge see the
// merged values at every version. Tail pages stay on disk but become
// unreachable from the merged records.
//
// Merge runs synchronously on the caller; there is no background
// scheduler. Returns the number of records compacted.
func (t *Table) Merge() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	projection := allColumns(t.numColumns)
	merged := 0

	for _, rid := range t.liveRIDsLocked() {
		baseLoc := t.pageDirectory[rid]
		head, err := t.readField(baseLoc, IndirectionColumn)
		if err != nil {
			return merged, err
		}
		if head == rid {
			continue // never updated, nothing to collapse
		}

		row, err := t.composeLocked(rid, projection, 0)
		if err != nil {
			return merged, err
		}

		for col := 0; col < t.numColumns; col++ {
			if err := t.writeField(baseLoc, MetaColumns+col, row[col]); err != nil {
				return merged, err
			}
		}
		if err := t.writeField(baseLoc, IndirectionColumn, rid); err != nil {
			return merged, err
		}
		if err := t.writeField(baseLoc, SchemaColumn, 0); err != nil {
			return merged, err
		}
		merged++
	}

	if merged > 0 && t.events != nil {
		t.events.Publish(changestream.ChangeEvent{
			OperationType: changestream.OperationTypeMerge,
			Table:         t.name,
			Timestamp:     time.Now(),
		})
	}
	return merged, nil
}
