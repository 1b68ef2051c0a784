package table

import (
	"fmt"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/storage"
)

// Compose materializes the requested version of a base record.
//
// versionIndex counts back from the newest state: 0 is the current row,
// 1 is one update back, and indexes beyond the oldest tail clamp to the
// originally inserted base row. The caller normalizes relative versions
// (0, -1, -2, ...) to non-negative indexes before calling.
//
// The returned slice is full table width; only the projected columns are
// materialized, the rest stay zero.
func (t *Table) Compose(baseRID int64, projected []int, versionIndex int) ([]int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.composeLocked(baseRID, projected, versionIndex)
}

// composeLocked is Compose without locking; t.mu must be held
func (t *Table) composeLocked(baseRID int64, projected []int, versionIndex int) ([]int64, error) {
	baseLoc, ok := t.pageDirectory[baseRID]
	if !ok || baseLoc.Kind != storage.PageKindBase {
		return nil, fmt.Errorf("table %s rid %d: %w", t.name, baseRID, ErrNotFound)
	}
	if versionIndex < 0 {
		versionIndex = 0
	}

	out := make([]int64, t.numColumns)
	need := make([]bool, t.numColumns)
	remaining := 0
	for _, col := range projected {
		if col < 0 || col >= t.numColumns {
			return nil, fmt.Errorf("table %s: projected column %d out of range", t.name, col)
		}
		if !need[col] {
			need[col] = true
			remaining++
		}
	}

	head, err := t.readField(baseLoc, IndirectionColumn)
	if err != nil {
		return nil, err
	}

	// Never updated: the base indirection points at itself.
	if head != baseRID {
		chain, err := t.tailChain(baseRID, head)
		if err != nil {
			return nil, err
		}

		// Re-skip the most recent tails to rewind, clamping to the base
		// when asked for a version older than the whole history.
		skip := versionIndex
		if skip > len(chain) {
			skip = len(chain)
		}

		for _, tailRID := range chain[skip:] {
			if remaining == 0 {
				break
			}
			tailLoc := t.pageDirectory[tailRID]
			schema, err := t.readField(tailLoc, SchemaColumn)
			if err != nil {
				return nil, err
			}
			for col := 0; col < t.numColumns; col++ {
				if !need[col] || schema&(1<<uint(col)) == 0 {
					continue
				}
				value, err := t.readField(tailLoc, MetaColumns+col)
				if err != nil {
					return nil, err
				}
				out[col] = value
				need[col] = false
				remaining--
			}
		}
	}

	// Anything no tail in range supplied comes from the base record.
	for col := 0; col < t.numColumns && remaining > 0; col++ {
		if !need[col] {
			continue
		}
		value, err := t.readField(baseLoc, MetaColumns+col)
		if err != nil {
			return nil, err
		}
		out[col] = value
		need[col] = false
		remaining--
	}

	return out, nil
}

// tailChain walks the indirection pointers newest→older starting at the
// base's head, stopping at the base itself. The chain length is bounded
// by the tail record count as defense against a cyclic pointer.
func (t *Table) tailChain(baseRID, head int64) ([]int64, error) {
	maxLen := t.tailCount + 1
	chain := make([]int64, 0, 8)
	for cur := head; cur != baseRID; {
		if len(chain) >= maxLen {
			return nil, fmt.Errorf("table %s rid %d: %w", t.name, baseRID, ErrBrokenChain)
		}
		loc, ok := t.pageDirectory[cur]
		if !ok {
			return nil, fmt.Errorf("table %s rid %d points at unknown rid %d: %w", t.name, baseRID, cur, ErrBrokenChain)
		}
		chain = append(chain, cur)
		next, err := t.readField(loc, IndirectionColumn)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return chain, nil
}

// ComposeRecord materializes a version of a base record as a Record
func (t *Table) ComposeRecord(baseRID int64, projected []int, versionIndex int) (Record, error) {
	columns, err := t.Compose(baseRID, projected, versionIndex)
	if err != nil {
		return Record{}, err
	}
	t.mu.RLock()
	baseLoc := t.pageDirectory[baseRID]
	t.mu.RUnlock()
	key, err := t.readField(baseLoc, MetaColumns+t.keyColumn)
	if err != nil {
		return Record{}, err
	}
	return Record{RID: baseRID, Key: key, Columns: columns}, nil
}
