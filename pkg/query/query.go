package query

import (
	"fmt"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/table"
)

// Query is the operation façade over one table, mirroring the classic
// insert/select/update/delete/sum surface. Version arguments follow the
// relative convention: 0 is the newest state, -1 one update back, -k
// k back; versions older than the whole history clamp to the originally
// inserted row.
type Query struct {
	t *table.Table
}

// New creates a query façade for a table
func New(t *table.Table) *Query {
	return &Query{t: t}
}

// Table returns the underlying table
func (q *Query) Table() *table.Table {
	return q.t
}

// Insert adds a record. The key column value must be unique.
func (q *Query) Insert(values ...int64) error {
	_, err := q.t.Insert(values)
	return err
}

// Select returns the current records whose searchColumn value equals
// searchKey, with the projected columns materialized. Under the primary
// key the result holds zero or one record.
func (q *Query) Select(searchKey int64, searchColumn int, projected []int) ([]table.Record, error) {
	return q.SelectVersion(searchKey, searchColumn, projected, 0)
}

// SelectVersion is Select at an older version
func (q *Query) SelectVersion(searchKey int64, searchColumn int, projected []int, relativeVersion int) ([]table.Record, error) {
	if searchColumn < 0 || searchColumn >= q.t.NumColumns() {
		return nil, fmt.Errorf("search column %d out of range", searchColumn)
	}

	rids, err := q.matchingRIDs(searchKey, searchColumn)
	if err != nil {
		return nil, err
	}

	version := normalizeVersion(relativeVersion)
	records := make([]table.Record, 0, len(rids))
	for _, rid := range rids {
		rec, err := q.t.ComposeRecord(rid, projected, version)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// matchingRIDs resolves the base RIDs whose current value in
// searchColumn equals searchKey, via index when one exists and by
// scanning live records otherwise.
func (q *Query) matchingRIDs(searchKey int64, searchColumn int) ([]int64, error) {
	if rids, indexed := q.t.Indexes().Locate(searchColumn, searchKey); indexed {
		return rids, nil
	}

	var matched []int64
	for _, rid := range q.t.LiveRIDs() {
		row, err := q.t.Compose(rid, []int{searchColumn}, 0)
		if err != nil {
			return nil, err
		}
		if row[searchColumn] == searchKey {
			matched = append(matched, rid)
		}
	}
	return matched, nil
}

// Update applies a cumulative update to the record with the given key.
// Unset Values keep the current column value; the key column must stay
// unset.
func (q *Query) Update(key int64, values ...table.Value) error {
	_, err := q.t.Update(key, values)
	return err
}

// Delete tombstones the record with the given key
func (q *Query) Delete(key int64) error {
	return q.t.Delete(key)
}

// Sum aggregates a column over the inclusive primary-key range
// [startKey, endKey]. Returns ErrNotFound when no live record falls in
// the range.
func (q *Query) Sum(startKey, endKey int64, column int) (int64, error) {
	return q.SumVersion(startKey, endKey, column, 0)
}

// SumVersion is Sum at an older version
func (q *Query) SumVersion(startKey, endKey int64, column int, relativeVersion int) (int64, error) {
	if column < 0 || column >= q.t.NumColumns() {
		return 0, fmt.Errorf("aggregate column %d out of range", column)
	}

	rids, _ := q.t.Indexes().LocateRange(q.t.KeyColumn(), startKey, endKey)
	if len(rids) == 0 {
		return 0, fmt.Errorf("no records with key in [%d, %d]: %w", startKey, endKey, table.ErrNotFound)
	}

	version := normalizeVersion(relativeVersion)
	var sum int64
	for _, rid := range rids {
		row, err := q.t.Compose(rid, []int{column}, version)
		if err != nil {
			return 0, err
		}
		sum += row[column]
	}
	return sum, nil
}

// Increment adds one to a column of the record with the given key
func (q *Query) Increment(key int64, column int) error {
	if column < 0 || column >= q.t.NumColumns() {
		return fmt.Errorf("column %d out of range", column)
	}
	if column == q.t.KeyColumn() {
		return table.ErrInvalidUpdate
	}

	records, err := q.Select(key, q.t.KeyColumn(), []int{column})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return table.ErrNotFound
	}

	values := make([]table.Value, q.t.NumColumns())
	values[column] = table.Int(records[0].Columns[column] + 1)
	return q.Update(key, values...)
}

// normalizeVersion maps the relative convention (0, -1, -2, ...) to a
// non-negative version index for the composer
func normalizeVersion(relative int) int {
	if relative >= 0 {
		return 0
	}
	return -relative
}
