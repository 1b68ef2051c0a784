package table

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/compression"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/storage"
)

func newTestTable(t *testing.T, numColumns, keyColumn int) *Table {
	t.Helper()
	comp, err := compression.NewCompressor(nil)
	if err != nil {
		t.Fatalf("failed to create compressor: %v", err)
	}
	dm, err := storage.NewDiskManager(t.TempDir(), comp)
	if err != nil {
		t.Fatalf("failed to create disk manager: %v", err)
	}
	pool := storage.NewBufferPool(64, dm)

	tbl, err := New("grades", numColumns, keyColumn, pool, dm, nil)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return tbl
}

func mustCompose(t *testing.T, tbl *Table, rid int64, version int) []int64 {
	t.Helper()
	row, err := tbl.Compose(rid, allColumns(tbl.NumColumns()), version)
	if err != nil {
		t.Fatalf("Compose(rid=%d, version=%d) failed: %v", rid, version, err)
	}
	return row
}

func TestInsertAndComposeBase(t *testing.T) {
	tbl := newTestTable(t, 3, 0)

	rid, err := tbl.Insert([]int64{1, 10, 100})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	row := mustCompose(t, tbl, rid, 0)
	if diff := cmp.Diff([]int64{1, 10, 100}, row); diff != "" {
		t.Errorf("composed row mismatch (-want +got):\n%s", diff)
	}
}

func TestCumulativeUpdateAndTimeTravel(t *testing.T) {
	tbl := newTestTable(t, 3, 0)

	rid, err := tbl.Insert([]int64{1, 10, 100})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := tbl.Update(1, []Value{{}, Int(20), {}}); err != nil {
		t.Fatalf("first Update failed: %v", err)
	}
	if _, err := tbl.Update(1, []Value{{}, {}, Int(300)}); err != nil {
		t.Fatalf("second Update failed: %v", err)
	}

	tests := []struct {
		version int
		want    []int64
	}{
		{0, []int64{1, 20, 300}},
		{1, []int64{1, 20, 100}},
		{2, []int64{1, 10, 100}},
		{5, []int64{1, 10, 100}}, // beyond history clamps to base
	}
	for _, tt := range tests {
		row := mustCompose(t, tbl, rid, tt.version)
		if diff := cmp.Diff(tt.want, row); diff != "" {
			t.Errorf("version %d mismatch (-want +got):\n%s", tt.version, diff)
		}
	}
}

// Unchanged columns in a tail carry a zero placeholder; composition must
// take them from older versions, never from the placeholder slot.
func TestPlaceholderSlotsNotRead(t *testing.T) {
	tbl := newTestTable(t, 3, 0)

	if _, err := tbl.Insert([]int64{1, 10, 100}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	tailRID, err := tbl.Update(1, []Value{{}, Int(20), {}})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// The tail physically stores 0 for column 2.
	loc := tbl.pageDirectory[tailRID]
	stored, err := tbl.readField(loc, MetaColumns+2)
	if err != nil {
		t.Fatalf("readField failed: %v", err)
	}
	if stored != 0 {
		t.Fatalf("tail placeholder slot = %d, want 0", stored)
	}

	rid, _ := tbl.Indexes().LookupKey(1)
	row := mustCompose(t, tbl, rid, 0)
	if row[2] != 100 {
		t.Errorf("column 2 = %d, want 100 from base", row[2])
	}
}

func TestDuplicateKeyRejected(t *testing.T) {
	tbl := newTestTable(t, 3, 0)

	if _, err := tbl.Insert([]int64{1, 10, 100}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := tbl.Insert([]int64{1, 99, 999}); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("duplicate insert: got %v, want ErrDuplicateKey", err)
	}

	// No state change is observable.
	rid, _ := tbl.Indexes().LookupKey(1)
	row := mustCompose(t, tbl, rid, 0)
	if diff := cmp.Diff([]int64{1, 10, 100}, row); diff != "" {
		t.Errorf("row changed after rejected insert (-want +got):\n%s", diff)
	}
	if tbl.Stats().BaseRecords != 1 {
		t.Errorf("base records = %d, want 1", tbl.Stats().BaseRecords)
	}
}

func TestUpdateKeyColumnRejected(t *testing.T) {
	tbl := newTestTable(t, 3, 0)
	tbl.Insert([]int64{1, 10, 100})

	if _, err := tbl.Update(1, []Value{Int(2), {}, {}}); !errors.Is(err, ErrInvalidUpdate) {
		t.Errorf("key column update: got %v, want ErrInvalidUpdate", err)
	}
}

func TestUpdateNoChangeIsNoop(t *testing.T) {
	tbl := newTestTable(t, 3, 0)
	tbl.Insert([]int64{1, 10, 100})

	tailRID, err := tbl.Update(1, []Value{{}, Int(10), {}})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if tailRID != 0 {
		t.Errorf("no-change update allocated tail %d", tailRID)
	}
	if tbl.Stats().TailRecords != 0 {
		t.Errorf("tail records = %d, want 0", tbl.Stats().TailRecords)
	}
}

func TestUpdateMissingKey(t *testing.T) {
	tbl := newTestTable(t, 3, 0)
	if _, err := tbl.Update(42, []Value{{}, Int(1), {}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update of absent key: got %v, want ErrNotFound", err)
	}
}

func TestDeleteAndReinsert(t *testing.T) {
	tbl := newTestTable(t, 3, 0)

	firstRID, err := tbl.Insert([]int64{1, 10, 100})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	tbl.Update(1, []Value{{}, Int(20), {}})

	if err := tbl.Delete(1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := tbl.Delete(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: got %v, want ErrNotFound", err)
	}
	if _, err := tbl.Update(1, []Value{{}, Int(30), {}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update of deleted key: got %v, want ErrNotFound", err)
	}
	if live := tbl.LiveRIDs(); len(live) != 0 {
		t.Errorf("LiveRIDs after delete = %v, want empty", live)
	}

	// Reinsert of the same key is accepted and draws a fresh RID.
	secondRID, err := tbl.Insert([]int64{1, 11, 111})
	if err != nil {
		t.Fatalf("reinsert failed: %v", err)
	}
	if secondRID <= firstRID {
		t.Errorf("reinserted RID %d not greater than tombstoned RID %d", secondRID, firstRID)
	}
	row := mustCompose(t, tbl, secondRID, 0)
	if diff := cmp.Diff([]int64{1, 11, 111}, row); diff != "" {
		t.Errorf("reinserted row mismatch (-want +got):\n%s", diff)
	}
}

func TestRIDCountersStrictlyIncrease(t *testing.T) {
	tbl := newTestTable(t, 2, 0)

	var lastBase, lastTail int64
	for key := int64(1); key <= 5; key++ {
		rid, err := tbl.Insert([]int64{key, key * 10})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if rid <= lastBase {
			t.Fatalf("base RID %d not greater than previous %d", rid, lastBase)
		}
		lastBase = rid

		tailRID, err := tbl.Update(key, []Value{{}, Int(key * 100)})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if tailRID <= lastTail {
			t.Fatalf("tail RID %d not greater than previous %d", tailRID, lastTail)
		}
		if tailRID < TailRIDBase {
			t.Fatalf("tail RID %d below tail space", tailRID)
		}
		lastTail = tailRID
	}
}

func TestTimestampsMonotonic(t *testing.T) {
	tbl := newTestTable(t, 2, 0)

	var last int64
	for key := int64(1); key <= 20; key++ {
		rid, err := tbl.Insert([]int64{key, 0})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		ts, err := tbl.readField(tbl.pageDirectory[rid], TimestampColumn)
		if err != nil {
			t.Fatalf("readField failed: %v", err)
		}
		if ts <= last {
			t.Fatalf("timestamp %d not after %d", ts, last)
		}
		last = ts
	}
}

func TestInsertAcrossPageBoundary(t *testing.T) {
	tbl := newTestTable(t, 2, 0)

	n := storage.PageCapacity + 10
	for key := 0; key < n; key++ {
		if _, err := tbl.Insert([]int64{int64(key), int64(key * 2)}); err != nil {
			t.Fatalf("Insert %d failed: %v", key, err)
		}
	}

	for _, key := range []int64{0, int64(storage.PageCapacity) - 1, int64(storage.PageCapacity), int64(n) - 1} {
		rid, ok := tbl.Indexes().LookupKey(key)
		if !ok {
			t.Fatalf("key %d missing from index", key)
		}
		row := mustCompose(t, tbl, rid, 0)
		if row[1] != key*2 {
			t.Errorf("key %d column 1 = %d, want %d", key, row[1], key*2)
		}
	}
	if got := tbl.Stats().BaseRecords; got != n {
		t.Errorf("base records = %d, want %d", got, n)
	}
}

func TestSecondaryIndexFollowsUpdates(t *testing.T) {
	tbl := newTestTable(t, 3, 0)

	tbl.Insert([]int64{1, 10, 100})
	tbl.Insert([]int64{2, 10, 200})
	if err := tbl.CreateIndex(1); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	rids, ok := tbl.Indexes().Locate(1, 10)
	if !ok || len(rids) != 2 {
		t.Fatalf("Locate(1, 10) = %v, want two rids", rids)
	}

	if _, err := tbl.Update(1, []Value{{}, Int(11), {}}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	rids, _ = tbl.Indexes().Locate(1, 10)
	if len(rids) != 1 {
		t.Errorf("Locate(1, 10) after update = %v, want one rid", rids)
	}
	rids, _ = tbl.Indexes().Locate(1, 11)
	if len(rids) != 1 {
		t.Errorf("Locate(1, 11) after update = %v, want one rid", rids)
	}

	if err := tbl.Delete(2); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	rids, _ = tbl.Indexes().Locate(1, 10)
	if len(rids) != 0 {
		t.Errorf("Locate(1, 10) after delete = %v, want empty", rids)
	}
}

func TestComposeProjection(t *testing.T) {
	tbl := newTestTable(t, 4, 0)
	rid, err := tbl.Insert([]int64{1, 10, 100, 1000})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	row, err := tbl.Compose(rid, []int{1, 3}, 0)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if diff := cmp.Diff([]int64{0, 10, 0, 1000}, row); diff != "" {
		t.Errorf("projected compose mismatch (-want +got):\n%s", diff)
	}

	if _, err := tbl.Compose(rid, []int{4}, 0); err == nil {
		t.Error("out-of-range projection should fail")
	}
}
