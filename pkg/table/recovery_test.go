package table

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/compression"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/storage"
)

func newTableAt(t *testing.T, dir string, numColumns, keyColumn int) *Table {
	t.Helper()
	comp, err := compression.NewCompressor(nil)
	if err != nil {
		t.Fatalf("failed to create compressor: %v", err)
	}
	dm, err := storage.NewDiskManager(dir, comp)
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

func TestRecoverRebuildsState(t *testing.T) {
	dir := t.TempDir()
	tbl := newTableAt(t, dir, 3, 0)

	for key := int64(1); key <= 50; key++ {
		if _, err := tbl.Insert([]int64{key, key * 10, key * 100}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	for key := int64(1); key <= 25; key++ {
		if _, err := tbl.Update(key, []Value{{}, Int(key * 11), {}}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if _, err := tbl.Update(key, []Value{{}, {}, Int(key * 111)}); err != nil {
			t.Fatalf("second Update failed: %v", err)
		}
	}
	if err := tbl.pool.FlushAll(); err != nil {
		t.Fatalf("FlushAll failed: %v", err)
	}

	restored := newTableAt(t, dir, 3, 0)
	if err := restored.Recover(); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	stats := restored.Stats()
	if stats.BaseRecords != 50 || stats.TailRecords != 50 {
		t.Fatalf("recovered %d base / %d tail records, want 50 / 50", stats.BaseRecords, stats.TailRecords)
	}

	// Every version composes identically before and after recovery.
	for key := int64(1); key <= 50; key++ {
		rid, ok := restored.Indexes().LookupKey(key)
		if !ok {
			t.Fatalf("key %d missing after recovery", key)
		}
		for version := 0; version <= 3; version++ {
			want := mustCompose(t, tbl, rid, version)
			got := mustCompose(t, restored, rid, version)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("key %d version %d mismatch (-pre +post):\n%s", key, version, diff)
			}
		}
	}

	// New RIDs continue past the recovered ones.
	newRID, err := restored.Insert([]int64{1000, 0, 0})
	if err != nil {
		t.Fatalf("Insert after recovery failed: %v", err)
	}
	if newRID != 51 {
		t.Errorf("post-recovery base RID = %d, want 51", newRID)
	}
	tailRID, err := restored.Update(1000, []Value{{}, Int(5), {}})
	if err != nil {
		t.Fatalf("Update after recovery failed: %v", err)
	}
	if tailRID != TailRIDBase+50 {
		t.Errorf("post-recovery tail RID = %d, want %d", tailRID, TailRIDBase+50)
	}
}

// A crash between column flushes leaves the columns of one page group
// with different slot counts; recovery truncates to the common prefix.
func TestRecoverTruncatesSlotSkew(t *testing.T) {
	dir := t.TempDir()
	tbl := newTableAt(t, dir, 3, 0)

	for key := int64(1); key <= 5; key++ {
		if _, err := tbl.Insert([]int64{key, key * 10, key * 100}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if err := tbl.pool.FlushAll(); err != nil {
		t.Fatalf("FlushAll failed: %v", err)
	}

	// Simulate a torn flush: the last user column only made it to 3 slots.
	id := storage.PageID{Table: "grades", Column: MetaColumns + 2, Page: 0, Kind: storage.PageKindBase}
	page, err := tbl.disk.ReadPage(id)
	if err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}
	page.SlotCount = 3
	if err := tbl.disk.WritePage(page); err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}

	restored := newTableAt(t, dir, 3, 0)
	if err := restored.Recover(); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	if got := restored.Stats().BaseRecords; got != 3 {
		t.Fatalf("recovered %d base records, want 3", got)
	}
	for key := int64(1); key <= 3; key++ {
		if _, ok := restored.Indexes().LookupKey(key); !ok {
			t.Errorf("key %d lost by truncation", key)
		}
	}
	for key := int64(4); key <= 5; key++ {
		if _, ok := restored.Indexes().LookupKey(key); ok {
			t.Errorf("key %d should have been truncated", key)
		}
	}

	// Appends continue at the truncated position without skew.
	rid, err := restored.Insert([]int64{42, 1, 2})
	if err != nil {
		t.Fatalf("Insert after truncation failed: %v", err)
	}
	row := mustCompose(t, restored, rid, 0)
	if diff := cmp.Diff([]int64{42, 1, 2}, row); diff != "" {
		t.Errorf("row after truncation mismatch (-want +got):\n%s", diff)
	}
}

// A corrupt column file truncates its whole page group but must not
// prevent the table from opening.
func TestRecoverSurvivesCorruptPage(t *testing.T) {
	dir := t.TempDir()
	tbl := newTableAt(t, dir, 2, 0)

	for key := int64(1); key <= 4; key++ {
		if _, err := tbl.Insert([]int64{key, key}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if err := tbl.pool.FlushAll(); err != nil {
		t.Fatalf("FlushAll failed: %v", err)
	}

	// Scribble over one column file.
	id := storage.PageID{Table: "grades", Column: 0, Page: 0, Kind: storage.PageKindBase}
	if err := corruptFile(tbl.disk.PagePath(id)); err != nil {
		t.Fatalf("failed to corrupt page file: %v", err)
	}

	restored := newTableAt(t, dir, 2, 0)
	if err := restored.Recover(); err != nil {
		t.Fatalf("Recover with corrupt page failed: %v", err)
	}
	if got := restored.Stats().BaseRecords; got != 0 {
		t.Errorf("recovered %d base records from corrupt group, want 0", got)
	}

	// The table stays usable.
	if _, err := restored.Insert([]int64{9, 9}); err != nil {
		t.Fatalf("Insert after corrupt recovery failed: %v", err)
	}
}

func corruptFile(path string) error {
	return os.WriteFile(path, []byte("not a page"), 0644)
}

func TestRecoverEmptyTable(t *testing.T) {
	dir := t.TempDir()
	tbl := newTableAt(t, dir, 3, 1)
	if err := tbl.Recover(); err != nil {
		t.Fatalf("Recover of empty table failed: %v", err)
	}
	if tbl.Stats().BaseRecords != 0 {
		t.Errorf("empty table recovered records")
	}
	if _, err := tbl.Insert([]int64{0, 1, 0}); err != nil {
		t.Fatalf("Insert after empty recovery failed: %v", err)
	}
}
