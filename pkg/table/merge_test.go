package table

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/storage"
)

func TestMergeCompactsUpdatedRecords(t *testing.T) {
	tbl := newTestTable(t, 3, 0)

	rid, err := tbl.Insert([]int64{1, 10, 100})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	tbl.Insert([]int64{2, 20, 200}) // never updated
	tbl.Update(1, []Value{{}, Int(11), {}})
	tbl.Update(1, []Value{{}, {}, Int(111)})

	merged, err := tbl.Merge()
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged != 1 {
		t.Errorf("merged %d records, want 1", merged)
	}

	// Base slots now carry the newest values and the indirection points
	// back at the base itself.
	loc := tbl.pageDirectory[rid]
	if head, _ := tbl.readField(loc, IndirectionColumn); head != rid {
		t.Errorf("base indirection = %d, want %d", head, rid)
	}
	if schema, _ := tbl.readField(loc, SchemaColumn); schema != 0 {
		t.Errorf("base schema = %d, want 0", schema)
	}

	row := mustCompose(t, tbl, rid, 0)
	if diff := cmp.Diff([]int64{1, 11, 111}, row); diff != "" {
		t.Errorf("merged row mismatch (-want +got):\n%s", diff)
	}
}

// Merge is history-collapsing: versioned reads after a merge return the
// merged values at every version.
func TestMergeCollapsesHistory(t *testing.T) {
	tbl := newTestTable(t, 3, 0)

	rid, _ := tbl.Insert([]int64{1, 10, 100})
	tbl.Update(1, []Value{{}, Int(11), {}})

	if _, err := tbl.Merge(); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	for _, version := range []int{0, 1, 5} {
		row := mustCompose(t, tbl, rid, version)
		if diff := cmp.Diff([]int64{1, 11, 100}, row); diff != "" {
			t.Errorf("version %d after merge mismatch (-want +got):\n%s", version, diff)
		}
	}
}

func TestMergeSkipsDeletedRecords(t *testing.T) {
	tbl := newTestTable(t, 2, 0)

	tbl.Insert([]int64{1, 10})
	tbl.Update(1, []Value{{}, Int(11)})
	tbl.Delete(1)

	merged, err := tbl.Merge()
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged != 0 {
		t.Errorf("merged %d records, want 0 (deleted records are skipped)", merged)
	}
}

func TestUpdateAfterMerge(t *testing.T) {
	tbl := newTestTable(t, 2, 0)

	rid, _ := tbl.Insert([]int64{1, 10})
	tbl.Update(1, []Value{{}, Int(11)})
	if _, err := tbl.Merge(); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if _, err := tbl.Update(1, []Value{{}, Int(12)}); err != nil {
		t.Fatalf("Update after merge failed: %v", err)
	}

	row := mustCompose(t, tbl, rid, 0)
	if row[1] != 12 {
		t.Errorf("column 1 = %d, want 12", row[1])
	}
	// One version back is the merged state.
	row = mustCompose(t, tbl, rid, 1)
	if row[1] != 11 {
		t.Errorf("column 1 one version back = %d, want 11", row[1])
	}
}

func TestMergedStateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	tbl := newTableAt(t, dir, 2, 0)

	tbl.Insert([]int64{1, 10})
	tbl.Update(1, []Value{{}, Int(11)})
	if _, err := tbl.Merge(); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if err := tbl.pool.FlushAll(); err != nil {
		t.Fatalf("FlushAll failed: %v", err)
	}

	restored := newTableAt(t, dir, 2, 0)
	if err := restored.Recover(); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	rid, ok := restored.Indexes().LookupKey(1)
	if !ok {
		t.Fatal("key 1 missing after restart")
	}
	row := mustCompose(t, restored, rid, 0)
	if row[1] != 11 {
		t.Errorf("column 1 after restart = %d, want 11", row[1])
	}

	// The base location survives in the base area.
	if loc := restored.pageDirectory[rid]; loc.Kind != storage.PageKindBase {
		t.Errorf("rid %d recovered in %v area", rid, loc.Kind)
	}
}
