package backup

import (
	"path/filepath"
	"testing"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/database"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/query"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/table"
)

func TestBackupAndRestore(t *testing.T) {
	dataDir := t.TempDir()

	db, err := database.Open(database.DefaultConfig(dataDir))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	tbl, _ := db.CreateTable("grades", 3, 0)
	q := query.New(tbl)
	for key := int64(1); key <= 10; key++ {
		q.Insert(key, key*10, key*100)
	}
	q.Update(3, table.Value{}, table.Int(999), table.Value{})
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	archive := filepath.Join(t.TempDir(), "snapshot.tar.zst")
	if err := Backup(dataDir, archive); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	restoreDir := filepath.Join(t.TempDir(), "restored")
	if err := Restore(archive, restoreDir); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	restored, err := database.Open(database.DefaultConfig(restoreDir))
	if err != nil {
		t.Fatalf("Open of restored database failed: %v", err)
	}
	defer restored.Close()

	rtbl, ok := restored.GetTable("grades")
	if !ok {
		t.Fatal("grades table missing from restored database")
	}
	rq := query.New(rtbl)

	records, err := rq.Select(3, 0, []int{0, 1, 2})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if records[0].Columns[1] != 999 {
		t.Errorf("restored column 1 = %d, want 999", records[0].Columns[1])
	}
	if sum, _ := rq.Sum(1, 10, 2); sum != 5500 {
		t.Errorf("restored Sum = %d, want 5500", sum)
	}
}

func TestRestoreRefusesNonEmptyTarget(t *testing.T) {
	dataDir := t.TempDir()
	db, _ := database.Open(database.DefaultConfig(dataDir))
	db.CreateTable("grades", 2, 0)
	db.Close()

	archive := filepath.Join(t.TempDir(), "snapshot.tar.zst")
	if err := Backup(dataDir, archive); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	if err := Restore(archive, dataDir); err == nil {
		t.Error("Restore into a non-empty directory should fail")
	}
}
