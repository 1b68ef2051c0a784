package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// metadataFile is the catalog file written on Close
const metadataFile = "metadata.json"

// tableMeta is one catalog entry. Deleted persists the tombstoned base
// RIDs so deletes stay invisible across restarts; metadata written
// before this field existed simply reads back with none.
type tableMeta struct {
	Name       string  `json:"name"`
	NumColumns int     `json:"num_columns"`
	KeyIndex   int     `json:"key_index"`
	Deleted    []int64 `json:"deleted,omitempty"`
}

func readMetadata(dataDir string) ([]tableMeta, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", metadataFile, err)
	}

	var metas []tableMeta
	if err := json.Unmarshal(data, &metas); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", metadataFile, err)
	}
	return metas, nil
}

func writeMetadata(dataDir string, metas []tableMeta) error {
	data, err := json.MarshalIndent(metas, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", metadataFile, err)
	}
	path := filepath.Join(dataDir, metadataFile)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", metadataFile, err)
	}
	return nil
}
