package handlers

import (
	"net/http"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/backup"
)

// Flush writes every dirty resident page to disk
func (h *Handlers) Flush(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Flush(); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]bool{"flushed": true})
}

// MergeAll compacts every table. Merge collapses version history.
func (h *Handlers) MergeAll(w http.ResponseWriter, r *http.Request) {
	counts, err := h.db.MergeAll()
	if err != nil {
		writeError(w, err)
		return
	}
	for _, n := range counts {
		h.collector.RecordMerge(n)
	}
	writeSuccess(w, counts)
}

// Backup flushes and snapshots the data directory:
// {"dest": "/path/to/snapshot.tar.zst"}
func (h *Handlers) Backup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dest string `json:"dest"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Dest == "" {
		writeError(w, &BadRequestError{Message: "dest is required"})
		return
	}

	if err := h.db.Flush(); err != nil {
		writeError(w, err)
		return
	}
	if err := backup.Backup(h.db.DataDir(), req.Dest); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]string{"dest": req.Dest})
}
