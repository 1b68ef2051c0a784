package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// ListTables returns the catalog's table names
func (h *Handlers) ListTables(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.db.Tables())
}

// CreateTable adds a table to the catalog
func (h *Handlers) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		NumColumns int    `json:"numColumns"`
		KeyIndex   int    `json:"keyIndex"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	t, err := h.db.CreateTable(req.Name, req.NumColumns, req.KeyIndex)
	if err != nil {
		writeError(w, &BadRequestError{Message: err.Error()})
		return
	}
	writeSuccess(w, t.Stats())
}

// DropTable removes a table and its files
func (h *Handlers) DropTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	if _, err := h.getTable(name); err != nil {
		writeError(w, err)
		return
	}
	if err := h.db.DropTable(name); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]string{"dropped": name})
}

// TableStats returns one table's counters
func (h *Handlers) TableStats(w http.ResponseWriter, r *http.Request) {
	t, err := h.getTable(chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, t.Stats())
}

// DatabaseStats returns catalog-wide stats plus buffer pool counters
func (h *Handlers) DatabaseStats(w http.ResponseWriter, r *http.Request) {
	tables := h.db.Tables()
	stats := make([]interface{}, 0, len(tables))
	for _, name := range tables {
		if t, ok := h.db.GetTable(name); ok {
			stats = append(stats, t.Stats())
		}
	}

	reads, writes := h.db.Disk().Stats()
	writeSuccess(w, map[string]interface{}{
		"dataDir":    h.db.DataDir(),
		"tables":     stats,
		"bufferPool": h.db.Pool().Stats(),
		"diskReads":  reads,
		"diskWrites": writes,
	})
}

// CreateIndex builds a secondary index on a user column
func (h *Handlers) CreateIndex(w http.ResponseWriter, r *http.Request) {
	t, err := h.getTable(chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Column int `json:"column"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := t.CreateIndex(req.Column); err != nil {
		writeError(w, &BadRequestError{Message: err.Error()})
		return
	}
	writeSuccess(w, map[string]int{"column": req.Column})
}

// DropIndex releases a secondary index
func (h *Handlers) DropIndex(w http.ResponseWriter, r *http.Request) {
	t, err := h.getTable(chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, err)
		return
	}

	column, err := strconv.Atoi(chi.URLParam(r, "column"))
	if err != nil {
		writeError(w, &BadRequestError{Message: "column must be an integer"})
		return
	}
	t.DropIndex(column)
	writeSuccess(w, map[string]int{"column": column})
}
