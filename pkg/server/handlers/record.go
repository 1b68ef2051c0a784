package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/query"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/table"
)

// queryParamInt reads an integer query parameter with a default
func queryParamInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &BadRequestError{Message: name + " must be an integer"}
	}
	return v, nil
}

// queryParamInt64 reads a 64-bit integer query parameter; required
func queryParamInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, &BadRequestError{Message: name + " is required"}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &BadRequestError{Message: name + " must be an integer"}
	}
	return v, nil
}

// parseProjection parses a "cols" parameter like "0,2,3"; empty means
// every user column
func parseProjection(r *http.Request, numColumns int) ([]int, error) {
	raw := r.URL.Query().Get("cols")
	if raw == "" {
		cols := make([]int, numColumns)
		for i := range cols {
			cols[i] = i
		}
		return cols, nil
	}

	parts := strings.Split(raw, ",")
	cols := make([]int, 0, len(parts))
	for _, part := range parts {
		col, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, &BadRequestError{Message: "cols must be a comma-separated list of integers"}
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// InsertRecord inserts a record: {"values": [1, 10, 100]}
func (h *Handlers) InsertRecord(w http.ResponseWriter, r *http.Request) {
	t, err := h.getTable(chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Values []int64 `json:"values"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	err = query.New(t).Insert(req.Values...)
	h.collector.RecordInsert(time.Since(start), err != nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]int64{"key": req.Values[t.KeyColumn()]})
}

// SelectRecord reads one record by primary key. Optional query
// parameters: version (0, -1, -2, ...) and cols ("0,2").
func (h *Handlers) SelectRecord(w http.ResponseWriter, r *http.Request) {
	t, err := h.getTable(chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, err)
		return
	}

	key, err := strconv.ParseInt(chi.URLParam(r, "key"), 10, 64)
	if err != nil {
		writeError(w, &BadRequestError{Message: "key must be an integer"})
		return
	}
	version, err := queryParamInt(r, "version", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	projected, err := parseProjection(r, t.NumColumns())
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	records, err := query.New(t).SelectVersion(key, t.KeyColumn(), projected, version)
	h.collector.RecordSelect(time.Since(start), err != nil)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(records) == 0 {
		writeError(w, table.ErrNotFound)
		return
	}
	writeSuccess(w, records[0])
}

// Search finds records by value in any column:
// {"searchKey": 20, "searchColumn": 1, "projected": [0,1,2], "version": -1}
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	t, err := h.getTable(chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		SearchKey    int64 `json:"searchKey"`
		SearchColumn int   `json:"searchColumn"`
		Projected    []int `json:"projected"`
		Version      int   `json:"version"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Projected == nil {
		req.Projected = make([]int, t.NumColumns())
		for i := range req.Projected {
			req.Projected[i] = i
		}
	}

	start := time.Now()
	records, err := query.New(t).SelectVersion(req.SearchKey, req.SearchColumn, req.Projected, req.Version)
	h.collector.RecordSelect(time.Since(start), err != nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, records)
}

// UpdateRecord applies a cumulative update. Null values keep the
// current column: {"values": [null, 20, null]}
func (h *Handlers) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	t, err := h.getTable(chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, err)
		return
	}

	key, err := strconv.ParseInt(chi.URLParam(r, "key"), 10, 64)
	if err != nil {
		writeError(w, &BadRequestError{Message: "key must be an integer"})
		return
	}

	var req struct {
		Values []*int64 `json:"values"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	values := make([]table.Value, len(req.Values))
	for i, v := range req.Values {
		if v != nil {
			values[i] = table.Int(*v)
		}
	}

	start := time.Now()
	err = query.New(t).Update(key, values...)
	h.collector.RecordUpdate(time.Since(start), err != nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]int64{"key": key})
}

// DeleteRecord tombstones a record by primary key
func (h *Handlers) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	t, err := h.getTable(chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, err)
		return
	}

	key, err := strconv.ParseInt(chi.URLParam(r, "key"), 10, 64)
	if err != nil {
		writeError(w, &BadRequestError{Message: "key must be an integer"})
		return
	}

	start := time.Now()
	err = query.New(t).Delete(key)
	h.collector.RecordDelete(time.Since(start), err != nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]int64{"key": key})
}

// IncrementRecord adds one to a column: {"column": 2}
func (h *Handlers) IncrementRecord(w http.ResponseWriter, r *http.Request) {
	t, err := h.getTable(chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, err)
		return
	}

	key, err := strconv.ParseInt(chi.URLParam(r, "key"), 10, 64)
	if err != nil {
		writeError(w, &BadRequestError{Message: "key must be an integer"})
		return
	}

	var req struct {
		Column int `json:"column"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	err = query.New(t).Increment(key, req.Column)
	h.collector.RecordUpdate(time.Since(start), err != nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]interface{}{"key": key, "column": req.Column})
}

// Sum aggregates a column over an inclusive primary-key range:
// GET /{table}/_sum?start=1&end=3&column=1&version=0
func (h *Handlers) Sum(w http.ResponseWriter, r *http.Request) {
	t, err := h.getTable(chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, err)
		return
	}

	startKey, err := queryParamInt64(r, "start")
	if err != nil {
		writeError(w, err)
		return
	}
	endKey, err := queryParamInt64(r, "end")
	if err != nil {
		writeError(w, err)
		return
	}
	column, err := queryParamInt(r, "column", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	version, err := queryParamInt(r, "version", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	sum, err := query.New(t).SumVersion(startKey, endKey, column, version)
	h.collector.RecordSum(time.Since(start), err != nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]int64{"sum": sum})
}
