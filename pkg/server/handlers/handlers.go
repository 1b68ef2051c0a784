package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/auth"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/database"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/metrics"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/storage"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/table"
)

// Handlers holds the database instance and provides HTTP handlers
type Handlers struct {
	db        *database.Database
	collector *metrics.Collector
	authMgr   *auth.Manager
}

// New creates a new Handlers instance
func New(db *database.Database, collector *metrics.Collector, authMgr *auth.Manager) *Handlers {
	return &Handlers{db: db, collector: collector, authMgr: authMgr}
}

// getTable retrieves a table by name or returns an error
func (h *Handlers) getTable(name string) (*table.Table, error) {
	if name == "" {
		return nil, &BadRequestError{Message: "table name is required"}
	}
	t, ok := h.db.GetTable(name)
	if !ok {
		return nil, &TableNotFoundError{Table: name}
	}
	return t, nil
}

// parseJSONBody parses JSON request body into target
func parseJSONBody(r *http.Request, target interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return &BadRequestError{Message: "failed to read request body"}
	}
	defer r.Body.Close()

	if len(body) == 0 {
		return &BadRequestError{Message: "request body is empty"}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return &BadRequestError{Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// Error types for consistent error handling

type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

type TableNotFoundError struct {
	Table string
}

func (e *TableNotFoundError) Error() string {
	return "table not found: " + e.Table
}

type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	return e.Message
}

// writeError writes an error response with appropriate HTTP status code
func writeError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorType := "InternalError"

	switch err.(type) {
	case *BadRequestError:
		statusCode = http.StatusBadRequest
		errorType = "BadRequest"
	case *TableNotFoundError:
		statusCode = http.StatusNotFound
		errorType = "TableNotFound"
	case *UnauthorizedError:
		statusCode = http.StatusUnauthorized
		errorType = "Unauthorized"
	default:
		switch {
		case errors.Is(err, table.ErrNotFound):
			statusCode = http.StatusNotFound
			errorType = "NotFound"
		case errors.Is(err, table.ErrDuplicateKey):
			statusCode = http.StatusConflict
			errorType = "DuplicateKey"
		case errors.Is(err, table.ErrInvalidUpdate), errors.Is(err, table.ErrSchemaMismatch):
			statusCode = http.StatusBadRequest
			errorType = "InvalidRequest"
		case errors.Is(err, storage.ErrBufferPoolExhausted):
			statusCode = http.StatusServiceUnavailable
			errorType = "BufferPoolExhausted"
		case errors.Is(err, auth.ErrPermissionDenied):
			statusCode = http.StatusForbidden
			errorType = "PermissionDenied"
		case errors.Is(err, auth.ErrInvalidCredentials):
			statusCode = http.StatusUnauthorized
			errorType = "InvalidCredentials"
		}
	}

	response := map[string]interface{}{
		"ok":      false,
		"error":   errorType,
		"message": err.Error(),
		"code":    statusCode,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, result interface{}) {
	response := map[string]interface{}{
		"ok":     true,
		"result": result,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// RequirePermission gates a route on a permission. When no users are
// configured the server runs open and the check passes.
func (h *Handlers) RequirePermission(permission auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !h.authMgr.HasUsers() {
				next.ServeHTTP(w, r)
				return
			}

			token, err := auth.ParseAuthHeader(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, &UnauthorizedError{Message: "missing bearer token"})
				return
			}
			if err := h.authMgr.CheckPermission(token, permission); err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Login authenticates a user and returns a session token
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.authMgr.Authenticate(req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]string{"token": token})
}

// Logout invalidates the caller's session token
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := auth.ParseAuthHeader(r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, &UnauthorizedError{Message: "missing bearer token"})
		return
	}
	h.authMgr.InvalidateSession(token)
	writeSuccess(w, map[string]bool{"loggedOut": true})
}

// Health returns a liveness handler
func (h *Handlers) Health(startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, map[string]interface{}{
			"status":        "ok",
			"uptimeSeconds": time.Since(startTime).Seconds(),
		})
	}
}
