package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/auth"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/changestream"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/database"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/metrics"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/query"
)

func TestChangeStreamDeliversEvents(t *testing.T) {
	db, err := database.Open(database.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	tbl, err := db.CreateTable("grades", 2, 0)
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	h := New(db, metrics.NewCollector(), auth.NewManager())
	router := chi.NewRouter()
	router.Get("/{table}/_changes", h.ChangeStream)

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/grades/_changes"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()

	// Give the server a moment to register the subscription before
	// publishing.
	time.Sleep(50 * time.Millisecond)

	q := query.New(tbl)
	if err := q.Insert(1, 10); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event changestream.ChangeEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if event.OperationType != changestream.OperationTypeInsert {
		t.Errorf("operation = %s, want insert", event.OperationType)
	}
	if event.Table != "grades" || event.Key != 1 {
		t.Errorf("event = %+v", event)
	}
}
