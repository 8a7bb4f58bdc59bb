package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markrileybot/waitmate/pkg/event"
	"github.com/markrileybot/waitmate/pkg/eventlog"
)

func openTemp(t *testing.T) *eventlog.EventLog {
	t.Helper()
	l := eventlog.Open(filepath.Join(t.TempDir(), "event_log.rdb"), false)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestHandleScanReturnsAllEventsAsJSONArray(t *testing.T) {
	l := openTemp(t)
	e1 := event.New("src", "a", "", "c", event.INFO)
	e2 := event.New("src", "b", "", "c", event.WARN)
	l.Add(e1)
	l.Add(e2)

	s := NewServer("", l)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/event", nil)
	rec := httptest.NewRecorder()

	s.handleScan(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []event.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, e1.ID, got[0].ID)
	assert.Equal(t, e2.ID, got[1].ID)
}

func TestHandleScanReturnsEmptyArrayWhenLogIsEmpty(t *testing.T) {
	l := openTemp(t)
	s := NewServer("", l)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/event", nil)
	rec := httptest.NewRecorder()
	s.handleScan(rec, req)

	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandleTailStreamsEventsAfterSetOffset(t *testing.T) {
	l := openTemp(t)
	e1 := event.New("src", "first", "", "c", event.INFO)
	l.Add(e1)

	s := NewServer("", l)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/event/ws", s.handleTail)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/event/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsCommand{SetOffset: string(event.KeyOf(e1))}))

	e2 := event.New("src", "second", "", "c", event.INFO)
	l.Add(e2)

	// the handler's cursor may scan before e2 lands; its 5s poll then wakes it
	conn.SetReadDeadline(time.Now().Add(7 * time.Second))
	var got event.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, e2.ID, got.ID)
}

func TestHandleTailRejectsMalformedSetOffset(t *testing.T) {
	l := openTemp(t)
	s := NewServer("", l)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/event/ws", s.handleTail)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/event/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsCommand{SetOffset: "not-a-valid-key"}))

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var got wsError
	require.NoError(t, conn.ReadJSON(&got))
	assert.NotEmpty(t, got.Error)
}
