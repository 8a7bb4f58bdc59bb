/*
Package httpapi exposes the event log over HTTP: a one-shot JSON array
scan at GET /api/v1/event, and an incremental WebSocket tail at
GET /api/v1/event/ws that accepts a set_offset command to seek before
tailing begins. Server itself implements bus.Waiter — wait starts the
listener and blocks until ctx is cancelled or the listener exits, matching the original's
"the HTTP server runs as a Waiter" design.
*/
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/markrileybot/waitmate/pkg/bus"
	"github.com/markrileybot/waitmate/pkg/event"
	"github.com/markrileybot/waitmate/pkg/eventlog"
	"github.com/markrileybot/waitmate/pkg/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server serves the HTTP/WebSocket view of an EventLog.
type Server struct {
	address string
	log     *eventlog.EventLog
	srv     *http.Server
}

// NewServer constructs a Server that will listen on address once Wait is
// called.
func NewServer(address string, log_ *eventlog.EventLog) *Server {
	s := &Server{address: address, log: log_}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/event", s.handleScan)
	mux.HandleFunc("/api/v1/event/ws", s.handleTail)
	s.srv = &http.Server{Addr: address, Handler: mux}
	return s
}

func (s *Server) Name() string { return s.address }

// Wait starts the HTTP listener and blocks until ctx is cancelled, at
// which point it shuts the server down gracefully, or until the listener
// exits on its own (for example when the address cannot be bound).
func (s *Server) Wait(ctx context.Context, _ bus.EventBus) {
	l := log.WithWaiter(s.Name())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			l.Error().Err(err).Msg("error shutting down http server")
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			l.Error().Err(err).Msg("http server exited")
		}
	}
}

// handleScan performs a single one-shot scan of the entire log and
// returns it as a JSON array, matching the original's get_events route.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	events := make([]event.Event, 0)
	c := s.log.BuildCursor().Build()
	for {
		_, e, ok := c.Next()
		if !ok {
			break
		}
		events = append(events, e)
	}

	if err := json.NewEncoder(w).Encode(events); err != nil {
		log.Logger.Error().Err(err).Msg("failed to encode event scan response")
	}
}

// wsCommand is the structure of a client-sent control message.
type wsCommand struct {
	SetOffset string `json:"set_offset"`
}

// wsError is sent back when a command cannot be honored.
type wsError struct {
	Error string `json:"error"`
}

// handleTail upgrades the connection to a WebSocket and streams events
// from the point the client requests onward. A client may optionally send
// one {"set_offset": "<key>"} command before any events are streamed to
// seek to a specific starting point; sending it later has no effect.
func (s *Server) handleTail(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Logger.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	builder := s.log.BuildCursor()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var cmd wsCommand
	if err := conn.ReadJSON(&cmd); err == nil && cmd.SetOffset != "" {
		t, id, err := event.ParseKey(cmd.SetOffset)
		if err != nil {
			_ = conn.WriteJSON(wsError{Error: err.Error()})
			return
		}
		builder = builder.StartingAfter(t, &id)
	}
	conn.SetReadDeadline(time.Time{})

	tickle := make(chan bool, 1)
	cursor := builder.Tailing(tickle).Build()
	defer func() {
		select {
		case tickle <- false:
		default:
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case tickle <- true:
				default:
				}
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}

		_, e, ok := cursor.Next()
		if !ok {
			return
		}
		if err := conn.WriteJSON(e); err != nil {
			return
		}
	}
}
