// Package zmqnet provides a ZeroMQ REQ/REP adapter pair: Server is a
// Waiter that receives JSON-encoded events on a REP socket and
// acknowledges each one; Client is a Notifier that sends events on a REQ
// socket and waits for the acknowledgement before returning.
package zmqnet

import (
	"context"
	"encoding/json"
	"fmt"

	zmq "github.com/pebbe/zmq4"

	"github.com/markrileybot/waitmate/pkg/bus"
	"github.com/markrileybot/waitmate/pkg/event"
	"github.com/markrileybot/waitmate/pkg/log"
)

// Server binds a REP socket and publishes every event it receives.
type Server struct {
	skt     *zmq.Socket
	address string
}

// NewServer binds a REP socket at address (e.g. "tcp://*:5555").
func NewServer(address string) (*Server, error) {
	skt, err := zmq.NewSocket(zmq.REP)
	if err != nil {
		return nil, fmt.Errorf("create REP socket: %w", err)
	}
	if err := skt.Bind(address); err != nil {
		skt.Close()
		return nil, fmt.Errorf("bind %s: %w", address, err)
	}
	return &Server{skt: skt, address: address}, nil
}

func (s *Server) Name() string { return fmt.Sprintf("Server@%s", s.address) }

// Wait loops receiving one event per request, replying "OK" once it has
// been published. It returns once ctx is cancelled; because zmq4's Recv
// is a blocking C call with no native context support, cancellation only
// takes effect between requests, not mid-recv.
func (s *Server) Wait(ctx context.Context, b bus.EventBus) {
	defer s.skt.Close()
	l := log.WithWaiter(s.Name())
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := s.skt.RecvBytes(0)
		if err != nil {
			l.Error().Err(err).Msg("recv failed")
			return
		}

		var e event.Event
		if err := json.Unmarshal(msg, &e); err != nil {
			l.Error().Err(err).Msg("failed to decode event")
			_, _ = s.skt.Send("ERR", 0)
			continue
		}

		b.Publish(e)

		if _, err := s.skt.Send("OK", 0); err != nil {
			l.Error().Err(err).Msg("send ack failed")
			return
		}
	}
}

// Client connects a REQ socket and sends events to the paired Server.
type Client struct {
	skt     *zmq.Socket
	address string
}

// NewClient connects a REQ socket to address (e.g. "tcp://localhost:5555").
func NewClient(address string) (*Client, error) {
	skt, err := zmq.NewSocket(zmq.REQ)
	if err != nil {
		return nil, fmt.Errorf("create REQ socket: %w", err)
	}
	if err := skt.Connect(address); err != nil {
		skt.Close()
		return nil, fmt.Errorf("connect %s: %w", address, err)
	}
	return &Client{skt: skt, address: address}, nil
}

func (c *Client) Name() string { return fmt.Sprintf("Client@%s", c.address) }

// Notify sends the JSON-encoded event and blocks for the acknowledgement.
func (c *Client) Notify(e event.Event, _ bus.EventBus) error {
	msg, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := c.skt.SendBytes(msg, 0); err != nil {
		return fmt.Errorf("send event: %w", err)
	}
	if _, err := c.skt.Recv(0); err != nil {
		return fmt.Errorf("recv ack: %w", err)
	}
	return nil
}

// Close releases the underlying socket.
func (c *Client) Close() error {
	return c.skt.Close()
}
