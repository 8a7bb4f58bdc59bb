package zmqnet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markrileybot/waitmate/pkg/event"
)

type fakeBus struct {
	events chan event.Event
}

func (b *fakeBus) Publish(e event.Event) {
	b.events <- e
}

func TestClientServerRoundTrip(t *testing.T) {
	addr := "tcp://127.0.0.1:17555"

	srv, err := NewServer(addr)
	require.NoError(t, err)

	client, err := NewClient(addr)
	require.NoError(t, err)
	defer client.Close()

	b := &fakeBus{events: make(chan event.Event, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Wait(ctx, b)

	sent := event.New("src", "n", "d", "c", event.ERROR)
	require.NoError(t, client.Notify(sent, nil))

	select {
	case got := <-b.events:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Name, got.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not publish the event in time")
	}
}
