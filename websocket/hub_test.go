package websocket

import (
	"sync/atomic"
	"testing"
	"time"

	"monochrome/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient builds a connectionless client so the hub loop can be
// exercised directly
func newTestClient(id string, buffer int) *Client {
	return &Client{id: id, send: make(chan types.SnapshotMessage, buffer)}
}

func receive(t *testing.T, client *Client) types.SnapshotMessage {
	t.Helper()

	select {
	case msg, ok := <-client.send:
		require.True(t, ok, "client channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message on client %s", client.id)
		return types.SnapshotMessage{}
	}
}

func TestHubSendsInitialSnapshot(t *testing.T) {
	h := NewHub(func() types.SnapshotMessage {
		return types.SnapshotMessage{
			Type:   "snapshot",
			Active: []types.DownloadRecord{{ID: "a"}},
		}
	})
	go h.Run()
	defer h.Stop()

	client := newTestClient("c1", 4)
	h.RegisterClient(client)

	msg := receive(t, client)
	require.Len(t, msg.Active, 1)
	assert.Equal(t, "a", msg.Active[0].ID)
	assert.Equal(t, 1, h.ClientCount())
}

func TestHubBroadcastsToAllClients(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	first := newTestClient("c1", 4)
	second := newTestClient("c2", 4)
	h.RegisterClient(first)
	h.RegisterClient(second)

	h.Broadcast(types.SnapshotMessage{Type: "snapshot", History: []types.DownloadRecord{{ID: "done"}}})

	for _, client := range []*Client{first, second} {
		msg := receive(t, client)
		assert.Equal(t, "done", msg.History[0].ID)
	}
}

func TestHubUnregisterClosesClient(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	client := newTestClient("c1", 1)
	h.RegisterClient(client)
	h.UnregisterClient(client)

	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("client channel was not closed")
	}
	assert.Equal(t, 0, h.ClientCount())
}

func TestHubDropsSlowClients(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	slow := newTestClient("slow", 0)
	h.RegisterClient(slow)
	h.Broadcast(types.SnapshotMessage{Type: "snapshot"})

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubStopClosesClients(t *testing.T) {
	h := NewHub(nil)
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	client := newTestClient("c1", 1)
	h.RegisterClient(client)
	h.Stop()
	h.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	_, ok := <-client.send
	assert.False(t, ok)

	// registering after stop must not block
	h.RegisterClient(newTestClient("late", 1))
}

func TestHubRefreshSendsLatestSnapshot(t *testing.T) {
	var version atomic.Int64
	h := NewHub(func() types.SnapshotMessage {
		v := version.Load()
		return types.SnapshotMessage{
			Type:   "snapshot",
			Active: make([]types.DownloadRecord, v),
		}
	})
	go h.Run()
	defer h.Stop()

	client := newTestClient("c1", 64)
	h.RegisterClient(client)
	assert.Empty(t, receive(t, client).Active)

	for i := 1; i <= 10; i++ {
		version.Store(int64(i))
		h.Refresh()
	}

	// merged requests may skip intermediate states but never reorder them
	last := -1
	for last != 10 {
		msg := receive(t, client)
		require.GreaterOrEqual(t, len(msg.Active), last)
		last = len(msg.Active)
	}
}

func TestHubRefreshWithoutSnapshotFunc(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	client := newTestClient("c1", 1)
	h.RegisterClient(client)
	h.Refresh()
	h.Broadcast(types.SnapshotMessage{Type: "snapshot", History: []types.DownloadRecord{{ID: "x"}}})

	assert.Equal(t, "x", receive(t, client).History[0].ID)
}
