package progress

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()

	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // random port
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func connect(t *testing.T) *nats.Conn {
	t.Helper()

	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}

func TestRegistry_CreateAndGet(t *testing.T) {
	registry := NewRegistry(nil, nil)

	runID := registry.Create()
	assert.NotEmpty(t, runID)

	view, err := registry.Get(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, view.ID)
	assert.Equal(t, StatusPending, view.Status)
	assert.Zero(t, view.Percent)

	_, err = registry.Get("nonexistent")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestRegistry_NilConnIsRegistryOnly(t *testing.T) {
	registry := NewRegistry(nil, nil)
	runID := registry.Create()

	require.NoError(t, registry.Started(runID))
	require.NoError(t, registry.SectionDone(runID, 50, "section 3 of 6"))
	require.NoError(t, registry.Log(runID, "info", "halfway"))
	require.NoError(t, registry.Complete(runID, map[string]int{"sections": 6}))

	view, err := registry.Get(runID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, view.Status)
	assert.Equal(t, 100, view.Percent)
	assert.NotNil(t, view.Result)
}

func TestRegistry_StartedPublishes(t *testing.T) {
	nc := connect(t)
	registry := NewRegistry(nc, nil)
	runID := registry.Create()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(Subject(runID, "started"), ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, registry.Started(runID))

	select {
	case msg := <-ch:
		var view RunView
		require.NoError(t, json.Unmarshal(msg.Data, &view))
		assert.Equal(t, runID, view.ID)
		assert.Equal(t, StatusRunning, view.Status)
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for started event")
	}
}

func TestRegistry_SectionDonePublishes(t *testing.T) {
	nc := connect(t)
	registry := NewRegistry(nc, nil)
	runID := registry.Create()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(Subject(runID, "progress"), ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, registry.SectionDone(runID, 33, "section 2 of 6"))

	select {
	case msg := <-ch:
		var event map[string]any
		require.NoError(t, json.Unmarshal(msg.Data, &event))
		assert.Equal(t, runID, event["id"])
		assert.Equal(t, float64(33), event["percent"])
		assert.Equal(t, "section 2 of 6", event["message"])
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for progress event")
	}

	view, err := registry.Get(runID)
	require.NoError(t, err)
	assert.Equal(t, 33, view.Percent)
	assert.Equal(t, "section 2 of 6", view.Message)
}

func TestRegistry_WildcardSubscriptionSeesAllEvents(t *testing.T) {
	nc := connect(t)
	registry := NewRegistry(nc, nil)
	runID := registry.Create()

	ch := make(chan *nats.Msg, 8)
	sub, err := nc.ChanSubscribe(RunSubjects(runID), ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, registry.Started(runID))
	require.NoError(t, registry.SectionDone(runID, 50, "halfway"))
	require.NoError(t, registry.Log(runID, "info", "note"))
	require.NoError(t, registry.Complete(runID, nil))

	subjects := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		select {
		case msg := <-ch:
			subjects = append(subjects, msg.Subject)
		case <-time.After(1 * time.Second):
			t.Fatalf("timeout waiting for event %d", i+1)
		}
	}
	assert.Equal(t, []string{
		Subject(runID, "started"),
		Subject(runID, "progress"),
		Subject(runID, "log"),
		Subject(runID, "completed"),
	}, subjects)
}

func TestRegistry_ErrorMarksFailed(t *testing.T) {
	nc := connect(t)
	registry := NewRegistry(nc, nil)
	runID := registry.Create()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(Subject(runID, "error"), ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, registry.Error(runID, errors.New("no documents found")))

	select {
	case msg := <-ch:
		var event map[string]any
		require.NoError(t, json.Unmarshal(msg.Data, &event))
		assert.Equal(t, "no documents found", event["error"])
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for error event")
	}

	view, err := registry.Get(runID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, view.Status)
	assert.Equal(t, "no documents found", view.Error)
}

func TestRegistry_CompletePublishesDuration(t *testing.T) {
	nc := connect(t)
	registry := NewRegistry(nc, nil)
	runID := registry.Create()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(Subject(runID, "completed"), ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, registry.Complete(runID, map[string]any{"sections": 6}))

	select {
	case msg := <-ch:
		var event map[string]any
		require.NoError(t, json.Unmarshal(msg.Data, &event))
		assert.Equal(t, runID, event["id"])
		assert.NotNil(t, event["result"])
		assert.NotNil(t, event["duration_ms"])
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for completed event")
	}
}

func TestRegistry_PublishErrorSurfaces(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)

	registry := NewRegistry(nc, nil)
	runID := registry.Create()

	nc.Close()

	err = registry.Log(runID, "info", "after close")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "publish log event")
}

func TestRegistry_UnknownRunErrors(t *testing.T) {
	registry := NewRegistry(nil, nil)

	assert.Error(t, registry.Started("nonexistent"))
	assert.Error(t, registry.SectionDone("nonexistent", 10, ""))
	assert.Error(t, registry.Log("nonexistent", "info", ""))
	assert.Error(t, registry.Error("nonexistent", errors.New("boom")))
	assert.Error(t, registry.Complete("nonexistent", nil))
}

func TestRegistry_ListNewestFirst(t *testing.T) {
	registry := NewRegistry(nil, nil)

	first := registry.Create()
	time.Sleep(5 * time.Millisecond)
	second := registry.Create()

	views := registry.List()
	require.Len(t, views, 2)
	assert.Equal(t, second, views[0].ID)
	assert.Equal(t, first, views[1].ID)
}

func TestRegistry_CleanupAfterTTL(t *testing.T) {
	registry := NewRegistry(nil, nil)
	registry.ttl = 20 * time.Millisecond

	runID := registry.Create()
	require.NoError(t, registry.Complete(runID, nil))

	assert.Eventually(t, func() bool {
		_, err := registry.Get(runID)
		return err != nil
	}, time.Second, 10*time.Millisecond)
}
