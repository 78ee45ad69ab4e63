package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpiwc/wifiprov-go/pkg/discovery"
	"github.com/rpiwc/wifiprov-go/pkg/discovery/mocks"
	"github.com/rpiwc/wifiprov-go/pkg/log"
	"github.com/rpiwc/wifiprov-go/pkg/provisioning"
	"github.com/rpiwc/wifiprov-go/pkg/transport"
	"github.com/rpiwc/wifiprov-go/pkg/wire"
	"github.com/rpiwc/wifiprov-go/pkg/wireless"
)

type serveResult struct {
	res provisioning.Result
	err error
}

func serveOneAsync(srv *Server, ctx context.Context) <-chan serveResult {
	done := make(chan serveResult, 1)
	go func() {
		res, err := srv.ServeOne(ctx)
		done <- serveResult{res, err}
	}()
	return done
}

func waitServe(t *testing.T, done <-chan serveResult) serveResult {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(5 * time.Second):
		require.FailNow(t, "ServeOne did not return")
		return serveResult{}
	}
}

func TestServeOneProvisionsClient(t *testing.T) {
	ep := newPipeEndpoint()
	mem := newMemory()
	srv, err := NewServer(ep, mem, testServerConfig())
	require.NoError(t, err)

	done := serveOneAsync(srv, context.Background())
	client := provisioning.NewClient(ep.dial(t), 5*time.Second)

	names, err := client.Networks()
	require.NoError(t, err)
	assert.Equal(t, []string{"Cafe", "HomeNet"}, names)

	addr, err := client.Provision("HomeNet", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.50", addr)

	r := waitServe(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, provisioning.StateDone, r.res.State)

	opens, closes := ep.counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, closes)
}

func TestServeOneAbortClosesConnectionAndBinding(t *testing.T) {
	ep := newPipeEndpoint()
	mem := newMemory()
	srv, err := NewServer(ep, mem, testServerConfig())
	require.NoError(t, err)
	events := newEventRecorder(srv)

	done := serveOneAsync(srv, context.Background())
	conn := ep.dial(t)
	_, err = wire.NewMessageReader(conn).ReadMessage()
	require.NoError(t, err)
	_, err = conn.Write([]byte(" "))
	require.NoError(t, err)

	r := waitServe(t, done)
	assert.ErrorIs(t, r.err, provisioning.ErrAborted)

	_, err = conn.Read(make([]byte, 16))
	assert.ErrorIs(t, err, io.EOF)

	e := events.waitFor(t, EventSessionAborted)
	assert.Error(t, e.Error)
	_, closes := ep.counts()
	assert.Equal(t, 1, closes)
	assert.Empty(t, mem.Applied())
}

func TestRunProvisionsTwoClientsOverTCP(t *testing.T) {
	mem := newMemory()
	srv, err := NewServer(&transport.TCPEndpoint{Address: "127.0.0.1:0"}, mem, testServerConfig())
	require.NoError(t, err)
	events := newEventRecorder(srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()

	for i, ssid := range []string{"HomeNet", "Cafe"} {
		addr := events.waitFor(t, EventListening).Binding
		conn, err := transport.DialTCP(ctx, addr)
		require.NoError(t, err, "client %d", i)

		client := provisioning.NewClient(conn, 5*time.Second)
		_, err = client.Networks()
		require.NoError(t, err)
		value, err := client.Provision(ssid, "secret123")
		require.NoError(t, err)
		assert.Equal(t, "192.168.1.50", value)
		client.Close()
	}

	events.waitFor(t, EventListening)
	assert.Equal(t, StateRunning, srv.State())
	cancel()

	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Equal(t, StateStopped, srv.State())

	applied := mem.Applied()
	require.Len(t, applied, 2)
	assert.Equal(t, "HomeNet", applied[0].SSID)
	assert.Equal(t, "Cafe", applied[1].SSID)
	assert.Contains(t, string(mem.Document()), `ssid="Cafe"`)
	assert.NotContains(t, string(mem.Document()), "HomeNet")
}

func TestBindRetriedWithBackoff(t *testing.T) {
	ep := newPipeEndpoint()
	ep.failNext(3)
	srv, err := NewServer(ep, newMemory(), testServerConfig())
	require.NoError(t, err)

	var mu sync.Mutex
	failures := 0
	srv.OnEvent(func(e Event) {
		if e.Type == EventBindFailed {
			mu.Lock()
			failures++
			mu.Unlock()
		}
	})

	done := serveOneAsync(srv, context.Background())
	client := provisioning.NewClient(ep.dial(t), 5*time.Second)
	_, err = client.Networks()
	require.NoError(t, err)
	_, err = client.Provision("HomeNet", "secret123")
	require.NoError(t, err)
	require.NoError(t, waitServe(t, done).err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return failures == 3
	}, time.Second, 5*time.Millisecond)
	opens, _ := ep.counts()
	assert.Equal(t, 1, opens)
}

func TestRunStopsWithRadioError(t *testing.T) {
	ep := newPipeEndpoint()
	ep.failNext(10)
	cfg := testServerConfig()
	cfg.Bind.MaxAttempts = 2
	srv, err := NewServer(ep, newMemory(), cfg)
	require.NoError(t, err)

	err = srv.Run(context.Background())
	assert.ErrorIs(t, err, ErrRadio)
	assert.ErrorContains(t, err, "adapter busy")
	assert.Equal(t, StateStopped, srv.State())
}

func TestRunCancelDuringAccept(t *testing.T) {
	ep := newPipeEndpoint()
	srv, err := NewServer(ep, newMemory(), testServerConfig())
	require.NoError(t, err)
	events := newEventRecorder(srv)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()

	events.waitFor(t, EventListening)
	cancel()

	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	opens, closes := ep.counts()
	assert.Equal(t, opens, closes)
}

func TestAnnounceAfterProvision(t *testing.T) {
	announcer := mocks.NewMockAnnouncer(t)
	announcer.EXPECT().Announce(mock.Anything, mock.MatchedBy(func(info *discovery.ProvisionedInfo) bool {
		return info.SSID == "HomeNet" && info.Address == "192.168.1.50" && info.Port == 22
	})).Return(nil).Once()
	announcer.EXPECT().Stop().Return(nil).Once()

	ep := newPipeEndpoint()
	cfg := testServerConfig()
	cfg.Announcer = announcer
	srv, err := NewServer(ep, newMemory(), cfg)
	require.NoError(t, err)
	events := newEventRecorder(srv)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()

	client := provisioning.NewClient(ep.dial(t), 5*time.Second)
	_, err = client.Networks()
	require.NoError(t, err)
	_, err = client.Provision("HomeNet", "secret123")
	require.NoError(t, err)

	events.waitFor(t, EventAnnounced)
	cancel()
	require.NoError(t, <-runErr)
}

func TestNoAnnounceWithoutAddress(t *testing.T) {
	announcer := mocks.NewMockAnnouncer(t)

	mem := newMemory()
	mem.FailApply(wireless.ErrPermission)
	ep := newPipeEndpoint()
	cfg := testServerConfig()
	cfg.Announcer = announcer
	srv, err := NewServer(ep, mem, cfg)
	require.NoError(t, err)

	done := serveOneAsync(srv, context.Background())
	client := provisioning.NewClient(ep.dial(t), 5*time.Second)
	_, err = client.Networks()
	require.NoError(t, err)
	value, err := client.Provision("HomeNet", "secret123")
	require.NoError(t, err)
	assert.Equal(t, wire.PermissionError, value)

	r := waitServe(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, provisioning.OutcomePermissionDenied, r.res.Attempt.Outcome)
}

func TestProtocolLogCapturesLifecycle(t *testing.T) {
	rec := &recordingLogger{}
	ep := newPipeEndpoint()
	cfg := testServerConfig()
	cfg.ProtocolLogger = rec
	srv, err := NewServer(ep, newMemory(), cfg)
	require.NoError(t, err)

	done := serveOneAsync(srv, context.Background())
	client := provisioning.NewClient(ep.dial(t), 5*time.Second)
	_, err = client.Networks()
	require.NoError(t, err)
	_, err = client.Provision("HomeNet", "secret123")
	require.NoError(t, err)
	require.NoError(t, waitServe(t, done).err)

	var transitions []string
	for _, e := range rec.Events() {
		if e.StateChange != nil && e.StateChange.Entity != log.StateEntitySession {
			transitions = append(transitions, e.StateChange.Entity.String()+":"+e.StateChange.NewState)
		}
	}
	assert.Equal(t, []string{"BINDING:OPEN", "CONNECTION:CONNECTED", "CONNECTION:CLOSED", "BINDING:CLOSED"}, transitions)
}

func TestNewServerInvalidConfig(t *testing.T) {
	cfg := testServerConfig()
	cfg.Session.MaxPayload = 0
	_, err := NewServer(newPipeEndpoint(), newMemory(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = testServerConfig()
	cfg.Bind.MaxAttempts = -1
	_, err = NewServer(newPipeEndpoint(), newMemory(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "BIND_FAILED", EventBindFailed.String())
	assert.Equal(t, "UNKNOWN", EventType(200).String())
	assert.Equal(t, "RUNNING", StateRunning.String())
}

type recordingLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recordingLogger) Log(event log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingLogger) Events() []log.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]log.Event(nil), r.events...)
}

