package service

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpiwc/wifiprov-go/pkg/connection"
	"github.com/rpiwc/wifiprov-go/pkg/transport"
	"github.com/rpiwc/wifiprov-go/pkg/wireless"
)

// pipeEndpoint hands out in-memory connections queued by the test.
type pipeEndpoint struct {
	mu       sync.Mutex
	failures int
	opens    int
	closes   int

	conns chan net.Conn
}

func newPipeEndpoint() *pipeEndpoint {
	return &pipeEndpoint{conns: make(chan net.Conn, 4)}
}

// failNext makes the next n Open calls fail.
func (e *pipeEndpoint) failNext(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = n
}

// dial queues a server end and returns the client end.
func (e *pipeEndpoint) dial(t *testing.T) net.Conn {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })
	e.conns <- server
	return client
}

func (e *pipeEndpoint) counts() (opens, closes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens, e.closes
}

func (e *pipeEndpoint) Open(ctx context.Context) (transport.Binding, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failures > 0 {
		e.failures--
		return nil, errors.New("adapter busy")
	}
	e.opens++
	return &pipeBinding{ep: e}, nil
}

type pipeBinding struct {
	ep *pipeEndpoint
}

func (b *pipeBinding) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case c := <-b.ep.conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *pipeBinding) Addr() string { return "pipe" }

func (b *pipeBinding) Close() error {
	b.ep.mu.Lock()
	defer b.ep.mu.Unlock()
	b.ep.closes++
	return nil
}

// testServerConfig returns settings fast enough for unit tests.
func testServerConfig() ServerConfig {
	cfg := DefaultServerConfig()
	cfg.Session.SettleDelay = 0
	cfg.Session.AddressTimeout = 200 * time.Millisecond
	cfg.Session.PollInterval = 10 * time.Millisecond
	cfg.Session.ReadTimeout = 5 * time.Second
	cfg.Bind = BindConfig{BackoffConfig: connection.BackoffConfig{
		Initial: time.Millisecond,
		Max:     2 * time.Millisecond,
	}}
	return cfg
}

func newMemory() *wireless.Memory {
	m := wireless.NewMemory(wireless.DefaultConfig())
	m.SetNetworks("HomeNet", "Cafe", "HomeNet")
	m.SetJoinedAddresses("192.168.1.50")
	return m
}

// eventRecorder collects events delivered asynchronously.
type eventRecorder struct {
	ch chan Event
}

func newEventRecorder(srv *Server) *eventRecorder {
	r := &eventRecorder{ch: make(chan Event, 64)}
	srv.OnEvent(func(e Event) { r.ch <- e })
	return r
}

// waitFor returns the next event of type typ.
func (r *eventRecorder) waitFor(t *testing.T, typ EventType) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-r.ch:
			if e.Type == typ {
				return e
			}
		case <-deadline:
			require.FailNow(t, "event not received", typ.String())
			return Event{}
		}
	}
}
