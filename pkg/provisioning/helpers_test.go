package provisioning

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpiwc/wifiprov-go/pkg/log"
	"github.com/rpiwc/wifiprov-go/pkg/wireless"
)

// testConfig returns settings fast enough for unit tests.
func testConfig() Config {
	return Config{
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxPayload:     1024,
		SettleDelay:    0,
		AddressTimeout: 200 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
	}
}

// newMemory returns a wireless stack that joins 192.168.1.50 on reload.
func newMemory() *wireless.Memory {
	m := wireless.NewMemory(wireless.DefaultConfig())
	m.SetNetworks("HomeNet", "Cafe", "HomeNet", "")
	m.SetJoinedAddresses("192.168.1.50")
	return m
}

type sessionOutcome struct {
	result Result
	err    error
}

// startSession runs a session on one end of a pipe and returns the other
// end. The server end is closed when Run returns.
func startSession(t *testing.T, ctx context.Context, w wireless.Wireless, cfg Config, plog log.Logger) (net.Conn, <-chan sessionOutcome) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})

	resolver := NewResolver(w, cfg.AddressTimeout, cfg.PollInterval, nil)
	sess := NewSession(server, NewScanner(w, nil), NewConfigurator(w, resolver, cfg.SettleDelay, nil), cfg)
	if plog != nil {
		sess.SetProtocolLogger(plog)
	}

	done := make(chan sessionOutcome, 1)
	go func() {
		res, err := sess.Run(ctx)
		server.Close()
		done <- sessionOutcome{result: res, err: err}
	}()
	return client, done
}

func waitOutcome(t *testing.T, done <-chan sessionOutcome) sessionOutcome {
	t.Helper()
	select {
	case out := <-done:
		return out
	case <-time.After(5 * time.Second):
		require.FailNow(t, "session did not finish")
		return sessionOutcome{}
	}
}

// recordingLogger captures protocol events.
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
