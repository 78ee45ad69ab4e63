package provisioning

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpiwc/wifiprov-go/pkg/log"
	"github.com/rpiwc/wifiprov-go/pkg/wire"
	"github.com/rpiwc/wifiprov-go/pkg/wireless"
)

func TestSessionSuccess(t *testing.T) {
	mem := newMemory()
	conn, done := startSession(t, context.Background(), mem, testConfig(), nil)
	client := NewClient(conn, 5*time.Second)

	names, err := client.Networks()
	require.NoError(t, err)
	assert.Equal(t, []string{"Cafe", "HomeNet"}, names)

	addr, err := client.Provision("HomeNet", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.50", addr)

	out := waitOutcome(t, done)
	require.NoError(t, out.err)
	assert.Equal(t, StateDone, out.result.State)
	assert.Equal(t, "HomeNet", out.result.SSID)
	require.NotNil(t, out.result.Attempt)
	assert.Equal(t, OutcomeAddress, out.result.Attempt.Outcome)
	assert.NotEmpty(t, out.result.SessionID)

	require.Len(t, mem.Applied(), 1)
	assert.Equal(t, wireless.Credentials{SSID: "HomeNet", PSK: "secret123"}, mem.Applied()[0])
	assert.Equal(t, 1, mem.Reloads())
}

func TestSessionExactMessages(t *testing.T) {
	conn, done := startSession(t, context.Background(), newMemory(), testConfig(), nil)
	r := wire.NewMessageReader(conn)

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Found ssid:\nCafe\nHomeNet\n!", msg+"!")

	_, err = conn.Write([]byte("HomeNet\n"))
	require.NoError(t, err)
	msg, err = r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "waiting-psk!", msg+"!")

	_, err = conn.Write([]byte(" secret123 "))
	require.NoError(t, err)
	msg, err = r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "ip-address:192.168.1.50!", msg+"!")

	// Exactly one result message, then the connection closes.
	_, err = r.ReadMessage()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.NoError(t, waitOutcome(t, done).err)
}

func TestSessionEmptySSIDClosesWithoutPrompt(t *testing.T) {
	mem := newMemory()
	conn, done := startSession(t, context.Background(), mem, testConfig(), nil)
	client := NewClient(conn, 5*time.Second)

	_, err := client.Networks()
	require.NoError(t, err)
	_, err = conn.Write([]byte("  \r\n"))
	require.NoError(t, err)

	out := waitOutcome(t, done)
	assert.ErrorIs(t, out.err, ErrAborted)
	assert.ErrorIs(t, out.err, wire.ErrEmptyPayload)
	assert.Equal(t, StateAborted, out.result.State)
	assert.Nil(t, out.result.Attempt)

	n, err := conn.Read(make([]byte, 64))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Empty(t, mem.Applied())
}

func TestSessionEmptyPSKAborts(t *testing.T) {
	mem := newMemory()
	conn, done := startSession(t, context.Background(), mem, testConfig(), nil)
	r := wire.NewMessageReader(conn)

	_, err := r.ReadMessage()
	require.NoError(t, err)
	_, err = conn.Write([]byte("HomeNet"))
	require.NoError(t, err)
	_, err = r.ReadMessage()
	require.NoError(t, err)
	_, err = conn.Write([]byte("\n"))
	require.NoError(t, err)

	out := waitOutcome(t, done)
	assert.ErrorIs(t, out.err, wire.ErrEmptyPayload)
	assert.Empty(t, mem.Applied())
}

func TestSessionInvalidUTF8Aborts(t *testing.T) {
	conn, done := startSession(t, context.Background(), newMemory(), testConfig(), nil)
	r := wire.NewMessageReader(conn)

	_, err := r.ReadMessage()
	require.NoError(t, err)
	_, err = conn.Write([]byte{0xff, 0xfe, 0x41})
	require.NoError(t, err)

	out := waitOutcome(t, done)
	assert.ErrorIs(t, out.err, ErrAborted)
	assert.ErrorIs(t, out.err, wire.ErrInvalidText)
}

func TestSessionInvalidUTF8KeepsCaptureReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.plog")
	flog, err := log.NewFileLogger(path)
	require.NoError(t, err)

	conn, done := startSession(t, context.Background(), newMemory(), testConfig(), flog)
	r := wire.NewMessageReader(conn)

	_, err = r.ReadMessage()
	require.NoError(t, err)
	_, err = conn.Write([]byte{0xff, 0xfe, 'x'})
	require.NoError(t, err)
	assert.ErrorIs(t, waitOutcome(t, done).err, wire.ErrInvalidText)
	require.NoError(t, flog.Close())

	reader, err := log.NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	var ssid *log.MessageEvent
	var sawError bool
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if ev.Message != nil && ev.Message.Kind == wire.KindSSID {
			ssid = ev.Message
		}
		if ev.Error != nil {
			sawError = true
		}
	}
	require.NotNil(t, ssid)
	assert.Equal(t, "\uFFFDx", ssid.Text)
	assert.Equal(t, 3, ssid.Size)
	assert.True(t, sawError)
}

func TestSessionPermissionDenied(t *testing.T) {
	mem := newMemory()
	mem.FailApply(wireless.ErrPermission)
	conn, done := startSession(t, context.Background(), mem, testConfig(), nil)
	r := wire.NewMessageReader(conn)

	_, err := r.ReadMessage()
	require.NoError(t, err)
	_, err = conn.Write([]byte("HomeNet"))
	require.NoError(t, err)
	_, err = r.ReadMessage()
	require.NoError(t, err)
	_, err = conn.Write([]byte("secret123"))
	require.NoError(t, err)

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "ip-address:Permission Error!", msg+"!")

	out := waitOutcome(t, done)
	require.NoError(t, out.err)
	assert.Equal(t, OutcomePermissionDenied, out.result.Attempt.Outcome)
	assert.Equal(t, 0, mem.Reloads())
}

func TestSessionScanFailureStillAwaitsSSID(t *testing.T) {
	mem := newMemory()
	mem.FailScan(errors.New("iwlist: exit status 255"))
	conn, done := startSession(t, context.Background(), mem, testConfig(), nil)
	r := wire.NewMessageReader(conn)

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Error scanning!", msg+"!")

	client := NewClient(conn, 5*time.Second)
	addr, err := client.Provision("HiddenNet", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.50", addr)

	out := waitOutcome(t, done)
	require.NoError(t, out.err)
	assert.True(t, out.result.Scan.Failed())
}

func TestSessionNoAddress(t *testing.T) {
	mem := wireless.NewMemory(wireless.DefaultConfig())
	mem.SetNetworks("HomeNet")
	cfg := testConfig()
	cfg.AddressTimeout = 30 * time.Millisecond

	conn, done := startSession(t, context.Background(), mem, cfg, nil)
	client := NewClient(conn, 5*time.Second)
	_, err := client.Networks()
	require.NoError(t, err)

	value, err := client.Provision("HomeNet", "secret123")
	require.NoError(t, err)
	assert.Equal(t, wire.NotSet, value)

	out := waitOutcome(t, done)
	require.NoError(t, out.err)
	assert.Equal(t, OutcomeNotSet, out.result.Attempt.Outcome)
}

func TestSessionReadTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.ReadTimeout = 50 * time.Millisecond
	conn, done := startSession(t, context.Background(), newMemory(), cfg, nil)

	_, err := wire.NewMessageReader(conn).ReadMessage()
	require.NoError(t, err)

	out := waitOutcome(t, done)
	assert.ErrorIs(t, out.err, ErrTransport)
	assert.ErrorIs(t, out.err, ErrReadTimeout)
	assert.NotErrorIs(t, out.err, ErrClientClosed)
}

func TestSessionClientClosed(t *testing.T) {
	conn, done := startSession(t, context.Background(), newMemory(), testConfig(), nil)

	_, err := wire.NewMessageReader(conn).ReadMessage()
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	out := waitOutcome(t, done)
	assert.ErrorIs(t, out.err, ErrTransport)
	assert.ErrorIs(t, out.err, ErrClientClosed)
	assert.Equal(t, StateAborted, out.result.State)
}

func TestSessionCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn, done := startSession(t, ctx, newMemory(), testConfig(), nil)

	_, err := wire.NewMessageReader(conn).ReadMessage()
	require.NoError(t, err)
	cancel()

	out := waitOutcome(t, done)
	assert.ErrorIs(t, out.err, ErrAborted)
	assert.ErrorIs(t, out.err, context.Canceled)
}

func TestSessionRedactsPassphrase(t *testing.T) {
	rec := &recordingLogger{}
	conn, done := startSession(t, context.Background(), newMemory(), testConfig(), rec)
	client := NewClient(conn, 5*time.Second)

	_, err := client.Networks()
	require.NoError(t, err)
	_, err = client.Provision("HomeNet", "secret123")
	require.NoError(t, err)
	require.NoError(t, waitOutcome(t, done).err)

	var kinds []wire.Kind
	var states []string
	for _, ev := range rec.Events() {
		if ev.Message != nil {
			kinds = append(kinds, ev.Message.Kind)
			assert.NotContains(t, ev.Message.Text, "secret123")
			if ev.Message.Kind == wire.KindPSK {
				assert.True(t, ev.Message.Redacted)
				assert.Equal(t, log.DirectionIn, ev.Direction)
			}
		}
		if ev.StateChange != nil {
			states = append(states, ev.StateChange.NewState)
		}
	}
	assert.Equal(t, []wire.Kind{wire.KindScan, wire.KindSSID, wire.KindPSKPrompt, wire.KindPSK, wire.KindResult}, kinds)
	assert.Equal(t, []string{"SCANNING", "AWAITING_SSID", "AWAITING_PSK", "APPLYING", "DONE"}, states)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "AWAITING_PSK", StateAwaitingPSK.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}
