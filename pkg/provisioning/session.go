package provisioning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rpiwc/wifiprov-go/pkg/log"
	"github.com/rpiwc/wifiprov-go/pkg/transport"
	"github.com/rpiwc/wifiprov-go/pkg/wire"
)

// Session errors.
var (
	// ErrTransport indicates the connection failed. Nothing further is sent.
	ErrTransport = errors.New("transport error")

	// ErrReadTimeout indicates the client did not send within the read
	// timeout. It is wrapped together with ErrTransport.
	ErrReadTimeout = errors.New("read timed out")

	// ErrClientClosed indicates the client closed the connection. It is
	// wrapped together with ErrTransport.
	ErrClientClosed = errors.New("client closed connection")

	// ErrAborted indicates the session stopped because of a rejected
	// payload or cancellation.
	ErrAborted = errors.New("session aborted")
)

// State is the position of a session in the exchange.
type State uint8

const (
	StateScanning State = iota
	StateAwaitingSSID
	StateAwaitingPSK
	StateApplying
	StateDone
	StateAborted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateScanning:
		return "SCANNING"
	case StateAwaitingSSID:
		return "AWAITING_SSID"
	case StateAwaitingPSK:
		return "AWAITING_PSK"
	case StateApplying:
		return "APPLYING"
	case StateDone:
		return "DONE"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Result summarises a finished session.
type Result struct {
	SessionID  string
	RemoteAddr string

	// State is StateDone or StateAborted.
	State State

	// Scan is the scan reported to the client.
	Scan ScanResult

	// SSID is the network the client chose, if it got that far.
	SSID string

	// Attempt is set once the session reached Applying.
	Attempt *Attempt

	Started  time.Time
	Finished time.Time
}

// Session runs the provisioning exchange with one connected client. A
// session is used once and never outlives its connection.
type Session struct {
	mu    sync.RWMutex
	state State

	id           string
	conn         transport.Conn
	config       Config
	scanner      *Scanner
	configurator *Configurator

	logger         *slog.Logger
	protocolLogger log.Logger
}

// NewSession creates a session bound to conn.
func NewSession(conn transport.Conn, scanner *Scanner, configurator *Configurator, config Config) *Session {
	if config.MaxPayload <= 0 {
		config.MaxPayload = wire.DefaultMaxPayload
	}
	return &Session{
		id:           uuid.NewString(),
		conn:         conn,
		config:       config,
		scanner:      scanner,
		configurator: configurator,
	}
}

// SetLogger sets the operational logger.
func (s *Session) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// SetProtocolLogger sets the protocol capture logger.
func (s *Session) SetProtocolLogger(logger log.Logger) {
	s.protocolLogger = logger
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Run performs the exchange. It returns a nil error when the result message
// was delivered. The connection is not closed by Run except when ctx is
// cancelled, which closes it to unblock pending I/O.
func (s *Session) Run(ctx context.Context) (Result, error) {
	res := Result{
		SessionID:  s.id,
		RemoteAddr: remoteAddr(s.conn),
		Started:    time.Now(),
	}

	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	s.logState("", StateScanning, "")
	res.Scan = s.scanner.Scan(ctx)
	if err := s.send(ctx, wire.KindScan, res.Scan.Encode()); err != nil {
		return s.abort(res, err)
	}

	s.transition(StateAwaitingSSID, "")
	ssid, err := s.receive(ctx, wire.KindSSID)
	if err != nil {
		return s.abort(res, err)
	}
	res.SSID = ssid

	s.transition(StateAwaitingPSK, "")
	if err := s.send(ctx, wire.KindPSKPrompt, wire.EncodePSKPrompt()); err != nil {
		return s.abort(res, err)
	}
	psk, err := s.receive(ctx, wire.KindPSK)
	if err != nil {
		return s.abort(res, err)
	}

	s.transition(StateApplying, "")
	attempt := s.configurator.Apply(ctx, Request{SSID: ssid, PSK: psk})
	res.Attempt = &attempt
	s.debugLog("configuration attempt", "ssid", ssid, "outcome", attempt.Outcome, "value", attempt.Value())

	if err := s.send(ctx, wire.KindResult, wire.EncodeResult(attempt.Value())); err != nil {
		return s.abort(res, err)
	}

	s.transition(StateDone, attempt.Outcome.String())
	res.State = StateDone
	res.Finished = time.Now()
	return res, nil
}

func (s *Session) abort(res Result, err error) (Result, error) {
	s.logError(err)
	s.transition(StateAborted, err.Error())
	res.State = StateAborted
	res.Finished = time.Now()
	return res, err
}

// send writes one server message in full.
func (s *Session) send(ctx context.Context, kind wire.Kind, data []byte) error {
	if s.config.WriteTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	if _, err := s.conn.Write(data); err != nil {
		return s.ioError(ctx, "write "+kind.String(), err)
	}
	s.logMessage(log.DirectionOut, kind, data, false)
	return nil
}

// receive performs the single bounded read that carries a client message.
func (s *Session) receive(ctx context.Context, kind wire.Kind) (string, error) {
	if s.config.ReadTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}
	buf := make([]byte, s.config.MaxPayload)
	n, err := s.conn.Read(buf)
	if n == 0 && err != nil {
		return "", s.ioError(ctx, "read "+kind.String(), err)
	}

	text, err := wire.DecodeText(buf[:n])
	s.logMessage(log.DirectionIn, kind, buf[:n], kind == wire.KindPSK)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrAborted, kind, err)
	}
	return text, nil
}

// ioError classifies a connection error.
func (s *Session) ioError(ctx context.Context, op string, err error) error {
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %s: %w", ErrAborted, op, ctx.Err())
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%w: %s: %w", ErrTransport, op, ErrReadTimeout)
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: %s: %w", ErrTransport, op, ErrClientClosed)
	default:
		return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
	}
}

func (s *Session) transition(to State, reason string) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()
	s.logState(from.String(), to, reason)
}

func (s *Session) logState(from string, to State, reason string) {
	s.debugLog("session state", "session_id", s.id, "from", from, "to", to, "reason", reason)
	if s.protocolLogger == nil {
		return
	}
	s.protocolLogger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  s.id,
		Layer:      log.LayerSession,
		Category:   log.CategoryState,
		RemoteAddr: remoteAddr(s.conn),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			OldState: from,
			NewState: to.String(),
			Reason:   reason,
		},
	})
}

func (s *Session) logMessage(dir log.Direction, kind wire.Kind, data []byte, redact bool) {
	if s.protocolLogger == nil {
		return
	}
	msg := &log.MessageEvent{Kind: kind, Size: len(data), Redacted: redact}
	if !redact {
		msg.Text = log.ValidText(data)
	}
	s.protocolLogger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  s.id,
		Direction:  dir,
		Layer:      log.LayerSession,
		Category:   log.CategoryMessage,
		RemoteAddr: remoteAddr(s.conn),
		Message:    msg,
	})
}

func (s *Session) logError(err error) {
	if s.logger != nil {
		s.logger.Info("session aborted", "session_id", s.id, "error", err)
	}
	if s.protocolLogger == nil {
		return
	}
	s.protocolLogger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  s.id,
		Layer:      log.LayerSession,
		Category:   log.CategoryError,
		RemoteAddr: remoteAddr(s.conn),
		Error: &log.ErrorEventData{
			Layer:   log.LayerSession,
			Message: log.ValidText([]byte(err.Error())),
			Context: s.State().String(),
		},
	})
}

func (s *Session) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func remoteAddr(conn transport.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
