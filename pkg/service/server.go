package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rpiwc/wifiprov-go/pkg/connection"
	"github.com/rpiwc/wifiprov-go/pkg/discovery"
	"github.com/rpiwc/wifiprov-go/pkg/log"
	"github.com/rpiwc/wifiprov-go/pkg/provisioning"
	"github.com/rpiwc/wifiprov-go/pkg/transport"
	"github.com/rpiwc/wifiprov-go/pkg/wireless"
)

// Server accepts provisioning clients one at a time.
type Server struct {
	mu sync.RWMutex

	endpoint transport.Endpoint
	config   ServerConfig
	state    ServiceState

	scanner      *provisioning.Scanner
	configurator *provisioning.Configurator
	backoff      *connection.Backoff

	eventHandlers []EventHandler
}

// NewServer creates a server that provisions w through clients accepted on
// endpoint.
func NewServer(endpoint transport.Endpoint, w wireless.Wireless, config ServerConfig) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	resolver := provisioning.NewResolver(w, config.Session.AddressTimeout, config.Session.PollInterval, logger)

	return &Server{
		endpoint:     endpoint,
		config:       config,
		scanner:      provisioning.NewScanner(w, logger),
		configurator: provisioning.NewConfigurator(w, resolver, config.Session.SettleDelay, logger),
		backoff:      connection.NewBackoffWithConfig(config.Bind.BackoffConfig),
	}, nil
}

// OnEvent registers an event handler. Handlers run on their own goroutine.
func (s *Server) OnEvent(handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventHandlers = append(s.eventHandlers, handler)
}

// State returns the server state.
func (s *Server) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Run serves clients until ctx is cancelled or the endpoint cannot be bound.
// Cancellation returns nil; a bind failure returns an error wrapping
// ErrRadio. Session failures are reported as events and never stop the loop.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.state = StateRunning
	s.mu.Unlock()

	defer func() {
		if s.config.Announcer != nil {
			_ = s.config.Announcer.Stop()
		}
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
	}()

	for ctx.Err() == nil {
		_, err := s.ServeOne(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrRadio):
			return err
		case err != nil:
			s.debugLog("session ended with error", "error", err)
		}
	}
	return nil
}

// ServeOne opens a binding, serves exactly one client and closes the
// binding again. The returned error is the session error, a context error,
// or an error wrapping ErrRadio when binding failed.
func (s *Server) ServeOne(ctx context.Context) (provisioning.Result, error) {
	binding, err := s.open(ctx)
	if err != nil {
		return provisioning.Result{}, err
	}
	defer s.closeBinding(binding)

	s.logState(log.StateEntityBinding, "", "OPEN", binding.Addr(), "")
	s.emitEvent(Event{Type: EventListening, Binding: binding.Addr()})
	if s.config.Logger != nil {
		s.config.Logger.Info("waiting for provisioning client", "binding", binding.Addr())
	}

	conn, err := binding.Accept(ctx)
	if err != nil {
		return provisioning.Result{}, fmt.Errorf("accept: %w", err)
	}

	session := provisioning.NewSession(conn, s.scanner, s.configurator, s.config.Session)
	session.SetLogger(s.config.Logger)
	if s.config.ProtocolLogger != nil {
		session.SetProtocolLogger(s.config.ProtocolLogger)
	}

	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	s.logState(log.StateEntityConnection, "", "CONNECTED", remote, session.ID())
	s.emitEvent(Event{Type: EventSessionStarted, SessionID: session.ID(), RemoteAddr: remote})
	if s.config.Logger != nil {
		s.config.Logger.Info("client connected", "session_id", session.ID(), "remote", remote)
	}

	res, err := session.Run(ctx)
	_ = conn.Close()
	s.logState(log.StateEntityConnection, "CONNECTED", "CLOSED", remote, session.ID())

	if err != nil {
		s.emitEvent(Event{Type: EventSessionAborted, SessionID: res.SessionID, RemoteAddr: remote, Result: &res, Error: err})
		return res, err
	}

	s.emitEvent(Event{Type: EventSessionFinished, SessionID: res.SessionID, RemoteAddr: remote, Result: &res})
	if s.config.Logger != nil {
		s.config.Logger.Info("client provisioned",
			"session_id", res.SessionID, "ssid", res.SSID, "result", res.Attempt.Value(),
			"duration", res.Finished.Sub(res.Started).Round(time.Millisecond))
	}
	s.announce(ctx, res)
	return res, nil
}

// open binds the endpoint, retrying with backoff.
func (s *Server) open(ctx context.Context) (transport.Binding, error) {
	failures := 0
	for {
		binding, err := s.endpoint.Open(ctx)
		if err == nil {
			s.backoff.Reset()
			return binding, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		failures++
		s.logError(log.LayerTransport, err, "bind")
		s.emitEvent(Event{Type: EventBindFailed, Attempt: failures, Error: err})
		if s.config.Logger != nil {
			s.config.Logger.Warn("bind failed", "attempt", failures, "error", err)
		}

		if limit := s.config.Bind.MaxAttempts; limit > 0 && failures >= limit {
			return nil, fmt.Errorf("%w: %d consecutive bind failures: %w", ErrRadio, failures, err)
		}
		if err := s.backoff.Wait(ctx); err != nil {
			return nil, err
		}
	}
}

func (s *Server) closeBinding(binding transport.Binding) {
	if err := binding.Close(); err != nil {
		s.debugLog("closing binding failed", "binding", binding.Addr(), "error", err)
	}
	s.logState(log.StateEntityBinding, "OPEN", "CLOSED", binding.Addr(), "")
}

// announce publishes a device that resolved an address.
func (s *Server) announce(ctx context.Context, res provisioning.Result) {
	if s.config.Announcer == nil || res.Attempt == nil || res.Attempt.Outcome != provisioning.OutcomeAddress {
		return
	}
	err := s.config.Announcer.Announce(ctx, &discovery.ProvisionedInfo{
		SSID:    res.SSID,
		Address: res.Attempt.Address,
		Port:    s.config.AnnouncePort,
	})
	if err != nil {
		s.logError(log.LayerTransport, err, "announce")
		s.emitEvent(Event{Type: EventAnnounceFailed, SessionID: res.SessionID, Error: err})
		return
	}
	s.emitEvent(Event{Type: EventAnnounced, SessionID: res.SessionID})
}

func (s *Server) emitEvent(event Event) {
	s.mu.RLock()
	handlers := s.eventHandlers
	s.mu.RUnlock()
	for _, handler := range handlers {
		go handler(event)
	}
}

func (s *Server) logState(entity log.StateEntity, from, to, remote, sessionID string) {
	if s.config.ProtocolLogger == nil {
		return
	}
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  sessionID,
		Layer:      log.LayerTransport,
		Category:   log.CategoryState,
		RemoteAddr: remote,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: from,
			NewState: to,
		},
	})
}

func (s *Server) logError(layer log.Layer, err error, op string) {
	if s.config.ProtocolLogger == nil {
		return
	}
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     layer,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: op,
		},
	})
}

func (s *Server) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}
