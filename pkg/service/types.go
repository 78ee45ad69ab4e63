package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rpiwc/wifiprov-go/pkg/connection"
	"github.com/rpiwc/wifiprov-go/pkg/discovery"
	"github.com/rpiwc/wifiprov-go/pkg/log"
	"github.com/rpiwc/wifiprov-go/pkg/provisioning"
)

// Service errors.
var (
	// ErrRadio indicates the endpoint could not be bound or advertised
	// within the configured number of attempts.
	ErrRadio = errors.New("radio unavailable")

	ErrAlreadyRunning = errors.New("server already running")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// ServiceState represents the server state.
type ServiceState uint8

const (
	// StateIdle - server created but not started.
	StateIdle ServiceState = iota

	// StateRunning - accept loop active.
	StateRunning

	// StateStopped - accept loop has returned.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// BindConfig controls bind retries.
type BindConfig struct {
	connection.BackoffConfig `yaml:",inline"`

	// MaxAttempts is the number of consecutive failed binds tolerated
	// before giving up. Zero retries forever.
	MaxAttempts int `yaml:"max_attempts"`
}

// ServerConfig configures a Server.
type ServerConfig struct {
	// Session bounds each provisioning session.
	Session provisioning.Config

	// Bind controls retries of failed binds.
	Bind BindConfig

	// Announcer publishes provisioned devices. Optional.
	Announcer discovery.Announcer

	// AnnouncePort is published with announcements.
	AnnouncePort uint16

	// Logger receives operational logs. Optional.
	Logger *slog.Logger

	// ProtocolLogger captures protocol events. Optional.
	ProtocolLogger log.Logger
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Session: provisioning.DefaultConfig(),
		Bind: BindConfig{
			BackoffConfig: connection.BackoffConfig{
				Initial:    connection.InitialBackoff,
				Max:        connection.MaxBackoff,
				Multiplier: connection.BackoffMultiplier,
				Jitter:     connection.JitterFactor,
			},
		},
		AnnouncePort: discovery.DefaultPort,
	}
}

// Validate checks the configuration.
func (c ServerConfig) Validate() error {
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Bind.MaxAttempts < 0 {
		return fmt.Errorf("%w: bind max_attempts must not be negative", ErrInvalidConfig)
	}
	return nil
}

// EventType identifies server events.
type EventType uint8

const (
	// EventListening - a binding is open and waiting for a client.
	EventListening EventType = iota

	// EventBindFailed - opening a binding failed and will be retried.
	EventBindFailed

	// EventSessionStarted - a client was accepted.
	EventSessionStarted

	// EventSessionFinished - the result message was delivered.
	EventSessionFinished

	// EventSessionAborted - the session ended without a result message.
	EventSessionAborted

	// EventAnnounced - the provisioned device was announced on the LAN.
	EventAnnounced

	// EventAnnounceFailed - the announcement could not be registered.
	EventAnnounceFailed
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventListening:
		return "LISTENING"
	case EventBindFailed:
		return "BIND_FAILED"
	case EventSessionStarted:
		return "SESSION_STARTED"
	case EventSessionFinished:
		return "SESSION_FINISHED"
	case EventSessionAborted:
		return "SESSION_ABORTED"
	case EventAnnounced:
		return "ANNOUNCED"
	case EventAnnounceFailed:
		return "ANNOUNCE_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Event is a server event.
type Event struct {
	// Type is the event type.
	Type EventType

	// Binding describes the bound endpoint (listening and bind events).
	Binding string

	// Attempt counts consecutive bind failures (bind events).
	Attempt int

	// SessionID identifies the session (session and announce events).
	SessionID string

	// RemoteAddr is the client address (session events).
	RemoteAddr string

	// Result is set for finished and aborted sessions.
	Result *provisioning.Result

	// Error is set if the event is an error.
	Error error
}

// EventHandler handles server events.
type EventHandler func(Event)
