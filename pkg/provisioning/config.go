package provisioning

import (
	"errors"
	"fmt"
	"time"

	"github.com/rpiwc/wifiprov-go/pkg/wire"
)

// Session defaults.
const (
	DefaultReadTimeout    = 2 * time.Minute
	DefaultWriteTimeout   = 10 * time.Second
	DefaultSettleDelay    = 3 * time.Second
	DefaultAddressTimeout = 30 * time.Second
	DefaultPollInterval   = 1 * time.Second
)

// ErrInvalidConfig indicates unusable session settings.
var ErrInvalidConfig = errors.New("invalid session configuration")

// Config bounds every blocking step of a session.
type Config struct {
	// ReadTimeout bounds each client read. Zero waits indefinitely.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds each server message. Zero waits indefinitely.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxPayload is the size of the single read for SSID and passphrase.
	MaxPayload int `yaml:"max_payload"`

	// SettleDelay is waited after reloading the supplicant before the
	// first address lookup.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// AddressTimeout bounds the address poll after the settle delay.
	// Zero performs a single lookup.
	AddressTimeout time.Duration `yaml:"address_timeout"`

	// PollInterval is the spacing of address lookups.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// DefaultConfig returns the default session settings.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:    DefaultReadTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		MaxPayload:     wire.DefaultMaxPayload,
		SettleDelay:    DefaultSettleDelay,
		AddressTimeout: DefaultAddressTimeout,
		PollInterval:   DefaultPollInterval,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	switch {
	case c.MaxPayload <= 0:
		return fmt.Errorf("%w: max_payload must be positive", ErrInvalidConfig)
	case c.ReadTimeout < 0, c.WriteTimeout < 0, c.SettleDelay < 0, c.AddressTimeout < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	case c.AddressTimeout > 0 && c.PollInterval <= 0:
		return fmt.Errorf("%w: poll_interval must be positive when address_timeout is set", ErrInvalidConfig)
	}
	return nil
}
