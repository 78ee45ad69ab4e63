package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rpiwc/wifiprov-go/pkg/bluetooth"
	"github.com/rpiwc/wifiprov-go/pkg/discovery"
	"github.com/rpiwc/wifiprov-go/pkg/provisioning"
	"github.com/rpiwc/wifiprov-go/pkg/service"
	"github.com/rpiwc/wifiprov-go/pkg/wireless"
)

// Transport names.
const (
	TransportBluetooth = "bluetooth"
	TransportTCP       = "tcp"
)

// DefaultTCPAddress is used by the tcp transport when none is configured.
const DefaultTCPAddress = "127.0.0.1:7800"

// ErrInvalid indicates a configuration value is out of range.
var ErrInvalid = errors.New("invalid configuration")

// Config is the daemon configuration.
type Config struct {
	// Transport selects the listener: bluetooth or tcp.
	Transport string `yaml:"transport"`

	// TCPAddress is the listen address of the tcp transport.
	TCPAddress string `yaml:"tcp_address"`

	Bluetooth bluetooth.Config    `yaml:"bluetooth"`
	Wireless  wireless.Config     `yaml:"wireless"`
	Session   provisioning.Config `yaml:"session"`
	Bind      service.BindConfig  `yaml:"bind"`
	Announce  AnnounceConfig      `yaml:"announce"`

	// ProtocolLog is a capture file path. Empty disables capture.
	ProtocolLog string `yaml:"protocol_log"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// AnnounceConfig controls the mDNS announcement after provisioning.
type AnnounceConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceType string `yaml:"service_type"`
	Port        uint16 `yaml:"port"`
}

// Default returns the built-in configuration.
func Default() Config {
	srv := service.DefaultServerConfig()
	return Config{
		Transport:  TransportBluetooth,
		TCPAddress: DefaultTCPAddress,
		Bluetooth:  bluetooth.DefaultConfig(),
		Wireless:   wireless.DefaultConfig(),
		Session:    srv.Session,
		Bind:       srv.Bind,
		Announce: AnnounceConfig{
			ServiceType: discovery.ServiceType,
			Port:        discovery.DefaultPort,
		},
		LogLevel: "info",
	}
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportBluetooth:
		if err := c.Bluetooth.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	case TransportTCP:
		if _, _, err := net.SplitHostPort(c.TCPAddress); err != nil {
			return fmt.Errorf("%w: tcp_address: %w", ErrInvalid, err)
		}
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalid, c.Transport)
	}

	if c.Wireless.Interface == "" {
		return fmt.Errorf("%w: wireless interface is required", ErrInvalid)
	}
	if c.Wireless.ConfigPath == "" {
		return fmt.Errorf("%w: wireless config_path is required", ErrInvalid)
	}
	if len(c.Wireless.Country) != 2 {
		return fmt.Errorf("%w: wireless country must be a two-letter code, got %q", ErrInvalid, c.Wireless.Country)
	}
	if err := c.Server().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Announce.Enabled && !strings.HasPrefix(c.Announce.ServiceType, "_") {
		return fmt.Errorf("%w: announce service_type %q", ErrInvalid, c.Announce.ServiceType)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

// Server returns the server settings. Logger, protocol logger and
// announcer are left for the caller to attach.
func (c Config) Server() service.ServerConfig {
	srv := service.DefaultServerConfig()
	srv.Session = c.Session
	srv.Bind = c.Bind
	srv.AnnouncePort = c.Announce.Port
	return srv
}
