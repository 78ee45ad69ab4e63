package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpiwc/wifiprov-go/pkg/bluetooth"
	"github.com/rpiwc/wifiprov-go/pkg/config"
	"github.com/rpiwc/wifiprov-go/pkg/transport"
	"github.com/rpiwc/wifiprov-go/pkg/wireless"
)

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifiprovd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport: tcp\ntcp_address: 127.0.0.1:9000\nlog_level: warn\n"), 0o644))

	f := Flags{ConfigFile: path, LogLevel: "debug", Transport: "bluetooth", Channel: 7}
	cfg, err := loadConfig(f, map[string]bool{"log-level": true, "channel": true})
	require.NoError(t, err)

	assert.Equal(t, config.TransportTCP, cfg.Transport)
	assert.Equal(t, "127.0.0.1:9000", cfg.TCPAddress)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.EqualValues(t, 7, cfg.Bluetooth.Channel)
}

func TestLoadConfigRejectsChannel(t *testing.T) {
	_, err := loadConfig(Flags{Channel: 70000}, map[string]bool{"channel": true})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(Flags{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")}, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewEndpoint(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	cfg := config.Default()

	_, ok := newEndpoint(cfg, logger).(*bluetooth.Endpoint)
	assert.True(t, ok)

	cfg.Transport = config.TransportTCP
	ep, ok := newEndpoint(cfg, logger).(*transport.TCPEndpoint)
	require.True(t, ok)
	assert.Equal(t, config.DefaultTCPAddress, ep.Address)
}

func TestNewWirelessSimulated(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	w := newWireless(config.Default(), true, logger)

	m, ok := w.(*wireless.Memory)
	require.True(t, ok)
	names, err := m.Scan(t.Context())
	require.NoError(t, err)
	assert.Equal(t, simulatedNetworks, names)

	_, ok = newWireless(config.Default(), false, logger).(*wireless.OS)
	assert.True(t, ok)
}
