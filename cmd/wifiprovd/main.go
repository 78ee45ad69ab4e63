// Command wifiprovd provisions the Wi-Fi credentials of a headless device
// over Bluetooth.
//
// The daemon advertises an RFCOMM service, serves one client at a time
// through the five-message exchange, writes the chosen network into the
// wpa_supplicant configuration and reports the address the device obtained.
//
// Usage:
//
//	wifiprovd [flags]
//
// Flags:
//
//	-config string        Configuration file path
//	-transport string     Listener: bluetooth, tcp (default from config, "bluetooth")
//	-tcp string           Listen address for the tcp transport
//	-adapter string       Bluetooth adapter name
//	-channel int          RFCOMM channel (0 = assigned by BlueZ)
//	-interface string     Wireless interface
//	-announce             Announce provisioned devices via mDNS
//	-simulate             Use an in-memory wireless stack
//	-protocol-log string  File path for protocol event logging (CBOR format)
//	-log-level string     Log level: debug, info, warn, error
//
// Examples:
//
//	# Run on a Raspberry Pi with defaults
//	sudo wifiprovd
//
//	# Develop against the simulated stack over TCP
//	wifiprovd -simulate -transport tcp -tcp 127.0.0.1:7800 -log-level debug
//
//	# Capture every session for later inspection with wifiprov-log
//	wifiprovd -config /etc/wifiprov/wifiprovd.yaml -protocol-log /var/log/wifiprov.plog
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rpiwc/wifiprov-go/pkg/bluetooth"
	"github.com/rpiwc/wifiprov-go/pkg/config"
	"github.com/rpiwc/wifiprov-go/pkg/discovery"
	wplog "github.com/rpiwc/wifiprov-go/pkg/log"
	"github.com/rpiwc/wifiprov-go/pkg/service"
	"github.com/rpiwc/wifiprov-go/pkg/transport"
	"github.com/rpiwc/wifiprov-go/pkg/wireless"
)

// Flags holds the command-line values. Only flags that were set override
// the configuration file.
type Flags struct {
	ConfigFile  string
	Transport   string
	TCPAddress  string
	Adapter     string
	Channel     uint
	Interface   string
	Announce    bool
	Simulate    bool
	ProtocolLog string
	LogLevel    string
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&flags.Transport, "transport", config.TransportBluetooth, "Listener: bluetooth, tcp")
	flag.StringVar(&flags.TCPAddress, "tcp", config.DefaultTCPAddress, "Listen address for the tcp transport")
	flag.StringVar(&flags.Adapter, "adapter", bluetooth.DefaultAdapter, "Bluetooth adapter name")
	flag.UintVar(&flags.Channel, "channel", 0, "RFCOMM channel (0 = assigned by BlueZ)")
	flag.StringVar(&flags.Interface, "interface", "wlan0", "Wireless interface")
	flag.BoolVar(&flags.Announce, "announce", false, "Announce provisioned devices via mDNS")
	flag.BoolVar(&flags.Simulate, "simulate", false, "Use an in-memory wireless stack")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "File path for protocol event logging (CBOR format)")
	flag.StringVar(&flags.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig(flags, setFlags())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Error("wifiprovd stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srvConfig := cfg.Server()
	srvConfig.Logger = logger

	// Set up protocol logging if requested
	if cfg.ProtocolLog != "" {
		fileLogger, err := wplog.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return fmt.Errorf("create protocol logger: %w", err)
		}
		defer fileLogger.Close()
		srvConfig.ProtocolLogger = wplog.NewMultiLogger(fileLogger, wplog.NewSlogAdapter(logger))
		logger.Info("protocol logging enabled", "path", cfg.ProtocolLog)
	}

	if cfg.Announce.Enabled {
		announcerConfig := discovery.DefaultAnnouncerConfig()
		announcerConfig.ServiceType = cfg.Announce.ServiceType
		announcerConfig.Interface = cfg.Wireless.Interface
		announcerConfig.Logger = logger
		srvConfig.Announcer = discovery.NewMDNSAnnouncer(announcerConfig)
	}

	srv, err := service.NewServer(newEndpoint(cfg, logger), newWireless(cfg, flags.Simulate, logger), srvConfig)
	if err != nil {
		return err
	}
	srv.OnEvent(eventLogger(logger))

	logger.Info("wifiprovd starting",
		"transport", cfg.Transport,
		"interface", cfg.Wireless.Interface,
		"simulate", flags.Simulate)

	err = srv.Run(ctx)
	if errors.Is(err, service.ErrRadio) {
		return fmt.Errorf("bluetooth radio unavailable: %w", err)
	}
	if err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// setFlags returns the names of the flags given on the command line.
func setFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// loadConfig reads the configuration file, if any, and applies the flags
// named in set on top of it.
func loadConfig(f Flags, set map[string]bool) (config.Config, error) {
	cfg := config.Default()
	if f.ConfigFile != "" {
		loaded, err := config.Load(f.ConfigFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if set["transport"] {
		cfg.Transport = f.Transport
	}
	if set["tcp"] {
		cfg.TCPAddress = f.TCPAddress
	}
	if set["adapter"] {
		cfg.Bluetooth.Adapter = f.Adapter
	}
	if set["channel"] {
		cfg.Bluetooth.Channel = uint16(f.Channel)
	}
	if set["interface"] {
		cfg.Wireless.Interface = f.Interface
	}
	if set["announce"] {
		cfg.Announce.Enabled = f.Announce
	}
	if set["protocol-log"] {
		cfg.ProtocolLog = f.ProtocolLog
	}
	if set["log-level"] {
		cfg.LogLevel = f.LogLevel
	}

	if f.Channel > bluetooth.MaxChannel {
		return config.Config{}, fmt.Errorf("%w: channel %d out of range", config.ErrInvalid, f.Channel)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if lvl == slog.LevelDebug {
		opts.AddSource = true
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newEndpoint(cfg config.Config, logger *slog.Logger) transport.Endpoint {
	if cfg.Transport == config.TransportTCP {
		return &transport.TCPEndpoint{Address: cfg.TCPAddress}
	}
	return bluetooth.NewEndpoint(cfg.Bluetooth, logger)
}

func newWireless(cfg config.Config, simulate bool, logger *slog.Logger) wireless.Wireless {
	if simulate {
		return newSimulatedWireless(cfg.Wireless, logger)
	}
	return wireless.NewOS(cfg.Wireless, wireless.WithLogger(logger))
}
