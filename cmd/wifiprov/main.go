// Command wifiprov is the companion client of wifiprovd.
//
// It connects to a device over Bluetooth (or TCP for development), shows
// the networks the device can see, sends the chosen network and passphrase
// and prints the address the device obtained.
//
// Usage:
//
//	wifiprov provision --device B8:27:EB:12:34:56
//	wifiprov provision --transport tcp --address 127.0.0.1:7800 --ssid HomeNet
//	wifiprov find HomeNet
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpiwc/wifiprov-go/pkg/bluetooth"
	"github.com/rpiwc/wifiprov-go/pkg/config"
)

// Options are the flags shared by all commands.
type Options struct {
	Transport   string
	Address     string
	Device      string
	Adapter     string
	ServiceUUID string
	Timeout     time.Duration
	Verbose     bool
}

var opts Options

var rootCmd = &cobra.Command{
	Use:           "wifiprov",
	Short:         "Provision Wi-Fi on a headless device over Bluetooth",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.Transport, "transport", config.TransportBluetooth, "connection: bluetooth, tcp")
	flags.StringVar(&opts.Address, "address", config.DefaultTCPAddress, "device address for the tcp transport")
	flags.StringVarP(&opts.Device, "device", "d", "", "device Bluetooth address (AA:BB:CC:DD:EE:FF)")
	flags.StringVar(&opts.Adapter, "adapter", bluetooth.DefaultAdapter, "local Bluetooth adapter")
	flags.StringVar(&opts.ServiceUUID, "service-uuid", bluetooth.DefaultServiceUUID, "provisioning service UUID")
	flags.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "time to wait for each device message")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newProvisionCmd(), newFindCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
