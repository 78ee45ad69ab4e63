package wireless

import (
	"context"
	"errors"
)

// ErrPermission indicates the configuration file could not be written due to
// insufficient privileges.
var ErrPermission = errors.New("permission denied writing wireless configuration")

// Credentials are the network name and passphrase submitted by a client.
type Credentials struct {
	SSID string
	PSK  string
}

// Wireless is the capability set the provisioning session needs from the OS.
type Wireless interface {
	// Scan returns the raw network names visible on the wireless interface,
	// possibly with duplicates and empty entries.
	Scan(ctx context.Context) ([]string, error)

	// ApplyCredentials replaces the persisted configuration with a single
	// network built from creds. Permission failures wrap ErrPermission.
	ApplyCredentials(ctx context.Context, creds Credentials) error

	// Reload asks the supplicant to re-read its configuration.
	Reload(ctx context.Context) error

	// CurrentAddresses returns the locally assigned addresses, wireless
	// interface first. An empty slice means no address is assigned.
	CurrentAddresses(ctx context.Context) ([]string, error)
}

// Config holds the fixed wireless parameters of the device.
type Config struct {
	// Interface is the wireless interface name (e.g. "wlan0").
	Interface string `yaml:"interface"`

	// Country is the regulatory domain written to the configuration.
	Country string `yaml:"country"`

	// ConfigPath is the wpa_supplicant configuration file.
	ConfigPath string `yaml:"config_path"`

	// CtrlInterface is the ctrl_interface line written to the supplicant file.
	CtrlInterface string `yaml:"ctrl_interface"`

	// HashPassphrase stores the derived 256-bit PSK instead of the
	// plaintext passphrase.
	HashPassphrase bool `yaml:"hash_passphrase"`

	// ScanCommand overrides the scan invocation. Default: iwlist <iface> scan.
	ScanCommand []string `yaml:"scan_command"`

	// ReloadCommand overrides the reload invocation.
	// Default: wpa_cli -i <iface> reconfigure.
	ReloadCommand []string `yaml:"reload_command"`
}

// DefaultConfig returns the configuration of a stock Raspberry Pi image.
func DefaultConfig() Config {
	return Config{
		Interface:      "wlan0",
		Country:        "IN",
		ConfigPath:     "/etc/wpa_supplicant/wpa_supplicant.conf",
		CtrlInterface:  "DIR=/var/run/wpa_supplicant GROUP=netdev",
		HashPassphrase: true,
	}
}

func (c Config) scanCommand() []string {
	if len(c.ScanCommand) > 0 {
		return c.ScanCommand
	}
	return []string{"iwlist", c.Interface, "scan"}
}

func (c Config) reloadCommand() []string {
	if len(c.ReloadCommand) > 0 {
		return c.ReloadCommand
	}
	return []string{"wpa_cli", "-i", c.Interface, "reconfigure"}
}
