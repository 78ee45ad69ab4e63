package wireless

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os/exec"
	"strings"

	"github.com/facebookgo/atomicfile"
)

// CommandRunner runs an external command and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Interface is a network interface with its assigned addresses.
type Interface struct {
	Name  string
	Flags net.Flags
	Addrs []net.Addr
}

// InterfaceLister enumerates the host's network interfaces.
type InterfaceLister func() ([]Interface, error)

// OS implements Wireless with iwlist, wpa_supplicant and wpa_cli.
type OS struct {
	config     Config
	run        CommandRunner
	interfaces InterfaceLister
	logger     *slog.Logger
}

// Option configures an OS adapter.
type Option func(*OS)

// WithCommandRunner replaces the external command runner.
func WithCommandRunner(run CommandRunner) Option {
	return func(o *OS) { o.run = run }
}

// WithInterfaceLister replaces the interface enumeration.
func WithInterfaceLister(list InterfaceLister) Option {
	return func(o *OS) { o.interfaces = list }
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *OS) { o.logger = logger }
}

// NewOS creates an OS-backed Wireless.
func NewOS(config Config, opts ...Option) *OS {
	o := &OS{
		config:     config,
		run:        runCommand,
		interfaces: systemInterfaces,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Scan runs the scan command and returns every ESSID it reports.
func (o *OS) Scan(ctx context.Context) ([]string, error) {
	argv := o.config.scanCommand()
	out, err := o.run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", o.config.Interface, err)
	}
	names := ParseESSIDs(out)
	o.debugLog("scan complete", "interface", o.config.Interface, "entries", len(names))
	return names, nil
}

// ApplyCredentials atomically replaces the supplicant configuration file.
func (o *OS) ApplyCredentials(_ context.Context, creds Credentials) error {
	doc := RenderSupplicantConfig(o.config, creds)

	f, err := atomicfile.New(o.config.ConfigPath, 0600)
	if err != nil {
		return o.writeError(err)
	}
	if _, err := f.Write(doc); err != nil {
		_ = f.Abort()
		return o.writeError(err)
	}
	if err := f.Close(); err != nil {
		return o.writeError(err)
	}

	o.debugLog("wireless configuration written", "path", o.config.ConfigPath, "ssid", creds.SSID)
	return nil
}

// Reload asks wpa_supplicant to re-read its configuration. This keeps the
// interface up instead of cycling it.
func (o *OS) Reload(ctx context.Context) error {
	argv := o.config.reloadCommand()
	out, err := o.run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return fmt.Errorf("reload %s: %w", o.config.Interface, err)
	}
	// wpa_cli exits 0 even when the supplicant rejects the request.
	if reply := strings.TrimSpace(string(out)); reply != "" && reply != "OK" {
		return fmt.Errorf("reload %s: supplicant replied %q", o.config.Interface, reply)
	}
	return nil
}

// CurrentAddresses lists global and private addresses of all interfaces
// that are up, the wireless interface first and IPv4 before IPv6 within
// each interface.
func (o *OS) CurrentAddresses(_ context.Context) ([]string, error) {
	ifaces, err := o.interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	var primary, rest []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs := usableAddrs(iface.Addrs)
		if iface.Name == o.config.Interface {
			primary = append(primary, addrs...)
		} else {
			rest = append(rest, addrs...)
		}
	}
	return append(primary, rest...), nil
}

func (o *OS) writeError(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %w", ErrPermission, err)
	}
	return fmt.Errorf("write %s: %w", o.config.ConfigPath, err)
}

func (o *OS) debugLog(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}

func usableAddrs(addrs []net.Addr) []string {
	var v4, v6 []string
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		default:
			continue
		}
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			continue
		}
		if ip.To4() != nil {
			v4 = append(v4, ip.String())
		} else {
			v6 = append(v6, ip.String())
		}
	}
	return append(v4, v6...)
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func systemInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		out = append(out, Interface{Name: iface.Name, Flags: iface.Flags, Addrs: addrs})
	}
	return out, nil
}

var _ Wireless = (*OS)(nil)
