package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Announcer publishes provisioned devices.
type Announcer interface {
	// Announce publishes info, replacing any previous announcement.
	Announce(ctx context.Context, info *ProvisionedInfo) error

	// Stop withdraws the current announcement.
	Stop() error
}

// AnnouncerConfig configures an MDNSAnnouncer.
type AnnouncerConfig struct {
	// ServiceType overrides ServiceType.
	ServiceType string

	// Interface restricts announcements to one interface.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL. Zero keeps the zeroconf default.
	TTL time.Duration

	// Logger receives operational logs. May be nil.
	Logger *slog.Logger
}

// DefaultAnnouncerConfig returns the default announcer configuration.
func DefaultAnnouncerConfig() AnnouncerConfig {
	return AnnouncerConfig{
		ServiceType: ServiceType,
		TTL:         DefaultTTL,
	}
}

// registration is a running mDNS responder.
type registration interface {
	Shutdown()
}

// registerFunc matches zeroconf.Register.
type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (registration, error)

func zeroconfRegister(instance, service, domain string, port int, text []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (registration, error) {
	return zeroconf.Register(instance, service, domain, port, text, ifaces, opts...)
}

// MDNSAnnouncer implements Announcer using zeroconf.
type MDNSAnnouncer struct {
	config   AnnouncerConfig
	register registerFunc

	mu      sync.Mutex
	current registration
}

// NewMDNSAnnouncer creates a new mDNS announcer.
func NewMDNSAnnouncer(config AnnouncerConfig) *MDNSAnnouncer {
	if config.ServiceType == "" {
		config.ServiceType = ServiceType
	}
	return &MDNSAnnouncer{config: config, register: zeroconfRegister}
}

// Announce publishes info. An empty instance name defaults to the hostname.
func (a *MDNSAnnouncer) Announce(ctx context.Context, info *ProvisionedInfo) error {
	instance := info.Instance
	if instance == "" {
		instance, _ = os.Hostname()
	}
	instance = truncateLabel(instance, MaxInstanceNameLen)
	if err := ValidateInstanceName(instance); err != nil {
		return err
	}

	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != nil {
		a.current.Shutdown()
		a.current = nil
	}

	txt := TXTRecordsToStrings(EncodeProvisionedTXT(info))
	server, err := a.register(instance, a.config.ServiceType, Domain, port, txt, a.interfaces(), opts...)
	if err != nil {
		return fmt.Errorf("failed to register provisioned service: %w", err)
	}
	a.current = server

	if a.config.Logger != nil {
		a.config.Logger.Info("announcing provisioned device", "instance", instance, "service", a.config.ServiceType, "txt", txt)
	}
	return nil
}

// Stop withdraws the current announcement.
func (a *MDNSAnnouncer) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != nil {
		a.current.Shutdown()
		a.current = nil
	}
	return nil
}

// interfaces returns the interfaces to announce on. Nil means all.
func (a *MDNSAnnouncer) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

var _ Announcer = (*MDNSAnnouncer)(nil)
