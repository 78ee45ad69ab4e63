package bluetooth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/rpiwc/wifiprov-go/pkg/transport"
)

// Endpoint publishes the provisioning service through bluetoothd.
type Endpoint struct {
	config Config
	logger *slog.Logger

	// probe picks a channel when none is pinned.
	probe func() (uint16, error)
}

// NewEndpoint creates an RFCOMM endpoint. The logger may be nil.
func NewEndpoint(config Config, logger *slog.Logger) *Endpoint {
	return &Endpoint{config: config, logger: logger, probe: freeChannel}
}

// Open registers a server profile and returns a binding that accepts the
// next client.
func (e *Endpoint) Open(ctx context.Context) (transport.Binding, error) {
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	cfg, err := resolveChannel(e.config, e.probe)
	if err != nil {
		return nil, err
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	if err := checkPowered(ctx, conn, cfg.Adapter); err != nil {
		conn.Close()
		return nil, err
	}

	b := &binding{
		conn:     conn,
		path:     newProfilePath(),
		config:   cfg,
		incoming: make(chan *Conn, 1),
		closed:   make(chan struct{}),
	}
	p := &profile{adapter: cfg.Adapter, deliver: b.offer, logger: e.logger}
	if err := conn.Export(p, b.path, profileInterface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("export profile: %w", err)
	}

	call := conn.Object(bluezService, bluezRoot).CallWithContext(ctx,
		profileManagerInterface+".RegisterProfile", 0,
		b.path, cfg.ServiceUUID, profileOptions(cfg, "server"))
	if call.Err != nil {
		conn.Close()
		return nil, fmt.Errorf("register profile: %w", call.Err)
	}

	if e.logger != nil {
		e.logger.Debug("rfcomm profile registered", "path", b.path, "uuid", cfg.ServiceUUID, "channel", cfg.Channel)
	}
	return b, nil
}

// checkPowered fails with ErrPoweredOff when the adapter is not powered.
func checkPowered(ctx context.Context, conn *dbus.Conn, adapter string) error {
	var v dbus.Variant
	err := conn.Object(bluezService, AdapterPath(adapter)).CallWithContext(ctx,
		"org.freedesktop.DBus.Properties.Get", 0, adapterInterface, "Powered").Store(&v)
	if err != nil {
		return fmt.Errorf("adapter %s: %w", adapter, err)
	}
	if powered, _ := v.Value().(bool); !powered {
		return fmt.Errorf("%w: %s", ErrPoweredOff, adapter)
	}
	return nil
}

// binding is one registration of the server profile.
type binding struct {
	conn   *dbus.Conn
	path   dbus.ObjectPath
	config Config

	mu       sync.Mutex
	offered  bool
	incoming chan *Conn

	closed    chan struct{}
	closeOnce sync.Once
}

// offer hands a connection from bluetoothd to Accept. Only the first
// connection of a binding is taken.
func (b *binding) offer(c *Conn) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.closed:
		return errNotAccepting
	default:
	}
	if b.offered {
		return errNotAccepting
	}
	b.offered = true
	b.incoming <- c
	return nil
}

func (b *binding) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case c := <-b.incoming:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.closed:
		return nil, transport.ErrBindingClosed
	}
}

func (b *binding) Addr() string {
	if b.config.Channel > 0 {
		return fmt.Sprintf("%s rfcomm channel %d", b.config.Adapter, b.config.Channel)
	}
	return fmt.Sprintf("%s rfcomm uuid %s", b.config.Adapter, b.config.ServiceUUID)
}

// Close unregisters the profile and releases the bus connection. A client
// that was offered but never accepted is disconnected.
func (b *binding) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.mu.Lock()
		close(b.closed)
		b.mu.Unlock()

		call := b.conn.Object(bluezService, bluezRoot).Call(profileManagerInterface+".UnregisterProfile", 0, b.path)
		if call.Err != nil {
			err = fmt.Errorf("unregister profile: %w", call.Err)
		}
		_ = b.conn.Export(nil, b.path, profileInterface)
		_ = b.conn.Close()

		select {
		case c := <-b.incoming:
			_ = c.Close()
		default:
		}
	})
	return err
}

var _ transport.Endpoint = (*Endpoint)(nil)
