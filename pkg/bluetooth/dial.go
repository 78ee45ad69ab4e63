package bluetooth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// Dial connects to the provisioning service on the remote device with the
// given MAC address. The device must already be known to bluetoothd (paired
// or discovered). Closing the returned Conn also unregisters the client
// profile.
func Dial(ctx context.Context, config Config, mac string, logger *slog.Logger) (*Conn, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	bus, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	path := newProfilePath()
	delivered := make(chan *Conn, 1)
	p := &profile{
		adapter: config.Adapter,
		logger:  logger,
		deliver: func(c *Conn) error {
			select {
			case delivered <- c:
				return nil
			default:
				return errNotAccepting
			}
		},
	}

	cleanup := func() {
		_ = bus.Object(bluezService, bluezRoot).Call(profileManagerInterface+".UnregisterProfile", 0, path).Err
		_ = bus.Close()
	}

	if err := bus.Export(p, path, profileInterface); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("export profile: %w", err)
	}
	call := bus.Object(bluezService, bluezRoot).CallWithContext(ctx,
		profileManagerInterface+".RegisterProfile", 0,
		path, config.ServiceUUID, profileOptions(config, "client"))
	if call.Err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("register profile: %w", call.Err)
	}

	call = bus.Object(bluezService, DevicePath(config.Adapter, mac)).CallWithContext(ctx,
		deviceInterface+".ConnectProfile", 0, config.ServiceUUID)
	if call.Err != nil {
		cleanup()
		return nil, fmt.Errorf("connect %s: %w", mac, call.Err)
	}

	select {
	case c := <-delivered:
		c.onClose = cleanup
		return c, nil
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	}
}
