package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rpiwc/wifiprov-go/pkg/bluetooth"
	"github.com/rpiwc/wifiprov-go/pkg/config"
	"github.com/rpiwc/wifiprov-go/pkg/transport"
)

var errNoDevice = errors.New("--device is required for the bluetooth transport")

// connect opens a stream to the device selected by o.
func connect(ctx context.Context, o Options, logger *slog.Logger) (transport.Conn, error) {
	switch o.Transport {
	case config.TransportTCP:
		return transport.DialTCP(ctx, o.Address)

	case config.TransportBluetooth:
		if o.Device == "" {
			return nil, errNoDevice
		}
		btConfig := bluetooth.DefaultConfig()
		btConfig.Adapter = o.Adapter
		btConfig.ServiceUUID = o.ServiceUUID
		if err := btConfig.Validate(); err != nil {
			return nil, err
		}
		conn, err := bluetooth.Dial(ctx, btConfig, o.Device, logger)
		if err != nil {
			return nil, err
		}
		return conn, nil

	default:
		return nil, fmt.Errorf("unknown transport %q", o.Transport)
	}
}
