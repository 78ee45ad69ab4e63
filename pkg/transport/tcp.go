package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// TCPEndpoint accepts provisioning clients over TCP.
type TCPEndpoint struct {
	// Address to listen on (e.g. "127.0.0.1:7800"). Port 0 picks a free port.
	Address string
}

// Open starts listening on the configured address.
func (e *TCPEndpoint) Open(ctx context.Context) (Binding, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", e.Address)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", e.Address, err)
	}
	return &tcpBinding{ln: ln.(*net.TCPListener)}, nil
}

type tcpBinding struct {
	ln *net.TCPListener
}

func (b *tcpBinding) Accept(ctx context.Context) (Conn, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = b.ln.SetDeadline(time.Now())
	})
	defer stop()

	conn, err := b.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrBindingClosed
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	return conn, nil
}

func (b *tcpBinding) Addr() string {
	return b.ln.Addr().String()
}

func (b *tcpBinding) Close() error {
	return b.ln.Close()
}

// DialTCP connects to a TCP provisioning endpoint.
func DialTCP(ctx context.Context, address string) (Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return conn, nil
}
