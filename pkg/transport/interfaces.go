package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"time"
)

// ErrBindingClosed is returned by Accept after the binding was closed.
var ErrBindingClosed = errors.New("binding closed")

// Conn is an accepted client stream.
// Implemented by net.Conn and the Bluetooth RFCOMM connection.
type Conn interface {
	io.ReadWriteCloser

	// RemoteAddr returns the peer address.
	RemoteAddr() net.Addr

	// SetReadDeadline bounds the next reads. A zero value disables it.
	SetReadDeadline(t time.Time) error

	// SetWriteDeadline bounds the next writes. A zero value disables it.
	SetWriteDeadline(t time.Time) error
}

// Endpoint creates bindings.
type Endpoint interface {
	// Open binds the endpoint and advertises the service if the medium
	// supports it.
	Open(ctx context.Context) (Binding, error)
}

// Binding is a bound and advertised endpoint.
type Binding interface {
	// Accept blocks until a client connects or ctx is done.
	Accept(ctx context.Context) (Conn, error)

	// Addr describes the bound address for logging.
	Addr() string

	// Close withdraws the advertisement and releases the socket.
	Close() error
}

// Compile-time interface satisfaction checks.
var (
	_ Conn     = (net.Conn)(nil)
	_ Endpoint = (*TCPEndpoint)(nil)
	_ Binding  = (*tcpBinding)(nil)
)
