package bluetooth

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Addr is the address of an RFCOMM peer.
type Addr struct {
	// MAC is the remote device address (AA:BB:CC:DD:EE:FF).
	MAC string

	// Channel is the local RFCOMM channel the connection arrived on, when
	// known.
	Channel uint8
}

// Network returns "rfcomm".
func (a Addr) Network() string { return "rfcomm" }

// String returns the MAC address.
func (a Addr) String() string { return a.MAC }

// Conn is an RFCOMM stream handed over by bluetoothd.
type Conn struct {
	f      *os.File
	remote Addr

	closeOnce sync.Once
	onClose   func()
}

// newConn wraps an RFCOMM socket descriptor. The descriptor is switched to
// nonblocking mode so that reads and writes honour deadlines.
func newConn(fd int, mac string) (*Conn, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("set nonblock: %w", err)
	}
	remote := Addr{MAC: mac, Channel: localChannel(fd)}
	return &Conn{
		f:      os.NewFile(uintptr(fd), "rfcomm:"+mac),
		remote: remote,
	}, nil
}

// localChannel returns the RFCOMM channel the socket is bound to, or zero
// when the descriptor is not an RFCOMM socket.
func localChannel(fd int) uint8 {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return 0
	}
	if rc, ok := sa.(*unix.SockaddrRFCOMM); ok {
		return rc.Channel
	}
	return 0
}

func (c *Conn) Read(p []byte) (int, error)  { return c.f.Read(p) }
func (c *Conn) Write(p []byte) (int, error) { return c.f.Write(p) }

// Close closes the stream. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.f.Close()
		if c.onClose != nil {
			c.onClose()
		}
	})
	return err
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr { return c.remote }

// SetReadDeadline sets the read deadline.
func (c *Conn) SetReadDeadline(t time.Time) error { return c.f.SetReadDeadline(t) }

// SetWriteDeadline sets the write deadline.
func (c *Conn) SetWriteDeadline(t time.Time) error { return c.f.SetWriteDeadline(t) }
