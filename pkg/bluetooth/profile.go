package bluetooth

import (
	"errors"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"
)

// errNotAccepting is returned to bluetoothd when a connection arrives that
// the owner of the profile cannot take.
var errNotAccepting = errors.New("not accepting connections")

// profile is the exported org.bluez.Profile1 object. bluetoothd calls its
// methods from the bus connection's dispatch goroutine.
type profile struct {
	adapter string
	deliver func(*Conn) error
	logger  *slog.Logger
}

// Release is called when bluetoothd unregisters the profile.
func (p *profile) Release() *dbus.Error {
	p.debugLog("profile released")
	return nil
}

// NewConnection receives a connected RFCOMM socket.
func (p *profile) NewConnection(device dbus.ObjectPath, fd dbus.UnixFD, props map[string]dbus.Variant) *dbus.Error {
	mac := deviceMAC(device)
	if p.adapter != "" && !onAdapter(device, p.adapter) {
		_ = unix.Close(int(fd))
		p.debugLog("connection on foreign adapter rejected", "device", device)
		return dbus.NewError(rejectedError, []interface{}{"wrong adapter"})
	}

	c, err := newConn(int(fd), mac)
	if err != nil {
		_ = unix.Close(int(fd))
		return dbus.MakeFailedError(err)
	}
	if err := p.deliver(c); err != nil {
		_ = c.Close()
		p.debugLog("connection rejected", "remote", mac, "error", err)
		return dbus.NewError(rejectedError, []interface{}{err.Error()})
	}

	p.debugLog("connection received", "remote", mac, "channel", c.remote.Channel)
	return nil
}

// RequestDisconnection is called when bluetoothd tears the profile
// connection down. The session owning the stream notices the closed socket.
func (p *profile) RequestDisconnection(device dbus.ObjectPath) *dbus.Error {
	p.debugLog("disconnection requested", "device", device)
	return nil
}

func (p *profile) debugLog(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
