package bluetooth

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// errNoChannel indicates every RFCOMM server channel is taken.
var errNoChannel = errors.New("no free rfcomm channel")

// freeChannel asks the kernel for an unused RFCOMM server channel. A socket
// listening on channel 0 is assigned the lowest free channel, which is read
// back and released for bluetoothd to bind.
func freeChannel() (uint16, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return 0, fmt.Errorf("rfcomm socket: %w", err)
	}
	defer unix.Close(fd)

	if err := unix.Bind(fd, &unix.SockaddrRFCOMM{}); err != nil {
		return 0, fmt.Errorf("rfcomm bind: %w", err)
	}
	if err := unix.Listen(fd, 1); err != nil {
		return 0, fmt.Errorf("rfcomm listen: %w", err)
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return 0, fmt.Errorf("rfcomm getsockname: %w", err)
	}
	rc, ok := sa.(*unix.SockaddrRFCOMM)
	if !ok || rc.Channel == 0 {
		return 0, errNoChannel
	}
	return uint16(rc.Channel), nil
}

// resolveChannel returns c with a concrete channel. A pinned channel is kept;
// otherwise probe picks one.
func resolveChannel(c Config, probe func() (uint16, error)) (Config, error) {
	if c.Channel > 0 {
		return c, nil
	}
	ch, err := probe()
	if err != nil {
		return c, err
	}
	if ch == 0 || ch > MaxChannel {
		return c, fmt.Errorf("%w: got %d", errNoChannel, ch)
	}
	c.Channel = ch
	return c, nil
}
