package provisioning

import (
	"errors"
	"fmt"
	"time"

	"github.com/rpiwc/wifiprov-go/pkg/transport"
	"github.com/rpiwc/wifiprov-go/pkg/wire"
)

// ErrNoPrompt indicates the device did not ask for the passphrase after
// the network name was sent.
var ErrNoPrompt = errors.New("device did not request passphrase")

// Client drives the companion side of the exchange over a connected stream.
type Client struct {
	conn    transport.Conn
	reader  *wire.MessageReader
	timeout time.Duration
}

// NewClient creates a client. Each device message must arrive within
// timeout; zero disables the bound.
func NewClient(conn transport.Conn, timeout time.Duration) *Client {
	return &Client{conn: conn, reader: wire.NewMessageReader(conn), timeout: timeout}
}

// Networks reads the scan message. When the device reports a failed scan
// the error wraps wire.ErrScanFailed and the exchange may still continue
// with a manually entered network name.
func (c *Client) Networks() ([]string, error) {
	msg, err := c.read()
	if err != nil {
		return nil, err
	}
	return wire.ParseScan(msg)
}

// Provision sends the credentials and returns the result value: an address,
// wire.NotSet or wire.PermissionError.
func (c *Client) Provision(ssid, psk string) (string, error) {
	if err := c.write(ssid); err != nil {
		return "", err
	}
	msg, err := c.read()
	if err != nil {
		return "", err
	}
	if !wire.IsPSKPrompt(msg) {
		return "", fmt.Errorf("%w: got %q", ErrNoPrompt, msg)
	}
	if err := c.write(psk); err != nil {
		return "", err
	}
	// Applying includes the settle delay and address poll, so the result is
	// read without the per-message bound.
	msg, err = c.readWithin(0)
	if err != nil {
		return "", err
	}
	return wire.ParseResult(msg)
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) read() (string, error) {
	return c.readWithin(c.timeout)
}

func (c *Client) readWithin(timeout time.Duration) (string, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	_ = c.conn.SetReadDeadline(deadline)
	msg, err := c.reader.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	return msg, nil
}

func (c *Client) write(text string) error {
	if c.timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	if _, err := c.conn.Write([]byte(text)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
