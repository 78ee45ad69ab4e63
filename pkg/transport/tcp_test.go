package transport

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPEndpointAcceptsOneClient(t *testing.T) {
	ctx := context.Background()
	ep := &TCPEndpoint{Address: "127.0.0.1:0"}

	b, err := ep.Open(ctx)
	require.NoError(t, err)
	defer b.Close()

	accepted := make(chan Conn, 1)
	go func() {
		conn, err := b.Accept(ctx)
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := DialTCP(ctx, b.Addr())
	require.NoError(t, err)
	defer client.Close()

	var server Conn
	select {
	case server = <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatal("accept did not return")
	}
	defer server.Close()

	_, err = client.Write([]byte("HomeNet"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "HomeNet", string(buf[:n]))
	assert.NotNil(t, server.RemoteAddr())
}

func TestTCPBindingAcceptCancelled(t *testing.T) {
	ep := &TCPEndpoint{Address: "127.0.0.1:0"}
	b, err := ep.Open(context.Background())
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := b.Accept(ctx)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("accept ignored cancellation")
	}
}

func TestTCPBindingAcceptAfterClose(t *testing.T) {
	ep := &TCPEndpoint{Address: "127.0.0.1:0"}
	b, err := ep.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = b.Accept(context.Background())
	assert.ErrorIs(t, err, ErrBindingClosed)
}

func TestTCPConnReadDeadline(t *testing.T) {
	ctx := context.Background()
	b, err := (&TCPEndpoint{Address: "127.0.0.1:0"}).Open(ctx)
	require.NoError(t, err)
	defer b.Close()

	go func() {
		c, err := DialTCP(ctx, b.Addr())
		if err == nil {
			time.Sleep(500 * time.Millisecond)
			c.Close()
		}
	}()

	server, err := b.Accept(ctx)
	require.NoError(t, err)
	defer server.Close()

	require.NoError(t, server.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	_, err = server.Read(make([]byte, 1))
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestTCPEndpointOpenFails(t *testing.T) {
	_, err := (&TCPEndpoint{Address: "256.0.0.1:0"}).Open(context.Background())
	assert.Error(t, err)
}
