package main

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpiwc/wifiprov-go/pkg/provisioning"
	"github.com/rpiwc/wifiprov-go/pkg/service"
	"github.com/rpiwc/wifiprov-go/pkg/transport"
	"github.com/rpiwc/wifiprov-go/pkg/wire"
	"github.com/rpiwc/wifiprov-go/pkg/wireless"
)

func TestChooseNetwork(t *testing.T) {
	names := []string{"Cafe", "HomeNet"}
	tests := []struct {
		answer  string
		want    string
		wantErr bool
	}{
		{"1", "Cafe", false},
		{" 2 ", "HomeNet", false},
		{"3", "3", false},
		{"Hidden Net", "Hidden Net", false},
		{"", "", true},
		{"Guest!", "Guest!", false},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			got, err := chooseNetwork(names, tt.answer)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, "192.168.1.50"))
	assert.Contains(t, buf.String(), "192.168.1.50")

	buf.Reset()
	require.NoError(t, printResult(&buf, wire.NotSet))
	assert.Contains(t, buf.String(), "did not obtain an address")

	assert.Error(t, printResult(&buf, wire.PermissionError))
}

func TestPrintNetworks(t *testing.T) {
	var buf bytes.Buffer
	printNetworks(&buf, []string{"Cafe", "HomeNet"})
	assert.Equal(t, "Networks in range:\n   1) Cafe\n   2) HomeNet\n", buf.String())

	buf.Reset()
	printNetworks(&buf, nil)
	assert.Contains(t, buf.String(), "No networks found")
}

func TestConnectRequiresDevice(t *testing.T) {
	_, err := connect(context.Background(), Options{Transport: "bluetooth"}, newLogger(false))
	assert.ErrorIs(t, err, errNoDevice)

	_, err = connect(context.Background(), Options{Transport: "serial"}, newLogger(false))
	assert.Error(t, err)
}

func TestProvisionCommandOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	mem := wireless.NewMemory(wireless.DefaultConfig())
	mem.SetNetworks("HomeNet", "Cafe")
	mem.SetJoinedAddresses("10.0.0.9")

	cfg := service.DefaultServerConfig()
	cfg.Session.SettleDelay = 0
	cfg.Session.PollInterval = 10 * time.Millisecond
	srv, err := service.NewServer(&transport.TCPEndpoint{Address: addr}, mem, cfg)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := srv.ServeOne(context.Background())
		done <- err
	}()

	var conn transport.Conn
	require.Eventually(t, func() bool {
		conn, err = transport.DialTCP(context.Background(), addr)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	client := provisioning.NewClient(conn, 5*time.Second)
	names, err := client.Networks()
	require.NoError(t, err)
	ssid, err := chooseNetwork(names, "2")
	require.NoError(t, err)
	value, err := client.Provision(ssid, "secret123")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printResult(&out, value))
	assert.Equal(t, "Connected. Device address: 10.0.0.9\n", out.String())
	require.NoError(t, <-done)
	assert.Equal(t, "HomeNet", mem.Applied()[0].SSID)
}
