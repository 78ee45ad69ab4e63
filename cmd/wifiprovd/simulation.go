package main

import (
	"log/slog"

	"github.com/rpiwc/wifiprov-go/pkg/wireless"
)

// Networks and address reported by the simulated wireless stack.
var (
	simulatedNetworks = []string{"HomeNet", "HomeNet-5G", "Guest", "Office"}
	simulatedAddress  = "192.168.4.23"
)

func newSimulatedWireless(cfg wireless.Config, logger *slog.Logger) *wireless.Memory {
	logger.Info("simulation mode enabled",
		"networks", len(simulatedNetworks),
		"address", simulatedAddress)

	m := wireless.NewMemory(cfg)
	m.SetNetworks(simulatedNetworks...)
	m.SetJoinedAddresses(simulatedAddress)
	return m
}
