package discovery

import (
	"errors"
	"time"
)

// Service constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of provisioned devices.
	ServiceType = "_wifiprov._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the port published with the service (SSH).
	DefaultPort = 22

	// DefaultTTL is the DNS record TTL.
	DefaultTTL = 120 * time.Second

	// BrowseTimeout bounds a Find call.
	BrowseTimeout = 5 * time.Second

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// ProtocolVersion is published in the ver TXT key.
	ProtocolVersion = "1"
)

// TXT record keys.
const (
	TXTKeySSID    = "ssid"
	TXTKeyAddress = "addr"
	TXTKeyVersion = "ver"
)

// Discovery errors.
var (
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrInvalidInstanceName = errors.New("invalid instance name")
	ErrNotFound            = errors.New("service not found")
)

// ProvisionedInfo describes a device that joined a network.
type ProvisionedInfo struct {
	// Instance is the DNS-SD instance name, usually the hostname.
	Instance string

	// SSID is the joined network.
	SSID string

	// Address is the address reported to the client.
	Address string

	// Port is published with the service. Zero selects DefaultPort.
	Port uint16
}

// ProvisionedService is a provisioned device found by browsing.
type ProvisionedService struct {
	Instance  string
	Host      string
	Port      uint16
	Addresses []string

	SSID    string
	Address string
	Version string
}
