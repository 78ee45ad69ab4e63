package bluetooth

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

// BlueZ D-Bus names.
const (
	bluezService            = "org.bluez"
	bluezRoot               = dbus.ObjectPath("/org/bluez")
	profileManagerInterface = "org.bluez.ProfileManager1"
	profileInterface        = "org.bluez.Profile1"
	adapterInterface        = "org.bluez.Adapter1"
	deviceInterface         = "org.bluez.Device1"
	rejectedError           = "org.bluez.Error.Rejected"
)

// Service defaults.
const (
	// DefaultServiceUUID identifies the provisioning service in SDP.
	DefaultServiceUUID = "815425a5-bfac-47bf-9321-c5ff980b5e11"

	// DefaultServiceName is the human-readable service name.
	DefaultServiceName = "RPi Wifi config"

	// DefaultAdapter is the local controller.
	DefaultAdapter = "hci0"

	// MaxChannel is the highest RFCOMM server channel.
	MaxChannel = 30

	serialPortClass = "0x1101"
)

// Errors.
var (
	// ErrPoweredOff indicates the adapter exists but is not powered.
	ErrPoweredOff = errors.New("bluetooth adapter powered off")

	// ErrInvalidConfig indicates a bad endpoint configuration.
	ErrInvalidConfig = errors.New("invalid bluetooth configuration")
)

// Config configures the RFCOMM endpoint.
type Config struct {
	// Adapter is the local controller name (e.g. "hci0").
	Adapter string `yaml:"adapter"`

	// ServiceUUID is the service class UUID published in SDP.
	ServiceUUID string `yaml:"service_uuid"`

	// ServiceName is published as the SDP service name.
	ServiceName string `yaml:"service_name"`

	// Channel pins the RFCOMM channel. Zero picks a free one at each bind.
	Channel uint16 `yaml:"channel"`
}

// DefaultConfig returns the stock endpoint configuration.
func DefaultConfig() Config {
	return Config{
		Adapter:     DefaultAdapter,
		ServiceUUID: DefaultServiceUUID,
		ServiceName: DefaultServiceName,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Adapter == "" {
		return fmt.Errorf("%w: adapter is required", ErrInvalidConfig)
	}
	if _, err := uuid.Parse(c.ServiceUUID); err != nil {
		return fmt.Errorf("%w: service uuid %q: %w", ErrInvalidConfig, c.ServiceUUID, err)
	}
	if c.Channel > MaxChannel {
		return fmt.Errorf("%w: channel %d out of range 0-%d", ErrInvalidConfig, c.Channel, MaxChannel)
	}
	return nil
}

// profileOptions builds the RegisterProfile options for role "server" or
// "client".
func profileOptions(c Config, role string) map[string]dbus.Variant {
	opts := map[string]dbus.Variant{
		"Name":                  dbus.MakeVariant(c.ServiceName),
		"Role":                  dbus.MakeVariant(role),
		"RequireAuthentication": dbus.MakeVariant(false),
		"RequireAuthorization":  dbus.MakeVariant(false),
	}
	if role == "client" {
		opts["AutoConnect"] = dbus.MakeVariant(false)
		return opts
	}
	if c.Channel > 0 {
		opts["Channel"] = dbus.MakeVariant(c.Channel)
		opts["ServiceRecord"] = dbus.MakeVariant(serviceRecord(c))
	}
	return opts
}

// serviceRecord renders the SDP record in BlueZ XML form. The service lists
// both the provisioning UUID and Serial Port as classes and Serial Port as
// its profile.
func serviceRecord(c Config) string {
	var name bytes.Buffer
	_ = xml.EscapeText(&name, []byte(c.ServiceName))

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" ?>` + "\n")
	b.WriteString("<record>\n")
	fmt.Fprintf(&b, `  <attribute id="0x0001"><sequence><uuid value="%s" /><uuid value="%s" /></sequence></attribute>`+"\n",
		strings.ToLower(c.ServiceUUID), serialPortClass)
	fmt.Fprintf(&b, `  <attribute id="0x0004"><sequence><sequence><uuid value="0x0100" /></sequence><sequence><uuid value="0x0003" /><uint8 value="0x%02x" /></sequence></sequence></attribute>`+"\n",
		c.Channel)
	b.WriteString(`  <attribute id="0x0005"><sequence><uuid value="0x1002" /></sequence></attribute>` + "\n")
	fmt.Fprintf(&b, `  <attribute id="0x0009"><sequence><sequence><uuid value="%s" /><uint16 value="0x0102" /></sequence></sequence></attribute>`+"\n",
		serialPortClass)
	fmt.Fprintf(&b, `  <attribute id="0x0100"><text value="%s" /></attribute>`+"\n", name.String())
	b.WriteString("</record>\n")
	return b.String()
}

// DevicePath returns the BlueZ object path of a remote device.
func DevicePath(adapter, mac string) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("/org/bluez/%s/dev_%s",
		adapter, strings.ReplaceAll(strings.ToUpper(mac), ":", "_")))
}

// AdapterPath returns the BlueZ object path of a local adapter.
func AdapterPath(adapter string) dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + adapter)
}

// deviceMAC extracts the remote address from a device object path. Paths
// that do not name a device are returned unchanged.
func deviceMAC(path dbus.ObjectPath) string {
	s := string(path)
	i := strings.LastIndex(s, "/dev_")
	if i < 0 {
		return s
	}
	return strings.ReplaceAll(s[i+len("/dev_"):], "_", ":")
}

// onAdapter reports whether a device path belongs to the adapter.
func onAdapter(path dbus.ObjectPath, adapter string) bool {
	return strings.HasPrefix(string(path), string(AdapterPath(adapter))+"/")
}

// newProfilePath returns a unique object path for an exported profile.
func newProfilePath() dbus.ObjectPath {
	return dbus.ObjectPath("/org/rpiwc/wifiprov/profile_" + strings.ReplaceAll(uuid.NewString(), "-", "_"))
}
