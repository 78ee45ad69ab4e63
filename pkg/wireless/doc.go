// Package wireless abstracts the device's wireless stack.
//
// The provisioning session needs four capabilities from the OS: list the
// visible networks, persist new credentials, make the supplicant apply
// them, and report the addresses the device currently holds. They are
// exposed through the Wireless interface so the session state machine can
// be exercised against the in-memory Memory implementation while the
// daemon uses OS, which drives iwlist, wpa_supplicant.conf and wpa_cli.
//
// The supplicant configuration is always replaced as a whole. Networks that
// were configured before a provisioning attempt are discarded.
package wireless
