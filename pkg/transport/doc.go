// Package transport defines the stream endpoints the provisioning listener
// accepts clients on.
//
// An Endpoint is opened fresh for every client. Opening it binds the
// underlying socket and, where the medium supports it, advertises the
// service. The resulting Binding accepts exactly one connection and is then
// closed, so each client sees a newly advertised service:
//
//	┌────────────┐  Open   ┌─────────┐  Accept  ┌──────┐
//	│  Endpoint  │ ──────▶ │ Binding │ ───────▶ │ Conn │
//	└────────────┘         └─────────┘          └──────┘
//
// Bluetooth RFCOMM endpoints live in package bluetooth. TCPEndpoint serves
// development setups and tests.
package transport
