// Package provisioning implements the per-client provisioning exchange.
//
// A Session drives one connected client through a fixed sequence:
//
//	Scanning ─▶ AwaitingSSID ─▶ AwaitingPSK ─▶ Applying ─▶ Done
//	                 │               │
//	                 └───────────────┴──────────────────────▶ Aborted
//
// Scanning always advances; a failed scan is reported to the client in-band.
// An empty, undecodable or missing reply aborts the session without sending
// anything further. Applying hands the credentials to the Configurator,
// which writes the wireless configuration, reloads the supplicant and asks
// the Resolver for the resulting address. Exactly one result message ends a
// successful session.
//
// The Scanner, Configurator and Resolver wrap a wireless.Wireless, so the
// same session logic runs against the real OS tools or an in-memory stack.
//
// Client implements the companion side of the exchange.
package provisioning
