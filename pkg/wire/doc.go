// Package wire implements the provisioning message format.
//
// The protocol is textual and runs over a connection-oriented byte stream
// (RFCOMM in production). Server messages end with a '!' sentinel; client
// messages are raw text delivered by a single read and trimmed of
// surrounding whitespace.
//
// # Exchange
//
//	S->C  Found ssid:\n<name>\n...!   (or "Error scanning!")
//	C->S  <ssid>
//	S->C  waiting-psk!
//	C->S  <psk>
//	S->C  ip-address:<value>!
//
// where <value> is a dotted address, "<Not Set>" or "Permission Error".
//
// The sentinel framing has no length prefix and no escaping. It is kept
// byte-exact because deployed companion apps read until '!'.
package wire
