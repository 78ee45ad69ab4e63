// Package discovery announces provisioned devices on the local network.
//
// After a device has joined a network it can be found from the LAN without
// knowing its address. The announcer registers a DNS-SD service over mDNS
// whose TXT record carries the joined network and the address that was
// reported to the companion app:
//
//	<hostname>._wifiprov._tcp.local.
//	  ssid=<network>
//	  addr=<address>
//	  ver=<protocol version>
//
// Each announcement replaces the previous one. The browser lets companion
// tools list announced devices.
package discovery
