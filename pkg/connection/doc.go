// Package connection provides retry pacing for the provisioning listener.
//
// Binding the RFCOMM endpoint and registering its service record can fail
// transiently: the adapter may still be powering up, bluetoothd may be
// restarting, or a previous profile registration may not have been released
// yet. The listener retries with exponential backoff:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds
//  4. Reset to the initial delay after a successful bind
//
// # Jitter
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
package connection
