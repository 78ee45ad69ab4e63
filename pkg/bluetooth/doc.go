// Package bluetooth provides the RFCOMM provisioning endpoint on top of BlueZ.
//
// The endpoint does not open raw sockets itself. It registers an external
// profile with bluetoothd over the system D-Bus (org.bluez.ProfileManager1)
// and exports an org.bluez.Profile1 object. bluetoothd then owns the RFCOMM
// listening socket and the SDP record, and hands every accepted client to
// the profile as a file descriptor:
//
//	Open                        RegisterProfile(path, uuid, options)
//	  ├─ bluetoothd binds RFCOMM and publishes the SDP record
//	  │
//	Accept                      Profile1.NewConnection(device, fd, props)
//	  ├─ fd wrapped as a nonblocking stream with deadline support
//	  │
//	Close                       UnregisterProfile(path), bus connection closed
//
// Every Open registers a fresh profile, so each client sees a newly published
// record. Leaving the channel at zero lets bluetoothd pick a free one.
//
// Dial is the companion side: it registers a client-role profile and asks
// bluetoothd to connect it to a remote device with Device1.ConnectProfile.
package bluetooth
