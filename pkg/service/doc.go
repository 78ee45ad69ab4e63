// Package service runs the provisioning listener.
//
// Server owns the accept loop. For every client it opens a fresh binding on
// the transport endpoint (bind plus service advertisement), accepts exactly
// one connection, runs a provisioning.Session on it, closes the connection
// and then the binding. Exactly one session is active at any time, which
// also makes the session the only writer of the wireless configuration.
//
// Example usage:
//
//	endpoint := bluetooth.NewEndpoint(bluetooth.DefaultConfig(), logger)
//	config := service.DefaultServerConfig()
//	config.Logger = logger
//
//	srv, err := service.NewServer(endpoint, wireless.NewOS(wireless.DefaultConfig()), config)
//	srv.OnEvent(func(e service.Event) { ... })
//	err = srv.Run(ctx)
//
// # Bind failures
//
// A failed bind or advertisement is retried with exponential backoff (see
// package connection). After BindConfig.MaxAttempts consecutive failures
// Run stops with an error wrapping ErrRadio. Zero attempts means retry
// forever.
//
// # Shutdown
//
// Cancelling the context stops the loop. A pending accept returns at once
// and no message is sent to a client that has not been accepted yet. A
// running session is aborted by closing its connection.
//
// # Announcement
//
// When a discovery.Announcer is configured, every session that resolves an
// address is announced on the LAN, replacing the previous announcement.
package service
