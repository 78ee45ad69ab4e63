package main

import (
	"log/slog"

	"github.com/rpiwc/wifiprov-go/pkg/service"
)

// eventLogger returns a handler that logs server events.
func eventLogger(logger *slog.Logger) service.EventHandler {
	return func(event service.Event) {
		switch event.Type {
		case service.EventListening:
			logger.Debug("[EVENT] listening", "binding", event.Binding)
		case service.EventBindFailed:
			logger.Warn("[EVENT] bind failed", "attempt", event.Attempt, "error", event.Error)
		case service.EventSessionStarted:
			logger.Info("[EVENT] session started", "session_id", event.SessionID, "remote", event.RemoteAddr)
		case service.EventSessionFinished:
			attrs := []any{"session_id", event.SessionID}
			if event.Result != nil && event.Result.Attempt != nil {
				attrs = append(attrs, "ssid", event.Result.SSID, "outcome", event.Result.Attempt.Outcome.String())
			}
			logger.Info("[EVENT] session finished", attrs...)
		case service.EventSessionAborted:
			logger.Warn("[EVENT] session aborted", "session_id", event.SessionID, "error", event.Error)
		case service.EventAnnounced:
			logger.Info("[EVENT] provisioned device announced", "session_id", event.SessionID)
		case service.EventAnnounceFailed:
			logger.Warn("[EVENT] announce failed", "session_id", event.SessionID, "error", event.Error)
		}
	}
}
