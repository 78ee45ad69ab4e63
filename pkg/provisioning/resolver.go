package provisioning

import (
	"context"
	"log/slog"
	"time"

	"github.com/rpiwc/wifiprov-go/pkg/wire"
	"github.com/rpiwc/wifiprov-go/pkg/wireless"
)

// Resolver looks up the device's current address.
type Resolver struct {
	wireless wireless.Wireless
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewResolver creates a resolver that polls every interval for at most
// timeout in Wait.
func NewResolver(w wireless.Wireless, timeout, interval time.Duration, logger *slog.Logger) *Resolver {
	return &Resolver{wireless: w, timeout: timeout, interval: interval, logger: logger}
}

// Current returns the first assigned address, or wire.NotSet when none is
// assigned or the lookup fails.
func (r *Resolver) Current(ctx context.Context) string {
	addrs, err := r.wireless.CurrentAddresses(ctx)
	if err != nil {
		r.debugLog("address lookup failed", "error", err)
		return wire.NotSet
	}
	if len(addrs) == 0 {
		return wire.NotSet
	}
	return addrs[0]
}

// Wait polls Current until an address appears, the timeout passes or ctx
// is done.
func (r *Resolver) Wait(ctx context.Context) string {
	if addr := r.Current(ctx); addr != wire.NotSet || r.timeout <= 0 {
		return addr
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.debugLog("no address before timeout", "timeout", r.timeout)
			return wire.NotSet
		case <-ticker.C:
			if addr := r.Current(ctx); addr != wire.NotSet {
				return addr
			}
		}
	}
}

func (r *Resolver) debugLog(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
