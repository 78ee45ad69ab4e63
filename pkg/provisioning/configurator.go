package provisioning

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rpiwc/wifiprov-go/pkg/wire"
	"github.com/rpiwc/wifiprov-go/pkg/wireless"
)

// Request carries the credentials collected from the client.
type Request struct {
	SSID string
	PSK  string
}

// Outcome classifies a configuration attempt.
type Outcome uint8

const (
	// OutcomeNotSet means the configuration was applied but no address
	// could be resolved.
	OutcomeNotSet Outcome = iota

	// OutcomeAddress means an address was resolved.
	OutcomeAddress

	// OutcomePermissionDenied means the configuration file could not be
	// written. No reload was attempted.
	OutcomePermissionDenied
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeNotSet:
		return "NOT_SET"
	case OutcomeAddress:
		return "ADDRESS"
	case OutcomePermissionDenied:
		return "PERMISSION_DENIED"
	default:
		return "UNKNOWN"
	}
}

// Attempt is the result of one configuration attempt. Attempts are never
// retried.
type Attempt struct {
	Outcome Outcome

	// Address is set for OutcomeAddress.
	Address string

	// Err records why the attempt did not produce an address, if known.
	Err error
}

// Value returns the text sent to the client in the result message.
func (a Attempt) Value() string {
	switch a.Outcome {
	case OutcomeAddress:
		return a.Address
	case OutcomePermissionDenied:
		return wire.PermissionError
	default:
		return wire.NotSet
	}
}

// Configurator applies credentials to the wireless stack and reports the
// resulting address.
type Configurator struct {
	wireless    wireless.Wireless
	resolver    *Resolver
	settleDelay time.Duration
	logger      *slog.Logger
}

// NewConfigurator creates a configurator. The logger may be nil.
func NewConfigurator(w wireless.Wireless, resolver *Resolver, settleDelay time.Duration, logger *slog.Logger) *Configurator {
	return &Configurator{wireless: w, resolver: resolver, settleDelay: settleDelay, logger: logger}
}

// Apply replaces the wireless configuration with req, reloads the
// supplicant and resolves the address. A permission failure returns
// immediately. Any other write failure yields OutcomeNotSet.
func (c *Configurator) Apply(ctx context.Context, req Request) Attempt {
	err := c.wireless.ApplyCredentials(ctx, wireless.Credentials{SSID: req.SSID, PSK: req.PSK})
	if errors.Is(err, wireless.ErrPermission) {
		c.warnLog("wireless configuration not writable", "error", err)
		return Attempt{Outcome: OutcomePermissionDenied, Err: err}
	}
	if err != nil {
		c.warnLog("writing wireless configuration failed", "error", err)
		return Attempt{Outcome: OutcomeNotSet, Err: err}
	}

	// A failed reload is not fatal. The address poll decides the outcome.
	if err := c.wireless.Reload(ctx); err != nil {
		c.warnLog("supplicant reload failed", "error", err)
	}

	if err := sleep(ctx, c.settleDelay); err != nil {
		return Attempt{Outcome: OutcomeNotSet, Err: err}
	}

	addr := c.resolver.Wait(ctx)
	if addr == wire.NotSet {
		return Attempt{Outcome: OutcomeNotSet}
	}
	return Attempt{Outcome: OutcomeAddress, Address: addr}
}

func (c *Configurator) warnLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
