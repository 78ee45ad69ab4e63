package provisioning

import (
	"context"
	"log/slog"

	"github.com/rpiwc/wifiprov-go/pkg/wire"
	"github.com/rpiwc/wifiprov-go/pkg/wireless"
)

// ScanResult is the outcome of one scan: the visible network names or the
// error that prevented the scan.
type ScanResult struct {
	// Names holds each visible non-empty network name once.
	Names []string

	// Err is set when the scan could not be performed.
	Err error
}

// Failed reports whether the scan failed.
func (r ScanResult) Failed() bool { return r.Err != nil }

// Encode renders the first protocol message.
func (r ScanResult) Encode() []byte {
	if r.Failed() {
		return wire.EncodeScanFailed()
	}
	return wire.EncodeScan(r.Names)
}

// Scanner lists nearby networks. Results are never cached.
type Scanner struct {
	wireless wireless.Wireless
	logger   *slog.Logger
}

// NewScanner creates a scanner. The logger may be nil.
func NewScanner(w wireless.Wireless, logger *slog.Logger) *Scanner {
	return &Scanner{wireless: w, logger: logger}
}

// Scan runs a fresh scan.
func (s *Scanner) Scan(ctx context.Context) ScanResult {
	raw, err := s.wireless.Scan(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("wireless scan failed", "error", err)
		}
		return ScanResult{Err: err}
	}
	names := wire.Distinct(raw)
	if s.logger != nil {
		s.logger.Debug("wireless scan", "raw", len(raw), "networks", len(names))
	}
	return ScanResult{Names: names}
}
