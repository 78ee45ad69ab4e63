package discovery

import (
	"context"
	"net"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// ServiceType overrides ServiceType.
	ServiceType string

	// Interface restricts browsing to one interface.
	// Empty string means all interfaces.
	Interface string
}

// MDNSBrowser lists provisioned devices using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	if config.ServiceType == "" {
		config.ServiceType = ServiceType
	}
	return &MDNSBrowser{config: config}
}

// Browse reports provisioned devices until ctx is done. Services are
// aggregated by instance name; addresses seen on several interfaces are
// merged into one entry, and each instance is emitted once.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *ProvisionedService, error) {
	out := make(chan *ProvisionedService)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)
		seen := make(map[string]*ProvisionedService)
		var gone <-chan *zeroconf.ServiceEntry = removed

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToProvisioned(entry)
				if svc == nil {
					continue
				}
				if existing, found := seen[svc.Instance]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					continue
				}
				seen[svc.Instance] = svc
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-gone:
				if !ok {
					gone = nil
					continue
				}
				delete(seen, entry.Instance)

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, b.config.ServiceType, Domain, entries, removed, b.browserOptions()...)
	}()

	return out, nil
}

// Find returns the first announced device whose TXT record names ssid, or
// any device when ssid is empty.
func (b *MDNSBrowser) Find(ctx context.Context, ssid string) (*ProvisionedService, error) {
	ctx, cancel := context.WithTimeout(ctx, BrowseTimeout)
	defer cancel()

	found, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	for svc := range found {
		if ssid == "" || svc.SSID == ssid {
			return svc, nil
		}
	}
	return nil, ErrNotFound
}

func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

// entryToProvisioned converts a zeroconf entry. Entries without a valid TXT
// record yield nil.
func entryToProvisioned(entry *zeroconf.ServiceEntry) *ProvisionedService {
	svc := &ProvisionedService{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
	}
	if err := DecodeProvisionedTXT(StringsToTXTRecords(entry.Text), svc); err != nil {
		return nil
	}
	for _, ip := range entry.AddrIPv4 {
		svc.Addresses = append(svc.Addresses, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		svc.Addresses = append(svc.Addresses, ip.String())
	}
	return svc
}

// mergeAddresses appends addresses not yet present.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}
