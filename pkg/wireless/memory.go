package wireless

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-memory Wireless used by tests and the daemon's
// simulation mode. It renders configurations exactly as OS would but keeps
// them in memory.
type Memory struct {
	mu sync.Mutex

	config Config

	networks  []string
	addresses []string
	joined    []string

	scanErr    error
	applyErr   error
	reloadErr  error
	addressErr error

	document []byte
	applied  []Credentials
	reloads  int
	scans    int
}

// NewMemory creates an in-memory wireless stack. Once Reload succeeds the
// addresses set with SetJoinedAddresses become current.
func NewMemory(config Config) *Memory {
	return &Memory{config: config}
}

// SetNetworks sets the raw names returned by Scan.
func (m *Memory) SetNetworks(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.networks = slices.Clone(names)
}

// SetAddresses sets the addresses currently assigned.
func (m *Memory) SetAddresses(addrs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addresses = slices.Clone(addrs)
}

// SetJoinedAddresses sets the addresses that become current after a
// successful Reload.
func (m *Memory) SetJoinedAddresses(addrs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joined = slices.Clone(addrs)
}

// FailScan makes Scan return err. Pass nil to clear.
func (m *Memory) FailScan(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanErr = err
}

// FailApply makes ApplyCredentials return err. Pass nil to clear.
func (m *Memory) FailApply(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyErr = err
}

// FailReload makes Reload return err. Pass nil to clear.
func (m *Memory) FailReload(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloadErr = err
}

// FailAddresses makes CurrentAddresses return err. Pass nil to clear.
func (m *Memory) FailAddresses(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addressErr = err
}

// Scan returns the configured networks.
func (m *Memory) Scan(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans++
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	return slices.Clone(m.networks), nil
}

// ApplyCredentials records creds and replaces the stored document.
func (m *Memory) ApplyCredentials(ctx context.Context, creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}
	m.applied = append(m.applied, creds)
	m.document = RenderSupplicantConfig(m.config, creds)
	return nil
}

// Reload switches to the joined addresses, if any were configured.
func (m *Memory) Reload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads++
	if m.reloadErr != nil {
		return m.reloadErr
	}
	if m.joined != nil {
		m.addresses = slices.Clone(m.joined)
	}
	return nil
}

// CurrentAddresses returns the current addresses.
func (m *Memory) CurrentAddresses(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addressErr != nil {
		return nil, m.addressErr
	}
	return slices.Clone(m.addresses), nil
}

// Document returns the last written configuration.
func (m *Memory) Document() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.document)
}

// Applied returns every set of credentials written so far.
func (m *Memory) Applied() []Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.applied)
}

// Reloads returns the number of Reload calls.
func (m *Memory) Reloads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reloads
}

// Scans returns the number of Scan calls.
func (m *Memory) Scans() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scans
}

var _ Wireless = (*Memory)(nil)
