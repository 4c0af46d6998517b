package keycache

import (
	"context"
	"log/slog"

	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/ruteri/fhevm-instance-bootstrap/metrics"
)

// Manager is a best-effort cache in front of a KeyStore.
type Manager struct {
	store   interfaces.KeyStore
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewManager creates a manager. A nil store disables caching; m may be nil.
func NewManager(store interfaces.KeyStore, log *slog.Logger, m *metrics.Metrics) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: store, log: log, metrics: m}
}

// Get returns the cached record for aclAddress. Failures are logged and yield an empty record.
func (m *Manager) Get(ctx context.Context, aclAddress string) interfaces.KeyRecord {
	if m == nil || m.store == nil {
		return interfaces.KeyRecord{}
	}

	record, err := m.store.Get(ctx, aclAddress)
	if err != nil {
		m.log.Warn("Failed to read cached public key", slog.String("acl", aclAddress), "err", err)
		m.metrics.KeyCacheLookup(metrics.OutcomeError)
		return interfaces.KeyRecord{}
	}

	if record.Empty() {
		m.metrics.KeyCacheLookup(metrics.OutcomeMiss)
	} else {
		m.metrics.KeyCacheLookup(metrics.OutcomeHit)
	}
	m.log.Debug("Key cache lookup",
		slog.String("acl", aclAddress),
		slog.Bool("publicKey", record.PublicKey != nil),
		slog.Bool("publicParams", record.PublicParams != nil))
	return record
}

// Set stores key material for aclAddress. Failures are logged and not retried.
func (m *Manager) Set(ctx context.Context, aclAddress string, publicKey, publicParams []byte) {
	if m == nil || m.store == nil {
		return
	}

	if err := m.store.Set(ctx, aclAddress, publicKey, publicParams); err != nil {
		m.log.Warn("Failed to save public key to cache", slog.String("acl", aclAddress), "err", err)
		m.metrics.KeyCacheWrite(metrics.OutcomeError)
		return
	}
	m.metrics.KeyCacheWrite(metrics.OutcomeSuccess)
}
