package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
)

// MultiStorageBackend layers several backends in priority order.
// Fetch returns the first hit and copies it into the available backends that
// missed before it. Store writes to every available backend.
type MultiStorageBackend struct {
	backends []interfaces.StorageBackend
	log      *slog.Logger
}

// NewMultiStorageBackend creates a layered backend, highest priority first.
func NewMultiStorageBackend(backends []interfaces.StorageBackend, log *slog.Logger) *MultiStorageBackend {
	if log == nil {
		log = slog.Default()
	}
	return &MultiStorageBackend{backends: backends, log: log}
}

// Fetch returns ErrContentNotFound only when every consulted backend missed.
func (m *MultiStorageBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	var (
		missed []interfaces.StorageBackend
		errs   []error
	)

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), interfaces.ErrBackendUnavailable))
			continue
		}

		data, err := backend.Fetch(ctx, key)
		switch {
		case err == nil:
			m.backfill(ctx, missed, key, data)
			return data, nil
		case errors.Is(err, interfaces.ErrContentNotFound):
			missed = append(missed, backend)
		default:
			m.log.Debug("Backend fetch failed", "backend", backend.Name(), "key", key, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		}
	}

	if len(errs) == 0 {
		return nil, interfaces.ErrContentNotFound
	}
	if len(missed) == 0 && len(errs) == len(m.backends) {
		m.log.Warn("No backend could serve key", "key", key, "failed", len(errs))
	}
	return nil, fmt.Errorf("fetching %s: %w", key, errors.Join(errs...))
}

func (m *MultiStorageBackend) backfill(ctx context.Context, backends []interfaces.StorageBackend, key string, data []byte) {
	for _, backend := range backends {
		if err := backend.Store(ctx, key, data); err != nil {
			m.log.Debug("Backfill failed", "backend", backend.Name(), "key", key, "err", err)
		}
	}
}

// Store succeeds when at least one backend accepted the write.
func (m *MultiStorageBackend) Store(ctx context.Context, key string, data []byte) error {
	var (
		stored int
		errs   []error
	)

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			continue
		}
		if err := backend.Store(ctx, key, data); err != nil {
			m.log.Debug("Backend store failed", "backend", backend.Name(), "key", key, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			continue
		}
		stored++
	}

	switch {
	case stored > 0:
		return nil
	case len(errs) == 0:
		return interfaces.ErrBackendUnavailable
	default:
		m.log.Warn("No backend accepted the write", "key", key, "failed", len(errs))
		return fmt.Errorf("storing %s: %w", key, errors.Join(errs...))
	}
}

// Available reports whether any backend is available.
func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

func (m *MultiStorageBackend) LocationURI() string {
	locations := make([]string, len(m.backends))
	for i, backend := range m.backends {
		locations[i] = backend.LocationURI()
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}
