package store

import (
	"github.com/pkg/errors"

	"github.com/proxiehq/proxie-go/internal/profile"
)

// NewDeviceStore creates the device-scoped KV based on profile.
//
// SQLite: persisted per-device store for correlation identifiers.
// Memory: ephemeral store for tests and throwaway sessions.
func NewDeviceStore(p *profile.Profile) (KV, error) {
	switch p.Driver {
	case "sqlite":
		return NewSQLiteKV(p.DSN)
	case "memory":
		return NewMemoryKV(), nil
	default:
		return nil, errors.Errorf("unknown device store driver %q: only 'sqlite' and 'memory' are supported", p.Driver)
	}
}
