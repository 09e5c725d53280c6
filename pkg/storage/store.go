// Package storage persists a ledger to disk. Every backend saves the full
// state and loads it back through ledger.Restore, so a loaded ledger has
// been replayed and balance-checked.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/shunichi-ikebuchi/beancounter/pkg/ledger"
)

var (
	// ErrNotFound is returned by Load when nothing has been saved yet.
	ErrNotFound = errors.New("no saved ledger")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// Store loads and saves a whole ledger.
type Store interface {
	Load(ctx context.Context, opts ...ledger.Option) (*ledger.Ledger, error)
	Save(ctx context.Context, l *ledger.Ledger) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendYAML   = "yaml"
	BackendBolt   = "bolt"
)

// Open returns the store for backend at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendJSON:
		return NewJSONStore(path), nil
	case BackendYAML:
		return NewYAMLStore(path), nil
	case BackendBolt:
		return OpenBolt(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// LoadOrNew loads the ledger from s, or returns an empty one if nothing
// has been saved.
func LoadOrNew(ctx context.Context, s Store, opts ...ledger.Option) (*ledger.Ledger, error) {
	l, err := s.Load(ctx, opts...)
	if errors.Is(err, ErrNotFound) {
		return ledger.New(opts...), nil
	}
	return l, err
}
