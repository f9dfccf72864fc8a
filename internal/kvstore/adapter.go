package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Adapter reads and writes JSON documents under named keys. It is the only
// place where storage failures are absorbed: callers never see them and
// proceed as if the key held its fallback value.
type Adapter struct {
	backend Backend
	logger  *zap.Logger
}

// NewAdapter wraps a backend. A nil backend behaves like unavailable storage.
func NewAdapter(backend Backend, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{backend: backend, logger: logger}
}

// Backend exposes the underlying storage facility.
func (a *Adapter) Backend() Backend {
	if a == nil {
		return nil
	}
	return a.backend
}

// Load decodes the document stored at key. The fallback is returned when the
// key is absent, holds JSON null, cannot be decoded or storage is unavailable.
func Load[T any](ctx context.Context, a *Adapter, key string, fallback T) T {
	raw, ok := a.read(ctx, key)
	if !ok {
		return fallback
	}
	var decoded *T
	if err := json.Unmarshal(raw, &decoded); err != nil {
		a.logger.Debug("kvstore decode failed", zap.String("key", key), zap.Error(err))
		return fallback
	}
	if decoded == nil {
		return fallback
	}
	return *decoded
}

// Save encodes value and stores it at key. Failures are swallowed.
func (a *Adapter) Save(ctx context.Context, key string, value any) {
	if a == nil || a.backend == nil {
		return
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		a.logger.Debug("kvstore encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := a.backend.Set(ctx, key, encoded); err != nil {
		a.logger.Debug("kvstore write failed", zap.String("key", key), zap.Error(err))
	}
}

// Remove deletes key. Failures are swallowed.
func (a *Adapter) Remove(ctx context.Context, key string) {
	if a == nil || a.backend == nil {
		return
	}
	if err := a.backend.Delete(ctx, key); err != nil {
		a.logger.Debug("kvstore delete failed", zap.String("key", key), zap.Error(err))
	}
}

// ErrUnavailable reports that no backend is configured.
var ErrUnavailable = errors.New("kvstore: storage unavailable")

// ForgetScope removes every document stored under the scope and reports how
// many keys were removed. Unlike the document operations it surfaces listing
// failures, since the caller asked for an erasure.
func (a *Adapter) ForgetScope(ctx context.Context, scopeID string) (int, error) {
	if strings.TrimSpace(scopeID) == "" {
		return 0, errors.New("kvstore: scope id is required")
	}
	if a == nil || a.backend == nil {
		return 0, ErrUnavailable
	}
	keys, err := a.backend.Keys(ctx, ScopePrefix(scopeID))
	if err != nil {
		return 0, fmt.Errorf("list scope %s: %w", scopeID, err)
	}
	for _, key := range keys {
		a.Remove(ctx, key)
	}
	return len(keys), nil
}

func (a *Adapter) read(ctx context.Context, key string) ([]byte, bool) {
	if a == nil || a.backend == nil {
		return nil, false
	}
	raw, err := a.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.logger.Debug("kvstore read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return raw, true
}

// Repository binds one persisted key to its document type and fallback.
type Repository[T any] struct {
	adapter  *Adapter
	key      string
	fallback func() T
}

// NewRepository builds a repository. fallback is invoked on every miss so
// callers never share a mutable default.
func NewRepository[T any](adapter *Adapter, key string, fallback func() T) Repository[T] {
	if fallback == nil {
		fallback = func() T {
			var zero T
			return zero
		}
	}
	return Repository[T]{adapter: adapter, key: key, fallback: fallback}
}

// Key returns the storage key.
func (r Repository[T]) Key() string {
	return r.key
}

// Load returns the stored document or the fallback.
func (r Repository[T]) Load(ctx context.Context) T {
	return Load(ctx, r.adapter, r.key, r.fallback())
}

// Save replaces the stored document.
func (r Repository[T]) Save(ctx context.Context, value T) {
	r.adapter.Save(ctx, r.key, value)
}

// Remove deletes the stored document.
func (r Repository[T]) Remove(ctx context.Context) {
	r.adapter.Remove(ctx, r.key)
}
