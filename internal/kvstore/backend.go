package kvstore

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound reports that no value is stored under the requested key.
var ErrNotFound = errors.New("kvstore: key not found")

// Backend is the raw byte-level storage facility behind the Adapter.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

const scopeKeyPrefix = "scope/"

// ScopedKey namespaces a storage key under a scope so every scope behaves like its own local storage.
func ScopedKey(scopeID, name string) string {
	return scopeKeyPrefix + strings.TrimSpace(scopeID) + "/" + name
}

// ScopePrefix returns the prefix shared by every key of the scope.
func ScopePrefix(scopeID string) string {
	return scopeKeyPrefix + strings.TrimSpace(scopeID) + "/"
}

// SplitScopedKey is the inverse of ScopedKey.
func SplitScopedKey(key string) (scopeID, name string, ok bool) {
	rest, found := strings.CutPrefix(key, scopeKeyPrefix)
	if !found {
		return "", "", false
	}
	scopeID, name, found = strings.Cut(rest, "/")
	if !found || scopeID == "" || name == "" {
		return "", "", false
	}
	return scopeID, name, true
}
