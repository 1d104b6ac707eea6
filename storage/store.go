package storage

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by Get when no blob is stored under the key.
	ErrNotFound = errors.New("storage: key not found")
	// ErrUnavailable wraps backend failures (network, disk, closed handle).
	ErrUnavailable = errors.New("storage: backend unavailable")
	// ErrInvalidKey is returned for empty keys.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Store is a keyed blob store: the client's "local storage".
//
// Implementations must be safe for concurrent use. Writes are last-writer-wins
// and nothing is synchronized across processes sharing a backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}

func namespaced(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}

// Namespace scopes every key of inner under ns. Close is forwarded.
func Namespace(inner Store, ns string) Store {
	if ns == "" {
		return inner
	}
	return &prefixed{inner: inner, ns: ns}
}

type prefixed struct {
	inner Store
	ns    string
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	return p.inner.Get(ctx, namespaced(p.ns, key))
}

func (p *prefixed) Set(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return p.inner.Set(ctx, namespaced(p.ns, key), value)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return p.inner.Delete(ctx, namespaced(p.ns, key))
}

func (p *prefixed) Close() error {
	return p.inner.Close()
}
