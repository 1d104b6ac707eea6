package storage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func backends(t *testing.T) map[string]Store {
	t.Helper()

	_, rdb := newTestRedis(t)
	sq, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "state.db"), "test")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"redis":  NewRedis(rdb, "hb"),
		"sqlite": sq,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(ctx, "token"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on empty store, got %v", err)
			}

			if err := s.Set(ctx, "token", []byte("abc")); err != nil {
				t.Fatalf("set: %v", err)
			}
			got, err := s.Get(ctx, "token")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if !bytes.Equal(got, []byte("abc")) {
				t.Fatalf("expected abc, got %q", got)
			}

			if err := s.Set(ctx, "token", []byte("xyz")); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, _ = s.Get(ctx, "token")
			if string(got) != "xyz" {
				t.Fatalf("expected last write to win, got %q", got)
			}

			if err := s.Delete(ctx, "token"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := s.Delete(ctx, "token"); err != nil {
				t.Fatalf("second delete must be idempotent: %v", err)
			}
			if _, err := s.Get(ctx, "token"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, " ", []byte("x")); !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("expected ErrInvalidKey, got %v", err)
			}
			if _, err := s.Get(ctx, ""); !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("expected ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestRedisUsesPrefix(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedis(rdb, "hb")

	if err := s.Set(context.Background(), "hostel-snacker-current-seller", []byte("12")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := mr.Get("hb:hostel-snacker-current-seller")
	if err != nil {
		t.Fatalf("expected prefixed key in redis: %v", err)
	}
	if got != "12" {
		t.Fatalf("expected 12, got %q", got)
	}
	if mr.TTL("hb:hostel-snacker-current-seller") != 0 {
		t.Fatal("blob keys must not carry a TTL")
	}
}

func TestRedisUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedis(rdb, "hb")
	mr.Close()

	if err := s.Set(context.Background(), "token", []byte("x")); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := s.Get(context.Background(), "token"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestDialRedis(t *testing.T) {
	mr, _ := newTestRedis(t)
	s, err := DialRedis(context.Background(), mr.Addr(), "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()
	if _, err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	first, err := OpenSQLite(ctx, path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Set(ctx, "hostel-snacker-cart-items", []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := OpenSQLite(ctx, path, "")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, err := second.Get(ctx, "hostel-snacker-cart-items")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if string(got) != "[]" {
		t.Fatalf("expected [], got %q", got)
	}
}

func TestSQLiteNamespacesIsolate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	a, err := OpenSQLite(ctx, path, "alice")
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	defer a.Close()
	if err := a.Set(ctx, "token", []byte("A")); err != nil {
		t.Fatalf("set: %v", err)
	}

	b, err := OpenSQLite(ctx, path, "bob")
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer b.Close()
	if _, err := b.Get(ctx, "token"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected namespaces to be isolated, got %v", err)
	}
}

func TestMemoryClosed(t *testing.T) {
	m := NewMemory()
	_ = m.Close()
	if err := m.Set(context.Background(), "k", nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after close, got %v", err)
	}
}

func TestNamespaceWrapper(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	a := Namespace(mem, "alice")
	b := Namespace(mem, "bob")

	if err := a.Set(ctx, "token", []byte("a")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := b.Get(ctx, "token"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected bob to see nothing, got %v", err)
	}
	if got, err := mem.Get(ctx, "alice:token"); err != nil || string(got) != "a" {
		t.Fatalf("expected raw key alice:token, got %q %v", got, err)
	}
	if err := a.Set(ctx, "", nil); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if Namespace(mem, "") != Store(mem) {
		t.Fatalf("empty namespace should return the inner store")
	}
}
