package kv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb, opts...)
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	if _, ok, err := s.Get("missing"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := s.Set("auth_token", "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("theme", "dark"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := s.Get("auth_token")
	if err != nil || !ok || v != "abc" {
		t.Fatalf("expected abc, got %q ok=%v err=%v", v, ok, err)
	}
	if err := s.Set("auth_token", "def"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, _, _ := s.Get("auth_token"); v != "def" {
		t.Fatalf("expected overwrite to def, got %q", v)
	}
	if err := s.Remove("auth_token"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := s.Get("auth_token"); ok {
		t.Fatal("expected removed key to be absent")
	}
	if err := s.Remove("auth_token"); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := s.Get("theme"); ok {
		t.Fatal("expected clear to remove all keys")
	}
}

func TestMemoryStoreContract(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStoreContract(t *testing.T) {
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	exerciseStore(t, s)
}

func TestRedisStoreContract(t *testing.T) {
	s, _, done := newRedisStoreTest(t)
	defer done()
	exerciseStore(t, s)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	s, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set("resident_context", `{"resident_id":"r-1"}`); err != nil {
		t.Fatalf("set: %v", err)
	}

	reopened, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	v, ok, err := reopened.Get("resident_context")
	if err != nil || !ok || v != `{"resident_id":"r-1"}` {
		t.Fatalf("expected value after reopen, got %q ok=%v err=%v", v, ok, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := OpenFileStore(path); err == nil {
		t.Fatal("expected corrupt file to fail open")
	}
}

func TestRedisStoreClearKeepsForeignKeys(t *testing.T) {
	s, mr, done := newRedisStoreTest(t, WithRedisPrefix("app:"))
	defer done()

	if err := mr.Set("other:keep", "1"); err != nil {
		t.Fatalf("seed foreign key: %v", err)
	}
	if err := s.Set("theme", "dark"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("app:theme") {
		t.Fatal("expected prefixed key in redis")
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("app:theme") {
		t.Fatal("expected prefixed key removed")
	}
	if !mr.Exists("other:keep") {
		t.Fatal("expected foreign key to survive clear")
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	s, mr, done := newRedisStoreTest(t)
	defer done()
	mr.Close()

	if _, _, err := s.Get("k"); err == nil {
		t.Fatal("expected error from closed redis")
	}
}
