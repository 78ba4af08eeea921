package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestAccountStorePutAndLookup(t *testing.T) {
	rdb, _ := newRedis(t)
	s := NewAccountStore(rdb, "")
	ctx := context.Background()

	acc := Account{ID: "u-1", Email: " Made@Desa.ID ", Name: "Made", Role: "ADMIN", PasswordHash: "$argon2id$x"}
	if err := s.Put(ctx, acc); err != nil {
		t.Fatalf("put: %v", err)
	}

	byEmail, err := s.ByEmail(ctx, "made@desa.id")
	if err != nil {
		t.Fatalf("by email: %v", err)
	}
	if byEmail.ID != "u-1" || byEmail.Email != "made@desa.id" {
		t.Fatalf("unexpected account: %+v", byEmail)
	}

	byID, err := s.ByID(ctx, "u-1")
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if byID.Name != "Made" {
		t.Fatalf("unexpected account: %+v", byID)
	}
}

func TestAccountStoreNotFound(t *testing.T) {
	rdb, _ := newRedis(t)
	s := NewAccountStore(rdb, "devapi")

	if _, err := s.ByEmail(context.Background(), "none@desa.id"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := s.ByID(context.Background(), "missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountStoreRejectsIncomplete(t *testing.T) {
	rdb, _ := newRedis(t)
	s := NewAccountStore(rdb, "devapi")

	if err := s.Put(context.Background(), Account{ID: "u-1", Email: "a@desa.id"}); !errors.Is(err, ErrAccountInvalid) {
		t.Fatalf("expected ErrAccountInvalid, got %v", err)
	}
}

func TestAccountStoreCorruptRecord(t *testing.T) {
	rdb, mr := newRedis(t)
	s := NewAccountStore(rdb, "devapi")
	if err := mr.Set("devapi:account:a@desa.id", "{not json"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.ByEmail(context.Background(), "a@desa.id"); !errors.Is(err, ErrAccountInvalid) {
		t.Fatalf("expected ErrAccountInvalid, got %v", err)
	}
}

func TestRevocationStore(t *testing.T) {
	rdb, mr := newRedis(t)
	s := NewRevocationStore(rdb, "devapi")
	ctx := context.Background()

	if err := s.Revoke(ctx, "token-a", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, _ := s.IsRevoked(ctx, "token-a"); !revoked {
		t.Fatal("expected token-a revoked")
	}
	if revoked, _ := s.IsRevoked(ctx, "token-b"); revoked {
		t.Fatal("token-b must not be revoked")
	}

	mr.FastForward(2 * time.Minute)
	if revoked, _ := s.IsRevoked(ctx, "token-a"); revoked {
		t.Fatal("revocation must expire with the token")
	}
}

func TestRevocationStoreSkipsExpired(t *testing.T) {
	rdb, mr := newRedis(t)
	s := NewRevocationStore(rdb, "devapi")

	if err := s.Revoke(context.Background(), "old", 0); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected no keys, got %v", mr.Keys())
	}
}
