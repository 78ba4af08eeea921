package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountBackend  = errors.New("account backend unavailable")
	ErrAccountInvalid  = errors.New("account record invalid")
)

// Account is one development login.
type Account struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	PasswordHash string `json:"password_hash"`
}

// AccountStore keeps accounts as JSON under <prefix>:account:<email> with an
// id index at <prefix>:account-id:<id>.
type AccountStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewAccountStore keys accounts under prefix.
func NewAccountStore(redisClient redis.UniversalClient, prefix string) *AccountStore {
	if prefix == "" {
		prefix = "devapi"
	}
	return &AccountStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AccountStore) emailKey(email string) string {
	return s.prefix + ":account:" + normalizeEmail(email)
}

func (s *AccountStore) idKey(id string) string {
	return s.prefix + ":account-id:" + id
}

// Put creates or replaces an account.
func (s *AccountStore) Put(ctx context.Context, a Account) error {
	if a.ID == "" || normalizeEmail(a.Email) == "" || a.PasswordHash == "" {
		return ErrAccountInvalid
	}
	a.Email = normalizeEmail(a.Email)

	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.emailKey(a.Email), data, 0)
		p.Set(ctx, s.idKey(a.ID), a.Email, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountBackend, err)
	}
	return nil
}

// ByEmail looks up an account case-insensitively.
func (s *AccountStore) ByEmail(ctx context.Context, email string) (Account, error) {
	data, err := s.redis.Get(ctx, s.emailKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("%w: %v", ErrAccountBackend, err)
	}

	var a Account
	if err := json.Unmarshal(data, &a); err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrAccountInvalid, err)
	}
	return a, nil
}

// ByID resolves the id index then loads the account.
func (s *AccountStore) ByID(ctx context.Context, id string) (Account, error) {
	email, err := s.redis.Get(ctx, s.idKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("%w: %v", ErrAccountBackend, err)
	}
	return s.ByEmail(ctx, email)
}
