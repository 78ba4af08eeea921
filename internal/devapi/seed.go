package devapi

import (
	"context"
	"fmt"
	"os"

	"github.com/banjarlabs/iuran/internal/stores"
	"github.com/banjarlabs/iuran/session"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// SeedAccount is a plaintext account definition from a seed file.
type SeedAccount struct {
	ID       string `yaml:"id"`
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
}

type seedFile struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

// DefaultSeeds has one account per role, all with password "iuran-dev-2026".
func DefaultSeeds() []SeedAccount {
	return []SeedAccount{
		{Email: "admin@iuran.local", Name: "Kelian Banjar", Role: string(session.RoleAdmin), Password: "iuran-dev-2026"},
		{Email: "krama@iuran.local", Name: "Krama Banjar", Role: string(session.RoleKrama), Password: "iuran-dev-2026"},
		{Email: "operator@iuran.local", Name: "Petugas Iuran", Role: string(session.RoleOperator), Password: "iuran-dev-2026"},
	}
}

// LoadSeeds reads a YAML file with a top-level "accounts" list.
func LoadSeeds(path string) ([]SeedAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return f.Accounts, nil
}

// Seed hashes and stores each account. Accounts without an ID get a random
// UUID.
func (s *Server) Seed(ctx context.Context, seeds []SeedAccount) error {
	for _, sa := range seeds {
		role, ok := session.ParseRole(sa.Role)
		if !ok {
			return fmt.Errorf("seed %s: unknown role %q", sa.Email, sa.Role)
		}
		hash, err := s.hasher.Hash(sa.Password)
		if err != nil {
			return fmt.Errorf("seed %s: %w", sa.Email, err)
		}
		id := sa.ID
		if id == "" {
			id = uuid.NewString()
		}
		if err := s.accounts.Put(ctx, stores.Account{
			ID:           id,
			Email:        sa.Email,
			Name:         sa.Name,
			Role:         string(role),
			PasswordHash: hash,
		}); err != nil {
			return fmt.Errorf("seed %s: %w", sa.Email, err)
		}
		s.logger.Debug().Str("email", sa.Email).Str("role", string(role)).Msg("seeded account")
	}
	return nil
}
