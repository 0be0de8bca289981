package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/dsqlctl/internal/dbx"
	"github.com/dmitrijs2005/dsqlctl/internal/repositories/users"
)

// InMemoryRepositoryManager hands out one shared in-memory users repository
// regardless of the DBTX it is given. Used for dry runs and tests.
type InMemoryRepositoryManager struct {
	users *users.InMemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{users: users.NewInMemoryRepository()}
}

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.users
}

// RunMigrations is a no-op: the in-memory table exists from construction.
func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}
