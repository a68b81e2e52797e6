package repomanager

import (
	"context"

	"github.com/dmitrijs2005/recipehub/internal/server/repositories/memory"
	"github.com/dmitrijs2005/recipehub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/recipehub/internal/server/repositories/users"
)

type MemoryRepositoryManager struct {
	store *memory.Store
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{store: memory.NewStore()}
}

func (m *MemoryRepositoryManager) Users() users.Repository                 { return m.store }
func (m *MemoryRepositoryManager) RefreshTokens() refreshtokens.Repository { return m.store }
func (m *MemoryRepositoryManager) RunMigrations(context.Context) error     { return nil }
func (m *MemoryRepositoryManager) Close(context.Context) error             { return nil }
