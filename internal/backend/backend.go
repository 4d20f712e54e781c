// Package backend selects and wires the persistence backend from config.
package backend

import (
	"fmt"

	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/gateway"
	"fintrack/internal/gateway/memory"
	"fintrack/internal/storage"
)

// Backend bundles the data gateway with the user store it shares.
type Backend struct {
	Gateway gateway.Gateway
	Users   auth.UserStore

	// Storage is set only for the sqlite backend. Components that need
	// direct repository access (recurring processor, sync worker) check
	// for nil.
	Storage *storage.Repository
}

// Open builds the backend named by cfg.DataBackend. The sqlite repository
// applies pending migrations as part of opening.
func Open(cfg *config.Config) (*Backend, error) {
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite repository: %w", err)
		}
		return &Backend{Gateway: repo, Users: repo, Storage: repo}, nil

	case "memory":
		store := memory.New()
		return &Backend{Gateway: store, Users: store}, nil

	default:
		return nil, fmt.Errorf("unknown data backend: %s", cfg.DataBackend)
	}
}

// Close releases backend resources.
func (b *Backend) Close() error {
	if b.Storage != nil {
		return b.Storage.Close()
	}
	return nil
}
