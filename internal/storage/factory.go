// Package storage selects and builds the configured persistence backend.
package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/storage/memory"
	"github.com/bobmcallan/treasury/internal/storage/postgres"
	"github.com/bobmcallan/treasury/internal/storage/surrealdb"
)

// NewStorageManager creates a storage manager based on the configuration.
// Supported backends: "surrealdb" (default), "postgres", "memory".
func NewStorageManager(ctx context.Context, logger *common.Logger, config *common.Config) (interfaces.StorageManager, error) {
	backend := config.Storage.Backend
	if backend == "" {
		backend = common.BackendSurrealDB
	}

	switch backend {
	case common.BackendSurrealDB:
		m, err := surrealdb.NewManager(ctx, logger, config.Storage.SurrealDB)
		if err != nil {
			return nil, err
		}
		return m, nil

	case common.BackendPostgres:
		m, err := postgres.NewManager(ctx, logger, config.Storage.Postgres)
		if err != nil {
			return nil, err
		}
		return m, nil

	case common.BackendMemory:
		return memory.NewManager(logger), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: surrealdb, postgres, memory)", backend)
	}
}
