package corpus

import (
	"context"
	"fmt"

	"streamcorpus/internal/catalog"
	"streamcorpus/internal/config"
	"streamcorpus/internal/infra/persistence/memory"
	"streamcorpus/internal/infra/persistence/postgres"
	"streamcorpus/internal/infra/persistence/sqlite"
)

// OpenCatalog selects a catalog backend from the catalog section of the
// config. An empty driver means sqlite.
func OpenCatalog(ctx context.Context, cfg config.CatalogConfig) (catalog.Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = config.CatalogDriverSQLite
	}
	switch driver {
	case config.CatalogDriverMemory:
		return memory.NewStore(), nil
	case config.CatalogDriverSQLite:
		st, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.CatalogDriverPostgres:
		st, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown catalog driver %s", driver)
	}
}
