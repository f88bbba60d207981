package core

import (
	"fmt"
	"os"

	"storagecore/internal/catalog"
	"storagecore/internal/infra/persistence/memory"
	"storagecore/internal/infra/persistence/postgres"
	"storagecore/internal/infra/persistence/sqlite"
)

// CatalogDriver identifies a concrete catalog persistence implementation.
type CatalogDriver string

const (
	CatalogMemory   CatalogDriver = "memory"   // in-memory only (tests / ephemeral)
	CatalogSQLite   CatalogDriver = "sqlite"   // embedded sqlite file
	CatalogPostgres CatalogDriver = "postgres" // PostgreSQL server
)

// OpenCatalogStore selects a catalog backend. Empty arguments fall back to
// environment variables, defaulting to sqlite.
//
//	STORAGECORE_CATALOG_DRIVER: memory|sqlite|postgres (default sqlite)
//	STORAGECORE_SQLITE_PATH: path to sqlite file (default ./storagecore.db)
//	STORAGECORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenCatalogStore(driver CatalogDriver, dsn string, engine *catalog.RulesEngine) (catalog.PersistentStore, error) {
	if driver == "" {
		driver = CatalogDriver(os.Getenv("STORAGECORE_CATALOG_DRIVER"))
	}
	if driver == "" {
		driver = CatalogSQLite
	}
	switch driver {
	case CatalogMemory:
		return memory.NewStore(engine), nil
	case CatalogSQLite:
		path := dsn
		if path == "" {
			path = os.Getenv("STORAGECORE_SQLITE_PATH")
		}
		return sqlite.NewStore(path, engine)
	case CatalogPostgres:
		if dsn == "" {
			dsn = os.Getenv("STORAGECORE_POSTGRES_DSN")
		}
		return postgres.NewStore(dsn, engine)
	default:
		return nil, fmt.Errorf("unknown catalog driver %s", driver)
	}
}
