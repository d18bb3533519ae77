package app

import (
	"fmt"
	"strings"

	"github.com/shrimpsizemoose/gradebook/internal/store"
	"github.com/shrimpsizemoose/gradebook/internal/store/postgres"
	"github.com/shrimpsizemoose/gradebook/internal/store/sqlite"
)

func NewStore(config *Config) (store.Store, error) {
	dbConfig := &store.DBConfig{
		DSN:               config.Database.DSN,
		Type:              store.DBTypeSQLite,
		MigrationsDir:     config.Database.MigrationsDir,
		MaxAppendAttempts: config.Events.MaxAppendAttempts,
	}
	if strings.HasPrefix(dbConfig.DSN, "postgres") {
		dbConfig.Type = store.DBTypePostgres
	}

	switch dbConfig.Type {
	case store.DBTypePostgres:
		return postgres.NewPostgresStore(dbConfig)
	case store.DBTypeSQLite:
		return sqlite.NewSQLiteStore(dbConfig)
	default:
		return nil, fmt.Errorf("unable to determine database type from DSN: %s", dbConfig.DSN)
	}
}
