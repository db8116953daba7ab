package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/nhigh-tools/deadline-cli/internal/sheet"
)

func initStore(ctx context.Context) (sheet.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "deadline.db"
		}
		return sheet.NewSQLite(dsn)
	case "postgres":
		return sheet.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
