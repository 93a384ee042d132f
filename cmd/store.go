package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crime-etl/internal/config"
	"github.com/sells-group/crime-etl/internal/store"
)

// errNoStore is returned when a command needs a store but the driver is "none".
var errNoStore = eris.New("no store configured (store.driver is none)")

// initStore opens and migrates the configured store.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch c.Store.Driver {
	case "sqlite":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "crimes_cleaned.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{MaxConns: c.Store.MaxConns})
	case "none":
		return nil, errNoStore
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
