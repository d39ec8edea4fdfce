package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leofalp/stageflow/internal/config"
	"github.com/leofalp/stageflow/internal/utils"
	"github.com/leofalp/stageflow/providers/store"
	"github.com/leofalp/stageflow/providers/store/inmemory"
	"github.com/leofalp/stageflow/providers/store/pgstore"
	"github.com/leofalp/stageflow/providers/store/sqlitestore"
)

const defaultStoreFile = "plans.db"

// openStore picks the backend from cfg.DatabaseURL: a postgres URL, the
// literal "memory", or a SQLite path (optionally prefixed with sqlite://).
// Empty means a SQLite file under the user config directory.
func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	switch {
	case dsn == "memory":
		return inmemory.New(), func() {}, nil

	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s := pgstore.New(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil

	default:
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			var err error
			if path, err = defaultStorePath(); err != nil {
				return nil, nil, err
			}
		}
		s, err := sqlitestore.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { utils.CloseWithLog(s) }, nil
	}
}

func defaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	dir = filepath.Join(dir, "stageflow")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return filepath.Join(dir, defaultStoreFile), nil
}

// withStore opens the store, hands it to fn and releases it.
func (a *App) withStore(ctx context.Context, fn func(store.Store) error) error {
	s, release, err := a.OpenStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer release()
	return fn(s)
}
