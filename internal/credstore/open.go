package credstore

import (
	"context"
	"fmt"

	"smartcapi-client/internal/config"
	"smartcapi-client/internal/domain"
	"smartcapi-client/internal/repository/postgres"
)

// Open builds the store selected by cfg.StoreBackend. The returned
// close function releases any connection the store holds.
func Open(ctx context.Context, cfg *config.Config) (domain.CredentialStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreBackend {
	case config.StoreMemory:
		return NewMemoryStore(), noop, nil

	case config.StoreFile:
		s, err := NewFileStore(cfg.StorePath, cfg.StoreScope)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil

	case config.StoreRedis:
		client, err := config.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(client, cfg.StoreScope), client.Close, nil

	case config.StorePostgres:
		db, err := config.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		repo, err := postgres.NewCredentialRepository(db, cfg.StoreScope)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, func() error {
			repo.Close()
			return db.Close()
		}, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
