package localstore

import (
	"fmt"

	"github.com/anonto42/onlyme/pkg/config"
	"github.com/rs/zerolog/log"
)

// Open returns the store selected by cfg.LocalStore, using the connections
// opened by config.InitStores.
func Open(cfg *config.Config, stores *config.Stores) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.LocalStore {
	case "file":
		store, err = NewFileStore(cfg.StatePath)
	case "memory":
		store = NewMemoryStore()
	case "redis":
		store = NewRedisStore(stores.Redis)
	case "mongo":
		store = NewMongoStore(stores.Mongo.Database(cfg.MongoDatabase).Collection(mongoCollection))
	case "postgres":
		pg := NewPostgresStore(stores.Postgres)
		err = pg.Migrate()
		store = pg
	default:
		return nil, fmt.Errorf("unknown local store %q", cfg.LocalStore)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.LocalStore).Msg("Local state store ready.")
	return store, nil
}
