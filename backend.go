package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"dinoevent/config"
	"dinoevent/db"
	"dinoevent/models"
	"dinoevent/store"
)

// backend is an opened store plus the connections behind it. Redis is set
// whenever an address is configured, even for other backends, since it
// also carries change notices between instances.
type backend struct {
	Store store.Store
	Redis *redis.Client
	mongo *mongo.Client
}

func (b *backend) Close() {
	if b.Redis != nil {
		b.Redis.Close()
	}
	if b.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b.mongo.Disconnect(ctx)
	}
}

func openBackend(ctx context.Context, cfg *config.Config, seed bool) (*backend, error) {
	b := &backend{}
	if cfg.Redis.Addr != "" {
		client, err := db.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		b.Redis = client
	}

	var examples []models.Event
	if seed {
		loc, err := cfg.Location()
		if err != nil {
			b.Close()
			return nil, err
		}
		examples = store.ExampleEvents(time.Now().In(loc))
	}

	switch cfg.Backend {
	case config.BackendMemory:
		b.Store = store.NewBlobStore(store.NewMemoryBlob(), cfg.Redis.Key, examples)
	case config.BackendFile:
		b.Store = store.NewBlobStore(store.NewFileBlob(cfg.DataDir), cfg.Redis.Key, examples)
	case config.BackendRedis:
		b.Store = store.NewBlobStore(store.NewRedisBlob(b.Redis), cfg.Redis.Key, examples)
	case config.BackendMongo:
		client, err := db.ConnectMongo(ctx, cfg.Mongo.URI, cfg.StoreTimeout)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.mongo = client
		coll, err := db.Events(ctx, client, cfg.Mongo.Database)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Store = store.NewMongoStore(coll)
	}
	return b, nil
}
