package mgo

import (
	"context"
	"sync"
	"time"

	"SyncIM/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Config struct {
	URI         string
	Database    string
	Username    string
	Password    string
	AuthSource  string
	MaxPoolSize int
	MaxRetry    int
}

type MongoManager struct {
	mu sync.RWMutex
	db *mongo.Database
}

var globalMgr MongoManager

// Init connects with bounded retries and keeps the database handle in the
// package singleton. Reconnects after that are the driver's business.
func Init(ctx context.Context, cfg *Config) error {
	if cfg.URI == "" {
		return errs.New("mongo uri is required")
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 3
	}

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	}
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthSource: cfg.AuthSource,
		})
	}

	var (
		cli *mongo.Client
		err error
	)
	for i := 0; i < cfg.MaxRetry; i++ {
		cli, err = connect(ctx, opts)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	if err != nil {
		return errs.WrapMsg(err, "connect to mongodb", "uri", cfg.URI)
	}

	globalMgr.mu.Lock()
	globalMgr.db = cli.Database(cfg.Database)
	globalMgr.mu.Unlock()
	return nil
}

func connect(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return cli, nil
}

func GetDB() *mongo.Database {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	if globalMgr.db == nil {
		panic("Mongo not ready: call Init first")
	}
	return globalMgr.db
}

func TryGetDB() (*mongo.Database, bool) {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	if globalMgr.db == nil {
		return nil, false
	}
	return globalMgr.db, true
}
