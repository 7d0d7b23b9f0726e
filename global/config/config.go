package config

import (
	"context"
	"os"

	"SyncIM/logger"
	mgoSrv "SyncIM/service/mgo"
	redisSrv "SyncIM/service/storage/redis"
	"SyncIM/tools/ids"
)

type AppConfig struct {
	NodeID   string
	NodeNum  int64
	Port     string
	MongoURI string
	MongoDB  string
	Redis    redisSrv.Config
}

var Global = AppConfig{
	NodeID:   "sync_gateway_1",
	NodeNum:  100,
	Port:     ":8080",
	MongoURI: "mongodb://localhost:27017",
	MongoDB:  "imsite",
	Redis: redisSrv.Config{
		Addr: "127.0.0.1:6379", DB: 0, PoolSize: 20,
	},
}

// ConfigAll applies env overrides and brings up ids, redis and mongo.
// Redis is optional (pointer cache only); mongo is not.
func ConfigAll(ctx context.Context) error {
	applyEnv()
	ConfigIds()
	ConfigRedis()
	return ConfigMgo(ctx)
}

func applyEnv() {
	if v := os.Getenv("SYNCIM_PORT"); v != "" {
		Global.Port = v
	}
	if v := os.Getenv("SYNCIM_MONGO_URI"); v != "" {
		Global.MongoURI = v
	}
	if v := os.Getenv("SYNCIM_MONGO_DB"); v != "" {
		Global.MongoDB = v
	}
	if v := os.Getenv("SYNCIM_REDIS_ADDR"); v != "" {
		Global.Redis.Addr = v
	}
}

func ConfigIds() {
	ids.SetNodeID(Global.NodeNum)
}

func ConfigRedis() {
	if err := redisSrv.InitRedis(Global.Redis); err != nil {
		logger.Infof("redis unavailable, pointer cache disabled: %v", err)
	}
}

func ConfigMgo(ctx context.Context) error {
	return mgoSrv.Init(ctx, &mgoSrv.Config{
		URI:         Global.MongoURI,
		Database:    Global.MongoDB,
		MaxPoolSize: 20,
		MaxRetry:    3,
	})
}
