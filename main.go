package main

import (
	"context"
	"time"

	"SyncIM/global/config"
	"SyncIM/logger"
	gsync "SyncIM/module/sync"
	"SyncIM/module/sync/store"
	"SyncIM/service/chat"
	"SyncIM/service/chat/handlers"
	mgoSrv "SyncIM/service/mgo"
	redisSrv "SyncIM/service/storage/redis"

	"github.com/redis/go-redis/v9"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := config.ConfigAll(ctx); err != nil {
		logger.Errorf("bootstrap failed: %v", err)
		return
	}

	var rdb redis.UniversalClient
	if c := redisSrv.GetRedis(); c != nil {
		rdb = c
	}
	st := store.NewStore(mgoSrv.GetDB(), rdb)
	engine := gsync.NewEngine(st)

	mgr := chat.NewConnManager(chat.ManagerConf{}, config.Global.NodeID)
	defer mgr.Close()

	srv := chat.NewServer(engine, mgr)
	srv.Disp().Register(handlers.NewSyncHandler())
	srv.Disp().Register(handlers.NewPingHandler())

	logger.Infof("sync gateway %s listening on %s", config.Global.NodeID, config.Global.Port)
	if err := srv.Run(config.Global.Port); err != nil {
		logger.Errorf("server stopped: %v", err)
	}
}
