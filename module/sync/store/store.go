package store

import (
	"time"

	"SyncIM/module/sync/model"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store is the Mongo-backed read surface of the sync gateway, with an
// optional Redis read-through cache in front of the pointer lookups.
type Store struct {
	MsgColl    *mongo.Collection // group_message
	SeqColl    *mongo.Collection // seq_device
	MemberColl *mongo.Collection // group_member

	rdb        redis.UniversalClient // nil disables the pointer cache
	pointerTTL time.Duration
}

func NewStore(db *mongo.Database, rdb redis.UniversalClient) *Store {
	msg := model.GroupMessage{}
	seq := model.DeviceSeq{}
	mem := model.GroupMember{}
	return &Store{
		MsgColl:    db.Collection(msg.TableName()),
		SeqColl:    db.Collection(seq.TableName()),
		MemberColl: db.Collection(mem.TableName()),
		rdb:        rdb,
		pointerTTL: 10 * time.Minute,
	}
}
