package store

import (
	"context"
	"fmt"

	"SyncIM/tools/errs"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func pointerKey(groupID, userID, deviceID string) string {
	return fmt.Sprintf("im:sync:seq:%s:%s:%s", groupID, userID, deviceID)
}

// GetPointer returns the persisted delivery watermark for the triple,
// 0 when none exists. Reads go through the Redis cache when configured;
// a cache miss falls back to Mongo and refills the key. The engine never
// writes the watermark itself, so caching the read is safe: a stale low
// value only causes redelivery of unacknowledged records.
func (s *Store) GetPointer(ctx context.Context, siteGroupID, siteUserID, deviceID string) (int64, error) {
	key := pointerKey(siteGroupID, siteUserID, deviceID)
	if s.rdb != nil {
		if v, err := s.rdb.Get(ctx, key).Int64(); err == nil {
			return v, nil
		} else if err != redis.Nil {
			return 0, errs.WrapMsg(err, "read pointer cache", "key", key)
		}
	}

	var doc struct {
		Pointer int64 `bson:"pointer"`
	}
	err := s.SeqColl.FindOne(ctx, bson.M{
		"site_group_id": siteGroupID,
		"site_user_id":  siteUserID,
		"device_id":     deviceID,
	}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, errs.WrapMsg(err, "query device pointer",
			"group", siteGroupID, "user", siteUserID, "device", deviceID)
	}

	if s.rdb != nil {
		_ = s.rdb.Set(ctx, key, doc.Pointer, s.pointerTTL).Err()
	}
	return doc.Pointer, nil
}
