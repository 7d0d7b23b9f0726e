package store

import (
	"context"

	"SyncIM/module/sync/model"
	"SyncIM/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FetchPage returns up to limit records of the group with sequence number
// strictly greater than afterSeq, ascending. The user/device ids take no
// part in the query; they are kept in the signature because the gateway
// contract is scoped per device.
func (s *Store) FetchPage(ctx context.Context, siteGroupID, siteUserID, deviceID string, afterSeq int64, limit int) ([]*model.GroupMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "id", Value: 1}}).
		SetLimit(int64(limit))

	cur, err := s.MsgColl.Find(ctx, bson.M{
		"site_group_id": siteGroupID,
		"id":            bson.M{"$gt": afterSeq},
	}, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "find group messages",
			"group", siteGroupID, "after", afterSeq)
	}
	var page []*model.GroupMessage
	if err := cur.All(ctx, &page); err != nil {
		return nil, errs.Wrap(err)
	}
	return page, nil
}
