package store

import (
	"context"

	"SyncIM/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
)

// ListGroups enumerates the group ids the user is a member of, in
// membership creation order.
func (s *Store) ListGroups(ctx context.Context, siteUserID string) ([]string, error) {
	cur, err := s.MemberColl.Find(ctx,
		bson.M{"site_user_id": siteUserID})
	if err != nil {
		return nil, errs.WrapMsg(err, "find group members", "user", siteUserID)
	}
	defer func() { _ = cur.Close(ctx) }()

	var groups []string
	for cur.Next(ctx) {
		var m struct {
			SiteGroupID string `bson:"site_group_id"`
		}
		if err := cur.Decode(&m); err != nil {
			return nil, errs.Wrap(err)
		}
		groups = append(groups, m.SiteGroupID)
	}
	return groups, errs.Wrap(cur.Err())
}
