package model

const GroupMemberTableName = "group_member"

// GroupMember links a user to a group. Sync enumerates a user's groups
// through this collection; membership management itself lives elsewhere.
type GroupMember struct {
	SiteGroupID string `bson:"site_group_id"`
	SiteUserID  string `bson:"site_user_id"`
	CreateTime  int64  `bson:"create_time"` // Unix ms
}

func (*GroupMember) TableName() string { return GroupMemberTableName }
