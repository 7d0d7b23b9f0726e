package model

// Message kinds stored in the group message log. The set is closed by the
// wire protocol; secret variants occupy sequence numbers but are delivered
// through the secret channel, never through group sync.
const (
	MsgTypeGroupText  int32 = 20
	MsgTypeGroupImage int32 = 21
	MsgTypeGroupVoice int32 = 22

	MsgTypeGroupSecretText  int32 = 40
	MsgTypeGroupSecretImage int32 = 41
	MsgTypeGroupSecretVoice int32 = 42
)

const GroupMessageTableName = "group_message"

// GroupMessage is one persisted record of the per-group message log.
// ID is the sequence number: >=1, unique within a group, strictly
// increasing by insertion order. Records are immutable once written.
type GroupMessage struct {
	ID          int64  `bson:"id"`
	SiteGroupID string `bson:"site_group_id"`
	MsgID       string `bson:"msg_id"`
	SendUserID  string `bson:"send_user_id"`
	MsgType     int32  `bson:"msg_type"`
	Content     string `bson:"content"`
	MsgTime     int64  `bson:"msg_time"` // Unix ms
}

func (*GroupMessage) TableName() string { return GroupMessageTableName }

// IsSecretType reports whether the kind is excluded from this sync channel.
func IsSecretType(t int32) bool {
	switch t {
	case MsgTypeGroupSecretText, MsgTypeGroupSecretImage, MsgTypeGroupSecretVoice:
		return true
	}
	return false
}
