package model

const DeviceSeqTableName = "seq_device"

// DeviceSeq is the persisted delivery watermark of one device inside one
// group: the highest message sequence number already delivered to
// (group, user, device). It only ever moves forward.
//
// The sync engine reads this document and recommends advancement; the
// write-back happens on the acknowledgment path, not here.
type DeviceSeq struct {
	SiteGroupID string `bson:"site_group_id"`
	SiteUserID  string `bson:"site_user_id"`
	DeviceID    string `bson:"device_id"`
	Pointer     int64  `bson:"pointer"`
	UpdateTime  int64  `bson:"update_time"` // Unix ms
}

func (*DeviceSeq) TableName() string { return DeviceSeqTableName }
