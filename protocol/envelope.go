package protocol

// Wire envelopes for the sync channel. Each envelope is tagged with the
// message kind and the storage sequence number it resolves; exactly one of
// the kind-specific payloads is set.

type GroupText struct {
	MsgID       string `json:"msg_id"`
	SiteUserID  string `json:"site_user_id"`
	SiteGroupID string `json:"site_group_id"`
	Text        string `json:"text"`
	Time        int64  `json:"time"`
}

type GroupImage struct {
	MsgID       string `json:"msg_id"`
	SiteUserID  string `json:"site_user_id"`
	SiteGroupID string `json:"site_group_id"`
	ImageID     string `json:"image_id"`
	Time        int64  `json:"time"`
}

type GroupVoice struct {
	MsgID       string `json:"msg_id"`
	SiteUserID  string `json:"site_user_id"`
	SiteGroupID string `json:"site_group_id"`
	VoiceID     string `json:"voice_id"`
	Time        int64  `json:"time"`
}

type MsgWithPointer struct {
	Type    int32       `json:"type"`
	Pointer int64       `json:"pointer"`
	Text    *GroupText  `json:"group_text,omitempty"`
	Image   *GroupImage `json:"group_image,omitempty"`
	Voice   *GroupVoice `json:"group_voice,omitempty"`
}

// BatchBody is the data payload of one im.stc.message frame.
type BatchBody struct {
	List []*MsgWithPointer `json:"list"`
}
