package sync

import (
	"unicode/utf8"

	"SyncIM/logger"
	"SyncIM/module/sync/model"
	"SyncIM/protocol"
	"SyncIM/tools/errs"
)

// EncodePage converts one fetched page into wire envelopes and reports the
// highest sequence number seen. Secret kinds produce no envelope but still
// count toward the pointer; a record that fails to encode is logged and
// skipped so one bad row cannot wedge the whole group.
func EncodePage(page []*model.GroupMessage) ([]*protocol.MsgWithPointer, int64) {
	list := make([]*protocol.MsgWithPointer, 0, len(page))
	var next int64
	for _, gmsg := range page {
		if gmsg.ID > next {
			next = gmsg.ID
		}
		if model.IsSecretType(gmsg.MsgType) {
			continue
		}
		env, err := encodeOne(gmsg)
		if err != nil {
			logger.Errorf("sync group message encode failed, skip. group=%s seq=%d type=%d err=%v",
				gmsg.SiteGroupID, gmsg.ID, gmsg.MsgType, err)
			continue
		}
		list = append(list, env)
	}
	return list, next
}

func encodeOne(gmsg *model.GroupMessage) (*protocol.MsgWithPointer, error) {
	if gmsg.MsgID == "" {
		return nil, errs.New("empty msg_id")
	}
	env := &protocol.MsgWithPointer{
		Type:    gmsg.MsgType,
		Pointer: gmsg.ID,
	}
	switch gmsg.MsgType {
	case model.MsgTypeGroupText:
		if !utf8.ValidString(gmsg.Content) {
			return nil, errs.New("text content is not valid utf-8")
		}
		env.Text = &protocol.GroupText{
			MsgID:       gmsg.MsgID,
			SiteUserID:  gmsg.SendUserID,
			SiteGroupID: gmsg.SiteGroupID,
			Text:        gmsg.Content,
			Time:        gmsg.MsgTime,
		}
	case model.MsgTypeGroupImage:
		if gmsg.Content == "" {
			return nil, errs.New("empty image id")
		}
		env.Image = &protocol.GroupImage{
			MsgID:       gmsg.MsgID,
			SiteUserID:  gmsg.SendUserID,
			SiteGroupID: gmsg.SiteGroupID,
			ImageID:     gmsg.Content,
			Time:        gmsg.MsgTime,
		}
	case model.MsgTypeGroupVoice:
		if gmsg.Content == "" {
			return nil, errs.New("empty voice id")
		}
		env.Voice = &protocol.GroupVoice{
			MsgID:       gmsg.MsgID,
			SiteUserID:  gmsg.SendUserID,
			SiteGroupID: gmsg.SiteGroupID,
			VoiceID:     gmsg.Content,
			Time:        gmsg.MsgTime,
		}
	default:
		return nil, errs.New("unknown message type", "type", gmsg.MsgType)
	}
	return env, nil
}
