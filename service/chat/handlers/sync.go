package handlers

import (
	"context"
	"time"

	gsync "SyncIM/module/sync"
	"SyncIM/service/chat"
	"SyncIM/tools/decode"
	"SyncIM/tools/errs"
)

// syncTimeout bounds one whole sync round; a device with a deep backlog
// still finishes well inside this with pages of 100.
const syncTimeout = 60 * time.Second

type SyncHandler struct{}

func NewSyncHandler() chat.Handler { return &SyncHandler{} }

func (h *SyncHandler) Type() chat.FrameType { return chat.FrameSync }

// Handle decodes the client's per-group pointers and runs the drain round
// on the caller's read-loop goroutine: pages within one session must stay
// ordered, so there is nothing to parallelize here.
func (h *SyncHandler) Handle(ctx *chat.Context, f *chat.Frame, conn *chat.WsConn) error {
	var groupsPointer map[string]int64
	if f.Payload != nil {
		payload, err := decode.DecodeMap[chat.SyncPayload](f.Payload)
		if err != nil {
			return errs.WrapMsg(err, "decode sync payload", "snowID", conn.SnowID)
		}
		groupsPointer = payload.GroupsPointer
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	ctx.S.Engine().Handle(reqCtx, &gsync.Request{
		SiteUserID:    conn.UserID,
		DeviceID:      conn.DeviceID,
		GroupsPointer: groupsPointer,
	}, conn)
	return nil
}
