package sync

import (
	"context"
	"encoding/json"

	"SyncIM/logger"
	"SyncIM/protocol"
	"SyncIM/tools/errs"
	"SyncIM/tools/safe"
)

// SyncMaxMessageCount is the fixed page size of one storage fetch. A page
// shorter than this is the end-of-backlog signal, so the value must match
// the query limit exactly.
const SyncMaxMessageCount = 100

// Request is one device's sync round: the client's per-group pointers may
// omit groups entirely; an absent entry reads as 0.
type Request struct {
	SiteUserID    string           `json:"site_user_id"`
	DeviceID      string           `json:"device_id"`
	GroupsPointer map[string]int64 `json:"groups_pointer"`
}

type Engine struct {
	gw Gateway
}

func NewEngine(gw Gateway) *Engine {
	safe.MustNotNil(gw, "sync gateway")
	return &Engine{gw: gw}
}

// Handle runs one full sync round for the request and never returns an
// error: any failure is logged and the round simply ends without the finish
// frame, leaving retry to the client's next poll. The pointer math is
// monotonic and idempotent, so a re-sync with a stale pointer is safe.
func (e *Engine) Handle(ctx context.Context, req *Request, ch ChannelWriter) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("sync group message panic. user=%s device=%s err=%v",
				req.SiteUserID, req.DeviceID, r)
		}
	}()
	if err := e.handle(ctx, req, ch); err != nil {
		logger.Errorf("sync group message error. user=%s device=%s err=%v",
			req.SiteUserID, req.DeviceID, err)
	}
}

func (e *Engine) handle(ctx context.Context, req *Request, ch ChannelWriter) error {
	groups, err := e.gw.ListGroups(ctx, req.SiteUserID)
	if err != nil {
		return errs.WrapMsg(err, "list user groups", "user", req.SiteUserID)
	}

	syncTotalCount := 0
	for _, groupID := range groups {
		n, err := e.drainGroup(ctx, req, groupID, ch)
		syncTotalCount += n
		if err != nil {
			return err
		}
	}

	logger.Debugf("user=%s device=%s sync group-msg count=%d",
		req.SiteUserID, req.DeviceID, syncTotalCount)

	return e.msgFinishToClient(ch)
}

// drainGroup pulls pages for one group until a short page, advancing the
// pointer over every record fetched, suppressed ones included. Returns the
// number of records visited.
func (e *Engine) drainGroup(ctx context.Context, req *Request, groupID string, ch ChannelWriter) (int, error) {
	pointer, err := e.resolveStart(ctx, req, groupID)
	if err != nil {
		return 0, err
	}

	visited := 0
	for {
		page, err := e.gw.FetchPage(ctx, groupID, req.SiteUserID, req.DeviceID, pointer, SyncMaxMessageCount)
		if err != nil {
			return visited, errs.WrapMsg(err, "fetch group message page",
				"group", groupID, "after", pointer)
		}

		if len(page) > 0 {
			list, next := EncodePage(page)
			if next > pointer {
				pointer = next
			}
			if len(list) > 0 {
				if err := e.msgToClient(ch, list); err != nil {
					return visited, errs.WrapMsg(err, "write batch to channel", "group", groupID)
				}
			}
			visited += len(page)
		}

		if len(page) < SyncMaxMessageCount {
			return visited, nil
		}
	}
}

// resolveStart merges the persisted watermark with the client-declared
// pointer. Both sides are treated as already acknowledged: a fresh device
// must not be resent acknowledged history, and a client ahead of the server
// must not receive what it already holds.
func (e *Engine) resolveStart(ctx context.Context, req *Request, groupID string) (int64, error) {
	persisted, err := e.gw.GetPointer(ctx, groupID, req.SiteUserID, req.DeviceID)
	if err != nil {
		return 0, errs.WrapMsg(err, "query group message pointer", "group", groupID)
	}
	if client := req.GroupsPointer[groupID]; client > persisted {
		return client, nil
	}
	return persisted, nil
}

func (e *Engine) msgToClient(ch ChannelWriter, list []*protocol.MsgWithPointer) error {
	body, err := json.Marshal(&protocol.BatchBody{List: list})
	if err != nil {
		return err
	}
	frame, err := protocol.MsgToClientFrame(body)
	if err != nil {
		return err
	}
	return ch.Write(frame)
}

func (e *Engine) msgFinishToClient(ch ChannelWriter) error {
	frame, err := protocol.MsgFinishFrame()
	if err != nil {
		return err
	}
	return errs.WrapMsg(ch.Write(frame), "write finish frame")
}
