package chat

import (
	"encoding/json"

	"SyncIM/tools/errs"
)

// Frame is the JSON unit clients send over the websocket. Payload stays a
// dynamic map until the handler decodes it into its own struct.
type Frame struct {
	Type    FrameType      `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

func ParseFrameJSON(raw []byte) (*Frame, error) {
	frame := &Frame{}
	if err := json.Unmarshal(raw, frame); err != nil {
		return nil, errs.WrapMsg(err, "unmarshal frame")
	}
	if frame.Type == "" {
		return nil, errs.New("frame missing type")
	}
	return frame, nil
}

// SyncPayload is the body of a sync frame: the client's last known pointer
// per group. Groups may be omitted; an absent entry reads as 0.
type SyncPayload struct {
	GroupsPointer map[string]int64 `json:"groups_pointer"`
}
