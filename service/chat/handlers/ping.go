package handlers

import (
	"SyncIM/service/chat"
)

// PingHandler answers application-level ping frames. Transport keepalive
// is handled by the write loop's control pings; this only refreshes the
// idle TTL, which the read loop already did before dispatching.
type PingHandler struct{}

func NewPingHandler() chat.Handler { return &PingHandler{} }

func (h *PingHandler) Type() chat.FrameType { return chat.FramePing }

func (h *PingHandler) Handle(_ *chat.Context, _ *chat.Frame, _ *chat.WsConn) error {
	return nil
}
