package chat

// FrameType tags one inbound client frame.
type FrameType string

const (
	FramePing FrameType = "ping"
	FrameSync FrameType = "sync"
)

type Handler interface {
	Type() FrameType
	Handle(*Context, *Frame, *WsConn) error
}

type Context struct {
	S *Server
}
