package chat

import (
	"net/http"
	"time"

	"SyncIM/logger"
	gsync "SyncIM/module/sync"
	"SyncIM/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Server struct {
	disp   *Dispatcher
	mgr    *ConnManager
	engine *gsync.Engine
}

func NewServer(engine *gsync.Engine, mgr *ConnManager) *Server {
	return &Server{
		disp:   NewDispatcher(),
		mgr:    mgr,
		engine: engine,
	}
}

func (s *Server) Disp() *Dispatcher     { return s.disp }
func (s *Server) Mgr() *ConnManager     { return s.mgr }
func (s *Server) Engine() *gsync.Engine { return s.engine }

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", s.HandleWS)
	return r
}

func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

// HandleWS upgrades the connection and runs the read loop. The identity
// comes from the query string; token verification belongs to the gateway
// in front of this service.
func (s *Server) HandleWS(c *gin.Context) {
	userID := c.Query("user_id")
	deviceID := c.Query("device_id")
	if userID == "" || deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and device_id required"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}

	rec := s.mgr.Add(userID, deviceID, ws)
	logger.Infof("[HandleWS] connected snowID=%s user=%s device=%s remote=%s",
		rec.SnowID, rec.UserID, rec.DeviceID, rec.Remote)

	done := make(chan struct{})
	safe.SafeGo(func() { s.writeLoop(rec, done) })

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed snowID=%s err=%v", rec.SnowID, rerr)
			} else {
				logger.Infof("[WS] read err snowID=%s err=%v", rec.SnowID, rerr)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		msg, perr := ParseFrameJSON(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[WS] ParseFrameJSON err snowID=%s err=%v sample=%q", rec.SnowID, perr, sample)
			continue
		}

		s.mgr.Touch(rec.SnowID)

		h := s.disp.GetHandler(msg.Type)
		if h == nil {
			continue
		}
		if herr := h.Handle(&Context{S: s}, msg, rec); herr != nil {
			logger.Infof("[WS] handler err snowID=%s type=%s err=%v", rec.SnowID, msg.Type, herr)
		}
	}

	s.mgr.RemoveBySnow(rec.SnowID)
	<-done
}

// writeLoop owns every write on the socket: queued frames and keepalive
// pings. When it exits the conn is marked closed so pending sync rounds
// fail fast instead of draining the gateway for a dead client.
func (s *Server) writeLoop(rec *WsConn, done chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		rec.markClosed()
		_ = rec.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = rec.Conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = rec.Conn.Close()
		close(done)
	}()

	for {
		select {
		case <-rec.closed:
			return
		case payload := <-rec.SendChan:
			_ = rec.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := rec.Conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
				logger.Infof("[WS] write payload err snowID=%s user=%s err=%v",
					rec.SnowID, rec.UserID, err)
				return
			}
		case <-ticker.C:
			if err := rec.Conn.WriteControl(websocket.PingMessage, []byte("ping"),
				time.Now().Add(writeWait)); err != nil {
				logger.Infof("[WS] ping err snowID=%s user=%s err=%v",
					rec.SnowID, rec.UserID, err)
				return
			}
		}
	}
}
