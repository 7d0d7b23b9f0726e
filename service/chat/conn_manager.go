package chat

import (
	"net"
	"sync"
	"time"

	"SyncIM/logger"
	"SyncIM/tools/errs"
	"SyncIM/tools/ids"

	"github.com/gorilla/websocket"
)

type ManagerConf struct {
	ConnTTL    time.Duration    // idle connection TTL
	SweepEvery time.Duration    // sweeper period
	SendBuf    int              // per-connection send queue length
	Clock      func() time.Time // injectable clock for tests; nil => time.Now
}

func (c *ManagerConf) norm() {
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = 10 * time.Second
	}
	if c.ConnTTL <= 0 {
		c.ConnTTL = 2 * time.Hour
	}
	if c.SendBuf <= 0 {
		c.SendBuf = 64
	}
}

// WsConn is one live session channel. Write queues a frame for the writer
// goroutine; after the connection dies every Write fails, which is what
// aborts an in-flight sync round.
type WsConn struct {
	SnowID   string
	UserID   string
	DeviceID string

	Conn   *websocket.Conn
	Remote net.Addr

	CreatedAt time.Time
	ExpireAt  time.Time

	SendChan  chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func (c *WsConn) Write(frame []byte) error {
	select {
	case <-c.closed:
		return errs.New("session channel closed", "snowID", c.SnowID)
	default:
	}
	select {
	case c.SendChan <- frame:
		return nil
	case <-c.closed:
		return errs.New("session channel closed", "snowID", c.SnowID)
	}
}

func (c *WsConn) markClosed() {
	c.closeOnce.Do(func() { close(c.closed) })
}

type ConnManager struct {
	mu     sync.RWMutex
	bySnow map[string]*WsConn
	byUser map[string]map[string]*WsConn // userID -> (snowID -> conn)

	conf     ManagerConf
	stopOnce sync.Once
	stopCh   chan struct{}
	gwID     string
}

func NewConnManager(conf ManagerConf, gwID string) *ConnManager {
	conf.norm()
	m := &ConnManager{
		bySnow: make(map[string]*WsConn),
		byUser: make(map[string]map[string]*WsConn),
		conf:   conf,
		gwID:   gwID,
		stopCh: make(chan struct{}),
	}
	go m.sweeper()
	return m
}

func (m *ConnManager) GwID() string { return m.gwID }

func (m *ConnManager) Add(userID, deviceID string, ws *websocket.Conn) *WsConn {
	now := m.conf.Clock()
	rec := &WsConn{
		SnowID:    ids.GenerateString(),
		UserID:    userID,
		DeviceID:  deviceID,
		Conn:      ws,
		Remote:    ws.RemoteAddr(),
		CreatedAt: now,
		ExpireAt:  now.Add(m.conf.ConnTTL),
		SendChan:  make(chan []byte, m.conf.SendBuf),
		closed:    make(chan struct{}),
	}

	m.mu.Lock()
	m.bySnow[rec.SnowID] = rec
	byU, ok := m.byUser[userID]
	if !ok {
		byU = make(map[string]*WsConn)
		m.byUser[userID] = byU
	}
	byU[rec.SnowID] = rec
	m.mu.Unlock()
	return rec
}

func (m *ConnManager) RemoveBySnow(snowID string) {
	m.mu.Lock()
	rec, ok := m.bySnow[snowID]
	if ok {
		delete(m.bySnow, snowID)
		if byU := m.byUser[rec.UserID]; byU != nil {
			delete(byU, snowID)
			if len(byU) == 0 {
				delete(m.byUser, rec.UserID)
			}
		}
	}
	m.mu.Unlock()
	if ok {
		rec.markClosed()
	}
}

// Touch pushes the idle deadline forward after inbound traffic.
func (m *ConnManager) Touch(snowID string) {
	m.mu.Lock()
	if rec, ok := m.bySnow[snowID]; ok {
		rec.ExpireAt = m.conf.Clock().Add(m.conf.ConnTTL)
	}
	m.mu.Unlock()
}

func (m *ConnManager) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.bySnow {
		rec.markClosed()
		_ = rec.Conn.Close()
	}
	m.bySnow = map[string]*WsConn{}
	m.byUser = map[string]map[string]*WsConn{}
}

func (m *ConnManager) sweeper() {
	ticker := time.NewTicker(m.conf.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			now := m.conf.Clock()
			var expired []*WsConn
			m.mu.RLock()
			for _, rec := range m.bySnow {
				if now.After(rec.ExpireAt) {
					expired = append(expired, rec)
				}
			}
			m.mu.RUnlock()
			for _, rec := range expired {
				logger.Infof("[ConnManager] expire idle conn snowID=%s user=%s", rec.SnowID, rec.UserID)
				_ = rec.Conn.Close()
				m.RemoveBySnow(rec.SnowID)
			}
		}
	}
}
