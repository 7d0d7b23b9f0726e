package chat

import (
	"SyncIM/logger"
)

type Dispatcher struct {
	handlers map[FrameType]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[FrameType]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

func (d *Dispatcher) GetHandler(t FrameType) Handler {
	h, ok := d.handlers[t]
	if !ok {
		logger.Infof("no handler for type=%v", t)
		return nil
	}
	return h
}
