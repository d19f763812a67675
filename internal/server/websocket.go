package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/atikulmunna/reel/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// maxMessageSize bounds a single inbound websocket message.
const maxMessageSize = 512 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// pendingSet tracks requests submitted on one connection so that only their
// events, plus unsolicited cache notifications, are sent back.
type pendingSet struct {
	mu  sync.Mutex
	ids map[string]worker.Request
}

func (p *pendingSet) add(req worker.Request) {
	p.mu.Lock()
	p.ids[req.RequestID()] = req
	p.mu.Unlock()
}

// accept reports whether ev belongs on this connection and forgets the
// request once ev finishes it.
func (p *pendingSet) accept(ev worker.Event) bool {
	id := ev.RequestID()
	if id == "" {
		return true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.ids[id]
	if !ok {
		return false
	}
	if finishes(req, ev) {
		delete(p.ids, id)
	}
	return true
}

func finishes(req worker.Request, ev worker.Event) bool {
	switch e := ev.(type) {
	case worker.Error:
		return true
	case worker.Status:
		return e.State == worker.StateCompleted
	case worker.CacheStatsResult:
		switch req.(type) {
		case worker.QueryCacheStats, worker.ClearCache:
			return true
		}
	}
	return false
}

// handleWebSocket upgrades to WebSocket and speaks the worker protocol:
// each text message is one request, each reply one event.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	log := s.log.WithField("remote", c.ClientIP())
	log.Debug("Websocket connected")

	decompressEvents := s.decompress.Worker().Subscribe()
	defer s.decompress.Worker().Unsubscribe(decompressEvents)
	searchEvents := s.search.Worker().Subscribe()
	defer s.search.Worker().Unsubscribe(searchEvents)

	pending := &pendingSet{ids: make(map[string]worker.Request)}
	replies := make(chan worker.Event, 16)
	closed := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	reply := func(ev worker.Event) {
		select {
		case replies <- ev:
		case <-stop:
		}
	}

	// Read pump: decode and submit requests until the client disconnects.
	go func() {
		defer close(closed)
		ctx := c.Request.Context()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}

			req, err := decodeRequest(msg)
			if err != nil {
				reply(worker.Error{Message: err.Error()})
				continue
			}

			pending.add(req)
			target := s.decompress.Worker()
			if _, ok := req.(worker.Search); ok {
				target = s.search.Worker()
			}
			if _, err := target.Submit(ctx, req); err != nil {
				reply(worker.Error{ID: req.RequestID(), Message: err.Error()})
			}
		}
	}()

	// Write pump: forward this connection's events as JSON.
	for {
		var ev worker.Event
		var ok bool
		select {
		case <-closed:
			log.Debug("Websocket disconnected")
			return
		case ev = <-replies:
		case ev, ok = <-decompressEvents:
			if !ok {
				return
			}
			if !pending.accept(ev) {
				continue
			}
		case ev, ok = <-searchEvents:
			if !ok {
				return
			}
			if !pending.accept(ev) {
				continue
			}
		}

		msg, err := encodeEvent(ev)
		if err != nil {
			log.WithError(err).Error("Encoding event failed")
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.WithError(err).Warn("Websocket write failed")
			return
		}
	}
}
