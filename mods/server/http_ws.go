package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/machbase/neo-polarmap/mods/logging"
	"github.com/machbase/neo-polarmap/mods/polarmap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	WatchTypeState = "state"
	WatchTypePing  = "ping"
	WatchTypePong  = "pong"
	WatchTypeError = "error"
)

// WatchMessage is the frame exchanged on the watch websocket.
// The server sends "state" and "pong", the client may send "ping"
// which also keeps the session from expiring.
type WatchMessage struct {
	Type   string          `json:"type"`
	Tick   int64           `json:"tick,omitempty"`
	State  *polarmap.State `json:"state,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

func (svr *Server) handleSessionWatch(ctx *gin.Context) {
	tick := time.Now()
	id := ctx.Param("id")
	s, err := svr.sessions.Get(id)
	if err != nil {
		replyError(ctx, tick, err)
		return
	}
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		svr.log.Warnf("session %s watch upgrade, %s", id, err.Error())
		return
	}
	w := &watcher{
		log:  logging.GetLog("watch-" + id),
		conn: conn,
		sess: s,
		keepAlive: func() {
			svr.sessions.Get(id)
		},
	}
	w.run(ctx.Request.Context())
}

type watcher struct {
	log       logging.Log
	conn      *websocket.Conn
	sess      *Session
	keepAlive func()
}

func (w *watcher) run(ctx context.Context) {
	defer w.conn.Close()

	states, unsubscribe, err := w.sess.Watch(ctx)
	if err != nil {
		w.conn.WriteJSON(WatchMessage{Type: WatchTypeError, Reason: err.Error()})
		return
	}
	defer unsubscribe()
	metricWatchers.Inc(1)
	defer metricWatchers.Dec(1)

	pings := make(chan int64, 4)
	readerDone := make(chan struct{})
	go w.readerLoop(pings, readerDone)

	for {
		select {
		case st := <-states:
			if err := w.conn.WriteJSON(WatchMessage{Type: WatchTypeState, State: &st}); err != nil {
				w.log.Debugf("write, %s", err.Error())
				return
			}
		case tick := <-pings:
			w.keepAlive()
			if err := w.conn.WriteJSON(WatchMessage{Type: WatchTypePong, Tick: tick}); err != nil {
				w.log.Debugf("write, %s", err.Error())
				return
			}
		case <-readerDone:
			return
		case <-w.sess.Done():
			w.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
				time.Now().Add(200*time.Millisecond))
			return
		}
	}
}

func (w *watcher) readerLoop(pings chan<- int64, done chan<- struct{}) {
	defer close(done)
	for {
		msg := WatchMessage{}
		if err := w.conn.ReadJSON(&msg); err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				w.log.Trace(ce.Error())
			} else if !errors.Is(err, io.EOF) {
				w.log.Debugf("read, %s", err.Error())
			}
			return
		}
		if msg.Type == WatchTypePing {
			select {
			case pings <- msg.Tick:
			default:
			}
		}
	}
}
