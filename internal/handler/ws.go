package handler

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/logging"
	"github.com/paybazaar/retailer-portal/internal/report"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// liveFilter is one filter update from the report screen. Every field is a
// string so it can share parsing with the query-string endpoints.
type liveFilter struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
	Search    string `json:"search"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

func (f liveFilter) get(key string) string {
	switch key {
	case "start_date":
		return f.StartDate
	case "end_date":
		return f.EndDate
	case "status":
		return f.Status
	case "search":
		return f.Search
	case "limit":
		return strconv.Itoa(f.Limit)
	case "offset":
		return strconv.Itoa(f.Offset)
	}
	return ""
}

type liveMessage struct {
	Type    string `json:"type"`
	Seq     int    `json:"seq"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// liveConn serialises writes and keeps only the newest query in flight
type liveConn struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu     sync.Mutex
	seq    int
	cancel context.CancelFunc
}

func (c *liveConn) write(msg liveMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(msg)
}

func (c *liveConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// begin cancels the previous query and returns a context for the next one
func (c *liveConn) begin(parent context.Context) (context.Context, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.seq++
	return ctx, c.seq
}

func (c *liveConn) current(seq int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return seq == c.seq
}

// LiveReport streams report pages over a websocket. Each filter message
// restarts a quiet period; once it expires the previous query is cancelled
// and a fresh page is sent. Results of superseded queries are dropped.
func (h *Handler) LiveReport(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	if _, err := h.svc.Report(kind); err != nil {
		h.fail(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Entry(r.Context(), h.log).Warnf("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	lc := &liveConn{conn: conn}
	debounce := report.NewDebouncer(h.svc.Config().SearchDebounce)
	defer debounce.Stop()

	conn.SetReadLimit(wsMaxMessage)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lc.ping(); err != nil {
					return
				}
			}
		}
	}()

	log := logging.Entry(r.Context(), h.log).WithField("report", kind)
	for {
		var f liveFilter
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Infof("Live report closed: %v", err)
			}
			return
		}

		q, err := h.parseQuery(f.get)
		if err != nil {
			e := apperr.As(err)
			lc.write(liveMessage{Type: "error", Code: e.Code, Message: e.Message})
			continue
		}

		debounce.Trigger(func() {
			qctx, seq := lc.begin(ctx)
			page, err := h.svc.ListReport(qctx, kind, q)
			if !lc.current(seq) || qctx.Err() != nil {
				return
			}
			msg := liveMessage{Type: "page", Seq: seq, Data: page}
			if err != nil {
				e := apperr.As(err)
				msg = liveMessage{Type: "error", Seq: seq, Code: e.Code, Message: e.Message}
			}
			if err := lc.write(msg); err != nil {
				log.Debugf("Live report write failed: %v", err)
			}
		})
	}
}
