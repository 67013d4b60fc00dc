package middleware

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/paybazaar/retailer-portal/internal/logging"
	"github.com/paybazaar/retailer-portal/internal/metrics"
	"github.com/paybazaar/retailer-portal/internal/respond"
)

// retailerSlot lets the auth middleware, which runs inside Access on the
// API subrouter, report the retailer back for the access log line.
type retailerSlot struct {
	id string
}

type retailerSlotKey struct{}

func noteRetailer(r *http.Request, id string) {
	if slot, ok := r.Context().Value(retailerSlotKey{}).(*retailerSlot); ok {
		slot.id = id
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Hijack lets the websocket upgrader take over the connection
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Access emits one structured log line and the HTTP metrics for each request.
// Routes are labelled by their mux template so ids do not explode cardinality.
func Access(log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			slot := &retailerSlot{}
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), retailerSlotKey{}, slot)))
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			route := routeName(r)
			duration := time.Since(start)
			metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			metrics.HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())

			fields := logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": duration.Milliseconds(),
			}
			if slot.id != "" {
				fields["retailer_id"] = slot.id
			}
			entry := logging.Entry(r.Context(), log).WithFields(fields)
			if rec.status >= http.StatusInternalServerError && rec.status != respond.StatusClientClosed {
				entry.Error("Request completed")
				return
			}
			entry.Info("Request completed")
		})
	}
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// Recover turns a panic into a 500 envelope
func Recover(log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					logging.Entry(r.Context(), log).WithField("panic", p).Error("Handler panicked")
					respond.Error(w, r, log, errors.New("panic in handler"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
