// Package respond writes the gateway's {status, message, data} envelopes.
package respond

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/paybazaar/retailer-portal/internal/apperr"
	"github.com/paybazaar/retailer-portal/internal/logging"
	"github.com/paybazaar/retailer-portal/internal/models"
)

// StatusClientClosed is logged when the client went away mid-request
const StatusClientClosed = 499

type errorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Logout  bool   `json:"logout,omitempty"`
}

// JSON writes data in a success envelope
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, models.Envelope[any]{Status: models.StatusSuccess, Message: message, Data: data})
}

// Error writes err in an error envelope with the status its kind maps to.
// Session failures set logout so the portal drops its token.
func Error(w http.ResponseWriter, r *http.Request, log *logrus.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		logging.Entry(r.Context(), log).Debugf("Client went away: %v", err)
		w.WriteHeader(StatusClientClosed)
		return
	}

	e := apperr.As(err)
	status := apperr.HTTPStatus(err)
	entry := logging.Entry(r.Context(), log).WithFields(logrus.Fields{
		"kind":   e.Kind.String(),
		"code":   e.Code,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Errorf("Request failed: %v", err)
	} else {
		entry.Infof("Request rejected: %s", e.Message)
	}

	write(w, status, errorEnvelope{
		Status:  models.StatusError,
		Message: e.Message,
		Code:    e.Code,
		Logout:  apperr.ForcesLogout(err),
	})
}

// Reject writes an error envelope with an explicit status, for failures
// raised by the router rather than a handler
func Reject(w http.ResponseWriter, status int, code, message string) {
	write(w, status, errorEnvelope{Status: models.StatusError, Message: message, Code: code})
}

// File writes a download
func File(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
