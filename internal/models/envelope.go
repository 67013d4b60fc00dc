package models

// StatusSuccess is the envelope status the backend uses for a successful call.
const StatusSuccess = "success"

// StatusError is the envelope status the gateway writes for a failed call.
const StatusError = "error"

// Envelope is the {status, message, data} wrapper shared by the backend and the gateway
type Envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// OK reports whether the envelope carries a successful result
func (e Envelope[T]) OK() bool {
	return e.Status == StatusSuccess
}
