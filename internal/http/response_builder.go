// Package http serves the ledger dashboard page and its JSON API.
//
// This file implements a fluent builder for JSON responses. Successful writes
// also set an HX-Trigger header naming the change, so the page can refresh
// only the panels that depend on the touched table.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"bizledger/internal/ledger"
	"bizledger/internal/services"
	"bizledger/internal/session"
)

// ResponseBuilder assembles status, headers, triggers and a JSON body.
type ResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       any
	headers    map[string]string
}

// NewResponse creates a builder with a 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event with optional data to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerLedgerChanged announces a write to one table.
func (b *ResponseBuilder) TriggerLedgerChanged(table, op string) *ResponseBuilder {
	return b.Trigger("ledger:changed", map[string]string{"table": table, "op": op})
}

func (b *ResponseBuilder) TriggerSessionChanged() *ResponseBuilder {
	return b.Trigger("session:changed", struct{}{})
}

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

func (b *ResponseBuilder) TriggerNotification(kind NotificationType, message string, durationMs int) *ResponseBuilder {
	return b.Trigger("show-notification", map[string]any{
		"type":     string(kind),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *ResponseBuilder) TriggerSuccessNotification(message string) *ResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, 3000)
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		if trigger, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(trigger))
		}
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func ServiceUnavailableError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

// ErrorFor maps a service error onto a response. Store failures become 503:
// the interaction fails and the user retries.
func ErrorFor(err error) *ResponseBuilder {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return NewResponse().Status(http.StatusUnprocessableEntity).
			JSON(errorBody{Error: "invalid input", Fields: verr.Fields})
	case errors.Is(err, services.ErrValidation):
		return ErrorResponse(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrDuplicateProject):
		return ErrorResponse(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, ledger.ErrRowOutOfRange):
		return NotFoundError(err.Error())
	case errors.Is(err, session.ErrUnknownTemplate):
		return NotFoundError(err.Error())
	default:
		return ServiceUnavailableError("ledger store unavailable, please retry")
	}
}
