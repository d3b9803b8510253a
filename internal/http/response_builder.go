// Package http exposes the budget engine and its edit sessions as a JSON API.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/session"
)

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	statusCode  int
	headers     map[string]string
	body        any
	raw         []byte
	contentType string
}

// NewResponse creates a builder with a 200 status and no body.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets a value to be encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	b.raw = nil
	return b
}

// Bytes sets a pre-rendered body with its media type.
func (b *ResponseBuilder) Bytes(contentType string, content []byte) *ResponseBuilder {
	b.contentType = contentType
	b.raw = content
	b.body = nil
	return b
}

// Write sends the response. The JSON body is encoded before the status is
// written so an encoding failure can still become a 500.
func (b *ResponseBuilder) Write(w http.ResponseWriter, r *http.Request) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	content, contentType := b.raw, b.contentType
	if b.body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(b.body); err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response",
				applog.FieldError, err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal error"}` + "\n"))
			return
		}
		content, contentType = buf.Bytes(), "application/json"
	}

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(b.statusCode)
	if len(content) > 0 {
		_, _ = w.Write(content)
	}
}

type errorBody struct {
	Error string `json:"error"`
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

func ConflictError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}

func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// errorFor maps err to a response: malformed input is 400, an entity
// absent from the hierarchy 404, an edit without an active session 409,
// invalid values 422 and anything else 500.
func errorFor(err error) *ResponseBuilder {
	switch {
	case errors.Is(err, errMalformedBody):
		return BadRequestError(err.Error())
	case core.IsNotFound(err):
		return NotFoundError(err.Error())
	case errors.Is(err, session.ErrNotEditing):
		return ConflictError(err.Error())
	case core.IsValidation(err):
		return UnprocessableEntityError(err.Error())
	default:
		return InternalServerError("internal error")
	}
}

// writeError logs err with the request's logger and writes the mapped
// response. Server faults are logged at error level, client faults at debug
// since the access log already records them.
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	resp := errorFor(err)
	level := slog.LevelDebug
	if resp.statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger := applog.FromContext(r.Context())
	logger.Logger.Log(r.Context(), level, msg, applog.NewFields().WithError(err).ToSlice()...)
	resp.Write(w, r)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	NewResponse().Status(status).JSON(v).Write(w, r)
}
