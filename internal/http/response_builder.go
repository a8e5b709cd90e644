// Package http provides HTTP server and handler implementations.
//
// This file implements the builder used by every handler to write JSON
// responses, and the mapping from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"ledger/internal/core"
	"ledger/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.body != nil {
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

// mutationResponse is the body of every mutating endpoint. Index is set
// when a record was appended.
type mutationResponse struct {
	core.Result
	Index *int `json:"index,omitempty"`
}

// ResultResponse wraps a core.Result.
func ResultResponse(statusCode int, res core.Result) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(mutationResponse{Result: res})
}

// CreatedResponse reports a successful insert at index.
func CreatedResponse(message string, index int) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusCreated).
		Body(mutationResponse{Result: core.ResultOf(nil, message), Index: &index})
}

// ErrorResponse creates a failed core.Result with the given status.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return ResultResponse(statusCode, core.Result{Success: false, Message: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// StatusForError maps domain errors to HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrDuplicateEntity):
		return http.StatusConflict
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err at a level matching its status and writes it as a
// failed Result. Internal failures hide the cause from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusForError(err)
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldPath, r.URL.Path, log.FieldError, err)
		message = "internal error"
		if errors.Is(err, core.ErrPersistence) {
			message = "could not save changes"
		}
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldPath, r.URL.Path, log.FieldError, err)
	}
	ErrorResponse(status, message).Write(w)
}
