// Package api holds the JSON request and response helpers shared by the
// resource handlers.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/vaidhya/pos-api/pkg/logger"
	"github.com/vaidhya/pos-api/pkg/types"
)

// ErrorObserver counts error responses by code
type ErrorObserver interface {
	RecordError(code string)
}

// ErrorBody is the JSON envelope of every error response
type ErrorBody struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// MessageBody is the JSON envelope of message-only responses
type MessageBody struct {
	Message string `json:"message"`
}

// Responder writes JSON responses and maps errors to status codes
type Responder struct {
	logger   *logger.Logger
	observer ErrorObserver
}

// NewResponder creates a Responder. observer may be nil.
func NewResponder(log *logger.Logger, observer ErrorObserver) *Responder {
	return &Responder{logger: log, observer: observer}
}

// JSON writes data with the given status
func (rs *Responder) JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		rs.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// Message writes {"message": msg}
func (rs *Responder) Message(w http.ResponseWriter, statusCode int, msg string) {
	rs.JSON(w, statusCode, MessageBody{Message: msg})
}

// Error writes err as a JSON error. Errors that are not a *types.PosError, and
// internal PosErrors, are logged and answered with a generic 500 carrying
// fallback as the message.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	posErr, ok := types.AsPosError(err)
	if !ok {
		posErr = types.NewInternalError(types.ErrCodeInternalError, fallback, err)
	}

	status := StatusFor(posErr.Type)
	body := ErrorBody{Error: posErr.Message, Code: posErr.Code, Details: posErr.Details}

	if status >= http.StatusInternalServerError {
		rs.logger.WithContext(r.Context()).WithError(err).WithField("path", r.URL.Path).Error(fallback)
		body = ErrorBody{Error: fallback, Code: types.ErrCodeInternalError}
	}

	if rs.observer != nil {
		rs.observer.RecordError(body.Code)
	}
	rs.JSON(w, status, body)
}

// StatusFor maps an error type to its HTTP status
func StatusFor(t types.ErrorType) int {
	switch t {
	case types.ErrorTypeValidation:
		return http.StatusBadRequest
	case types.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case types.ErrorTypeNotFound:
		return http.StatusNotFound
	case types.ErrorTypeConflict:
		return http.StatusConflict
	case types.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case types.ErrorTypeMethod:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads a JSON body into dst
func Decode(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Request body is required", nil)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return nil
}

// PathID parses the named mux variable as a positive integer id
func PathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, types.NewValidationError(types.ErrCodeInvalidID, "Invalid "+name, map[string]interface{}{
			name: raw,
		})
	}
	return id, nil
}

// RequiredQuery returns the trimmed query parameter or a validation error
func RequiredQuery(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return "", types.NewValidationError(types.ErrCodeMissingSearch, "Query parameter "+name+" is required", nil)
	}
	return value, nil
}
