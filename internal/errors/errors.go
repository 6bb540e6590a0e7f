package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/services"
)

type ErrorCode string

const (
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeBadRequest   ErrorCode = "BAD_REQUEST"
	CodeRateLimit    ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeDataLoad     ErrorCode = "DATA_LOAD_ERROR"
	CodeInvalidRange ErrorCode = "INVALID_RANGE"
)

var statusByCode = map[ErrorCode]int{
	CodeInternal:     http.StatusInternalServerError,
	CodeValidation:   http.StatusBadRequest,
	CodeBadRequest:   http.StatusBadRequest,
	CodeInvalidRange: http.StatusBadRequest,
	CodeRateLimit:    http.StatusTooManyRequests,
	CodeDataLoad:     http.StatusBadGateway,
}

// AppError is the error half of the JSON envelope. Cause is logged, never sent.
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return Wrap(nil, code, message)
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: status,
		Cause:      err,
		Timestamp:  time.Now().UTC(),
	}
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, CodeInternal, message)
}

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message)
}

func BadRequestWrap(err error, message string) *AppError {
	return Wrap(err, CodeBadRequest, message)
}

func RateLimit(message string) *AppError {
	return New(CodeRateLimit, message)
}

// FromDomain maps pipeline errors onto API errors. Unknown errors become internal errors.
func FromDomain(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var loadErr *services.DataLoadError
	if stderrors.As(err, &loadErr) {
		return Wrap(err, CodeDataLoad, "Sales data could not be loaded")
	}

	if stderrors.Is(err, services.ErrInvalidDate) {
		e := Wrap(err, CodeValidation, "Dates must be formatted as YYYY-MM-DD")
		e.Details = err.Error()
		return e
	}

	var rangeErr *services.InvalidRangeError
	if stderrors.As(err, &rangeErr) {
		e := Wrap(err, CodeInvalidRange, "Start date must not be after end date")
		e.Details = rangeErr.Error()
		return e
	}

	return InternalWrap(err, "An unexpected error occurred")
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

// WriteError writes err as a JSON error envelope. Client errors are logged at
// warn, everything else at error.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	appErr := FromDomain(err)
	appErr.RequestID = requestID

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	if encodeErr := json.NewEncoder(w).Encode(ErrorResponse{Error: appErr}); encodeErr != nil {
		logger.Error("failed to encode error response",
			"encode_error", encodeErr,
			"original_error", err,
			"request_id", requestID,
		)
		return
	}

	level := slog.LevelError
	if appErr.StatusCode < http.StatusInternalServerError {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("error_code", string(appErr.Code)),
		slog.Int("status_code", appErr.StatusCode),
		slog.String("request_id", requestID),
	}
	var loadErr *services.DataLoadError
	if stderrors.As(err, &loadErr) {
		attrs = append(attrs, slog.String("source", loadErr.Source), slog.Int("line", loadErr.Line))
	}
	if appErr.Cause != nil {
		attrs = append(attrs, slog.String("cause", appErr.Cause.Error()))
	}
	logger.LogAttrs(context.Background(), level, appErr.Message, attrs...)
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessWithHeaders(w, data, nil)
}

func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(SuccessResponse{Data: data, Success: true}); err != nil {
		slog.Error("failed to encode success response", "error", err)
	}
}
