package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
)

// Error is an error already resolved to an HTTP status.
type Error struct {
	Status int
	Code   string
	Err    error
	Fields map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// StatusFor maps a domain error code to its HTTP status.
func StatusFor(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeInvalidState, domainagg.CodeConflict:
		return http.StatusConflict
	case domainagg.CodeForbidden:
		return http.StatusForbidden
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// From resolves any error. Uncoded errors become internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*Error); ok {
		return ae
	}
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeInternal
	}
	return &Error{
		Status: StatusFor(code),
		Code:   string(code),
		Err:    err,
		Fields: domainagg.FieldsOf(err),
	}
}

// Message is the client-safe text. Internal details never leave the process.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	if e.Status >= 500 {
		if e.Status == http.StatusServiceUnavailable {
			return "temporarily unavailable, retry"
		}
		return "internal error"
	}
	var de *domainagg.Error
	if errors.As(e.Err, &de) && de.Message != "" {
		return de.Message
	}
	return e.Error()
}
