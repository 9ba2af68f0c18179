package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Map converts repo/infra errors into service errors.
// Keeps the service layer clean by centralizing error mapping.
func Map(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound("not_found", "record not found")

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Conflict("already_exists", "record already exists")

	case errors.Is(err, context.DeadlineExceeded):
		return Internal(err)

	case errors.Is(err, context.Canceled):
		return Internal(err)

	default:
		return Internal(err)
	}
}

// HTTPStatus maps an error kind to its HTTP status code.
func HTTPStatus(err *Error) int {
	switch err.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteHTTP renders an error as a JSON response. Internal causes are not
// exposed to the caller.
func WriteHTTP(w http.ResponseWriter, err error) {
	appErr := Map(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(appErr))
	_ = json.NewEncoder(w).Encode(errorBody{Code: appErr.Code, Message: appErr.Message})
}
