package mfa

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/restauth/handler"
	"github.com/dmitrymomot/restauth/pkg/auth"
	"github.com/dmitrymomot/restauth/pkg/credential"
	mfasvc "github.com/dmitrymomot/restauth/pkg/mfa"
)

const weakPasswordMessage = "This password is too short. It must contain at least 8 characters."

// classify maps domain errors onto the JSON error envelope.
func classify(err error) (handler.ErrorInfo, bool) {
	if e, ok := mfasvc.AsError(err); ok {
		detail := handler.ErrorDetail{Code: e.Kind.String(), Message: e.Message}
		if e.Kind == mfasvc.KindAlreadyEnrolled || e.Kind == mfasvc.KindNotEnrolled {
			return handler.ErrorInfo{
				StatusCode: http.StatusBadRequest,
				Detail:     detail,
				Body:       detailResponse{Detail: e.Message},
			}, true
		}
		if e.Field != "" {
			detail.Details = map[string][]string{e.Field: {e.Message}}
		}
		return handler.ErrorInfo{StatusCode: http.StatusBadRequest, Detail: detail}, true
	}

	switch {
	case errors.Is(err, mfasvc.ErrStoreFailure):
		return handler.ErrorInfo{
			StatusCode: http.StatusInternalServerError,
			Detail: handler.ErrorDetail{
				Code:    "internal_server_error",
				Message: "An error occurred processing your request.",
			},
			LogLevel: slog.LevelError,
			Event:    "store_failure",
		}, true
	case errors.Is(err, credential.ErrUnauthenticated):
		return handler.ErrorInfo{
			StatusCode: http.StatusUnauthorized,
			Detail: handler.ErrorDetail{
				Code:    "unauthorized",
				Message: "Authentication credentials were not provided or are invalid.",
			},
		}, true
	case errors.Is(err, auth.ErrUserAlreadyExists):
		return fieldError("email", "A user is already registered with this e-mail address."), true
	case errors.Is(err, auth.ErrInvalidEmail):
		return fieldError("email", "Enter a valid email address."), true
	case errors.Is(err, auth.ErrWeakPassword):
		return fieldError("password", weakPasswordMessage), true
	case errors.Is(err, credential.ErrInvalidToken):
		return handler.ErrorInfo{
			StatusCode: http.StatusUnauthorized,
			Detail: handler.ErrorDetail{
				Code:    "token_not_valid",
				Message: "Token is invalid or expired.",
			},
		}, true
	case errors.Is(err, credential.ErrMissingToken):
		return fieldError("refresh", "This field is required."), true
	case errors.Is(err, credential.ErrNotLoggedIn):
		msg := "You should be logged in to logout. Check whether the token is passed."
		return handler.ErrorInfo{
			StatusCode: http.StatusBadRequest,
			Detail:     handler.ErrorDetail{Code: "not_logged_in", Message: msg},
			Body:       detailResponse{Detail: msg},
		}, true
	case errors.Is(err, credential.ErrUnsupported):
		return handler.ErrorInfo{
			StatusCode: http.StatusNotFound,
			Detail:     handler.ErrorDetail{Code: "not_found", Message: "Not found."},
		}, true
	}
	return handler.ErrorInfo{}, false
}

func fieldError(field, message string) handler.ErrorInfo {
	return handler.ErrorInfo{
		StatusCode: http.StatusBadRequest,
		Detail: handler.ErrorDetail{
			Code:    "validation_error",
			Message: message,
			Details: map[string][]string{field: {message}},
		},
	}
}
