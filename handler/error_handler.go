package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/restauth/pkg/binder"
	"github.com/dmitrymomot/restauth/pkg/logger"
	"github.com/dmitrymomot/restauth/pkg/requestmeta"
)

// ErrorInfo is the classified form of an error: what to send and how loud to log.
type ErrorInfo struct {
	StatusCode int
	Detail     ErrorDetail
	LogLevel   slog.Level
	// Event, when set, is attached to the log entry.
	Event string
	// Body replaces the error envelope in the response when set.
	Body any
}

// Classifier maps domain errors to ErrorInfo. It returns false for errors it
// does not recognise.
type Classifier func(err error) (ErrorInfo, bool)

// NewErrorHandler creates an error handler that renders the JSON error
// envelope. Classifiers run in order before the built-in mapping.
func NewErrorHandler(log *slog.Logger, classifiers ...Classifier) ErrorHandler[Context] {
	if log == nil {
		log = logger.Discard()
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		info := classifyError(err, classifiers)

		attrs := []slog.Attr{
			logger.Error(err),
			slog.Int("status_code", info.StatusCode),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("http"),
		}
		if id, ok := requestmeta.RequestID(r.Context()); ok {
			attrs = append(attrs, logger.RequestID(id))
		}
		if info.Event != "" {
			attrs = append(attrs, logger.Event(info.Event))
		}
		log.LogAttrs(r.Context(), info.LogLevel, "request error", attrs...)

		resp := JSONError(info.StatusCode, info.Detail)
		if info.Body != nil {
			resp = JSON(info.Body, WithJSONStatus(info.StatusCode))
		}
		if renderErr := resp.Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.Error("failed to render error response", logger.Error(renderErr))
		}
	}
}

func classifyError(err error, classifiers []Classifier) ErrorInfo {
	for _, classify := range classifiers {
		if info, ok := classify(err); ok {
			return withLogLevel(info)
		}
	}

	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		return withLogLevel(ErrorInfo{
			StatusCode: http.StatusBadRequest,
			Detail: ErrorDetail{
				Code:    "validation_error",
				Message: "Invalid input.",
				Details: validationErr,
			},
		})
	}

	switch {
	case errors.Is(err, binder.ErrBodyTooLarge):
		return fromHTTPError(ErrRequestEntityTooLarge)
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		return fromHTTPError(ErrUnsupportedMediaType)
	case errors.Is(err, binder.ErrInvalidJSON):
		return withLogLevel(ErrorInfo{
			StatusCode: http.StatusBadRequest,
			Detail:     ErrorDetail{Code: ErrBadRequest.Key, Message: err.Error()},
		})
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return fromHTTPError(httpErr)
	}

	return withLogLevel(ErrorInfo{
		StatusCode: http.StatusInternalServerError,
		Detail: ErrorDetail{
			Code:    ErrInternalServerError.Key,
			Message: "An error occurred processing your request.",
		},
	})
}

func fromHTTPError(e HTTPError) ErrorInfo {
	return withLogLevel(ErrorInfo{
		StatusCode: e.Code,
		Detail:     ErrorDetail{Code: e.Key, Message: http.StatusText(e.Code)},
	})
}

// Client errors log at warn and server errors at error. A zero LogLevel
// (slog.LevelInfo) counts as unset.
func withLogLevel(info ErrorInfo) ErrorInfo {
	if info.LogLevel != 0 {
		return info
	}
	if info.StatusCode >= http.StatusInternalServerError {
		info.LogLevel = slog.LevelError
	} else {
		info.LogLevel = slog.LevelWarn
	}
	return info
}
