package apperr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

type respondOptions struct {
	notFoundStatus int
}

// Option tweaks how Respond maps kinds to HTTP statuses.
type Option func(*respondOptions)

// NotFoundAs overrides the status used for KindNotFound.
func NotFoundAs(status int) Option {
	return func(o *respondOptions) { o.notFoundStatus = status }
}

// Status maps a kind to its default HTTP status.
func Status(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as a {message} JSON body and aborts the chain.
// Internal errors are logged and forwarded to Sentry when a client is bound.
func Respond(c *gin.Context, logger *slog.Logger, err error, opts ...Option) {
	o := respondOptions{notFoundStatus: http.StatusNotFound}
	for _, opt := range opts {
		opt(&o)
	}

	var appErr *AppError
	if !errors.As(err, &appErr) || appErr == nil {
		appErr = Internal(err)
	}

	status := Status(appErr.Kind)
	if appErr.Kind == KindNotFound {
		status = o.notFoundStatus
	}

	if appErr.Kind == KindInternal {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(),
			"status", status,
			"error", err,
		)
		if hub := sentry.CurrentHub(); hub.Client() != nil {
			hub.CaptureException(err)
		}
	}

	c.AbortWithStatusJSON(status, gin.H{"message": appErr.Message})
}
