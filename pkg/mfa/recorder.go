package mfa

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/restauth/pkg/audit"
	"github.com/dmitrymomot/restauth/pkg/logger"
)

// Audit actions.
const (
	ActionVerifyFailed             = "mfa.verify_failed"
	ActionActivated                = "mfa.activated"
	ActionActivationFailed         = "mfa.activation_failed"
	ActionDeactivated              = "mfa.deactivated"
	ActionDeactivationFailed       = "mfa.deactivation_failed"
	ActionRecoveryCodeUsed         = "mfa.recovery_code_used"
	ActionRecoveryCodesRegenerated = "mfa.recovery_codes_regenerated"
)

// Failure reasons stored in event metadata.
const (
	ReasonInvalidToken           = "invalid_token"
	ReasonInvalidCode            = "invalid_code"
	ReasonAlreadyEnabled         = "already_enabled"
	ReasonNotEnabled             = "not_enabled"
	ReasonInvalidActivationToken = "invalid_activation_token"
)

// Recorder writes audit events. Failures are logged and swallowed.
type Recorder struct {
	audit *audit.Logger
	log   *slog.Logger
}

// NewRecorder writes to l and logs audit failures to log.
func NewRecorder(l *audit.Logger, log *slog.Logger) *Recorder {
	if log == nil {
		log = logger.Discard()
	}
	return &Recorder{audit: l, log: log}
}

// Success records a successful action.
func (r *Recorder) Success(ctx context.Context, action, userID string, meta map[string]any) {
	r.record(ctx, action, userID, audit.ResultSuccess, meta)
}

// Failure records a failed action with a short reason.
func (r *Recorder) Failure(ctx context.Context, action, userID, reason string) {
	r.record(ctx, action, userID, audit.ResultFailure, map[string]any{"reason": reason})
}

func (r *Recorder) record(ctx context.Context, action, userID string, result audit.Result, meta map[string]any) {
	if r == nil || r.audit == nil {
		return
	}

	opts := []audit.EventOption{audit.WithResult(result)}
	if userID != "" {
		opts = append(opts, audit.WithUserID(userID))
	}
	for k, v := range meta {
		opts = append(opts, audit.WithMetadata(k, v))
	}

	if err := r.audit.Log(ctx, action, opts...); err != nil {
		r.log.WarnContext(ctx, "audit record failed",
			logger.Event(action),
			logger.Error(err),
		)
	}
}
