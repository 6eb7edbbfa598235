package mfa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/restauth/pkg/credential"
	"github.com/dmitrymomot/restauth/pkg/logger"
	"github.com/dmitrymomot/restauth/pkg/qrcode"
	"github.com/dmitrymomot/restauth/pkg/statemachine"
)

// Service runs the login handshake and the enrollment flows.
type Service struct {
	store       Store
	totp        *TOTP
	recovery    *RecoveryCodes
	challenges  *Challenges
	activations *ActivationTokens
	issuer      credential.Issuer
	recorder    *Recorder
	metrics     Metrics
	flow        *statemachine.Definition[FlowState, FlowEvent]
	qrSize      int
	log         *slog.Logger
}

// NewService wires the TOTP and recovery code factors, the ephemeral token
// signers and issuer. cfg is validated first.
func NewService(cfg Config, store Store, issuer credential.Issuer, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || issuer == nil {
		return nil, fmt.Errorf("%w: store and credential issuer are required", ErrInvalidConfig)
	}

	o := newOptions(opts)
	log := o.log.With(logger.Component("mfa"))

	factor, err := NewTOTP(cfg, store, opts...)
	if err != nil {
		return nil, err
	}
	challenges, err := NewChallenges([]byte(cfg.SigningSecret), cfg.EphemeralTokenTTL, opts...)
	if err != nil {
		return nil, err
	}
	activations, err := NewActivationTokens([]byte(cfg.SigningSecret), cfg.EphemeralTokenTTL, opts...)
	if err != nil {
		return nil, err
	}

	qrSize := cfg.QRCodeSize
	if qrSize == 0 {
		qrSize = qrcode.DefaultSize
	}

	return &Service{
		store:       store,
		totp:        factor,
		recovery:    NewRecoveryCodes(cfg, store, opts...),
		challenges:  challenges,
		activations: activations,
		issuer:      issuer,
		recorder:    NewRecorder(o.audit, log),
		metrics:     o.metrics,
		flow:        LoginFlow(log),
		qrSize:      qrSize,
		log:         log,
	}, nil
}

// Login checks primary credentials. Users with a TOTP factor get a challenge
// instead of credentials.
func (s *Service) Login(ctx context.Context, primary PrimaryAuthenticator, req LoginRequest) (*LoginResult, error) {
	m := s.flow.New()

	userID, err := primary.Authenticate(ctx, req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.metrics.Login("invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		s.metrics.Login("error")
		return nil, fmt.Errorf("primary authentication: %w", err)
	}
	if err := s.fire(ctx, m, EventPrimaryVerified); err != nil {
		return nil, err
	}

	enabled, err := s.totp.Enabled(ctx, userID)
	if err != nil {
		return nil, s.storeError(ctx, "login", userID, err)
	}

	if enabled {
		tok, err := s.challenges.Issue(userID)
		if err != nil {
			return nil, fmt.Errorf("issue challenge: %w", err)
		}
		if err := s.fire(ctx, m, EventFactorEnrolled); err != nil {
			return nil, err
		}
		s.metrics.Login("challenge")
		return &LoginResult{
			UserID:         userID,
			State:          m.Current(),
			MFARequired:    true,
			EphemeralToken: tok,
		}, nil
	}

	if err := s.fire(ctx, m, EventNoFactor); err != nil {
		return nil, err
	}
	return s.authenticated(ctx, m, userID)
}

// Verify completes a challenged login. TOTP is tried first, then recovery
// codes. Failures never tell which factor was checked.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*LoginResult, error) {
	m := s.flow.Restore(StateChallengeIssued)

	userID, err := s.challenges.Verify(req.EphemeralToken)
	if err != nil {
		_ = s.fire(ctx, m, EventChallengeRejected)
		s.recorder.Failure(ctx, ActionVerifyFailed, "", ReasonInvalidToken)
		s.metrics.Verification("challenge", "rejected")
		return nil, ErrInvalidChallenge
	}

	factor := FactorTOTP
	ok, err := s.totp.Validate(ctx, userID, req.Code)
	if err != nil {
		return nil, s.storeError(ctx, "verify totp", userID, err)
	}

	if !ok {
		remaining, used, err := s.recovery.Redeem(ctx, userID, req.Code)
		if err != nil {
			return nil, s.storeError(ctx, "verify recovery code", userID, err)
		}
		if used {
			ok, factor = true, FactorRecoveryCodes
			s.recorder.Success(ctx, ActionRecoveryCodeUsed, userID, map[string]any{"remaining": remaining})
		}
	}

	if !ok {
		_ = s.fire(ctx, m, EventCodeRejected)
		s.recorder.Failure(ctx, ActionVerifyFailed, userID, ReasonInvalidCode)
		s.metrics.Verification("any", "rejected")
		return nil, ErrInvalidCode
	}

	if err := s.fire(ctx, m, EventCodeAccepted); err != nil {
		return nil, err
	}
	s.metrics.Verification(string(factor), "accepted")
	return s.authenticated(ctx, m, userID)
}

func (s *Service) authenticated(ctx context.Context, m *statemachine.Machine[FlowState, FlowEvent], userID string) (*LoginResult, error) {
	creds, err := s.issuer.Issue(ctx, userID)
	if err != nil {
		s.metrics.Login("error")
		return nil, fmt.Errorf("issue credentials: %w", err)
	}
	s.metrics.Login("success")
	return &LoginResult{UserID: userID, State: m.Current(), Credentials: creds}, nil
}

// BeginActivation generates a pending secret and the token that binds it to user.
// Nothing is stored until ConfirmActivation.
func (s *Service) BeginActivation(ctx context.Context, user User) (*ActivationInit, error) {
	secret, err := s.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}

	account := user.AccountName
	if account == "" {
		account = user.ID
	}
	uri, err := s.totp.ProvisioningURI(account, secret)
	if err != nil {
		return nil, err
	}
	qr, err := qrcode.DataURI(uri, s.qrSize)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	tok, err := s.activations.Issue(user.ID, secret)
	if err != nil {
		return nil, fmt.Errorf("issue activation token: %w", err)
	}

	s.log.DebugContext(ctx, "totp activation started", logger.UserID(user.ID))
	return &ActivationInit{
		Secret:          secret,
		TOTPURL:         uri,
		QRCodeDataURI:   qr,
		ActivationToken: tok,
	}, nil
}

// ConfirmActivation enrolls the pending secret after a valid code and returns
// a fresh recovery code set.
func (s *Service) ConfirmActivation(ctx context.Context, userID string, req ActivationConfirm) ([]string, error) {
	const action = "activate"

	enabled, err := s.totp.Enabled(ctx, userID)
	if err != nil {
		return nil, s.storeError(ctx, action, userID, err)
	}
	if enabled {
		return nil, s.activationFailed(ctx, userID, ReasonAlreadyEnabled, ErrAlreadyEnrolled)
	}

	secret := strings.ToUpper(strings.TrimSpace(req.Secret))
	if err := s.activations.Verify(req.ActivationToken, userID, secret); err != nil {
		return nil, s.activationFailed(ctx, userID, ReasonInvalidActivationToken, err)
	}

	ok, err := s.totp.VerifyCode(secret, req.Code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.activationFailed(ctx, userID, ReasonInvalidCode, ErrInvalidActivationCode)
	}

	if err := s.totp.Enroll(ctx, userID, secret); err != nil {
		if errors.Is(err, ErrAlreadyEnrolled) {
			return nil, s.activationFailed(ctx, userID, ReasonAlreadyEnabled, err)
		}
		return nil, s.storeError(ctx, action, userID, err)
	}

	codes, err := s.recovery.Activate(ctx, userID)
	if err != nil {
		if derr := s.totp.Deactivate(ctx, userID); derr != nil {
			s.log.ErrorContext(ctx, "rollback of totp enrollment failed", logger.UserID(userID), logger.Error(derr))
		}
		return nil, s.storeError(ctx, action, userID, err)
	}

	s.recorder.Success(ctx, ActionActivated, userID, map[string]any{"recovery_codes_count": len(codes)})
	s.metrics.Enrollment(action, "success")
	return codes, nil
}

func (s *Service) activationFailed(ctx context.Context, userID, reason string, err error) error {
	s.recorder.Failure(ctx, ActionActivationFailed, userID, reason)
	s.metrics.Enrollment("activate", reason)
	return err
}

// Deactivate removes TOTP and recovery codes together after a valid TOTP code.
func (s *Service) Deactivate(ctx context.Context, userID, code string) error {
	const action = "deactivate"

	enabled, err := s.totp.Enabled(ctx, userID)
	if err != nil {
		return s.storeError(ctx, action, userID, err)
	}
	if !enabled {
		s.recorder.Failure(ctx, ActionDeactivationFailed, userID, ReasonNotEnabled)
		s.metrics.Enrollment(action, ReasonNotEnabled)
		return ErrNotEnrolled
	}

	ok, err := s.totp.Validate(ctx, userID, code)
	if err != nil {
		return s.storeError(ctx, action, userID, err)
	}
	if !ok {
		s.recorder.Failure(ctx, ActionDeactivationFailed, userID, ReasonInvalidCode)
		s.metrics.Enrollment(action, ReasonInvalidCode)
		return ErrInvalidDeactivationCode
	}

	if err := s.store.Delete(ctx, userID, FactorTOTP, FactorRecoveryCodes); err != nil {
		return s.storeError(ctx, action, userID, err)
	}

	s.recorder.Success(ctx, ActionDeactivated, userID, nil)
	s.metrics.Enrollment(action, "success")
	return nil
}

// Status returns the TOTP status of the user. A user without TOTP has
// Enabled false and nil timestamps.
func (s *Service) Status(ctx context.Context, userID string) (*Status, error) {
	a, err := s.totp.Record(ctx, userID)
	if errors.Is(err, ErrAuthenticatorNotFound) {
		return &Status{}, nil
	}
	if err != nil {
		return nil, s.storeError(ctx, "status", userID, err)
	}

	created := a.CreatedAt
	return &Status{Enabled: true, CreatedAt: &created, LastUsedAt: a.LastUsedAt}, nil
}

// RecoveryCodes returns the unused recovery codes of the user.
func (s *Service) RecoveryCodes(ctx context.Context, userID string) ([]string, error) {
	codes, err := s.recovery.UnusedCodes(ctx, userID)
	if err != nil {
		return nil, s.storeError(ctx, "recovery codes", userID, err)
	}
	return codes, nil
}

// RegenerateRecoveryCodes replaces the set. Every earlier code stops working.
func (s *Service) RegenerateRecoveryCodes(ctx context.Context, userID string) ([]string, error) {
	const action = "regenerate"

	enabled, err := s.totp.Enabled(ctx, userID)
	if err != nil {
		return nil, s.storeError(ctx, action, userID, err)
	}
	if !enabled {
		s.metrics.Enrollment(action, ReasonNotEnabled)
		return nil, ErrNotEnrolled
	}

	codes, err := s.recovery.Activate(ctx, userID)
	if err != nil {
		return nil, s.storeError(ctx, action, userID, err)
	}

	s.recorder.Success(ctx, ActionRecoveryCodesRegenerated, userID, map[string]any{"recovery_codes_count": len(codes)})
	s.metrics.Enrollment(action, "success")
	return codes, nil
}

// IsEnabled reports whether the user has TOTP enabled.
func (s *Service) IsEnabled(ctx context.Context, userID string) (bool, error) {
	enabled, err := s.totp.Enabled(ctx, userID)
	if err != nil {
		return false, storeFailure(err)
	}
	return enabled, nil
}

func (s *Service) fire(ctx context.Context, m *statemachine.Machine[FlowState, FlowEvent], event FlowEvent) error {
	if err := m.Fire(ctx, event, nil); err != nil {
		return fmt.Errorf("login flow: %w", err)
	}
	return nil
}

func (s *Service) storeError(ctx context.Context, op, userID string, err error) error {
	err = storeFailure(err)
	if errors.Is(err, ErrStoreFailure) {
		s.log.ErrorContext(ctx, "store failure",
			slog.String("op", op),
			logger.UserID(userID),
			logger.Error(err),
		)
	}
	return err
}
