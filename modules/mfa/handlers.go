package mfa

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/restauth/handler"
	"github.com/dmitrymomot/restauth/pkg/auth"
	"github.com/dmitrymomot/restauth/pkg/binder"
	"github.com/dmitrymomot/restauth/pkg/credential"
	mfasvc "github.com/dmitrymomot/restauth/pkg/mfa"
)

var binderJSON = binder.JSON()

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=150"`
}

type registerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type challengeResponse struct {
	EphemeralToken string `json:"ephemeral_token"`
	MFARequired    bool   `json:"mfa_required"`
}

type verifyRequest struct {
	EphemeralToken string `json:"ephemeral_token" validate:"required"`
	Code           string `json:"code" validate:"required"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type jwtResponse struct {
	Access            string       `json:"access"`
	Refresh           string       `json:"refresh"`
	User              userResponse `json:"user"`
	AccessExpiration  *time.Time   `json:"access_expiration,omitempty"`
	RefreshExpiration *time.Time   `json:"refresh_expiration,omitempty"`
}

type tokenResponse struct {
	Key string `json:"key"`
}

type activationResponse struct {
	Secret          string `json:"secret"`
	TOTPURL         string `json:"totp_url"`
	QRCodeDataURI   string `json:"qr_code_data_uri"`
	ActivationToken string `json:"activation_token"`
}

type confirmActivationRequest struct {
	Secret          string `json:"secret" validate:"required"`
	Code            string `json:"code" validate:"required"`
	ActivationToken string `json:"activation_token" validate:"required"`
}

type recoveryCodesActivatedResponse struct {
	RecoveryCodes []string `json:"recovery_codes"`
}

type deactivateRequest struct {
	Code string `json:"code" validate:"required"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

type statusResponse struct {
	MFAEnabled bool       `json:"mfa_enabled"`
	CreatedAt  *time.Time `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

type codesResponse struct {
	Codes []string `json:"codes"`
}

func (m *Module) register(ctx handler.Context, req registerRequest) handler.Response {
	user, err := m.users.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(registerResponse{ID: user.ID.String(), Email: user.Email}, handler.WithJSONStatus(http.StatusCreated))
}

func (m *Module) login(ctx handler.Context, req loginRequest) handler.Response {
	res, err := m.svc.Login(ctx, m.primary, mfasvc.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		return handler.Error(err)
	}
	if res.MFARequired {
		return handler.JSON(challengeResponse{EphemeralToken: res.EphemeralToken, MFARequired: true})
	}
	return m.credentials(ctx, res)
}

func (m *Module) verify(ctx handler.Context, req verifyRequest) handler.Response {
	res, err := m.svc.Verify(ctx, mfasvc.VerifyRequest{EphemeralToken: req.EphemeralToken, Code: req.Code})
	if err != nil {
		return handler.Error(err)
	}
	return m.credentials(ctx, res)
}

// credentials renders the issued result in the shape of the configured mode.
func (m *Module) credentials(ctx handler.Context, res *mfasvc.LoginResult) handler.Response {
	// Resolve the user before Deliver writes cookies so a failed lookup
	// leaves no credentials behind.
	var user *auth.User
	if _, ok := res.Credentials.(credential.JWTPair); ok {
		u, err := m.user(ctx, res.UserID)
		if err != nil {
			return handler.Error(err)
		}
		user = u
	}

	out, err := m.creds.Deliver(ctx.ResponseWriter(), res.UserID, res.Credentials)
	if err != nil {
		return handler.Error(err)
	}

	switch v := out.(type) {
	case credential.JWTPair:
		return handler.JSON(jwtResponse{
			Access:            v.Access,
			Refresh:           v.Refresh,
			User:              toUserResponse(user),
			AccessExpiration:  v.AccessExpiration,
			RefreshExpiration: v.RefreshExpiration,
		})
	case credential.OpaqueToken:
		return handler.JSON(tokenResponse{Key: v.Key})
	default:
		return handler.Empty()
	}
}

func (m *Module) beginActivation(ctx handler.Context, _ struct{}) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	user, err := m.user(ctx, userID)
	if err != nil {
		return handler.Error(err)
	}

	act, err := m.svc.BeginActivation(ctx, mfasvc.User{ID: userID, AccountName: user.Email})
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(activationResponse{
		Secret:          act.Secret,
		TOTPURL:         act.TOTPURL,
		QRCodeDataURI:   act.QRCodeDataURI,
		ActivationToken: act.ActivationToken,
	})
}

func (m *Module) confirmActivation(ctx handler.Context, req confirmActivationRequest) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	codes, err := m.svc.ConfirmActivation(ctx, userID, mfasvc.ActivationConfirm{
		Secret:          req.Secret,
		Code:            req.Code,
		ActivationToken: req.ActivationToken,
	})
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(recoveryCodesActivatedResponse{RecoveryCodes: codes})
}

func (m *Module) deactivate(ctx handler.Context, req deactivateRequest) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if err := m.svc.Deactivate(ctx, userID, req.Code); err != nil {
		return handler.Error(err)
	}
	return handler.JSON(detailResponse{Detail: "MFA has been deactivated."})
}

func (m *Module) status(ctx handler.Context, _ struct{}) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	st, err := m.svc.Status(ctx, userID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(statusResponse{MFAEnabled: st.Enabled, CreatedAt: st.CreatedAt, LastUsedAt: st.LastUsedAt})
}

func (m *Module) recoveryCodes(ctx handler.Context, _ struct{}) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	codes, err := m.svc.RecoveryCodes(ctx, userID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(codesResponse{Codes: codes})
}

func (m *Module) regenerateRecoveryCodes(ctx handler.Context, _ struct{}) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	codes, err := m.svc.RegenerateRecoveryCodes(ctx, userID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(codesResponse{Codes: codes})
}

func currentUser(ctx handler.Context) (string, error) {
	userID, ok := credential.UserID(ctx)
	if !ok {
		return "", credential.ErrUnauthenticated
	}
	return userID, nil
}

func (m *Module) user(ctx handler.Context, userID string) (*auth.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, errors.Join(credential.ErrUnauthenticated, err)
	}
	user, err := m.users.GetUser(ctx, id)
	if errors.Is(err, auth.ErrUserNotFound) {
		return nil, errors.Join(credential.ErrUnauthenticated, err)
	}
	return user, err
}
