package mfa

import (
	"errors"
	"time"

	"github.com/dmitrymomot/restauth/handler"
	"github.com/dmitrymomot/restauth/pkg/auth"
)

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access           string     `json:"access"`
	AccessExpiration *time.Time `json:"access_expiration,omitempty"`
}

type verifyTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type replaceUserRequest struct {
	Name string `json:"name" validate:"max=150"`
}

type patchUserRequest struct {
	Name *string `json:"name" validate:"omitempty,max=150"`
}

type passwordChangeRequest struct {
	OldPassword  string `json:"old_password" validate:"max=128"`
	NewPassword1 string `json:"new_password1" validate:"required,max=72"`
	NewPassword2 string `json:"new_password2" validate:"required,max=72,eqfield=NewPassword1"`
}

// optionalJSON binds the body when there is one. Logout and refresh accept
// an empty body because the refresh token may come from a cookie.
func optionalJSON(ctx handler.Context, v any) error {
	r := ctx.Request()
	if r.ContentLength == 0 {
		return nil
	}
	return binderJSON(r, v)
}

func (m *Module) logout(ctx handler.Context, _ struct{}) handler.Response {
	var req refreshRequest
	if err := optionalJSON(ctx, &req); err != nil {
		return handler.Error(err)
	}
	if err := m.creds.Logout(ctx, ctx.ResponseWriter(), ctx.Request(), req.Refresh); err != nil {
		return handler.Error(err)
	}
	return handler.JSON(detailResponse{Detail: "Successfully logged out."})
}

func (m *Module) refresh(ctx handler.Context, _ struct{}) handler.Response {
	var req refreshRequest
	if err := optionalJSON(ctx, &req); err != nil {
		return handler.Error(err)
	}
	pair, err := m.creds.Refresh(ctx, ctx.ResponseWriter(), ctx.Request(), req.Refresh)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(refreshResponse{Access: pair.Access, AccessExpiration: pair.AccessExpiration})
}

func (m *Module) verifyToken(ctx handler.Context, req verifyTokenRequest) handler.Response {
	if err := m.creds.VerifyToken(ctx, req.Token); err != nil {
		return handler.Error(err)
	}
	return handler.JSON(struct{}{})
}

func (m *Module) userDetails(ctx handler.Context, _ struct{}) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	user, err := m.user(ctx, userID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(toUserResponse(user))
}

func (m *Module) replaceUser(ctx handler.Context, req replaceUserRequest) handler.Response {
	return m.updateName(ctx, req.Name)
}

func (m *Module) patchUser(ctx handler.Context, req patchUserRequest) handler.Response {
	if req.Name == nil {
		return m.userDetails(ctx, struct{}{})
	}
	return m.updateName(ctx, *req.Name)
}

func (m *Module) updateName(ctx handler.Context, name string) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	user, err := m.user(ctx, userID)
	if err != nil {
		return handler.Error(err)
	}
	user, err = m.users.UpdateProfile(ctx, user.ID, name)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(toUserResponse(user))
}

func (m *Module) changePassword(ctx handler.Context, req passwordChangeRequest) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	user, err := m.user(ctx, userID)
	if err != nil {
		return handler.Error(err)
	}

	if m.cfg.OldPasswordRequired {
		if req.OldPassword == "" {
			return handler.Error(handler.FieldError("old_password", "This field is required."))
		}
		err := m.users.CheckPassword(ctx, user.ID, req.OldPassword)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return handler.Error(handler.FieldError("old_password",
				"Your old password was entered incorrectly. Please enter it again."))
		}
		if err != nil {
			return handler.Error(err)
		}
	}

	err = m.users.SetPassword(ctx, user.ID, req.NewPassword1)
	if errors.Is(err, auth.ErrWeakPassword) {
		return handler.Error(handler.FieldError("new_password1", weakPasswordMessage))
	}
	if err != nil {
		return handler.Error(err)
	}

	if m.cfg.LogoutOnPasswordChange {
		if err := m.creds.SignOut(ctx, ctx.ResponseWriter(), userID); err != nil {
			return handler.Error(err)
		}
	}
	return handler.JSON(detailResponse{Detail: "New password has been saved."})
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{ID: u.ID.String(), Email: u.Email, Name: u.Name}
}
