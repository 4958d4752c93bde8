/*
Package handler provides the HTTP handlers and routing setup for the relay server.

This file contains the authentication handlers: account registration, login,
and password change. They are a thin façade over the auth service and carry no
coordination logic of their own.
*/
package handler

import (
	"errors"
	"net/http"
	"regexp"
	"unicode/utf8"

	"relaychat/internal/app/auth"
	"relaychat/internal/app/store"
	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_]{4,20}$`)

// validPassword enforces the 6-50 rune password policy.
func validPassword(password string) bool {
	n := utf8.RuneCountInString(password)
	return n >= 6 && n <= 50
}

type CredentialsInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister creates a new user account and issues an identity token.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input CredentialsInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !usernameRegex.MatchString(input.Username) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidUsername))
			return
		}

		if !validPassword(input.Password) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		user, token, err := deps.Auth.Register(r.Context(), input.Username, input.Password)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateUser) {
				logx.Warn("registration conflict: username already exists", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}

			logx.Error(err, "failed to register user")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondCreated(w, r, map[string]any{
			"token":    token,
			"user_id":  user.ID,
			"username": user.Username,
		})
	}
}

// HandleLogin verifies user credentials and issues an identity token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input CredentialsInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, token, err := deps.Auth.Login(r.Context(), input.Username, input.Password)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				logx.Warn("login: unknown username", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			case errors.Is(err, auth.ErrInvalidCredential):
				logx.Warn("login: password mismatch", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			default:
				logx.Error(err, "login failed")
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			}
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token":    token,
			"user_id":  user.ID,
			"username": user.Username,
		})
	}
}

type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// HandleChangePassword verifies the current password and stores a new hash.
func HandleChangePassword(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input ChangePasswordInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !validPassword(input.NewPassword) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		err := deps.Auth.ChangePassword(r.Context(), identity.Username, input.OldPassword, input.NewPassword)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			case errors.Is(err, auth.ErrInvalidCredential):
				resp.RespondError(w, r, errs.NewError(errs.ErrOldPasswordInvalid))
			default:
				logx.Error(err, "failed to change password", "user_id", identity.UserID)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			}
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
