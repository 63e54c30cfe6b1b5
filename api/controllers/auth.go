package controllers

import (
	"net/http"

	"github.com/angelmondragon/shopcore-backend/api/middleware"
	"github.com/angelmondragon/shopcore-backend/api/responses"
	"github.com/angelmondragon/shopcore-backend/api/validators"
	"github.com/angelmondragon/shopcore-backend/internal/auth"
	"github.com/angelmondragon/shopcore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
	"github.com/angelmondragon/shopcore-backend/pkg/logger"
)

// AuthRegister creates an account and starts its first session.
func AuthRegister(svc auth.Service, jwtCfg config.JWTConfig, secure bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		middleware.WriteSessionCookies(w, result.TokenPair, jwtCfg, secure)
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AuthLogin verifies credentials and starts a session.
func AuthLogin(svc auth.Service, jwtCfg config.JWTConfig, secure bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		middleware.WriteSessionCookies(w, result.TokenPair, jwtCfg, secure)
		responses.WriteSuccess(w, result)
	}
}

// AuthRefresh rotates the refresh credential. The token is read from the
// request body, falling back to the session cookie.
func AuthRefresh(svc auth.Service, jwtCfg config.JWTConfig, secure bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := ""
		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err == nil {
			token = body.RefreshToken
		}
		if token == "" {
			if cookie, cErr := r.Cookie("refresh_token"); cErr == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeTokenInvalid, "refresh token is required"))
			return
		}

		result, err := svc.Rotate(r.Context(), token)
		if err != nil {
			middleware.ClearSessionCookies(w, secure)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		middleware.WriteSessionCookies(w, result.TokenPair, jwtCfg, secure)
		responses.WriteSuccess(w, result)
	}
}

// AuthLogout revokes every refresh token of the caller and clears cookies.
func AuthLogout(svc auth.Service, secure bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		if err := svc.RevokeAll(r.Context(), principal.UserID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		middleware.ClearSessionCookies(w, secure)
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
