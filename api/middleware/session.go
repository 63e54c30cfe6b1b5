package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/shopcore-backend/api/responses"
	"github.com/angelmondragon/shopcore-backend/internal/auth"
	"github.com/angelmondragon/shopcore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
	"github.com/angelmondragon/shopcore-backend/pkg/logger"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// Session resolves the caller's credentials into a Principal. Credentials
// ride in HttpOnly cookies, with an Authorization bearer fallback. When the
// access credential is unusable but a live refresh cookie is present, the
// pair is rotated and fresh cookies are written on the response. A request
// without usable credentials proceeds unauthenticated; RequireAuth decides
// whether that is fatal.
func Session(svc auth.Service, jwtCfg config.JWTConfig, secure bool, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if token := accessTokenFrom(r); token != "" {
				if claims, err := svc.Validate(ctx, token); err == nil {
					principal := Principal{UserID: claims.UserID, Role: claims.Role}
					next.ServeHTTP(w, r.WithContext(seed(ctx, logg, principal)))
					return
				}
			}

			if refresh := refreshTokenFrom(r); refresh != "" {
				result, err := svc.Rotate(ctx, refresh)
				if err == nil {
					WriteSessionCookies(w, result.TokenPair, jwtCfg, secure)
					if claims, vErr := svc.Validate(ctx, result.AccessToken); vErr == nil {
						principal := Principal{UserID: claims.UserID, Role: claims.Role}
						next.ServeHTTP(w, r.WithContext(seed(ctx, logg, principal)))
						return
					}
				} else if logg != nil {
					logg.Warn(logg.WithField(ctx, "reason", pkgerrors.Dump(err).Code), "session.rotation_rejected")
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func seed(ctx context.Context, logg *logger.Logger, p Principal) context.Context {
	ctx = WithPrincipal(ctx, p)
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"user_id":    p.UserID.String(),
			"actor_role": string(p.Role),
		})
	}
	return ctx
}

// RequireAuth rejects requests that carry no authenticated principal.
func RequireAuth(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFromContext(r.Context()); !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects authenticated callers without the ADMIN role.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !principal.IsAdmin() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteSessionCookies stores the token pair as HttpOnly cookies.
func WriteSessionCookies(w http.ResponseWriter, pair auth.TokenPair, jwtCfg config.JWTConfig, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(jwtCfg.AccessTokenTTL().Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(jwtCfg.RefreshTokenTTL().Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookies expires both session cookies.
func ClearSessionCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func accessTokenFrom(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw != "" {
		if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			raw = strings.TrimSpace(raw[7:])
		}
		if raw != "" {
			return raw
		}
	}
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func refreshTokenFrom(r *http.Request) string {
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
