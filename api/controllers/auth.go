package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/equipqr/equipqr-backend/api/middleware"
	"github.com/equipqr/equipqr-backend/api/responses"
	"github.com/equipqr/equipqr-backend/api/validators"
	pkgauth "github.com/equipqr/equipqr-backend/pkg/auth"
	"github.com/equipqr/equipqr-backend/pkg/auth/session"
	"github.com/equipqr/equipqr-backend/pkg/config"
	pkgerrors "github.com/equipqr/equipqr-backend/pkg/errors"
	"github.com/equipqr/equipqr-backend/pkg/logger"
)

// SessionRotator is the session lifecycle surface the auth endpoints need.
type SessionRotator interface {
	Rotate(ctx context.Context, oldAccessID, refreshToken string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type refreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthRefresh exchanges a refresh token for a new access/refresh pair. The
// access token may already be expired; the refresh token is what proves the
// caller still owns the session.
func AuthRefresh(cfg config.JWTConfig, sessions SessionRotator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session store unavailable"))
			return
		}

		var payload refreshRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		claims, err := pkgauth.ParseAccessTokenAllowExpired(cfg, payload.AccessToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
			return
		}
		if claims.ID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
			return
		}

		newAccessID, newRefresh, err := sessions.Rotate(r.Context(), claims.ID, payload.RefreshToken)
		if err != nil {
			if errors.Is(err, session.ErrInvalidRefreshToken) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid refresh token"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session"))
			return
		}

		signed, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
			UserID:      claims.UserID,
			ActiveOrgID: claims.ActiveOrgID,
			Role:        claims.Role,
			JTI:         newAccessID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token"))
			return
		}

		responses.WriteSuccess(w, refreshResponse{
			AccessToken:  signed,
			RefreshToken: newRefresh,
			ExpiresIn:    int64(cfg.ExpirationMinutes) * 60,
		})
	}
}

// AuthLogout revokes the caller's refresh session so the current access token
// stops validating on its next use.
func AuthLogout(sessions SessionRotator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session store unavailable"))
			return
		}

		accessID := middleware.AccessIDFromContext(r.Context())
		if accessID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session context missing"))
			return
		}

		if err := sessions.Revoke(r.Context(), accessID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
