package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/equipqr/equipqr-backend/api/middleware"
	pkgerrors "github.com/equipqr/equipqr-backend/pkg/errors"
)

// requestIdentity resolves the authenticated user and active organization
// seeded by the auth middleware. Handlers behind OrgContext can rely on both
// being present; the parse guards catch malformed tokens anyway.
func requestIdentity(r *http.Request) (userID, orgID uuid.UUID, err error) {
	rawUser := middleware.UserIDFromContext(r.Context())
	if rawUser == "" {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}

	rawOrg := middleware.OrgIDFromContext(r.Context())
	if rawOrg == "" {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing")
	}

	userID, err = uuid.Parse(rawUser)
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}

	orgID, err = uuid.Parse(rawOrg)
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid organization id")
	}

	return userID, orgID, nil
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := routeParam(r, param)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "missing path parameter").WithDetails(map[string]any{"param": param})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid path parameter").WithDetails(map[string]any{"param": param})
	}
	return id, nil
}

func routeParam(r *http.Request, param string) string {
	return chi.URLParam(r, param)
}
