package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jubileehq/jubilee-backend/api/middleware"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
)

// requestActor resolves the authenticated user from the request context.
type requestActor struct {
	ID   uuid.UUID
	Role enums.UserRole
}

func actorFromContext(ctx context.Context) (requestActor, error) {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return requestActor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return requestActor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return requestActor{
		ID:   id,
		Role: enums.UserRole(middleware.RoleFromContext(ctx)),
	}, nil
}

func urlUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, key+" required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}
