package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jubileehq/jubilee-backend/api/responses"
	"github.com/jubileehq/jubilee-backend/api/validators"
	"github.com/jubileehq/jubilee-backend/internal/audit"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
	"github.com/jubileehq/jubilee-backend/pkg/logger"
)

// AdminListAuditLog pages through the audit trail with optional filters.
func AdminListAuditLog(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := audit.ListParams{
			Action:     strings.TrimSpace(r.URL.Query().Get("action")),
			TargetType: strings.TrimSpace(r.URL.Query().Get("targetType")),
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("targetId")); raw != "" {
			targetID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid targetId"))
				return
			}
			params.TargetID = &targetID
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
