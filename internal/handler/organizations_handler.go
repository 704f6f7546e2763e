package handler

import (
	"net/http"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Organization Handlers
// ============================================================

func listOrganizationsHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/organizations")
		defer span.End()

		orgs, err := svc.ListOrganizations(ctx, ActorFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, orgs)
	}
}

func getOrganizationHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/organizations/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		org, err := svc.GetOrganization(ctx, ActorFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, org)
	}
}

func createOrganizationHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/organizations")
		defer span.End()

		var in domain.OrganizationInput
		if !decodeJSON(w, r, &in) {
			return
		}
		org, err := svc.CreateOrganization(ctx, ActorFromContext(ctx), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, org)
	}
}

func updateOrganizationHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/organizations/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		var patch domain.OrganizationPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		org, err := svc.UpdateOrganization(ctx, ActorFromContext(ctx), id, &patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, org)
	}
}

func deleteOrganizationHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/organizations/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		if err := svc.DeleteOrganization(ctx, ActorFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
