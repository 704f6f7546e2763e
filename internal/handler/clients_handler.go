package handler

import (
	"net/http"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Client Handlers
// ============================================================

func listClientsHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clients")
		defer span.End()

		clients, err := svc.ListClients(ctx, ActorFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, clients)
	}
}

func getClientHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clients/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		client, err := svc.GetClient(ctx, ActorFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, client)
	}
}

func createClientHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/clients")
		defer span.End()

		// organizationId in the body is honored only for superadmins;
		// everyone else gets stamped with their own organization.
		var req struct {
			domain.ClientInput
			OrganizationID int64 `json:"organizationId"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		client, err := svc.CreateClient(ctx, ActorFromContext(ctx), &req.ClientInput, req.OrganizationID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, client)
	}
}

func updateClientHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/clients/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		var patch domain.ClientPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		client, err := svc.UpdateClient(ctx, ActorFromContext(ctx), id, &patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, client)
	}
}

func deleteClientHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/clients/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		if err := svc.DeleteClient(ctx, ActorFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
