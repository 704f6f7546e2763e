package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Proposal Handlers
// ============================================================

// listProposalsHandler dispatches on query parameters: ?status= filters
// by status, ?min_value=&max_value= filters by the parsed monetary
// value, and no parameters lists everything in scope.
func listProposalsHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/proposals")
		defer span.End()

		actor := ActorFromContext(ctx)
		q := r.URL.Query()

		if status := q.Get("status"); status != "" {
			proposals, err := svc.ListProposalsByStatus(ctx, actor, domain.ProposalStatus(status))
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			writeJSON(w, http.StatusOK, proposals)
			return
		}

		if q.Get("min_value") != "" || q.Get("max_value") != "" {
			min := 0.0
			max := math.MaxFloat64
			if raw := q.Get("min_value"); raw != "" {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					writeError(w, http.StatusBadRequest, "min_value must be a number")
					return
				}
				min = v
			}
			if raw := q.Get("max_value"); raw != "" {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					writeError(w, http.StatusBadRequest, "max_value must be a number")
					return
				}
				max = v
			}
			proposals, err := svc.ListProposalsByValueRange(ctx, actor, min, max)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			writeJSON(w, http.StatusOK, proposals)
			return
		}

		proposals, err := svc.ListProposals(ctx, actor)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, proposals)
	}
}

func listProposalDetailsHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/proposals/details")
		defer span.End()

		details, err := svc.ListProposalsWithDetails(ctx, ActorFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, details)
	}
}

func getProposalHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/proposals/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		proposal, err := svc.GetProposal(ctx, ActorFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, proposal)
	}
}

func createProposalHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/proposals")
		defer span.End()

		var in domain.ProposalInput
		if !decodeJSON(w, r, &in) {
			return
		}
		proposal, err := svc.CreateProposal(ctx, ActorFromContext(ctx), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, proposal)
	}
}

func updateProposalHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/proposals/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		var patch domain.ProposalPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		proposal, err := svc.UpdateProposal(ctx, ActorFromContext(ctx), id, &patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, proposal)
	}
}

func deleteProposalHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/proposals/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		if err := svc.DeleteProposal(ctx, ActorFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
