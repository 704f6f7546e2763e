package handler

import (
	"net/http"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Form Template & Submission Handlers
// ============================================================

func listFormTemplatesHandler(svc *service.FormService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/forms/templates")
		defer span.End()

		templates, err := svc.ListTemplates(ctx, ActorFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, templates)
	}
}

func getFormTemplateHandler(svc *service.FormService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/forms/templates/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		tpl, err := svc.GetTemplate(ctx, ActorFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tpl)
	}
}

func createFormTemplateHandler(svc *service.FormService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/forms/templates")
		defer span.End()

		var req struct {
			domain.FormTemplateInput
			OrganizationID int64 `json:"organizationId"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		req.FormTemplateInput.OrganizationID = req.OrganizationID
		tpl, err := svc.CreateTemplate(ctx, ActorFromContext(ctx), &req.FormTemplateInput)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, tpl)
	}
}

func updateFormTemplateHandler(svc *service.FormService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/forms/templates/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		var patch domain.FormTemplatePatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		tpl, err := svc.UpdateTemplate(ctx, ActorFromContext(ctx), id, &patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tpl)
	}
}

func deleteFormTemplateHandler(svc *service.FormService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/forms/templates/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		if err := svc.DeleteTemplate(ctx, ActorFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// submitFormHandler is the only anonymous write in the API. The
// template id comes from the URL, the payload is the raw field map.
func submitFormHandler(svc *service.FormService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/public/forms/{id}/submissions")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		var data map[string]string
		if !decodeJSON(w, r, &data) {
			return
		}
		sub, err := svc.SubmitPublic(ctx, id, data)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	}
}

func listFormSubmissionsHandler(svc *service.FormService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/forms/submissions")
		defer span.End()

		subs, err := svc.ListSubmissions(ctx, ActorFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, subs)
	}
}

func getFormSubmissionHandler(svc *service.FormService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/forms/submissions/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		sub, err := svc.GetSubmission(ctx, ActorFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

func processFormSubmissionHandler(svc *service.FormService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/forms/submissions/{id}/process")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		client, err := svc.Process(ctx, ActorFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, client)
	}
}
