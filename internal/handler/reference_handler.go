package handler

import (
	"net/http"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Reference Data Handlers (products, convenios, banks)
// ============================================================

func listProductsHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/products")
		defer span.End()

		products, err := svc.ListProducts(ctx, ActorFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, products)
	}
}

func getProductHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/products/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		product, err := svc.GetProduct(ctx, ActorFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, product)
	}
}

func createProductHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/products")
		defer span.End()

		var in domain.ProductInput
		if !decodeJSON(w, r, &in) {
			return
		}
		product, err := svc.CreateProduct(ctx, ActorFromContext(ctx), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, product)
	}
}

func updateProductHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/products/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		var patch domain.ProductPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		product, err := svc.UpdateProduct(ctx, ActorFromContext(ctx), id, &patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, product)
	}
}

func deleteProductHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/products/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		if err := svc.DeleteProduct(ctx, ActorFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listConveniosHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/convenios")
		defer span.End()

		convenios, err := svc.ListConvenios(ctx, ActorFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, convenios)
	}
}

func getConvenioHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/convenios/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		convenio, err := svc.GetConvenio(ctx, ActorFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, convenio)
	}
}

func createConvenioHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/convenios")
		defer span.End()

		var in domain.ConvenioInput
		if !decodeJSON(w, r, &in) {
			return
		}
		convenio, err := svc.CreateConvenio(ctx, ActorFromContext(ctx), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, convenio)
	}
}

func updateConvenioHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/convenios/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		var patch domain.ConvenioPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		convenio, err := svc.UpdateConvenio(ctx, ActorFromContext(ctx), id, &patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, convenio)
	}
}

func deleteConvenioHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/convenios/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		if err := svc.DeleteConvenio(ctx, ActorFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listBanksHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/banks")
		defer span.End()

		banks, err := svc.ListBanks(ctx, ActorFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, banks)
	}
}

func getBankHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/banks/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		bank, err := svc.GetBank(ctx, ActorFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, bank)
	}
}

func createBankHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/banks")
		defer span.End()

		var in domain.BankInput
		if !decodeJSON(w, r, &in) {
			return
		}
		bank, err := svc.CreateBank(ctx, ActorFromContext(ctx), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, bank)
	}
}

func updateBankHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/banks/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		var patch domain.BankPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		bank, err := svc.UpdateBank(ctx, ActorFromContext(ctx), id, &patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, bank)
	}
}

func deleteBankHandler(svc *service.CRM, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/banks/{id}")
		defer span.End()

		id := idParam(w, r)
		if id == 0 {
			return
		}
		if err := svc.DeleteBank(ctx, ActorFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
