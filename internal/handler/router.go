package handler

import (
	"net/http"
	"time"

	"github.com/consigline/crm-api-go/internal/infra/observability"
	"github.com/consigline/crm-api-go/internal/port"
	"github.com/consigline/crm-api-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter wires the HTTP surface. Everything under /v1 except the
// auth login and the public form intake requires a verified session.
func NewRouter(crm *service.CRM, authSvc *service.AuthService, formSvc *service.FormService, store port.Store, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(store))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Public routes: login and anonymous form intake.
		r.Post("/auth/login", authLoginHandler(authSvc, logger))
		r.Post("/public/forms/{id}/submissions", submitFormHandler(formSvc, logger))

		// Everything else is behind the session middleware.
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(authSvc, logger))

			r.Put("/auth/password", authChangePasswordHandler(authSvc, logger))
			r.Post("/auth/password/reset", authResetPasswordHandler(authSvc, logger))

			r.Get("/metrics/summary", opsMetricsHandler(metrics))

			r.Route("/organizations", func(r chi.Router) {
				r.Get("/", listOrganizationsHandler(crm, logger))
				r.Post("/", createOrganizationHandler(crm, logger))
				r.Get("/{id}", getOrganizationHandler(crm, logger))
				r.Put("/{id}", updateOrganizationHandler(crm, logger))
				r.Delete("/{id}", deleteOrganizationHandler(crm, logger))
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", listUsersHandler(crm, logger))
				r.Post("/", createUserHandler(crm, logger))
				r.Get("/{id}", getUserHandler(crm, logger))
				r.Put("/{id}", updateUserHandler(crm, logger))
				r.Delete("/{id}", deleteUserHandler(crm, logger))
			})

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", listClientsHandler(crm, logger))
				r.Post("/", createClientHandler(crm, logger))
				r.Get("/{id}", getClientHandler(crm, logger))
				r.Put("/{id}", updateClientHandler(crm, logger))
				r.Delete("/{id}", deleteClientHandler(crm, logger))
			})

			r.Route("/proposals", func(r chi.Router) {
				r.Get("/", listProposalsHandler(crm, logger))
				r.Post("/", createProposalHandler(crm, logger))
				r.Get("/details", listProposalDetailsHandler(crm, logger))
				r.Get("/{id}", getProposalHandler(crm, logger))
				r.Put("/{id}", updateProposalHandler(crm, logger))
				r.Delete("/{id}", deleteProposalHandler(crm, logger))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", listProductsHandler(crm, logger))
				r.Post("/", createProductHandler(crm, logger))
				r.Get("/{id}", getProductHandler(crm, logger))
				r.Put("/{id}", updateProductHandler(crm, logger))
				r.Delete("/{id}", deleteProductHandler(crm, logger))
			})

			r.Route("/convenios", func(r chi.Router) {
				r.Get("/", listConveniosHandler(crm, logger))
				r.Post("/", createConvenioHandler(crm, logger))
				r.Get("/{id}", getConvenioHandler(crm, logger))
				r.Put("/{id}", updateConvenioHandler(crm, logger))
				r.Delete("/{id}", deleteConvenioHandler(crm, logger))
			})

			r.Route("/banks", func(r chi.Router) {
				r.Get("/", listBanksHandler(crm, logger))
				r.Post("/", createBankHandler(crm, logger))
				r.Get("/{id}", getBankHandler(crm, logger))
				r.Put("/{id}", updateBankHandler(crm, logger))
				r.Delete("/{id}", deleteBankHandler(crm, logger))
			})

			r.Route("/forms", func(r chi.Router) {
				r.Route("/templates", func(r chi.Router) {
					r.Get("/", listFormTemplatesHandler(formSvc, logger))
					r.Post("/", createFormTemplateHandler(formSvc, logger))
					r.Get("/{id}", getFormTemplateHandler(formSvc, logger))
					r.Put("/{id}", updateFormTemplateHandler(formSvc, logger))
					r.Delete("/{id}", deleteFormTemplateHandler(formSvc, logger))
				})
				r.Route("/submissions", func(r chi.Router) {
					r.Get("/", listFormSubmissionsHandler(formSvc, logger))
					r.Get("/{id}", getFormSubmissionHandler(formSvc, logger))
					r.Post("/{id}/process", processFormSubmissionHandler(formSvc, logger))
				})
			})
		})
	})

	return r
}

// ============================================================
// Probes & Metrics
// ============================================================

func healthzHandler(store port.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := "healthy"
		code := http.StatusOK
		if err := store.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func opsMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetOpsSnapshot())
	}
}
