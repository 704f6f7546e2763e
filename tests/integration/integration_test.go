package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/handler"
	"github.com/consigline/crm-api-go/internal/infra/gormstore"
	"github.com/consigline/crm-api-go/internal/infra/observability"
	"github.com/consigline/crm-api-go/internal/seed"
	"github.com/consigline/crm-api-go/internal/service"

	"go.uber.org/zap"
)

// TestIntegration_FullFlow exercises the whole stack over HTTP: seeded
// bootstrap login, tenant setup by the superadmin, scoped CRM work by a
// manager and an agent, and the public form intake pipeline.
func TestIntegration_FullFlow(t *testing.T) {
	store, err := gormstore.Open("file:integration?mode=memory&cache=shared", zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	logger := zap.NewNop()
	if err := seed.New(store, logger).Run(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	metrics := observability.NewMetrics()
	crm := service.NewCRM(store, metrics, logger)
	authSvc := service.NewAuthService(store, "integration-secret", time.Hour, logger)
	formSvc := service.NewFormService(store, metrics, logger)
	router := handler.NewRouter(crm, authSvc, formSvc, store, metrics, logger)

	srv := httptest.NewServer(router)
	defer srv.Close()

	do := func(method, path, token string, body any) (*http.Response, []byte) {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				t.Fatalf("encode body: %v", err)
			}
		}
		req, err := http.NewRequest(method, srv.URL+path, &buf)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		defer resp.Body.Close()
		var out bytes.Buffer
		out.ReadFrom(resp.Body)
		return resp, out.Bytes()
	}

	login := func(email, password string) string {
		t.Helper()
		resp, body := do(http.MethodPost, "/v1/auth/login", "", map[string]string{
			"email": email, "password": password,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("login %s: %d %s", email, resp.StatusCode, body)
		}
		var result struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			t.Fatalf("decode login: %v", err)
		}
		return result.Token
	}

	// --- Bootstrap login ---
	adminTok := login(seed.BootstrapAdminEmail, seed.BootstrapAdminPassword)

	// --- Superadmin sets up a tenant ---
	resp, body := do(http.MethodPost, "/v1/organizations", adminTok, map[string]any{"name": "Filial Campinas"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create org: %d %s", resp.StatusCode, body)
	}
	var org domain.Organization
	json.Unmarshal(body, &org)

	resp, body = do(http.MethodPost, "/v1/users", adminTok, map[string]any{
		"name": "Gerente", "email": "gerente@campinas.test", "role": "MANAGER",
		"organizationId": org.ID, "password": "senha-gerente",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create manager: %d %s", resp.StatusCode, body)
	}

	managerTok := login("gerente@campinas.test", "senha-gerente")

	// The manager hires an agent; the organization is stamped from the
	// manager's own, whatever the payload says.
	resp, body = do(http.MethodPost, "/v1/users", managerTok, map[string]any{
		"name": "Vendedor", "email": "vendedor@campinas.test", "role": "AGENT",
		"organizationId": 999, "password": "senha-vendedor",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create agent: %d %s", resp.StatusCode, body)
	}
	var agent domain.User
	json.Unmarshal(body, &agent)
	if agent.OrganizationID != org.ID {
		t.Errorf("agent organization = %d, want the manager's %d", agent.OrganizationID, org.ID)
	}

	agentTok := login("vendedor@campinas.test", "senha-vendedor")

	// --- Agent works a client and a proposal ---
	resp, body = do(http.MethodPost, "/v1/clients", agentTok, map[string]any{
		"name": "Cliente Consignado", "cpf": "123.456.789-00",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("agent creates client: %d %s", resp.StatusCode, body)
	}
	var client domain.Client
	json.Unmarshal(body, &client)
	if client.OrganizationID != org.ID || client.CreatedByID != agent.ID {
		t.Errorf("client stamped org=%d creator=%q", client.OrganizationID, client.CreatedByID)
	}

	// Seeded reference data is readable by anyone authenticated.
	resp, body = do(http.MethodGet, "/v1/products", agentTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("agent lists products: %d", resp.StatusCode)
	}
	var products []domain.Product
	json.Unmarshal(body, &products)
	if len(products) == 0 {
		t.Fatal("no seeded products visible")
	}

	resp, body = do(http.MethodPost, "/v1/proposals", agentTok, map[string]any{
		"clientId": client.ID, "productId": products[0].ID,
		"value": "R$ 12.000,00", "status": "negotiating",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("agent creates proposal: %d %s", resp.StatusCode, body)
	}

	// The manager sees the agent's work, the details view joins names.
	resp, body = do(http.MethodGet, "/v1/proposals/details", managerTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("manager lists details: %d %s", resp.StatusCode, body)
	}
	var details []domain.ProposalDetails
	json.Unmarshal(body, &details)
	if len(details) != 1 || details[0].ClientName != "Cliente Consignado" {
		t.Errorf("details = %+v", details)
	}

	// The superadmin's other tenants are invisible to the manager.
	resp, body = do(http.MethodPost, "/v1/clients", adminTok, map[string]any{
		"name": "Cliente De Outra Filial", "organizationId": 1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin creates foreign client: %d %s", resp.StatusCode, body)
	}
	resp, body = do(http.MethodGet, "/v1/clients", managerTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("manager lists clients: %d", resp.StatusCode)
	}
	var visibleClients []domain.Client
	json.Unmarshal(body, &visibleClients)
	for _, c := range visibleClients {
		if c.OrganizationID != org.ID {
			t.Errorf("manager sees foreign client %d (org %d)", c.ID, c.OrganizationID)
		}
	}

	// --- Public form intake ---
	resp, body = do(http.MethodPost, "/v1/forms/templates", managerTok, map[string]any{
		"name": "Landing", "active": true,
		"fields": []map[string]any{
			{"name": "nome", "label": "Nome", "type": "text", "required": true},
			{"name": "telefone", "label": "Telefone", "type": "text"},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create template: %d %s", resp.StatusCode, body)
	}
	var tpl domain.FormTemplate
	json.Unmarshal(body, &tpl)

	resp, body = do(http.MethodPost, fmt.Sprintf("/v1/public/forms/%d/submissions", tpl.ID), "", map[string]string{
		"nome": "Lead Da Landing", "telefone": "(19) 99999-0000",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("public submit: %d %s", resp.StatusCode, body)
	}
	var sub domain.FormSubmission
	json.Unmarshal(body, &sub)

	resp, body = do(http.MethodPost, fmt.Sprintf("/v1/forms/submissions/%d/process", sub.ID), managerTok, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("process: %d %s", resp.StatusCode, body)
	}
	var lead domain.Client
	json.Unmarshal(body, &lead)
	if lead.Name != "Lead Da Landing" || lead.OrganizationID != org.ID {
		t.Errorf("processed lead = %+v", lead)
	}

	resp, _ = do(http.MethodPost, fmt.Sprintf("/v1/forms/submissions/%d/process", sub.ID), managerTok, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("double process: expected 409, got %d", resp.StatusCode)
	}

	// --- Ops surface ---
	resp, body = do(http.MethodGet, "/v1/metrics/summary", adminTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics summary: %d", resp.StatusCode)
	}
	var snapshot observability.OpsSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.SubmissionsProcessed != 1 {
		t.Errorf("submissionsProcessed = %d, want 1", snapshot.SubmissionsProcessed)
	}
}
