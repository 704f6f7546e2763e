package baserow

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/consigline/crm-api-go/internal/domain"
)

// Typed accessors over a raw Baserow row. Number fields come back as
// JSON numbers or strings depending on the field configuration, so the
// numeric accessor handles both.

func (r row) id() int64 {
	return asInt64(r["id"])
}

func (r row) str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

func (r row) num(key string) int64 {
	return asInt64(r[key])
}

func (r row) boolean(key string) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return false
}

func (r row) timeVal(key string) time.Time {
	s := r.str(key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (r row) timePtr(key string) *time.Time {
	t := r.timeVal(key)
	if t.IsZero() {
		return nil
	}
	return &t
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	case json.Number:
		i, _ := n.Int64()
		return i
	}
	return 0
}

// Per-entity decoders. Row ids double as entity ids for everything but
// users, whose uuid lives in a mapped field.

func decodeOrganization(t TableMapping, r row) *domain.Organization {
	return &domain.Organization{
		ID:        r.id(),
		Name:      r.str(t.ref("name")),
		Email:     r.str(t.ref("email")),
		Phone:     r.str(t.ref("phone")),
		Address:   r.str(t.ref("address")),
		CreatedAt: r.timeVal(t.ref("createdAt")),
	}
}

func decodeUser(t TableMapping, r row) *domain.User {
	return &domain.User{
		ID:             r.str(t.ref("id")),
		Name:           r.str(t.ref("name")),
		Email:          r.str(t.ref("email")),
		PasswordHash:   r.str(t.ref("passwordHash")),
		Role:           domain.Role(r.str(t.ref("role"))),
		OrganizationID: r.num(t.ref("organizationId")),
		Phone:          r.str(t.ref("phone")),
		Sector:         r.str(t.ref("sector")),
		CreatedAt:      r.timeVal(t.ref("createdAt")),
	}
}

func decodeClient(t TableMapping, r row) *domain.Client {
	return &domain.Client{
		ID:             r.id(),
		Name:           r.str(t.ref("name")),
		CPF:            r.str(t.ref("cpf")),
		Phone:          r.str(t.ref("phone")),
		Email:          r.str(t.ref("email")),
		BirthDate:      r.str(t.ref("birthDate")),
		Company:        r.str(t.ref("company")),
		Contact:        r.str(t.ref("contact")),
		ConvenioID:     r.num(t.ref("convenioId")),
		CreatedByID:    r.str(t.ref("createdById")),
		OrganizationID: r.num(t.ref("organizationId")),
		CreatedAt:      r.timeVal(t.ref("createdAt")),
	}
}

func decodeProposal(t TableMapping, r row) domain.Proposal {
	return domain.Proposal{
		ID:             r.id(),
		ClientID:       r.num(t.ref("clientId")),
		ProductID:      r.num(t.ref("productId")),
		ConvenioID:     r.num(t.ref("convenioId")),
		BankID:         r.num(t.ref("bankId")),
		Value:          r.str(t.ref("value")),
		Status:         domain.ProposalStatus(r.str(t.ref("status"))),
		CreatedByID:    r.str(t.ref("createdById")),
		OrganizationID: r.num(t.ref("organizationId")),
		CreatedAt:      r.timeVal(t.ref("createdAt")),
	}
}

func decodeProduct(t TableMapping, r row) domain.Product {
	return domain.Product{
		ID:          r.id(),
		Name:        r.str(t.ref("name")),
		Price:       r.str(t.ref("price")),
		Description: r.str(t.ref("description")),
	}
}

func decodeConvenio(t TableMapping, r row) domain.Convenio {
	return domain.Convenio{
		ID:          r.id(),
		Name:        r.str(t.ref("name")),
		Description: r.str(t.ref("description")),
	}
}

func decodeBank(t TableMapping, r row) domain.Bank {
	return domain.Bank{
		ID:   r.id(),
		Name: r.str(t.ref("name")),
		Code: r.str(t.ref("code")),
	}
}

// Template field definitions and submission data are kept as JSON text
// in long-text fields; Baserow has no native JSON column.

func decodeFormTemplate(t TableMapping, r row) (*domain.FormTemplate, error) {
	var fields []domain.FormField
	if raw := r.str(t.ref("fields")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, err
		}
	}
	return &domain.FormTemplate{
		ID:             r.id(),
		Name:           r.str(t.ref("name")),
		Fields:         fields,
		OrganizationID: r.num(t.ref("organizationId")),
		CreatedByID:    r.str(t.ref("createdById")),
		Active:         r.boolean(t.ref("active")),
		CreatedAt:      r.timeVal(t.ref("createdAt")),
	}, nil
}

func decodeFormSubmission(t TableMapping, r row) (*domain.FormSubmission, error) {
	var data map[string]string
	if raw := r.str(t.ref("data")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, err
		}
	}
	return &domain.FormSubmission{
		ID:             r.id(),
		FormTemplateID: r.num(t.ref("formTemplateId")),
		Data:           data,
		Status:         domain.SubmissionStatus(r.str(t.ref("status"))),
		OrganizationID: r.num(t.ref("organizationId")),
		ProcessedByID:  r.str(t.ref("processedById")),
		ProcessedAt:    r.timePtr(t.ref("processedAt")),
		CreatedAt:      r.timeVal(t.ref("createdAt")),
	}, nil
}

const timeLayout = time.RFC3339

func nowStamp() string {
	return time.Now().UTC().Format(timeLayout)
}
