package domain

import (
	"strconv"
	"strings"
	"time"
)

// FormField describes one field of a dynamically defined intake form.
type FormField struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
	Default  string   `json:"default,omitempty"`
}

// FormTemplate defines an intake form. Active gates whether the public
// endpoint accepts submissions for it.
type FormTemplate struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Fields         []FormField `json:"fields"`
	OrganizationID int64       `json:"organizationId"`
	CreatedByID    string      `json:"createdById"`
	Active         bool        `json:"active"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// FormTemplateInput carries the fields accepted on creation.
type FormTemplateInput struct {
	Name           string      `json:"name"`
	Fields         []FormField `json:"fields"`
	Active         bool        `json:"active"`
	CreatedByID    string      `json:"-"`
	OrganizationID int64       `json:"-"`
}

// Validate checks required fields before any storage call.
func (in *FormTemplateInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ErrValidation{Field: "name", Message: "name is required"}
	}
	for i, f := range in.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return &ErrValidation{Field: "fields", Message: "field " + strconv.Itoa(i) + " is missing a name"}
		}
	}
	if in.CreatedByID == "" {
		return &ErrValidation{Field: "createdById", Message: "creator is required"}
	}
	if in.OrganizationID == 0 {
		return &ErrValidation{Field: "organizationId", Message: "organization is required"}
	}
	return nil
}

// FormTemplatePatch is a partial update; nil fields stay untouched.
type FormTemplatePatch struct {
	Name   *string      `json:"name,omitempty"`
	Fields *[]FormField `json:"fields,omitempty"`
	Active *bool        `json:"active,omitempty"`
}

// SubmissionStatus is the form submission state machine. The only allowed
// transition is pending -> processed, exactly once.
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionProcessed SubmissionStatus = "processed"
)

// FormSubmission is an anonymous form post awaiting conversion into a
// Client. OrganizationID is inherited from the owning template at creation.
type FormSubmission struct {
	ID             int64             `json:"id"`
	FormTemplateID int64             `json:"formTemplateId"`
	Data           map[string]string `json:"data"`
	Status         SubmissionStatus  `json:"status"`
	OrganizationID int64             `json:"organizationId"`
	ProcessedByID  string            `json:"processedById,omitempty"`
	ProcessedAt    *time.Time        `json:"processedAt,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// FormSubmissionInput carries the fields accepted on (anonymous) creation.
type FormSubmissionInput struct {
	FormTemplateID int64             `json:"formTemplateId"`
	Data           map[string]string `json:"data"`
	OrganizationID int64             `json:"-"`
}

// Validate checks required fields before any storage call.
func (in *FormSubmissionInput) Validate() error {
	if in.FormTemplateID == 0 {
		return &ErrValidation{Field: "formTemplateId", Message: "template is required"}
	}
	if len(in.Data) == 0 {
		return &ErrValidation{Field: "data", Message: "data must not be empty"}
	}
	if in.OrganizationID == 0 {
		return &ErrValidation{Field: "organizationId", Message: "organization is required"}
	}
	return nil
}

// FormSubmissionPatch flips a submission to its terminal state.
type FormSubmissionPatch struct {
	Status        *SubmissionStatus `json:"status,omitempty"`
	ProcessedByID *string           `json:"processedById,omitempty"`
	ProcessedAt   *time.Time        `json:"processedAt,omitempty"`
}
