package domain

import (
	"strings"
	"time"
)

// ProposalStatus is the closed status set used for reporting.
type ProposalStatus string

const (
	ProposalNegotiating ProposalStatus = "negotiating"
	ProposalAccepted    ProposalStatus = "accepted"
	ProposalUnderReview ProposalStatus = "under_review"
	ProposalDeclined    ProposalStatus = "declined"
)

// ValidProposalStatus reports whether s belongs to the closed set.
func ValidProposalStatus(s ProposalStatus) bool {
	switch s {
	case ProposalNegotiating, ProposalAccepted, ProposalUnderReview, ProposalDeclined:
		return true
	}
	return false
}

// Proposal is a loan proposal attached to a Client. Value is kept as
// currency-formatted text ("R$ 1.500,00"); organizationId and createdById
// are set once at creation and never user-editable.
type Proposal struct {
	ID             int64          `json:"id"`
	ClientID       int64          `json:"clientId"`
	ProductID      int64          `json:"productId"`
	ConvenioID     int64          `json:"convenioId"`
	BankID         int64          `json:"bankId"`
	Value          string         `json:"value"`
	Status         ProposalStatus `json:"status"`
	CreatedByID    string         `json:"createdById"`
	OrganizationID int64          `json:"organizationId"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// ProposalDetails is the view-time join of a proposal with the names of its
// related records. It is assembled by the adapter, never stored.
type ProposalDetails struct {
	Proposal
	ClientName   string `json:"clientName"`
	ProductName  string `json:"productName"`
	ConvenioName string `json:"convenioName"`
	BankName     string `json:"bankName"`
}

// ProposalInput carries the fields accepted on creation.
type ProposalInput struct {
	ClientID       int64          `json:"clientId"`
	ProductID      int64          `json:"productId"`
	ConvenioID     int64          `json:"convenioId"`
	BankID         int64          `json:"bankId"`
	Value          string         `json:"value"`
	Status         ProposalStatus `json:"status"`
	CreatedByID    string         `json:"-"`
	OrganizationID int64          `json:"-"`
}

// Validate checks required fields before any storage call.
func (in *ProposalInput) Validate() error {
	if in.ClientID == 0 {
		return &ErrValidation{Field: "clientId", Message: "client is required"}
	}
	if in.ProductID == 0 {
		return &ErrValidation{Field: "productId", Message: "product is required"}
	}
	if strings.TrimSpace(in.Value) == "" {
		return &ErrValidation{Field: "value", Message: "value is required"}
	}
	if !ValidProposalStatus(in.Status) {
		return &ErrValidation{Field: "status", Message: "status must be negotiating, accepted, under_review or declined"}
	}
	if in.CreatedByID == "" {
		return &ErrValidation{Field: "createdById", Message: "creator is required"}
	}
	if in.OrganizationID == 0 {
		return &ErrValidation{Field: "organizationId", Message: "organization is required"}
	}
	return nil
}

// ProposalPatch is a partial update; nil fields stay untouched.
// createdById and organizationId are intentionally absent.
type ProposalPatch struct {
	ClientID   *int64          `json:"clientId,omitempty"`
	ProductID  *int64          `json:"productId,omitempty"`
	ConvenioID *int64          `json:"convenioId,omitempty"`
	BankID     *int64          `json:"bankId,omitempty"`
	Value      *string         `json:"value,omitempty"`
	Status     *ProposalStatus `json:"status,omitempty"`
}
