package domain

import "strings"

// Product, Convenio and Bank are global reference data: readable by any
// authenticated actor, writable only by superadmins, never
// organization-scoped.

// Product is a loan product offering.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description"`
}

// ProductInput carries the fields accepted on creation.
type ProductInput struct {
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description"`
}

func (in *ProductInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ErrValidation{Field: "name", Message: "name is required"}
	}
	return nil
}

// ProductPatch is a partial update; nil fields stay untouched.
type ProductPatch struct {
	Name        *string `json:"name,omitempty"`
	Price       *string `json:"price,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Convenio is an income/employment arrangement that qualifies a client
// for loan products.
type Convenio struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ConvenioInput carries the fields accepted on creation.
type ConvenioInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (in *ConvenioInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ErrValidation{Field: "name", Message: "name is required"}
	}
	return nil
}

// ConvenioPatch is a partial update; nil fields stay untouched.
type ConvenioPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Bank is a lending institution.
type Bank struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// BankInput carries the fields accepted on creation.
type BankInput struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (in *BankInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ErrValidation{Field: "name", Message: "name is required"}
	}
	return nil
}

// BankPatch is a partial update; nil fields stay untouched.
type BankPatch struct {
	Name *string `json:"name,omitempty"`
	Code *string `json:"code,omitempty"`
}
