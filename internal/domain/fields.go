package domain

// Canonical field names per entity. Every adapter keeps a declarative
// mapping from these names to its native column/key names and validates
// at startup that no field is silently dropped.

var (
	OrganizationFields = []string{"id", "name", "email", "phone", "address", "createdAt"}

	UserFields = []string{"id", "name", "email", "passwordHash", "role", "organizationId", "phone", "sector", "createdAt"}

	ClientFields = []string{"id", "name", "cpf", "phone", "email", "birthDate", "company", "contact", "convenioId", "createdById", "organizationId", "createdAt"}

	ProposalFields = []string{"id", "clientId", "productId", "convenioId", "bankId", "value", "status", "createdById", "organizationId", "createdAt"}

	ProductFields = []string{"id", "name", "price", "description"}

	ConvenioFields = []string{"id", "name", "description"}

	BankFields = []string{"id", "name", "code"}

	FormTemplateFields = []string{"id", "name", "fields", "organizationId", "createdById", "active", "createdAt"}

	FormSubmissionFields = []string{"id", "formTemplateId", "data", "status", "organizationId", "processedById", "processedAt", "createdAt"}
)

// AllEntityFields maps entity kind to its canonical field list.
var AllEntityFields = map[EntityKind][]string{
	EntityOrganization:   OrganizationFields,
	EntityUser:           UserFields,
	EntityClient:         ClientFields,
	EntityProposal:       ProposalFields,
	EntityProduct:        ProductFields,
	EntityConvenio:       ConvenioFields,
	EntityBank:           BankFields,
	EntityFormTemplate:   FormTemplateFields,
	EntityFormSubmission: FormSubmissionFields,
}

// MissingFieldMappings returns the canonical fields of kind that have no
// entry in mapping. Adapters treat a non-empty result as a startup error.
func MissingFieldMappings(kind EntityKind, mapping map[string]string) []string {
	var missing []string
	for _, f := range AllEntityFields[kind] {
		if _, ok := mapping[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}
