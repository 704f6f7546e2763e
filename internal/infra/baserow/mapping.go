package baserow

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/consigline/crm-api-go/internal/domain"
)

// TableMapping binds one entity to a Baserow table: the numeric table
// id plus a map from canonical field names to Baserow field references
// ("field_123"). The row id is Baserow's own and maps from "id".
type TableMapping struct {
	TableID int64             `json:"tableId"`
	Fields  map[string]string `json:"fields"`
}

// Mapping is the full entity-to-table binding, loaded from a JSON file.
// Baserow assigns table and field ids per workspace, so the binding
// cannot be hardcoded.
type Mapping struct {
	Tables map[string]TableMapping `json:"tables"`
}

// LoadMapping reads and validates the mapping file. Every entity must
// be present with a table id and a complete field map; an incomplete
// mapping would silently drop data, so it is a startup error.
func LoadMapping(path string) (*Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("baserow: read mapping file: %w", err)
	}
	var m Mapping
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("baserow: parse mapping file: %w", err)
	}

	var problems []string
	for kind := range domain.AllEntityFields {
		t, ok := m.Tables[string(kind)]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: no table mapping", kind))
			continue
		}
		if t.TableID <= 0 {
			problems = append(problems, fmt.Sprintf("%s: missing tableId", kind))
		}
		if missing := domain.MissingFieldMappings(kind, t.Fields); len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("%s: unmapped fields %s", kind, strings.Join(missing, ", ")))
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("baserow: incomplete mapping: %s", strings.Join(problems, "; "))
	}
	return &m, nil
}

func (m *Mapping) table(kind domain.EntityKind) TableMapping {
	return m.Tables[string(kind)]
}

// ref resolves a canonical field name to its Baserow field reference.
func (t TableMapping) ref(field string) string {
	return t.Fields[field]
}
