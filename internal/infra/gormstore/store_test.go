package gormstore_test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/consigline/crm-api-go/internal/infra/gormstore"
	"github.com/consigline/crm-api-go/internal/port"
	"github.com/consigline/crm-api-go/internal/storetest"
)

var dbSeq atomic.Int64

// newStore opens a fresh in-memory sqlite database. Each subtest gets its
// own named database so parallel-ish subtests never share schema or rows.
func newStore(t *testing.T) port.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:conformance%d?mode=memory&cache=shared", dbSeq.Add(1))
	s, err := gormstore.Open(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, newStore)
}

func TestNormalizeDSN(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`"postgres://u:p@db/crm"`, "postgres://u:p@db/crm"},
		{"host=db user=crm dbname=crm", "host=db user=crm dbname=crm sslmode=disable"},
		{"host=db user=crm dbname=crm sslmode=require", "host=db user=crm dbname=crm sslmode=require"},
		{"file::memory:?cache=shared", "file::memory:?cache=shared"},
		{"  crm.db  ", "crm.db"},
	}
	for _, c := range cases {
		if got := gormstore.NormalizeDSN(c.in); got != c.want {
			t.Errorf("NormalizeDSN(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
