package baserow_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/baserow"
	"github.com/consigline/crm-api-go/internal/infra/resilience"
	"github.com/consigline/crm-api-go/internal/port"
	"github.com/consigline/crm-api-go/internal/storetest"
)

// fakeBaserow is an in-memory stand-in for the Baserow row API. It
// serves /api/database/rows/table/{table}/ list/create and
// /{table}/{row}/ get/patch/delete, understands filter__X__equal, and
// paginates every listing with a small page size so the adapter's
// Next-following is exercised by the ordinary conformance flow.
type fakeBaserow struct {
	mu     sync.Mutex
	tables map[int64][]map[string]any
	seq    map[int64]int64
	lists  map[int64]int
}

const fakePageSize = 3

func newFakeBaserow() *fakeBaserow {
	return &fakeBaserow{
		tables: map[int64][]map[string]any{},
		seq:    map[int64]int64{},
		lists:  map[int64]int{},
	}
}

func fieldString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func (f *fakeBaserow) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rest := strings.TrimPrefix(r.URL.Path, "/api/database/rows/table/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	tableID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Error(w, `{"error":"bad table"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			f.handleList(w, r, tableID)
		case http.MethodPost:
			var row map[string]any
			if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
				http.Error(w, `{"error":"bad body"}`, http.StatusBadRequest)
				return
			}
			f.seq[tableID]++
			row["id"] = float64(f.seq[tableID])
			f.tables[tableID] = append(f.tables[tableID], row)
			json.NewEncoder(w).Encode(row)
		default:
			http.Error(w, `{"error":"method"}`, http.StatusMethodNotAllowed)
		}
		return
	}

	rowID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		http.Error(w, `{"error":"bad row"}`, http.StatusNotFound)
		return
	}
	idx := -1
	for i, row := range f.tables[tableID] {
		if int64(row["id"].(float64)) == rowID {
			idx = i
			break
		}
	}
	if idx < 0 {
		http.Error(w, `{"error":"ERROR_ROW_DOES_NOT_EXIST"}`, http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		json.NewEncoder(w).Encode(f.tables[tableID][idx])
	case http.MethodPatch:
		var updates map[string]any
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			http.Error(w, `{"error":"bad body"}`, http.StatusBadRequest)
			return
		}
		for k, v := range updates {
			f.tables[tableID][idx][k] = v
		}
		json.NewEncoder(w).Encode(f.tables[tableID][idx])
	case http.MethodDelete:
		f.tables[tableID] = append(f.tables[tableID][:idx], f.tables[tableID][idx+1:]...)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, `{"error":"method"}`, http.StatusMethodNotAllowed)
	}
}

func (f *fakeBaserow) handleList(w http.ResponseWriter, r *http.Request, tableID int64) {
	f.lists[tableID]++

	var filtered []map[string]any
rows:
	for _, row := range f.tables[tableID] {
		for key, vals := range r.URL.Query() {
			if !strings.HasPrefix(key, "filter__") || !strings.HasSuffix(key, "__equal") {
				continue
			}
			ref := strings.TrimSuffix(strings.TrimPrefix(key, "filter__"), "__equal")
			if fieldString(row[ref]) != vals[0] {
				continue rows
			}
		}
		filtered = append(filtered, row)
	}

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		page, _ = strconv.Atoi(p)
	}
	start := (page - 1) * fakePageSize
	end := start + fakePageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	next := ""
	if end < len(filtered) {
		u := *r.URL
		q := u.Query()
		q.Set("page", strconv.Itoa(page+1))
		u.RawQuery = q.Encode()
		next = "http://" + r.Host + u.String()
	}

	json.NewEncoder(w).Encode(map[string]any{
		"count":   len(filtered),
		"next":    next,
		"results": filtered[start:end],
	})
}

// writeMapping renders a complete mapping fixture with synthetic
// field_N references, the way a real workspace export looks.
func writeMapping(t *testing.T) string {
	t.Helper()
	type tableJSON struct {
		TableID int64             `json:"tableId"`
		Fields  map[string]string `json:"fields"`
	}
	tables := map[string]tableJSON{}
	tableID := int64(0)
	fieldID := 100
	for kind, fields := range domain.AllEntityFields {
		tableID++
		refs := map[string]string{}
		for _, f := range fields {
			fieldID++
			refs[f] = fmt.Sprintf("field_%d", fieldID)
		}
		tables[string(kind)] = tableJSON{TableID: tableID, Fields: refs}
	}
	raw, err := json.Marshal(map[string]any{"tables": tables})
	if err != nil {
		t.Fatalf("marshal mapping: %v", err)
	}
	path := filepath.Join(t.TempDir(), "mapping.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write mapping: %v", err)
	}
	return path
}

func testConfig() resilience.Config {
	return resilience.Config{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxConcurrency: 4,
	}
}

func newTestClient(t *testing.T) (*baserow.Client, *fakeBaserow) {
	t.Helper()
	mapping, err := baserow.LoadMapping(writeMapping(t))
	if err != nil {
		t.Fatalf("load mapping: %v", err)
	}
	fake := newFakeBaserow()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	cb := resilience.NewCircuitBreaker("baserow-test")
	return baserow.NewClient(srv.Client(), srv.URL, "test-token", mapping, cb, testConfig(), zap.NewNop()), fake
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) port.Store {
		c, _ := newTestClient(t)
		return c
	})
}

// Listings larger than one page must follow Next until exhausted and
// still come back in creation order.
func TestListFollowsPagination(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	const total = fakePageSize*2 + 1
	for i := 0; i < total; i++ {
		if _, err := c.CreateOrganization(ctx, &domain.OrganizationInput{
			Name: fmt.Sprintf("Org %02d", i),
		}); err != nil {
			t.Fatalf("create organization %d: %v", i, err)
		}
	}

	orgs, err := c.ListOrganizations(ctx, domain.Unrestricted())
	if err != nil {
		t.Fatalf("list organizations: %v", err)
	}
	if len(orgs) != total {
		t.Fatalf("got %d organizations, want %d", len(orgs), total)
	}
	for i, org := range orgs {
		if want := fmt.Sprintf("Org %02d", i); org.Name != want {
			t.Errorf("position %d: got %q, want %q", i, org.Name, want)
		}
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	var pages int
	for _, n := range fake.lists {
		if n > pages {
			pages = n
		}
	}
	if pages < 3 {
		t.Errorf("listing made %d page requests, want at least 3", pages)
	}
}

func TestLoadMappingRejectsIncomplete(t *testing.T) {
	raw := []byte(`{"tables":{"organization":{"tableId":1,"fields":{"id":"field_1","name":"field_2"}}}}`)
	path := filepath.Join(t.TempDir(), "partial.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write mapping: %v", err)
	}

	_, err := baserow.LoadMapping(path)
	if err == nil {
		t.Fatal("incomplete mapping loaded without error")
	}
	if !strings.Contains(err.Error(), "unmapped fields") {
		t.Errorf("error does not name unmapped fields: %v", err)
	}
	if !strings.Contains(err.Error(), "client") {
		t.Errorf("error does not name missing tables: %v", err)
	}
}

// A row create whose response is lost must not be replayed: Baserow may
// already have committed it, and a second attempt would duplicate the
// row with a fresh id.
func TestWritesAreNotRetried(t *testing.T) {
	mapping, err := baserow.LoadMapping(writeMapping(t))
	if err != nil {
		t.Fatalf("load mapping: %v", err)
	}
	fake := newFakeBaserow()
	var mu sync.Mutex
	lostAck := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			mu.Lock()
			lose := lostAck
			lostAck = false
			mu.Unlock()
			if lose {
				// Commit the row, then fail the response.
				fake.ServeHTTP(httptest.NewRecorder(), r)
				http.Error(w, `{"error":"upstream reset"}`, http.StatusInternalServerError)
				return
			}
		}
		fake.ServeHTTP(w, r)
	}))
	defer srv.Close()

	cb := resilience.NewCircuitBreaker("baserow-lossy")
	c := baserow.NewClient(srv.Client(), srv.URL, "test-token", mapping, cb, testConfig(), zap.NewNop())

	_, err = c.CreateClient(context.Background(), &domain.ClientInput{
		Name: "Lost Ack", CreatedByID: "u-1", OrganizationID: 1,
	})
	var unavailable *domain.ErrBackendUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("want ErrBackendUnavailable, got %v", err)
	}

	fake.mu.Lock()
	rows := 0
	for _, table := range fake.tables {
		rows += len(table)
	}
	fake.mu.Unlock()
	if rows != 1 {
		t.Fatalf("backend holds %d rows after one failed create, want 1", rows)
	}
}
