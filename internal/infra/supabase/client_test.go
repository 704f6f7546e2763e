package supabase_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/resilience"
	"github.com/consigline/crm-api-go/internal/infra/supabase"
	"github.com/consigline/crm-api-go/internal/port"
	"github.com/consigline/crm-api-go/internal/storetest"
)

// fakeRest is an in-memory PostgREST stand-in. It understands the
// subset of the query grammar the adapter emits: eq and in.(...)
// filters, order=<col>.asc, limit, and Prefer: return=representation.
type fakeRest struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
	seq    map[string]int64
	gets   map[string]int
	clock  int64
}

func newFakeRest() *fakeRest {
	return &fakeRest{
		tables: map[string][]map[string]any{},
		seq:    map[string]int64{},
		gets:   map[string]int{},
	}
}

// tick returns a strictly increasing timestamp so created_at ordering
// is deterministic.
func (f *fakeRest) tick() string {
	f.clock++
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(f.clock) * time.Second).Format(time.RFC3339)
}

func colString(v any) string {
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
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func matches(row map[string]any, column, predicate string) bool {
	got := colString(row[column])
	switch {
	case strings.HasPrefix(predicate, "eq."):
		return got == predicate[len("eq."):]
	case strings.HasPrefix(predicate, "in.(") && strings.HasSuffix(predicate, ")"):
		inner := predicate[len("in.(") : len(predicate)-1]
		for _, want := range strings.Split(inner, ",") {
			if got == strings.TrimSpace(want) {
				return true
			}
		}
		return false
	}
	return false
}

func (f *fakeRest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	if table == "" || strings.Contains(table, "/") {
		http.Error(w, `{"message":"unknown path"}`, http.StatusNotFound)
		return
	}
	q := r.URL.Query()

	var filters [][2]string
	for key, vals := range q {
		switch key {
		case "select", "order", "limit":
			continue
		}
		filters = append(filters, [2]string{key, vals[0]})
	}
	matched := func() []int {
		var idx []int
	rows:
		for i, row := range f.tables[table] {
			for _, flt := range filters {
				if !matches(row, flt[0], flt[1]) {
					continue rows
				}
			}
			idx = append(idx, i)
		}
		return idx
	}

	writeRows := func(rows []map[string]any, status int) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if rows == nil {
			rows = []map[string]any{}
		}
		json.NewEncoder(w).Encode(rows)
	}

	switch r.Method {
	case http.MethodGet:
		f.gets[table]++
		var rows []map[string]any
		for _, i := range matched() {
			rows = append(rows, f.tables[table][i])
		}
		if order := q.Get("order"); order != "" {
			col := strings.TrimSuffix(order, ".asc")
			sort.SliceStable(rows, func(a, b int) bool {
				av, bv := colString(rows[a][col]), colString(rows[b][col])
				af, aerr := strconv.ParseFloat(av, 64)
				bf, berr := strconv.ParseFloat(bv, 64)
				if aerr == nil && berr == nil {
					return af < bf
				}
				return av < bv
			})
		}
		if limit := q.Get("limit"); limit != "" {
			if n, err := strconv.Atoi(limit); err == nil && n < len(rows) {
				rows = rows[:n]
			}
		}
		writeRows(rows, http.StatusOK)

	case http.MethodPost:
		var row map[string]any
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			http.Error(w, `{"message":"bad body"}`, http.StatusBadRequest)
			return
		}
		if table == "users" {
			for _, existing := range f.tables["users"] {
				if colString(existing["email"]) == colString(row["email"]) {
					http.Error(w, `{"message":"duplicate key value violates unique constraint"}`, http.StatusConflict)
					return
				}
			}
		}
		if _, ok := row["id"]; !ok {
			f.seq[table]++
			row["id"] = float64(f.seq[table])
		}
		if _, ok := row["created_at"]; !ok {
			row["created_at"] = f.tick()
		}
		f.tables[table] = append(f.tables[table], row)
		writeRows([]map[string]any{row}, http.StatusCreated)

	case http.MethodPatch:
		var updates map[string]any
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			http.Error(w, `{"message":"bad body"}`, http.StatusBadRequest)
			return
		}
		var rows []map[string]any
		for _, i := range matched() {
			for k, v := range updates {
				f.tables[table][i][k] = v
			}
			rows = append(rows, f.tables[table][i])
		}
		writeRows(rows, http.StatusOK)

	case http.MethodDelete:
		hit := map[int]bool{}
		var rows []map[string]any
		for _, i := range matched() {
			hit[i] = true
			rows = append(rows, f.tables[table][i])
		}
		var kept []map[string]any
		for i, row := range f.tables[table] {
			if !hit[i] {
				kept = append(kept, row)
			}
		}
		f.tables[table] = kept
		writeRows(rows, http.StatusOK)

	default:
		http.Error(w, `{"message":"method not allowed"}`, http.StatusMethodNotAllowed)
	}
}

func testConfig() resilience.Config {
	return resilience.Config{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxConcurrency: 4,
	}
}

func newTestClient(t *testing.T) (*supabase.Client, *fakeRest) {
	t.Helper()
	fake := newFakeRest()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	cb := resilience.NewCircuitBreaker("supabase-test")
	return supabase.NewClient(srv.Client(), srv.URL, "anon-key", "service-key", cb, testConfig(), zap.NewNop()), fake
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) port.Store {
		c, _ := newTestClient(t)
		return c
	})
}

// Relation names for the details view are fetched with one id=in.(...)
// request per related table, not one request per proposal.
func TestDetailsBatchesLookups(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	org, err := c.CreateOrganization(ctx, &domain.OrganizationInput{Name: "Batch Org"})
	if err != nil {
		t.Fatalf("create organization: %v", err)
	}
	user, err := c.CreateUser(ctx, &domain.UserInput{
		Name: "Batcher", Email: "batch@example.com", PasswordHash: "h",
		Role: domain.RoleAgent, OrganizationID: org.ID,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	client, err := c.CreateClient(ctx, &domain.ClientInput{
		Name: "Batch Client", CreatedByID: user.ID, OrganizationID: org.ID,
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	product, err := c.CreateProduct(ctx, &domain.ProductInput{Name: "Batch Product"})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := c.CreateProposal(ctx, &domain.ProposalInput{
			ClientID: client.ID, ProductID: product.ID,
			Value: fmt.Sprintf("R$ %d,00", 100*(i+1)), Status: domain.ProposalNegotiating,
			CreatedByID: user.ID, OrganizationID: org.ID,
		}); err != nil {
			t.Fatalf("create proposal %d: %v", i, err)
		}
	}

	fake.mu.Lock()
	fake.gets = map[string]int{}
	fake.mu.Unlock()

	details, err := c.ListProposalsWithDetails(ctx, domain.Unrestricted())
	if err != nil {
		t.Fatalf("list with details: %v", err)
	}
	if len(details) != 5 {
		t.Fatalf("got %d detail rows, want 5", len(details))
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	for _, table := range []string{"clients", "products"} {
		if fake.gets[table] != 1 {
			t.Errorf("table %s fetched %d times, want 1", table, fake.gets[table])
		}
	}
	if fake.gets["proposals"] != 1 {
		t.Errorf("proposals fetched %d times, want 1", fake.gets["proposals"])
	}
}

// A repeatedly failing backend opens the circuit; once open, calls fail
// fast without reaching the server.
func TestCircuitOpensOnServerErrors(t *testing.T) {
	var hits int64
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	cb := resilience.NewCircuitBreaker("supabase-failing")
	c := supabase.NewClient(srv.Client(), srv.URL, "anon", "service", cb, testConfig(), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		err := c.Ping(ctx)
		if err == nil {
			t.Fatal("ping against failing server succeeded")
		}
		if i == 0 {
			var e *domain.ErrBackendUnavailable
			if !errors.As(err, &e) {
				t.Fatalf("first failure: want ErrBackendUnavailable, got %T %v", err, err)
			}
		}
	}

	mu.Lock()
	seen := hits
	mu.Unlock()
	// 10 pings at 2 attempts each would be 20 hits with no breaker.
	if seen >= 20 {
		t.Errorf("server saw %d requests, breaker never opened", seen)
	}
}

// NotFound probes must not trip the breaker: a 404 means the backend is
// healthy and the row is absent.
func TestTypedErrorsDoNotTripBreaker(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := c.GetOrganization(ctx, int64(1000+i))
		var nf *domain.ErrNotFound
		if !errors.As(err, &nf) {
			t.Fatalf("probe %d: want ErrNotFound, got %v", i, err)
		}
	}
	// The breaker is still closed, so a real operation goes through.
	if _, err := c.CreateOrganization(ctx, &domain.OrganizationInput{Name: "Still Up"}); err != nil {
		t.Fatalf("create after probes: %v", err)
	}
}

// A write whose response is lost must not be replayed: PostgREST may
// already have committed the insert, and a second attempt would store
// the row twice.
func TestWritesAreNotRetried(t *testing.T) {
	fake := newFakeRest()
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
				http.Error(w, `{"message":"upstream reset"}`, http.StatusInternalServerError)
				return
			}
		}
		fake.ServeHTTP(w, r)
	}))
	defer srv.Close()

	cb := resilience.NewCircuitBreaker("supabase-lossy")
	c := supabase.NewClient(srv.Client(), srv.URL, "anon", "service", cb, testConfig(), zap.NewNop())
	ctx := context.Background()

	_, err := c.CreateClient(ctx, &domain.ClientInput{
		Name: "Lost Ack", CreatedByID: "u-1", OrganizationID: 1,
	})
	var unavailable *domain.ErrBackendUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("want ErrBackendUnavailable, got %v", err)
	}

	fake.mu.Lock()
	rows := len(fake.tables["clients"])
	fake.mu.Unlock()
	if rows != 1 {
		t.Fatalf("backend holds %d client rows after one failed create, want 1", rows)
	}
}

// Reads are safe to replay, so a transient 500 on a GET is absorbed by
// the retry policy.
func TestReadsRetryTransientErrors(t *testing.T) {
	fake := newFakeRest()
	var mu sync.Mutex
	failedOnce := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			mu.Lock()
			first := !failedOnce
			failedOnce = true
			mu.Unlock()
			if first {
				http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
				return
			}
		}
		fake.ServeHTTP(w, r)
	}))
	defer srv.Close()

	cb := resilience.NewCircuitBreaker("supabase-flaky")
	c := supabase.NewClient(srv.Client(), srv.URL, "anon", "service", cb, testConfig(), zap.NewNop())

	if _, err := c.ListOrganizations(context.Background(), domain.Unrestricted()); err != nil {
		t.Fatalf("list after one transient failure: %v", err)
	}
}
