package manager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grantwell/grantwell/internal/fetch"
	"github.com/grantwell/grantwell/internal/resilience"
	"github.com/grantwell/grantwell/internal/sources"
)

func publicDescriptor(id, baseURL string) sources.Descriptor {
	return sources.Descriptor{
		ID:        id,
		Name:      id,
		BaseURL:   baseURL,
		Endpoints: map[string]string{"search": "/search"},
		Method:    "GET",
		AuthType:  sources.AuthNone,
		RateLimit: sources.RateLimit{Calls: 100, Period: time.Hour},
		CacheTTL:  time.Hour,
		ErrorHandling: sources.ErrorHandling{
			RetryCodes:    []int{},
			MaxRetries:    0,
			BackoffFactor: 0,
		},
		RecordsPath: "results",
		FieldMapping: map[string]string{
			"title":  "name",
			"funder": "agency",
		},
	}
}

func keyedDescriptor(id, baseURL string) sources.Descriptor {
	d := publicDescriptor(id, baseURL)
	d.AuthType = sources.AuthAPIKey
	d.AuthHeader = "X-Api-Key"
	d.CredentialRequired = true
	return d
}

func grantsHandler(calls *int32, records ...map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{"results": records})
	}
}

func newTestManager(t *testing.T, table []sources.Descriptor, creds map[string]string) *Manager {
	t.Helper()
	reg := sources.NewRegistryFrom(table, sources.NewResolver(sources.MapProvider(creds)))
	return New(reg, fetch.NewFetchers(reg))
}

func TestGrantsFromSourceStandardizes(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(grantsHandler(&calls,
		map[string]string{"name": "Community Development Grant", "agency": "HUD"},
	))
	defer srv.Close()

	m := newTestManager(t, []sources.Descriptor{publicDescriptor("alpha_portal", srv.URL)}, nil)

	grants := m.GrantsFromSource(context.Background(), "alpha_portal", map[string]string{"query": "community"})
	if len(grants) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(grants))
	}
	if grants[0].Title != "Community Development Grant" || grants[0].Funder != "HUD" {
		t.Errorf("unexpected grant: %+v", grants[0])
	}
	if grants[0].Source != "alpha_portal" {
		t.Errorf("source = %q, want alpha_portal", grants[0].Source)
	}
}

func TestMissingCredentialMakesNoHTTPCalls(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(grantsHandler(&calls,
		map[string]string{"name": "Hidden", "agency": "X"},
	))
	defer srv.Close()

	m := newTestManager(t, []sources.Descriptor{keyedDescriptor("keyed_portal", srv.URL)}, nil)

	grants := m.GrantsFromSource(context.Background(), "keyed_portal", map[string]string{"query": "x"})
	if grants == nil {
		t.Fatal("expected non-nil empty slice")
	}
	if len(grants) != 0 {
		t.Fatalf("expected no grants, got %d", len(grants))
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("expected 0 upstream calls, got %d", n)
	}
}

func TestUnknownSourceReturnsEmpty(t *testing.T) {
	m := newTestManager(t, nil, nil)
	grants := m.GrantsFromSource(context.Background(), "nope", nil)
	if grants == nil || len(grants) != 0 {
		t.Fatalf("expected empty slice, got %v", grants)
	}
}

func TestBreakerOpensAfterThresholdAndBlocksCalls(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	// Credential-gated sources trip after 3 failures.
	m := newTestManager(t,
		[]sources.Descriptor{keyedDescriptor("keyed_portal", srv.URL)},
		map[string]string{"KEYED_PORTAL_API_KEY": "k"},
	)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if got := m.GrantsFromSource(ctx, "keyed_portal", map[string]string{"query": "x"}); len(got) != 0 {
			t.Fatalf("call %d: expected empty result", i+1)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("expected 3 upstream calls, got %d", n)
	}

	status, ok := m.BreakerStatus("keyed_portal")
	if !ok {
		t.Fatal("missing breaker status")
	}
	if status.State != resilience.StateOpen {
		t.Fatalf("breaker state = %q, want open", status.State)
	}

	// Fourth call is short-circuited without touching the network.
	m.GrantsFromSource(ctx, "keyed_portal", map[string]string{"query": "x"})
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("expected breaker to block call, upstream calls = %d", n)
	}
}

func TestResetBreakerRestoresTraffic(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []map[string]string{
			{"name": "Back", "agency": "Online"},
		}})
	}))
	defer srv.Close()

	m := newTestManager(t,
		[]sources.Descriptor{keyedDescriptor("keyed_portal", srv.URL)},
		map[string]string{"KEYED_PORTAL_API_KEY": "k"},
	)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		m.GrantsFromSource(ctx, "keyed_portal", map[string]string{"query": "x"})
	}

	if !m.ResetBreaker("keyed_portal") {
		t.Fatal("ResetBreaker returned false")
	}
	if m.ResetBreaker("other") {
		t.Error("ResetBreaker succeeded for unknown source")
	}

	grants := m.GrantsFromSource(ctx, "keyed_portal", map[string]string{"query": "x"})
	if len(grants) != 1 || grants[0].Title != "Back" {
		t.Fatalf("expected recovery fetch to succeed, got %v", grants)
	}
}

func TestCacheHitAvoidsSecondHTTPCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(grantsHandler(&calls,
		map[string]string{"name": "Cached Grant", "agency": "EPA"},
	))
	defer srv.Close()

	m := newTestManager(t, []sources.Descriptor{publicDescriptor("alpha_portal", srv.URL)}, nil)

	ctx := context.Background()
	params := map[string]string{"query": "water"}
	first := m.GrantsFromSource(ctx, "alpha_portal", params)
	second := m.GrantsFromSource(ctx, "alpha_portal", params)

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected 1 upstream call, got %d", n)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected both reads to return the grant, got %d and %d", len(first), len(second))
	}

	// Different params miss the cache.
	m.GrantsFromSource(ctx, "alpha_portal", map[string]string{"query": "air"})
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected distinct params to refetch, calls = %d", n)
	}
}

func TestEmptyResultsAreNotCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(grantsHandler(&calls))
	defer srv.Close()

	m := newTestManager(t, []sources.Descriptor{publicDescriptor("alpha_portal", srv.URL)}, nil)

	ctx := context.Background()
	m.GrantsFromSource(ctx, "alpha_portal", map[string]string{"query": "x"})
	m.GrantsFromSource(ctx, "alpha_portal", map[string]string{"query": "x"})
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected empty results to skip the cache, calls = %d", n)
	}
}

func TestLocalRateLimitBlocksFetch(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(grantsHandler(&calls,
		map[string]string{"name": "G", "agency": "F"},
	))
	defer srv.Close()

	d := publicDescriptor("alpha_portal", srv.URL)
	d.RateLimit = sources.RateLimit{Calls: 1, Period: time.Hour}
	m := newTestManager(t, []sources.Descriptor{d}, nil)

	ctx := context.Background()
	m.GrantsFromSource(ctx, "alpha_portal", map[string]string{"query": "a"})
	grants := m.GrantsFromSource(ctx, "alpha_portal", map[string]string{"query": "b"})
	if len(grants) != 0 {
		t.Fatalf("expected rate limited call to return empty, got %d", len(grants))
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 upstream call, got %d", n)
	}
}

func TestSearchDeduplicatesAcrossSources(t *testing.T) {
	var callsA, callsB int32
	srvA := httptest.NewServer(grantsHandler(&callsA,
		map[string]string{"name": "Shared Grant", "agency": "NSF"},
		map[string]string{"name": "Only A", "agency": "NSF"},
	))
	defer srvA.Close()
	srvB := httptest.NewServer(grantsHandler(&callsB,
		map[string]string{"name": "Shared Grant", "agency": "NSF"},
		map[string]string{"name": "Only B", "agency": "NIH"},
	))
	defer srvB.Close()

	m := newTestManager(t, []sources.Descriptor{
		publicDescriptor("alpha_portal", srvA.URL),
		publicDescriptor("beta_portal", srvB.URL),
	}, nil)

	results := m.SearchOpportunities(context.Background(), "science", nil)
	if len(results) != 3 {
		t.Fatalf("expected 3 deduplicated grants, got %d", len(results))
	}

	// First occurrence wins: the duplicate keeps alpha_portal as its source.
	if results[0].Title != "Shared Grant" || results[0].Source != "alpha_portal" {
		t.Errorf("expected Shared Grant from alpha_portal first, got %+v", results[0])
	}
	if results[1].Title != "Only A" {
		t.Errorf("results[1] = %+v", results[1])
	}
	if results[2].Title != "Only B" {
		t.Errorf("results[2] = %+v", results[2])
	}
}

func TestSearchSkipsDisabledSources(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(grantsHandler(&calls,
		map[string]string{"name": "G", "agency": "F"},
	))
	defer srv.Close()

	m := newTestManager(t, []sources.Descriptor{
		publicDescriptor("alpha_portal", srv.URL),
		keyedDescriptor("keyed_portal", srv.URL),
	}, nil)

	results := m.SearchOpportunities(context.Background(), "x", nil)
	if len(results) != 1 {
		t.Fatalf("expected 1 grant from the public source, got %d", len(results))
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected the disabled source to be skipped, calls = %d", n)
	}
}

func TestSearchMergesFiltersIntoParams(t *testing.T) {
	var gotQuery, gotState string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotState = r.URL.Query().Get("state")
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []map[string]string{}})
	}))
	defer srv.Close()

	m := newTestManager(t, []sources.Descriptor{publicDescriptor("alpha_portal", srv.URL)}, nil)
	m.SearchOpportunities(context.Background(), "youth", map[string]string{"state": "NY"})

	if gotQuery != "youth" || gotState != "NY" {
		t.Errorf("upstream saw query=%q state=%q", gotQuery, gotState)
	}
}

func TestGrantDetailsProbesSources(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []map[string]string{}})
	}))
	defer empty.Close()
	hit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []map[string]string{
			{"name": "Target Grant", "agency": "DOE"},
		}})
	}))
	defer hit.Close()

	m := newTestManager(t, []sources.Descriptor{
		publicDescriptor("alpha_portal", empty.URL),
		publicDescriptor("beta_portal", hit.URL),
	}, nil)

	g := m.GrantDetails(context.Background(), "ABC-123", "")
	if g == nil {
		t.Fatal("expected a grant")
	}
	if g.Title != "Target Grant" || g.Source != "beta_portal" {
		t.Errorf("unexpected grant: %+v", g)
	}

	if got := m.GrantDetails(context.Background(), "ABC-123", "alpha_portal"); got != nil {
		t.Errorf("expected nil for directed lookup on empty source, got %+v", got)
	}
}

func TestAllBreakerStatusesSorted(t *testing.T) {
	m := newTestManager(t, []sources.Descriptor{
		publicDescriptor("zeta_portal", "http://localhost"),
		publicDescriptor("alpha_portal", "http://localhost"),
	}, nil)

	statuses := m.AllBreakerStatuses()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Source != "alpha_portal" || statuses[1].Source != "zeta_portal" {
		t.Errorf("statuses not sorted: %s, %s", statuses[0].Source, statuses[1].Source)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		text       string
		credential bool
		rateLimit  bool
	}{
		{"grants_gov request failed with status 401: unauthorized", true, false},
		{"status 403 Forbidden", true, false},
		{"Invalid API key supplied", true, false},
		{"token endpoint returned invalid_grant", true, false},
		{"status 429: Too Many Requests", false, true},
		{"daily quota exceeded", false, true},
		{"status 500: internal server error", false, false},
		{"dial tcp: connection refused", false, false},
	}
	for _, tc := range cases {
		if got := isCredentialError(tc.text); got != tc.credential {
			t.Errorf("isCredentialError(%q) = %v, want %v", tc.text, got, tc.credential)
		}
		if got := isRateLimitError(tc.text); got != tc.rateLimit {
			t.Errorf("isRateLimitError(%q) = %v, want %v", tc.text, got, tc.rateLimit)
		}
	}
}
