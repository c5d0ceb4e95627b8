package fetch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/grantwell/grantwell/internal/sources"
)

func testDescriptor(baseURL string) *sources.Descriptor {
	return &sources.Descriptor{
		ID:        "test_portal",
		Name:      "Test Portal",
		BaseURL:   baseURL,
		Endpoints: map[string]string{"search": "/grants"},
		Method:    "GET",
		AuthType:  sources.AuthNone,
		RateLimit: sources.RateLimit{Calls: 100, Period: time.Minute},
		CacheTTL:  time.Hour,
		ErrorHandling: sources.ErrorHandling{
			RetryCodes:    []int{429, 500},
			MaxRetries:    2,
			BackoffFactor: 0.1,
		},
		RecordsPath: "results",
		FieldMapping: map[string]string{
			"title":       "title",
			"funder":      "agency.name",
			"amount_max":  "award.ceiling",
			"deadline":    "close_date",
			"description": "summary",
		},
	}
}

func TestFetchStandardizesRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{
					"title":      "Community Health Initiative",
					"agency":     map[string]interface{}{"name": "HHS"},
					"award":      map[string]interface{}{"ceiling": "$150,000"},
					"close_date": "2026-06-30",
					// summary intentionally absent
				},
			},
		})
	}))
	defer srv.Close()

	f := NewRESTFetcher(testDescriptor(srv.URL))
	grants, err := f.Fetch(context.Background(), Params{"query": "health"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("got %d grants, want 1", len(grants))
	}

	g := grants[0]
	if g.Title != "Community Health Initiative" {
		t.Errorf("title = %q", g.Title)
	}
	if g.Funder != "HHS" {
		t.Errorf("funder = %q (dot-path lookup failed)", g.Funder)
	}
	if g.AmountMax != 150000 {
		t.Errorf("amount_max = %v", g.AmountMax)
	}
	if g.Source != "test_portal" {
		t.Errorf("source = %q", g.Source)
	}
	if g.LastUpdated == "" {
		t.Error("last_updated missing")
	}
	if g.SourceData == nil {
		t.Error("source_data passthrough missing")
	}

	// Unresolved fields must be dropped from JSON output, not nulled.
	encoded, _ := json.Marshal(g)
	if strings.Contains(string(encoded), "description") {
		t.Errorf("unmapped field leaked into output: %s", encoded)
	}
	if strings.Contains(string(encoded), "null") {
		t.Errorf("null value in output: %s", encoded)
	}
}

func TestFetchRootArrayRecordsPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"title": "A"},
			{"title": "B"},
		})
	}))
	defer srv.Close()

	d := testDescriptor(srv.URL)
	d.RecordsPath = ""
	d.FieldMapping = map[string]string{"title": "title"}

	f := NewRESTFetcher(d)
	grants, err := f.Fetch(context.Background(), Params{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("got %d grants, want 2", len(grants))
	}
}

func TestFetchRetriesDeclaredCodes(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []map[string]interface{}{{"title": "X"}}})
	}))
	defer srv.Close()

	f := NewRESTFetcher(testDescriptor(srv.URL))
	var slept []time.Duration
	f.sleep = func(d time.Duration) { slept = append(slept, d) }

	grants, err := f.Fetch(context.Background(), Params{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls != 3 {
		t.Errorf("upstream called %d times, want 3", calls)
	}
	if len(grants) != 1 {
		t.Errorf("got %d grants", len(grants))
	}

	// Exponential backoff: factor * 2^attempt.
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(slept) != len(want) {
		t.Fatalf("slept %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("backoff[%d] = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestFetchReturnsErrorAfterRetryExhaustion(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewRESTFetcher(testDescriptor(srv.URL))
	f.sleep = func(time.Duration) {}

	_, err := f.Fetch(context.Background(), Params{})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("upstream called %d times, want 3 (initial + 2 retries)", calls)
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error lacks status: %v", err)
	}
}

func TestFetchDoesNotRetryUndeclaredCodes(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := NewRESTFetcher(testDescriptor(srv.URL))
	f.sleep = func(time.Duration) { t.Error("slept for a non-retryable status") }

	_, err := f.Fetch(context.Background(), Params{})
	if err == nil {
		t.Fatal("expected error for 401")
	}
	if calls != 1 {
		t.Errorf("upstream called %d times, want 1", calls)
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Errorf("error lacks status: %v", err)
	}
}

func TestAuthInjection(t *testing.T) {
	tests := []struct {
		name       string
		configure  func(d *sources.Descriptor)
		wantHeader string
		wantValue  string
	}{
		{
			name: "api key header",
			configure: func(d *sources.Descriptor) {
				d.AuthType = sources.AuthAPIKey
				d.AuthHeader = "X-Api-Key"
				d.Credential = "key-123"
			},
			wantHeader: "X-Api-Key",
			wantValue:  "key-123",
		},
		{
			name: "app token header",
			configure: func(d *sources.Descriptor) {
				d.AuthType = sources.AuthAppToken
				d.AuthHeader = "X-App-Token"
				d.Credential = "tok-456"
			},
			wantHeader: "X-App-Token",
			wantValue:  "tok-456",
		},
		{
			name: "bearer token",
			configure: func(d *sources.Descriptor) {
				d.AuthType = sources.AuthBearer
				d.Credential = "jwt-789"
			},
			wantHeader: "Authorization",
			wantValue:  "Bearer jwt-789",
		},
		{
			name: "basic credentials",
			configure: func(d *sources.Descriptor) {
				d.AuthType = sources.AuthBasic
				d.Credential = "alice:hunter2"
			},
			wantHeader: "Authorization",
			wantValue:  "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:hunter2")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get(tt.wantHeader)
				json.NewEncoder(w).Encode(map[string]interface{}{"results": []interface{}{}})
			}))
			defer srv.Close()

			d := testDescriptor(srv.URL)
			tt.configure(d)

			f := NewRESTFetcher(d)
			if _, err := f.Fetch(context.Background(), Params{}); err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if got != tt.wantValue {
				t.Errorf("%s = %q, want %q", tt.wantHeader, got, tt.wantValue)
			}
		})
	}
}

func TestLookupPath(t *testing.T) {
	var payload interface{}
	json.Unmarshal([]byte(`{
		"data": {"oppHits": [{"title": "First", "agency": {"name": "DOE"}}]},
		"count": 1
	}`), &payload)

	tests := []struct {
		path string
		want interface{}
	}{
		{"data.oppHits.0.title", "First"},
		{"data.oppHits.0.agency.name", "DOE"},
		{"count", float64(1)},
		{"data.missing", nil},
		{"data.oppHits.5.title", nil},
		{"count.nested", nil},
	}

	for _, tt := range tests {
		if got := lookupPath(payload, tt.path); got != tt.want {
			t.Errorf("lookupPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestAsFloatParsesCurrencyStrings(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
	}{
		{"$1,500.50", 1500.50},
		{"250000", 250000},
		{float64(42), 42},
		{"not a number", 0},
		{nil, 0},
	}
	for _, tt := range tests {
		if got := asFloat(tt.in); got != tt.want {
			t.Errorf("asFloat(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBuilderSelection(t *testing.T) {
	if builderFor("grants_gov") == nil {
		t.Fatal("no builder for grants_gov")
	}

	// Unknown sources fall back to passthrough.
	d := testDescriptor("http://example.org")
	op, query, body := builderFor("unknown_source")(d, Params{"query": "arts", "state": "NY"})
	if op != "search" {
		t.Errorf("op = %q", op)
	}
	if body != nil {
		t.Errorf("GET passthrough produced a body: %v", body)
	}
	if query["query"] != "arts" || query["state"] != "NY" {
		t.Errorf("query = %v", query)
	}
}

func TestGrantsGovDetailBuilder(t *testing.T) {
	d := testDescriptor("http://example.org")
	d.ID = "grants_gov"
	d.Endpoints["detail"] = "/fetchOpportunity"

	op, _, body := buildGrantsGov(d, Params{"grant_id": "OPP-1234"})
	if op != "detail" {
		t.Fatalf("op = %q, want detail", op)
	}
	m, ok := body.(map[string]interface{})
	if !ok || m["opportunityId"] != "OPP-1234" {
		t.Fatalf("body = %v", body)
	}
}
