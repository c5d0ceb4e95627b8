package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/grantwell/grantwell/internal/api/middleware"
	"github.com/grantwell/grantwell/internal/domain"
	"github.com/grantwell/grantwell/internal/fetch"
	"github.com/grantwell/grantwell/internal/manager"
	"github.com/grantwell/grantwell/internal/repository"
	"github.com/grantwell/grantwell/internal/sources"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T, upstream string) *gin.Engine {
	t.Helper()

	table := []sources.Descriptor{{
		ID:        "test_portal",
		Name:      "Test Portal",
		BaseURL:   upstream,
		Endpoints: map[string]string{"search": "/search"},
		Method:    "GET",
		AuthType:  sources.AuthNone,
		RateLimit: sources.RateLimit{Calls: 100, Period: time.Hour},
		CacheTTL:  time.Hour,
		ErrorHandling: sources.ErrorHandling{
			RetryCodes: []int{},
		},
		RecordsPath: "results",
		FieldMapping: map[string]string{
			"title":  "name",
			"funder": "agency",
		},
	}}
	reg := sources.NewRegistryFrom(table, sources.NewResolver(sources.MapProvider{}))
	mgr := manager.New(reg, fetch.NewFetchers(reg))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.SavedGrant{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := repository.NewSavedGrantRepository(db)

	return SetupRouter(mgr, repo, nil, "test", middleware.CORSConfig{AllowAllOrigins: true})
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
			t.Fatalf("invalid JSON response for %s %s: %v", method, path, err)
		}
	}
	return w, parsed
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, "http://localhost")
	w, body := doJSON(t, r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestListSourcesHidesCredentials(t *testing.T) {
	r := newTestRouter(t, "http://localhost")
	w, body := doJSON(t, r, http.MethodGet, "/api/v1/sources", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["total"].(float64) != 1 {
		t.Fatalf("total = %v", body["total"])
	}
	if strings.Contains(w.Body.String(), "credential_env") || strings.Contains(w.Body.String(), "auth_header") {
		t.Error("source listing leaked auth configuration")
	}
}

func TestSourceGrantsEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []map[string]string{
			{"name": "Youth Grant", "agency": "DOE"},
		}})
	}))
	defer upstream.Close()

	r := newTestRouter(t, upstream.URL)
	w, body := doJSON(t, r, http.MethodGet, "/api/v1/sources/test_portal/grants?query=youth", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["total"].(float64) != 1 {
		t.Errorf("total = %v", body["total"])
	}
}

func TestSearchValidation(t *testing.T) {
	r := newTestRouter(t, "http://localhost")
	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/search", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearchReturnsSearchID(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []map[string]string{}})
	}))
	defer upstream.Close()

	r := newTestRouter(t, upstream.URL)
	w, body := doJSON(t, r, http.MethodPost, "/api/v1/search", `{"query":"education"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["search_id"] == "" || body["search_id"] == nil {
		t.Error("missing search_id")
	}
	if _, ok := body["results"]; !ok {
		t.Error("missing results field")
	}
}

func TestGrantDetailsNotFound(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []map[string]string{}})
	}))
	defer upstream.Close()

	r := newTestRouter(t, upstream.URL)
	w, _ := doJSON(t, r, http.MethodGet, "/api/v1/grants/XYZ-1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestBreakerStatusEndpoints(t *testing.T) {
	r := newTestRouter(t, "http://localhost")

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/status/breakers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["total"].(float64) != 1 {
		t.Errorf("total = %v", body["total"])
	}

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/status/breakers/test_portal", "")
	if w.Code != http.StatusOK {
		t.Errorf("single status = %d", w.Code)
	}

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/status/breakers/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown breaker status = %d, want 404", w.Code)
	}

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/status/breakers/test_portal/reset", "")
	if w.Code != http.StatusOK {
		t.Errorf("reset status = %d", w.Code)
	}
}

func TestSavedGrantsLifecycle(t *testing.T) {
	r := newTestRouter(t, "http://localhost")

	payload := `{"grant":{"title":"River Cleanup","funder":"EPA","source":"test_portal"},"notes":"good fit"}`
	w, created := doJSON(t, r, http.MethodPost, "/api/v1/saved-grants", payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("save status = %d: %s", w.Code, w.Body.String())
	}
	id := created["id"].(string)

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/saved-grants", "")
	if w.Code != http.StatusOK || body["total"].(float64) != 1 {
		t.Fatalf("list: status=%d body=%v", w.Code, body)
	}

	w, _ = doJSON(t, r, http.MethodPatch, "/api/v1/saved-grants/"+id, `{"status":"applied"}`)
	if w.Code != http.StatusOK {
		t.Errorf("patch status = %d", w.Code)
	}

	w, body = doJSON(t, r, http.MethodGet, "/api/v1/saved-grants?status=applied", "")
	if body["total"].(float64) != 1 {
		t.Errorf("filtered total = %v", body["total"])
	}

	w, _ = doJSON(t, r, http.MethodDelete, "/api/v1/saved-grants/"+id, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}

	w, _ = doJSON(t, r, http.MethodDelete, "/api/v1/saved-grants/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, "http://localhost")
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sources", nil)
	req.Header.Set("Origin", "https://app.example.org")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
