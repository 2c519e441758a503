package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/figmap/server/internal/cache"
	"github.com/figmap/server/internal/dataset"
	"github.com/figmap/server/internal/engine"
	"github.com/figmap/server/internal/render"
	"github.com/figmap/server/internal/service"
)

const testJSON = `{
  "P1": {"category": "C1", "subcategory": "S1", "role": "Lysine/arginine transporter", "genome_ids": ["G1", "G2"]},
  "P2": {"category": "C1", "subcategory": "S2", "role": "Sodium & proton antiporter", "genome_ids": ["G2"]},
  "P3": {"category": "C2", "subcategory": "S3", "genome_ids": ["G3"]}
}`

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	ds, err := dataset.ReadJSON(strings.NewReader(testJSON))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	cacheManager, err := cache.NewManager(cache.Config{
		FrameCacheSizeMB: 16,
		FrameTTL:         1 * time.Minute,
		QueryCacheSize:   10,
	})
	if err != nil {
		t.Fatalf("Failed to initialize cache: %v", err)
	}
	t.Cleanup(func() { cacheManager.Close() })

	svc := service.NewSessionService(service.SessionServiceConfig{
		Dataset:   ds,
		Hierarchy: dataset.Hierarchy{"S1": "C1", "S2": "C1", "S3": "C2"},
		Options:   engine.DefaultOptions(),
		Cache:     cacheManager,
		Renderer:  render.NewFrameRenderer(render.Config{CellSize: 4}),
	})

	return NewRouter(RouterConfig{
		Service:     svc,
		CORSOrigins: []string{"http://localhost:3000"},
		Title:       "test",
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeFrame(t *testing.T, rec *httptest.ResponseRecorder) engine.Frame {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var f engine.Frame
	if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	return f
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var payload struct {
		SessionID string       `json:"session_id"`
		Frame     engine.Frame `json:"frame"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if payload.SessionID == "" || payload.Frame.Counts.Total != 3 {
		t.Fatalf("unexpected create payload %+v", payload)
	}
	return payload.SessionID
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(t)

	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
	createSession(t, h)
	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "figmap_recompute_total") {
		t.Fatal("expected recompute counter in metrics output")
	}
}

func TestDatasetEndpoint(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/dataset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if payload["proteins"] != float64(3) || payload["genomes"] != float64(3) || payload["title"] != "test" {
		t.Fatalf("unexpected dataset payload %v", payload)
	}
}

func TestFacetOptionsEndpoint(t *testing.T) {
	h := newTestRouter(t)

	t.Run("search", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/facets/subcategory?search=s1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected %d, got %d", http.StatusOK, rec.Code)
		}
		var payload struct {
			Options []string `json:"options"`
		}
		json.Unmarshal(rec.Body.Bytes(), &payload)
		if want := []string{"S1"}; !reflect.DeepEqual(payload.Options, want) {
			t.Fatalf("expected %v, got %v", want, payload.Options)
		}
	})

	t.Run("unknownFacet", func(t *testing.T) {
		if rec := do(t, h, http.MethodGet, "/api/facets/colour", ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("unknownSession", func(t *testing.T) {
		if rec := do(t, h, http.MethodGet, "/api/facets/category?session=nope", ""); rec.Code != http.StatusNotFound {
			t.Fatalf("expected %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestProteinEndpoint(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/proteins/P2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, rec.Code)
	}
	var p dataset.ProteinRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if p.ID != "P2" || p.Category != "C1" {
		t.Fatalf("unexpected protein %+v", p)
	}

	if rec := do(t, h, http.MethodGet, "/api/proteins/P9", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSessionFlow(t *testing.T) {
	h := newTestRouter(t)
	id := createSession(t, h)
	base := "/api/sessions/" + id

	f := decodeFrame(t, do(t, h, http.MethodPost, base+"/filters/category", `{"value":"C1"}`))
	if f.Counts.Filtered != 2 {
		t.Fatalf("expected 2 filtered, got %d", f.Counts.Filtered)
	}

	f = decodeFrame(t, do(t, h, http.MethodPut, base+"/window", `{"start":0,"end":1}`))
	if want := []string{"P1"}; !reflect.DeepEqual(f.YDomain, want) {
		t.Fatalf("expected %v, got %v", want, f.YDomain)
	}

	f = decodeFrame(t, do(t, h, http.MethodPost, base+"/window/scroll", `{"delta":100}`))
	if f.Window.Offset != 1 {
		t.Fatalf("expected offset clamped to 1, got %d", f.Window.Offset)
	}

	f = decodeFrame(t, do(t, h, http.MethodPost, base+"/window/reset", ""))
	if f.Window.Start != 0 || f.Window.End != 25 || f.Window.Offset != 0 {
		t.Fatalf("expected reset window, got %+v", f.Window)
	}

	f = decodeFrame(t, do(t, h, http.MethodPut, base+"/colors/C1", `{"color":"#00ff00"}`))
	if f.Colors["P1"] != "#00ff00" {
		t.Fatalf("expected P1 coloured, got %v", f.Colors)
	}
	f = decodeFrame(t, do(t, h, http.MethodDelete, base+"/colors/C1", ""))
	if len(f.Colors) != 0 {
		t.Fatalf("expected no colours, got %v", f.Colors)
	}
	f = decodeFrame(t, do(t, h, http.MethodPost, base+"/colors/random", ""))
	if len(f.Colors) != 2 {
		t.Fatalf("expected both C1 proteins coloured, got %v", f.Colors)
	}

	rec := do(t, h, http.MethodGet, base+"/frame.png", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected png response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatal("expected PNG body")
	}

	if rec := do(t, h, http.MethodDelete, base, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected %d, got %d", http.StatusNoContent, rec.Code)
	}
	if rec := do(t, h, http.MethodGet, base+"/frame", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestEscapedColorValues(t *testing.T) {
	h := newTestRouter(t)
	base := "/api/sessions/" + createSession(t, h)

	tests := []struct {
		name    string
		escaped string
		value   string
		protein string
	}{
		{"slash", "Lysine%2Farginine%20transporter", "Lysine/arginine transporter", "P1"},
		{"ampersand", "Sodium%20%26%20proton%20antiporter", "Sodium & proton antiporter", "P2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := decodeFrame(t, do(t, h, http.MethodPut, base+"/colors/"+tt.escaped, `{"color":"#ff0000"}`))
			if f.Colors[tt.protein] != "#ff0000" {
				t.Fatalf("expected %s coloured, got %v", tt.protein, f.Colors)
			}
			if len(f.Legend) != 1 || f.Legend[0].Value != tt.value {
				t.Fatalf("expected legend entry %q, got %v", tt.value, f.Legend)
			}

			f = decodeFrame(t, do(t, h, http.MethodDelete, base+"/colors/"+tt.escaped, ""))
			if len(f.Colors) != 0 || len(f.Legend) != 0 {
				t.Fatalf("expected assignment removed, got %v %v", f.Colors, f.Legend)
			}
		})
	}
}

func TestQueryEndpoint(t *testing.T) {
	h := newTestRouter(t)
	base := "/api/sessions/" + createSession(t, h)

	f := decodeFrame(t, do(t, h, http.MethodPost, base+"/query", `{"query":"SUB(\"G2\", \"G1\")"}`))
	if want := []string{"P2"}; !reflect.DeepEqual(f.YDomain, want) {
		t.Fatalf("expected %v, got %v", want, f.YDomain)
	}

	// Rejected queries still answer with a pass-through frame.
	f = decodeFrame(t, do(t, h, http.MethodPost, base+"/query", `{"query":"window.alert(1)"}`))
	if f.Counts.Filtered != 3 || f.Warning == "" {
		t.Fatalf("expected pass-through frame with warning, got %+v", f)
	}

	f = decodeFrame(t, do(t, h, http.MethodDelete, base+"/query", ""))
	if f.Warning != "" || f.Query != "" {
		t.Fatalf("expected cleared query, got %+v", f)
	}
}

func TestBadRequests(t *testing.T) {
	h := newTestRouter(t)
	base := "/api/sessions/" + createSession(t, h)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknownFacet", http.MethodPost, base + "/filters/colour", `{"value":"x"}`, http.StatusBadRequest},
		{"missingValue", http.MethodPost, base + "/filters/category", `{}`, http.StatusBadRequest},
		{"malformedBody", http.MethodPost, base + "/window/scroll", `{"delta":`, http.StatusBadRequest},
		{"badColor", http.MethodPut, base + "/colors/C1", `{"color":"chartreuse"}`, http.StatusBadRequest},
		{"unknownSession", http.MethodPost, "/api/sessions/nope/window/reset", "", http.StatusNotFound},
		{"deleteUnknown", http.MethodDelete, "/api/sessions/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, h, tt.method, tt.path, tt.body); rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}
