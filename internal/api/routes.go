// Package api provides HTTP handlers for the figmap server.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/figmap/server/internal/dataset"
	"github.com/figmap/server/internal/engine"
	"github.com/figmap/server/internal/query"
	"github.com/figmap/server/internal/service"
	"github.com/figmap/server/pkg/colormap"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// RouterConfig contains router configuration.
type RouterConfig struct {
	Service     *service.SessionService
	CORSOrigins []string
	Title       string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	svc := cfg.Service
	r.Route("/api", func(r chi.Router) {
		r.Get("/dataset", datasetHandler(svc, cfg.Title))
		r.Get("/facets/{facet}", facetOptionsHandler(svc))
		r.Get("/proteins/{id}", proteinHandler(svc))

		r.Post("/sessions", createSessionHandler(svc))
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Delete("/", deleteSessionHandler(svc))
			r.Get("/frame", frameHandler(svc))
			r.Get("/frame.png", framePNGHandler(svc))

			r.Post("/filters/{facet}", toggleFilterHandler(svc))

			r.Put("/window", windowHandler(svc))
			r.Post("/window/scroll", scrollHandler(svc))
			r.Post("/window/reset", resetWindowHandler(svc))

			r.Post("/query", submitQueryHandler(svc))
			r.Delete("/query", resetQueryHandler(svc))

			r.Post("/colors/random", randomColorsHandler(svc))
			r.Put("/colors/{value}", assignColorHandler(svc))
			r.Delete("/colors/{value}", unassignColorHandler(svc))
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeFrame answers with the frame, mapping session lookup failures to 404.
func writeFrame(w http.ResponseWriter, frame engine.Frame, err error) {
	if errors.Is(err, service.ErrSessionNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	var evalErr *query.EvaluationError
	if err != nil && !errors.As(err, &evalErr) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// pathValue returns a URL parameter decoded. chi matches on RawPath when the
// request carries escaped reserved characters such as %2F, and then hands
// back the escaped text.
func pathValue(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, true
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		http.Error(w, "invalid "+name+": "+err.Error(), http.StatusBadRequest)
		return "", false
	}
	return decoded, true
}

func parseFacetParam(w http.ResponseWriter, r *http.Request) (dataset.Facet, bool) {
	f, err := dataset.ParseFacet(chi.URLParam(r, "facet"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}
	return f, true
}

func datasetHandler(svc *service.SessionService, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := svc.Stats()
		stats["title"] = title
		writeJSON(w, http.StatusOK, stats)
	}
}

func facetOptionsHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := parseFacetParam(w, r)
		if !ok {
			return
		}
		q := r.URL.Query()
		options, err := svc.FacetOptions(f, strings.TrimSpace(q.Get("search")), q.Get("session"))
		if errors.Is(err, service.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"facet":   f.String(),
			"options": options,
		})
	}
}

func proteinHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathValue(w, r, "id")
		if !ok {
			return
		}
		rec, ok := svc.Dataset().Get(id)
		if !ok {
			http.Error(w, "protein not found: "+id, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func createSessionHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, frame, err := svc.Create()
		if errors.Is(err, service.ErrTooManySessions) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			http.Error(w, "failed to create session: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"session_id": id,
			"frame":      frame,
		})
	}
}

func deleteSessionHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(chi.URLParam(r, "id")); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func frameHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame, err := svc.Frame(chi.URLParam(r, "id"))
		writeFrame(w, frame, err)
	}
}

func framePNGHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := svc.FramePNG(chi.URLParam(r, "id"))
		if errors.Is(err, service.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(data)
	}
}

type toggleFilterRequest struct {
	Value string `json:"value"`
}

func toggleFilterHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := parseFacetParam(w, r)
		if !ok {
			return
		}
		var req toggleFilterRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Value == "" {
			http.Error(w, "value is required", http.StatusBadRequest)
			return
		}
		frame, err := svc.Update(chi.URLParam(r, "id"), func(s *engine.Session) error {
			s.ToggleFilter(f, req.Value)
			return nil
		})
		writeFrame(w, frame, err)
	}
}

type windowRequest struct {
	Start  *int `json:"start"`
	End    *int `json:"end"`
	Offset *int `json:"offset"`
}

func windowHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req windowRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		frame, err := svc.Update(chi.URLParam(r, "id"), func(s *engine.Session) error {
			if req.Start != nil {
				s.SetWindowStart(*req.Start)
			}
			if req.End != nil {
				s.SetWindowEnd(*req.End)
			}
			if req.Offset != nil {
				s.SetWindowOffset(*req.Offset)
			}
			return nil
		})
		writeFrame(w, frame, err)
	}
}

type scrollRequest struct {
	Delta int `json:"delta"`
}

func scrollHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scrollRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		frame, err := svc.Update(chi.URLParam(r, "id"), func(s *engine.Session) error {
			s.Scroll(req.Delta)
			return nil
		})
		writeFrame(w, frame, err)
	}
}

func resetWindowHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame, err := svc.Update(chi.URLParam(r, "id"), func(s *engine.Session) error {
			s.ResetWindow()
			return nil
		})
		writeFrame(w, frame, err)
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

// submitQueryHandler answers 200 even for rejected queries; the frame then
// carries the warning and the pipeline runs without a query.
func submitQueryHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		frame, err := svc.SubmitQuery(chi.URLParam(r, "id"), req.Query)
		writeFrame(w, frame, err)
	}
}

func resetQueryHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame, err := svc.Update(chi.URLParam(r, "id"), func(s *engine.Session) error {
			s.ResetQuery()
			return nil
		})
		writeFrame(w, frame, err)
	}
}

func randomColorsHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame, err := svc.Update(chi.URLParam(r, "id"), func(s *engine.Session) error {
			s.AssignRandomColors()
			return nil
		})
		writeFrame(w, frame, err)
	}
}

type colorRequest struct {
	Color string `json:"color"`
}

func assignColorHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req colorRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := colormap.Parse(req.Color); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		value, ok := pathValue(w, r, "value")
		if !ok {
			return
		}
		frame, err := svc.Update(chi.URLParam(r, "id"), func(s *engine.Session) error {
			s.AssignColor(value, req.Color)
			return nil
		})
		writeFrame(w, frame, err)
	}
}

func unassignColorHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value, ok := pathValue(w, r, "value")
		if !ok {
			return
		}
		frame, err := svc.Update(chi.URLParam(r, "id"), func(s *engine.Session) error {
			s.UnassignColor(value)
			return nil
		})
		writeFrame(w, frame, err)
	}
}
