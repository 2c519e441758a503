// Package service provides the session layer between the HTTP API and the
// browse engine.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/figmap/server/internal/cache"
	"github.com/figmap/server/internal/dataset"
	"github.com/figmap/server/internal/engine"
	"github.com/figmap/server/internal/filter"
	"github.com/figmap/server/internal/metrics"
	"github.com/figmap/server/internal/render"
)

var (
	// ErrSessionNotFound is returned for unknown or deleted session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the session limit is reached.
	ErrTooManySessions = errors.New("too many sessions")
)

// SessionServiceConfig contains session service configuration.
type SessionServiceConfig struct {
	Dataset     *dataset.Dataset
	Hierarchy   dataset.Hierarchy
	Options     engine.Options
	MaxSessions int
	Cache       *cache.Manager
	Renderer    *render.FrameRenderer
}

// SessionService owns the browsing sessions over one dataset.
type SessionService struct {
	data        *dataset.Dataset
	hierarchy   dataset.Hierarchy
	options     engine.Options
	maxSessions int
	cache       *cache.Manager
	renderer    *render.FrameRenderer

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu      sync.Mutex
	session *engine.Session
}

// NewSessionService creates a new session service.
func NewSessionService(cfg SessionServiceConfig) *SessionService {
	opts := cfg.Options
	if cfg.Cache != nil && opts.Compile == nil {
		opts.Compile = cfg.Cache.Compile
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = render.NewFrameRenderer(render.Config{})
	}
	return &SessionService{
		data:        cfg.Dataset,
		hierarchy:   cfg.Hierarchy,
		options:     opts,
		maxSessions: cfg.MaxSessions,
		cache:       cfg.Cache,
		renderer:    renderer,
		sessions:    make(map[string]*sessionEntry),
	}
}

// Dataset returns the dataset shared by all sessions.
func (s *SessionService) Dataset() *dataset.Dataset { return s.data }

// Create starts a new session and returns its id and first frame.
func (s *SessionService) Create() (string, engine.Frame, error) {
	id := uuid.NewString()
	entry := &sessionEntry{session: engine.NewSession(s.data, s.options)}

	s.mu.Lock()
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		s.mu.Unlock()
		return "", engine.Frame{}, ErrTooManySessions
	}
	s.sessions[id] = entry
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.SessionsActive.Inc()
	log.Printf("[SessionService] Created session %s (%d active)", id, n)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return id, s.recompute(entry.session), nil
}

// Delete removes a session.
func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	metrics.SessionsActive.Dec()
	log.Printf("[SessionService] Deleted session %s", id)
	return nil
}

// Len returns the number of open sessions.
func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionService) get(id string) (*sessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// Update applies fn to the session under its lock and returns the
// recomputed frame. An error from fn is returned alongside the frame, which
// still reflects whatever fn changed.
func (s *SessionService) Update(id string, fn func(*engine.Session) error) (engine.Frame, error) {
	entry, err := s.get(id)
	if err != nil {
		return engine.Frame{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	fnErr := fn(entry.session)
	return s.recompute(entry.session), fnErr
}

// SubmitQuery activates a query on a session. Compile failures are counted
// and returned with the pass-through frame.
func (s *SessionService) SubmitQuery(id, text string) (engine.Frame, error) {
	frame, err := s.Update(id, func(sess *engine.Session) error {
		return sess.SubmitQuery(text)
	})
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		metrics.QueryErrorsTotal.Inc()
		log.Printf("[SessionService] Query rejected for session %s: %v", id, err)
	}
	return frame, err
}

// Frame returns the current frame of a session.
func (s *SessionService) Frame(id string) (engine.Frame, error) {
	return s.Update(id, func(*engine.Session) error { return nil })
}

// FramePNG renders the current frame of a session. Sessions in the same
// visible state share cached PNGs.
func (s *SessionService) FramePNG(id string) ([]byte, error) {
	entry, err := s.get(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	frame := entry.session.Frame()
	entry.mu.Unlock()

	start := time.Now()
	defer func() {
		metrics.RecomputeTotal.WithLabelValues("png").Inc()
		metrics.RecomputeDuration.WithLabelValues("png").Observe(time.Since(start).Seconds())
	}()

	state, err := json.Marshal(struct {
		X      []string          `json:"x"`
		Y      []string          `json:"y"`
		Points any               `json:"p"`
		Colors map[string]string `json:"c"`
	}{frame.XDomain, frame.YDomain, frame.Points, frame.Colors})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame state: %w", err)
	}
	key := cache.FrameKey(state, s.renderer.CellSize())

	if s.cache != nil {
		if data, ok := s.cache.GetFrame(key); ok {
			metrics.FrameCacheTotal.WithLabelValues("hit").Inc()
			return data, nil
		}
		metrics.FrameCacheTotal.WithLabelValues("miss").Inc()
	}

	data, err := s.renderer.RenderFrame(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to render frame: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetFrame(key, data); err != nil {
			log.Printf("[SessionService] Failed to cache frame: %v", err)
		}
	}
	return data, nil
}

// FacetOptions lists the distinct values of a facet. With a session id the
// options are narrowed through the value hierarchy by the session's current
// selection; search filters them case-insensitively.
func (s *SessionService) FacetOptions(f dataset.Facet, search, sessionID string) ([]string, error) {
	options := s.data.Options(f)

	if sessionID != "" {
		entry, err := s.get(sessionID)
		if err != nil {
			return nil, err
		}
		entry.mu.Lock()
		options = entry.session.Filters().VisibleOptions(options, s.hierarchy)
		entry.mu.Unlock()
	}

	return filter.SearchOptions(options, search), nil
}

// Stats returns dataset, session and cache statistics.
func (s *SessionService) Stats() map[string]interface{} {
	facets := make(map[string]int, len(dataset.Facets))
	for _, f := range dataset.Facets {
		facets[f.String()] = len(s.data.Options(f))
	}
	stats := map[string]interface{}{
		"proteins": s.data.Len(),
		"genomes":  len(dataset.DistinctValues(s.data.Records(), dataset.GenomeAttr)),
		"facets":   facets,
		"sessions": s.Len(),
	}
	if s.cache != nil {
		stats["cache"] = s.cache.Stats()
	}
	return stats
}

func (s *SessionService) recompute(sess *engine.Session) engine.Frame {
	start := time.Now()
	frame := sess.Frame()
	metrics.RecomputeTotal.WithLabelValues("json").Inc()
	metrics.RecomputeDuration.WithLabelValues("json").Observe(time.Since(start).Seconds())
	return frame
}
