// Package engine threads the browsing state through the filter, query,
// window and projection stages and produces render frames.
//
// A Session is not safe for concurrent use; callers serialize mutations.
package engine

import (
	"math/rand"
	"time"

	"github.com/figmap/server/internal/colors"
	"github.com/figmap/server/internal/dataset"
	"github.com/figmap/server/internal/filter"
	"github.com/figmap/server/internal/query"
	"github.com/figmap/server/internal/window"
	"github.com/figmap/server/pkg/colormap"
)

// CompileFunc compiles query text. It lets callers plug in a cache.
type CompileFunc func(text string) (*query.Compiled, error)

// Options configures a new session.
type Options struct {
	WindowStart int
	WindowEnd   int
	ScrollStep  int

	// Palette used by AssignRandomColors. Defaults to the categorical colormap.
	Palette colormap.Palette
	// Seed for random colour assignment; zero seeds from the clock.
	Seed int64

	// ClearColorOnDeselect removes a value's colour when its filter
	// selection is toggled off. By default colours outlive selections.
	ClearColorOnDeselect bool

	Compile CompileFunc
}

// DefaultOptions returns the options of a fresh browsing session.
func DefaultOptions() Options {
	return Options{
		WindowStart: window.DefaultStart,
		WindowEnd:   window.DefaultEnd,
		ScrollStep:  window.DefaultStep,
	}
}

// Session owns the mutable browsing state over one immutable dataset.
type Session struct {
	data    *dataset.Dataset
	filters *filter.Set
	window  *window.Controller
	colors  *colors.Resolver

	query     *query.Compiled
	queryText string
	warning   string

	palette              colormap.Palette
	rng                  *rand.Rand
	clearColorOnDeselect bool
	compile              CompileFunc

	revision uint64
}

// NewSession starts a session over data.
func NewSession(data *dataset.Dataset, opts Options) *Session {
	palette := opts.Palette
	if len(palette) == 0 {
		palette = colormap.Categorical.Palette()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	compile := opts.Compile
	if compile == nil {
		compile = query.Compile
	}
	return &Session{
		data:                 data,
		filters:              filter.New(),
		window:               window.New(opts.WindowStart, opts.WindowEnd, opts.ScrollStep),
		colors:               colors.NewResolver(),
		palette:              palette,
		rng:                  rand.New(rand.NewSource(seed)),
		clearColorOnDeselect: opts.ClearColorOnDeselect,
		compile:              compile,
	}
}

// Dataset returns the session's dataset.
func (s *Session) Dataset() *dataset.Dataset { return s.data }

// Filters exposes the filter selection for read access.
func (s *Session) Filters() *filter.Set { return s.filters }

// Revision increases with every mutation.
func (s *Session) Revision() uint64 { return s.revision }

// ToggleFilter flips value on facet f and re-clamps the window against the
// new filtered length. It reports whether the value is now selected.
func (s *Session) ToggleFilter(f dataset.Facet, value string) bool {
	selected := s.filters.Toggle(f, value)
	if !selected && s.clearColorOnDeselect {
		s.colors.Unassign(value)
	}
	s.reclamp()
	s.revision++
	return selected
}

// SetWindowStart moves the window start and re-clamps the offset.
func (s *Session) SetWindowStart(n int) {
	s.window.SetStart(n)
	s.reclamp()
	s.revision++
}

// SetWindowEnd moves the window end and re-clamps the offset.
func (s *Session) SetWindowEnd(n int) {
	s.window.SetEnd(n)
	s.reclamp()
	s.revision++
}

// SetWindowOffset sets the window offset, clamped to the filtered sequence.
func (s *Session) SetWindowOffset(n int) int {
	off := s.window.SetOffset(n, len(s.filtered()), s.data.Len())
	s.revision++
	return off
}

// Scroll moves the window one step in the direction of delta.
func (s *Session) Scroll(delta int) int {
	off := s.window.Scroll(delta, len(s.filtered()), s.data.Len())
	s.revision++
	return off
}

// ResetWindow restores the initial window.
func (s *Session) ResetWindow() {
	s.window.Reset()
	s.revision++
}

// SubmitQuery compiles and activates a query. On failure the query is
// dropped, every record passes, and the error is returned once; the frame
// keeps the message as a warning.
func (s *Session) SubmitQuery(text string) error {
	defer func() { s.revision++ }()

	c, err := s.compile(text)
	if err != nil {
		s.query, s.queryText, s.warning = nil, "", err.Error()
		s.reclamp()
		return err
	}
	s.query, s.queryText, s.warning = c, c.Text(), ""
	s.reclamp()
	return nil
}

// ResetQuery deactivates the query.
func (s *Session) ResetQuery() {
	s.query, s.queryText, s.warning = nil, "", ""
	s.reclamp()
	s.revision++
}

// AssignRandomColors gives every selected filter value a random palette colour.
func (s *Session) AssignRandomColors() {
	s.colors.RandomAssign(s.filters.Values(), s.palette, s.rng)
	s.revision++
}

// AssignColor sets the colour of a facet value.
func (s *Session) AssignColor(value, color string) {
	s.colors.Assign(value, color)
	s.revision++
}

// UnassignColor removes the colour of a facet value.
func (s *Session) UnassignColor(value string) {
	s.colors.Unassign(value)
	s.revision++
}

func (s *Session) filtered() []dataset.ProteinRecord {
	return query.Filter(s.query, s.filters.Apply(s.data.Records()))
}

func (s *Session) reclamp() {
	s.window.Scroll(0, len(s.filtered()), s.data.Len())
}
