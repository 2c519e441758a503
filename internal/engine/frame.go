package engine

import (
	"github.com/figmap/server/internal/colors"
	"github.com/figmap/server/internal/dataset"
	"github.com/figmap/server/internal/projection"
	"github.com/figmap/server/internal/window"
)

// Frame is everything a renderer needs to draw the current state.
type Frame struct {
	Revision uint64 `json:"revision"`

	XDomain []string           `json:"x_domain"`
	YDomain []string           `json:"y_domain"`
	Points  []projection.Point `json:"points"`
	// Colors maps protein id to colour for windowed proteins that have one.
	Colors map[string]string `json:"colors"`

	Counts Counts      `json:"counts"`
	Window WindowState `json:"window"`

	Filters map[string][]string `json:"filters"`
	Legend  []colors.Assignment `json:"legend"`
	Query   string              `json:"query,omitempty"`
	Warning string              `json:"warning,omitempty"`
}

// Counts are the sizes of each pipeline stage.
type Counts struct {
	Total    int `json:"total"`
	Filtered int `json:"filtered"`
	Windowed int `json:"windowed"`
	Points   int `json:"points"`
}

// WindowState is the window configuration and its effective clipped range.
type WindowState struct {
	Start  int `json:"start"`
	End    int `json:"end"`
	Offset int `json:"offset"`
	Step   int `json:"step"`
	From   int `json:"from"`
	To     int `json:"to"`
}

// Frame recomputes the pipeline over the whole dataset.
func (s *Session) Frame() Frame {
	filtered := s.filtered()
	windowed := window.Slice(s.window, filtered)
	from, to := s.window.Bounds(len(filtered))

	x, y := projection.Domains(windowed)
	points := projection.Project(windowed)

	lookup := make(map[string]string)
	for i := range windowed {
		if c, ok := s.colors.Resolve(&windowed[i]); ok {
			lookup[windowed[i].ID] = c
		}
	}

	selections := make(map[string][]string, len(dataset.Facets))
	for _, f := range dataset.Facets {
		selections[f.String()] = s.filters.Selected(f)
	}

	return Frame{
		Revision: s.revision,
		XDomain:  x,
		YDomain:  y,
		Points:   points,
		Colors:   lookup,
		Counts: Counts{
			Total:    s.data.Len(),
			Filtered: len(filtered),
			Windowed: len(windowed),
			Points:   len(points),
		},
		Window: WindowState{
			Start:  s.window.Start,
			End:    s.window.End,
			Offset: s.window.Offset,
			Step:   s.window.Step(),
			From:   from,
			To:     to,
		},
		Filters: selections,
		Legend:  s.colors.Assignments(),
		Query:   s.queryText,
		Warning: s.warning,
	}
}
