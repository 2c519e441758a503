// Package window keeps the paging state over the filtered record sequence.
package window

// Defaults used by a fresh or reset controller.
const (
	DefaultStart = 0
	DefaultEnd   = 25
	DefaultStep  = 5
)

// Controller holds the window bounds. The effective window is
// [Start+Offset, End+Offset). Invariants: 0 <= Start <= End, Offset >= 0.
type Controller struct {
	Start  int `json:"start"`
	End    int `json:"end"`
	Offset int `json:"offset"`

	step         int
	defaultStart int
	defaultEnd   int
}

// New returns a controller with the given initial bounds and scroll step.
// Invalid values are clamped; a non-positive step uses DefaultStep.
func New(start, end, step int) *Controller {
	if step <= 0 {
		step = DefaultStep
	}
	c := &Controller{step: step}
	c.SetEnd(end)
	c.SetStart(start)
	c.defaultStart, c.defaultEnd = c.Start, c.End
	return c
}

// Step returns the scroll step magnitude.
func (c *Controller) Step() int { return c.step }

// SetStart moves the window start, raising End when it would fall behind.
func (c *Controller) SetStart(v int) {
	if v < 0 {
		v = 0
	}
	c.Start = v
	if v > c.End {
		c.End = v
	}
}

// SetEnd moves the window end, lowering Start when it would pass it.
func (c *Controller) SetEnd(v int) {
	if v < 0 {
		v = 0
	}
	c.End = v
	if v < c.Start {
		c.Start = v
	}
}

// ClampOffset bounds a proposed offset. Without an active filter
// (filteredLen == totalLen) only the zero floor applies. Otherwise the
// shifted window is kept inside [0, filteredLen], preserving its width where
// the sequence is long enough.
func (c *Controller) ClampOffset(proposed, filteredLen, totalLen int) int {
	if proposed < 0 {
		proposed = 0
	}
	if filteredLen == totalLen {
		return proposed
	}
	if c.End+proposed > filteredLen {
		proposed = filteredLen - c.End
	}
	if proposed < 0 {
		proposed = 0
	}
	return proposed
}

// SetOffset stores a clamped offset and returns it.
func (c *Controller) SetOffset(v, filteredLen, totalLen int) int {
	c.Offset = c.ClampOffset(v, filteredLen, totalLen)
	return c.Offset
}

// Scroll moves the offset one step in the direction of delta. A zero delta
// only re-clamps the current offset.
func (c *Controller) Scroll(delta, filteredLen, totalLen int) int {
	switch {
	case delta > 0:
		delta = c.step
	case delta < 0:
		delta = -c.step
	}
	return c.SetOffset(c.Offset+delta, filteredLen, totalLen)
}

// Reset restores the initial bounds and a zero offset.
func (c *Controller) Reset() {
	c.Start, c.End, c.Offset = c.defaultStart, c.defaultEnd, 0
}

// Bounds returns the effective window clipped to a sequence of length n.
func (c *Controller) Bounds(n int) (lo, hi int) {
	lo, hi = c.Start+c.Offset, c.End+c.Offset
	if lo > n {
		lo = n
	}
	if hi > n {
		hi = n
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Slice returns the windowed part of seq.
func Slice[T any](c *Controller, seq []T) []T {
	lo, hi := c.Bounds(len(seq))
	return seq[lo:hi]
}
