package viewport

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Rect is an axis-aligned rectangle in terminal cells.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether the rectangle covers no cells.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Area returns the number of cells covered.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Intersect returns the overlap of r and o (possibly empty).
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.Width, o.X+o.Width), min(r.Y+r.Height, o.Y+o.Height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Grow expands r by m on every side.
func (r Rect) Grow(m Margin) Rect {
	return Rect{
		X:      r.X - m.Left,
		Y:      r.Y - m.Top,
		Width:  r.Width + m.Left + m.Right,
		Height: r.Height + m.Top + m.Bottom,
	}
}

// Margin grows the observation root beyond the viewport, so content can be
// prepared just before it scrolls into view.
type Margin struct {
	Top, Right, Bottom, Left int
}

// VerticalMargin is a Margin that only extends above and below.
func VerticalMargin(rows int) Margin {
	return Margin{Top: rows, Bottom: rows}
}

// VisibilityOptions configure one observation.
type VisibilityOptions struct {
	RootMargin Margin
	// Threshold is the minimum fraction of the element that must be inside
	// the root region. Zero means any overlap counts.
	Threshold float64
}

// Element is anything with a position in content coordinates.
type Element interface {
	Bounds() Rect
}

// Box is a mutable Element; pages assign bounds during layout.
type Box struct {
	rect Rect
}

// NewBox creates a Box at the given bounds.
func NewBox(r Rect) *Box {
	return &Box{rect: r}
}

// Bounds implements Element.
func (b *Box) Bounds() Rect { return b.rect }

// SetBounds moves or resizes the box.
func (b *Box) SetBounds(r Rect) { b.rect = r }

// VisibilityHandler receives "is intersecting" notifications. The returned
// command, if any, is handed back to the Bubble Tea runtime.
type VisibilityHandler func(intersecting bool) tea.Cmd

// Subscription is an open observation or scroll listener.
type Subscription interface {
	// Unsubscribe stops delivery. Calling it more than once is a no-op.
	Unsubscribe()
}

// VisibilityDetector reports when an element enters or leaves a
// viewport-relative region.
type VisibilityDetector interface {
	Observe(el Element, opts VisibilityOptions, fn VisibilityHandler) Subscription
}

// Intersecting reports whether el's bounds satisfy opts against viewport.
func Intersecting(viewport Rect, bounds Rect, opts VisibilityOptions) bool {
	root := viewport.Grow(opts.RootMargin)
	if bounds.Empty() {
		// Zero-size elements count when their origin lies in the root.
		return bounds.X >= root.X && bounds.X <= root.X+root.Width &&
			bounds.Y >= root.Y && bounds.Y <= root.Y+root.Height
	}
	overlap := bounds.Intersect(root).Area()
	if overlap == 0 {
		return false
	}
	if opts.Threshold <= 0 {
		return true
	}
	return float64(overlap)/float64(bounds.Area()) >= opts.Threshold
}

type observation struct {
	el       Element
	opts     VisibilityOptions
	fn       VisibilityHandler
	notified bool
	last     bool
	closed   bool
	owner    *GeometryDetector
}

func (o *observation) Unsubscribe() {
	if o.closed {
		return
	}
	o.closed = true
	o.owner.remove(o)
}

// GeometryDetector is a VisibilityDetector backed by bounding-box tests
// against the current viewport rectangle. The host calls Evaluate on every
// scroll, resize or layout pass.
type GeometryDetector struct {
	viewport     Rect
	hasViewport  bool
	observations []*observation
}

// NewGeometryDetector creates a detector with no viewport yet.
func NewGeometryDetector() *GeometryDetector {
	return &GeometryDetector{}
}

// Observe registers el. The first notification arrives on the next
// Evaluate or Refresh, never from inside Observe.
func (d *GeometryDetector) Observe(el Element, opts VisibilityOptions, fn VisibilityHandler) Subscription {
	o := &observation{
		el:    el,
		opts:  opts,
		fn:    fn,
		owner: d,
	}
	d.observations = append(d.observations, o)
	return o
}

// Evaluate recomputes every observation against viewport and notifies the
// ones whose state changed, in subscription order.
func (d *GeometryDetector) Evaluate(viewport Rect) tea.Cmd {
	d.viewport = viewport
	d.hasViewport = true
	return d.Refresh()
}

// Refresh re-runs Evaluate against the last viewport, e.g. after layout
// moved some elements. It is a no-op before the first Evaluate.
func (d *GeometryDetector) Refresh() tea.Cmd {
	if !d.hasViewport {
		return nil
	}
	// Handlers may unsubscribe while we iterate.
	snapshot := append([]*observation(nil), d.observations...)

	var cmds []tea.Cmd
	for _, o := range snapshot {
		if o.closed {
			continue
		}
		in := Intersecting(d.viewport, o.el.Bounds(), o.opts)
		if o.notified && in == o.last {
			continue
		}
		o.notified = true
		o.last = in
		if cmd := o.fn(in); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

// Viewport returns the rectangle of the last Evaluate.
func (d *GeometryDetector) Viewport() Rect {
	return d.viewport
}

// ActiveSubscriptions returns the number of open observations.
func (d *GeometryDetector) ActiveSubscriptions() int {
	return len(d.observations)
}

func (d *GeometryDetector) remove(o *observation) {
	for i, cur := range d.observations {
		if cur == o {
			d.observations = append(d.observations[:i], d.observations[i+1:]...)
			return
		}
	}
}
