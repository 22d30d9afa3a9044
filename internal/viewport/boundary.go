package viewport

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// ObservationState is the lifecycle of a Boundary.
type ObservationState int

const (
	Unobserved ObservationState = iota
	Pending
	Visible
	Loaded
)

func (s ObservationState) String() string {
	switch s {
	case Unobserved:
		return "unobserved"
	case Pending:
		return "pending"
	case Visible:
		return "visible"
	case Loaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// BoundaryOptions configure a Boundary.
type BoundaryOptions struct {
	RootMargin Margin
	Threshold  float64
	// Once keeps children rendered forever after the first intersection and
	// drops the observation. Without it the boundary falls back to the
	// placeholder whenever the element leaves the root region.
	Once bool
	// OnLoad runs exactly once, the first time the element becomes visible.
	OnLoad func() tea.Cmd
}

// DefaultBoundaryOptions are one-shot with a two-row lead above and below.
func DefaultBoundaryOptions() BoundaryOptions {
	return BoundaryOptions{
		RootMargin: VerticalMargin(2),
		Once:       true,
	}
}

// Boundary renders a placeholder until its element enters the visibility
// region, then renders its children.
type Boundary struct {
	el          Element
	children    func() string
	placeholder func() string
	opts        BoundaryOptions

	state    ObservationState
	loadDone bool
	sub      Subscription

	cached   string
	hasCache bool
}

// NewBoundary creates an unmounted boundary. A nil placeholder renders a
// blank block as tall as the element.
func NewBoundary(el Element, children, placeholder func() string, opts BoundaryOptions) *Boundary {
	return &Boundary{
		el:          el,
		children:    children,
		placeholder: placeholder,
		opts:        opts,
	}
}

// Mount starts observing the element.
func (b *Boundary) Mount(d VisibilityDetector) {
	if b.sub != nil {
		return
	}
	b.state = Pending
	b.sub = d.Observe(b.el, VisibilityOptions{
		RootMargin: b.opts.RootMargin,
		Threshold:  b.opts.Threshold,
	}, b.handle)
}

// Unmount releases the observation from any state.
func (b *Boundary) Unmount() {
	b.unsubscribe()
	b.state = Unobserved
	b.dropCache()
}

// State returns the current observation state.
func (b *Boundary) State() ObservationState {
	return b.state
}

// Live reports whether children are currently rendered.
func (b *Boundary) Live() bool {
	return b.state == Visible || b.state == Loaded
}

// Element returns the observed element.
func (b *Boundary) Element() Element {
	return b.el
}

// Invalidate drops cached children so the next View rebuilds them.
func (b *Boundary) Invalidate() {
	b.dropCache()
}

// View renders children when live, the placeholder otherwise.
func (b *Boundary) View() string {
	if !b.Live() {
		return b.renderPlaceholder()
	}
	if !b.hasCache {
		b.cached = b.children()
		b.hasCache = true
	}
	return b.cached
}

func (b *Boundary) handle(intersecting bool) tea.Cmd {
	switch b.state {
	case Pending:
		if !intersecting {
			return nil
		}
		b.state = Visible
		cmd := b.fireLoad()
		if b.opts.Once {
			b.unsubscribe()
			b.state = Loaded
		}
		return cmd
	case Visible:
		if intersecting || b.opts.Once {
			return nil
		}
		b.state = Pending
		b.dropCache()
	}
	return nil
}

func (b *Boundary) fireLoad() tea.Cmd {
	if b.loadDone {
		return nil
	}
	b.loadDone = true
	if b.opts.OnLoad == nil {
		return nil
	}
	return b.opts.OnLoad()
}

// rearm lets OnLoad run again on the next intersection. Image uses it when
// the load OnLoad started was cancelled before it finished.
func (b *Boundary) rearm() {
	b.loadDone = false
}

func (b *Boundary) unsubscribe() {
	if b.sub == nil {
		return
	}
	b.sub.Unsubscribe()
	b.sub = nil
}

func (b *Boundary) dropCache() {
	b.cached = ""
	b.hasCache = false
}

func (b *Boundary) renderPlaceholder() string {
	if b.placeholder != nil {
		return b.placeholder()
	}
	h := b.el.Bounds().Height
	if h <= 1 {
		return ""
	}
	return strings.Repeat("\n", h-1)
}
