package viewport

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	// DefaultOverscan is the number of items rendered beyond each edge.
	DefaultOverscan = 5
	// DefaultLoadMoreThreshold is the distance from the bottom, in the
	// list's height unit, at which OnLoadMore fires.
	DefaultLoadMoreThreshold = 100
)

var (
	styleScrollTrack = lipgloss.NewStyle().Foreground(lipgloss.Color("#374151"))
	styleScrollThumb = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	styleEmptyState  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
)

// VirtualList renders only the window of items its scroll position reaches.
// Items all share one height. The list never copies or mutates items.
type VirtualList[T any] struct {
	items      []T
	itemHeight int
	height     int
	width      int
	renderItem func(item T, index int) string

	overscan          int
	loadMoreThreshold int
	onLoadMore        func() tea.Cmd
	loading           bool
	loadGuard         bool
	emptyState        string
	scrollbar         bool

	scrollTop int
	window    Window
	rendered  int
	sub       Subscription
}

// NewVirtualList creates a list whose items are itemHeight rows tall, shown
// through a viewport height rows tall.
func NewVirtualList[T any](itemHeight, height int, renderItem func(item T, index int) string) *VirtualList[T] {
	l := &VirtualList[T]{
		itemHeight:        itemHeight,
		height:            height,
		renderItem:        renderItem,
		overscan:          DefaultOverscan,
		loadMoreThreshold: DefaultLoadMoreThreshold,
		scrollbar:         true,
	}
	l.recompute()
	return l
}

// Mount subscribes to scroll events from src.
func (l *VirtualList[T]) Mount(src ScrollSource) {
	if l.sub != nil {
		return
	}
	l.sub = src.SubscribeScroll(l.HandleScroll)
}

// Unmount releases the scroll subscription.
func (l *VirtualList[T]) Unmount() {
	if l.sub == nil {
		return
	}
	l.sub.Unsubscribe()
	l.sub = nil
}

// Mounted reports whether the list holds a scroll subscription.
func (l *VirtualList[T]) Mounted() bool {
	return l.sub != nil
}

// SetItems replaces the item sequence.
func (l *VirtualList[T]) SetItems(items []T) {
	l.items = items
	l.recompute()
}

// Items returns the current sequence.
func (l *VirtualList[T]) Items() []T {
	return l.items
}

// Len returns the item count.
func (l *VirtualList[T]) Len() int {
	return len(l.items)
}

// SetSize sets the viewport height and the render width. A zero width
// leaves lines unpadded.
func (l *VirtualList[T]) SetSize(width, height int) {
	l.width = max(0, width)
	l.height = max(0, height)
	l.recompute()
}

// SetOverscan sets the items rendered beyond each viewport edge.
func (l *VirtualList[T]) SetOverscan(n int) {
	l.overscan = max(0, n)
	l.recompute()
}

// SetLoadMoreThreshold sets the trigger distance from the bottom.
func (l *VirtualList[T]) SetLoadMoreThreshold(n int) {
	l.loadMoreThreshold = max(0, n)
}

// SetOnLoadMore installs the infinite-load callback. The list sets its load
// guard before calling fn and only SetLoading going from true to false
// releases it. A callback that declines to start a load leaves the guard
// held, and OnLoadMore stays silent until the caller toggles SetLoading.
func (l *VirtualList[T]) SetOnLoadMore(fn func() tea.Cmd) {
	l.onLoadMore = fn
}

// SetLoading tells the list whether the caller has a load in flight. The
// transition from true to false releases the load guard.
func (l *VirtualList[T]) SetLoading(loading bool) {
	if l.loading && !loading {
		l.loadGuard = false
	}
	l.loading = loading
}

// Loading reports the caller's loading flag.
func (l *VirtualList[T]) Loading() bool {
	return l.loading
}

// LoadGuarded reports whether a load-more request is outstanding.
func (l *VirtualList[T]) LoadGuarded() bool {
	return l.loadGuard
}

// SetEmptyState sets what renders when there are no items.
func (l *VirtualList[T]) SetEmptyState(s string) {
	l.emptyState = s
}

// SetScrollbar toggles the scrollbar column.
func (l *VirtualList[T]) SetScrollbar(on bool) {
	l.scrollbar = on
}

// ScrollTop returns the last scroll offset received.
func (l *VirtualList[T]) ScrollTop() int {
	return l.scrollTop
}

// Window returns the current render window.
func (l *VirtualList[T]) Window() Window {
	return l.window
}

// TotalHeight is the full scrollable extent, for sizing the scroll source.
func (l *VirtualList[T]) TotalHeight() int {
	return len(l.items) * max(0, l.itemHeight)
}

// Height returns the viewport height.
func (l *VirtualList[T]) Height() int {
	return l.height
}

// RenderCount is the number of items built by the last View.
func (l *VirtualList[T]) RenderCount() int {
	return l.rendered
}

// IndexAt maps a viewport row to an item index, or -1.
func (l *VirtualList[T]) IndexAt(row int) int {
	if l.itemHeight <= 0 || row < 0 || row >= l.height {
		return -1
	}
	i := (l.scrollTop + row) / l.itemHeight
	if i >= len(l.items) {
		return -1
	}
	return i
}

// HandleScroll records a scroll position and fires OnLoadMore when the
// viewport nears the end of the content.
func (l *VirtualList[T]) HandleScroll(ev ScrollEvent) tea.Cmd {
	l.scrollTop = max(0, ev.ScrollTop)
	l.recompute()

	if l.onLoadMore == nil || l.loadGuard || len(l.items) == 0 {
		return nil
	}
	if ev.ScrollTop+ev.ClientHeight < ev.ScrollHeight-l.loadMoreThreshold {
		return nil
	}
	l.loadGuard = true
	return l.onLoadMore()
}

// View renders the visible window clipped to the viewport.
func (l *VirtualList[T]) View() string {
	if len(l.items) == 0 || l.itemHeight <= 0 {
		l.rendered = 0
		return l.renderEmpty()
	}

	w := l.window
	lines := make([]string, 0, w.Range.Len()*l.itemHeight)
	for i := w.Range.Start; i <= w.Range.End; i++ {
		lines = append(lines, l.itemLines(i)...)
	}
	l.rendered = w.Range.Len()

	from := min(max(0, l.scrollTop-w.OffsetY), len(lines))
	to := min(from+l.height, len(lines))
	visible := lines[from:to]
	for len(visible) < l.height {
		visible = append(visible, "")
	}

	if l.width > 0 {
		for i, line := range visible {
			visible[i] = FitLine(line, l.contentWidth())
		}
	}
	if l.scrollbar && w.TotalHeight > l.height && l.height > 0 {
		bar := l.renderScrollbar(w.TotalHeight)
		for i := range visible {
			visible[i] += bar[i]
		}
	}
	return strings.Join(visible, "\n")
}

// FitLine truncates or pads s to exactly width cells.
func FitLine(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = ansi.Truncate(s, width, "")
	if w := ansi.StringWidth(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

func (l *VirtualList[T]) recompute() {
	l.window = ComputeWindow(l.scrollTop, l.itemHeight, l.height, len(l.items), l.overscan)
}

func (l *VirtualList[T]) itemLines(i int) []string {
	out := strings.Split(l.renderItem(l.items[i], i), "\n")
	if len(out) > l.itemHeight {
		out = out[:l.itemHeight]
	}
	for len(out) < l.itemHeight {
		out = append(out, "")
	}
	return out
}

func (l *VirtualList[T]) contentWidth() int {
	if l.scrollbar {
		return max(1, l.width-1)
	}
	return l.width
}

func (l *VirtualList[T]) renderScrollbar(total int) []string {
	h := l.height
	thumb := max(1, h*h/total)
	maxTop := max(1, total-h)
	pos := min(h-thumb, (h-thumb)*min(l.scrollTop, maxTop)/maxTop)

	bar := make([]string, h)
	for i := range bar {
		if i >= pos && i < pos+thumb {
			bar[i] = styleScrollThumb.Render("┃")
		} else {
			bar[i] = styleScrollTrack.Render("│")
		}
	}
	return bar
}

func (l *VirtualList[T]) renderEmpty() string {
	msg := l.emptyState
	if msg == "" {
		msg = styleEmptyState.Render("No items")
	}
	if l.width > 0 && l.height > 0 {
		return lipgloss.Place(l.width, l.height, lipgloss.Center, lipgloss.Center, msg)
	}
	return msg
}
