// Package viewport is the rendering engine behind every scrolling surface of
// the console: a windowed-list virtualizer and a visibility-triggered lazy
// render primitive. Both decide, from a stream of viewport geometry events,
// which logical items currently deserve a live render.
//
// All types in this package are owned by the Bubble Tea update goroutine.
// Nothing here blocks; I/O is handed back to the program as tea.Cmd values.
package viewport

// VisibleRange is an inclusive, 0-based index range. Start > End means the
// range is empty (the canonical empty value is {0, -1}).
type VisibleRange struct {
	Start int
	End   int
}

// EmptyRange is returned for zero items or degenerate item heights.
var EmptyRange = VisibleRange{Start: 0, End: -1}

// Empty reports whether the range selects no items.
func (r VisibleRange) Empty() bool {
	return r.Start > r.End
}

// Len returns the number of indexes in the range.
func (r VisibleRange) Len() int {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether index i falls inside the range.
func (r VisibleRange) Contains(i int) bool {
	return !r.Empty() && i >= r.Start && i <= r.End
}

// Window is a VisibleRange plus the geometry a caller needs to place it.
type Window struct {
	Range VisibleRange

	// FirstVisible and LastVisible bound the items actually inside the
	// viewport, before overscan.
	FirstVisible int
	LastVisible  int

	// TotalHeight is the full scrollable extent of the list.
	TotalHeight int
	// OffsetY is where the rendered window starts in content coordinates.
	OffsetY int
}

// ComputeVisibleRange maps a scroll position to the range of item indexes
// that should be rendered, overscan included.
func ComputeVisibleRange(scrollTop, itemHeight, viewportHeight, itemCount, overscan int) VisibleRange {
	return ComputeWindow(scrollTop, itemHeight, viewportHeight, itemCount, overscan).Range
}

// ComputeWindow is ComputeVisibleRange with the derived geometry attached.
// It is pure and cheap enough to call on every scroll tick.
func ComputeWindow(scrollTop, itemHeight, viewportHeight, itemCount, overscan int) Window {
	if itemCount <= 0 || itemHeight <= 0 {
		return Window{Range: EmptyRange, FirstVisible: 0, LastVisible: -1}
	}
	scrollTop = max(0, scrollTop)
	viewportHeight = max(0, viewportHeight)
	overscan = max(0, overscan)

	last := itemCount - 1
	firstVisible := min(last, scrollTop/itemHeight)
	perViewport := (viewportHeight + itemHeight - 1) / itemHeight
	lastVisible := min(last, firstVisible+perViewport)

	start := max(0, firstVisible-overscan)
	end := min(last, lastVisible+overscan)

	return Window{
		Range:        VisibleRange{Start: start, End: end},
		FirstVisible: firstVisible,
		LastVisible:  lastVisible,
		TotalHeight:  itemCount * itemHeight,
		OffsetY:      start * itemHeight,
	}
}
