package viewport

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntersecting(t *testing.T) {
	vp := Rect{X: 0, Y: 100, Width: 80, Height: 20}

	tests := []struct {
		name   string
		bounds Rect
		opts   VisibilityOptions
		want   bool
	}{
		{"fully inside", Rect{0, 105, 80, 3}, VisibilityOptions{}, true},
		{"above", Rect{0, 90, 80, 5}, VisibilityOptions{}, false},
		{"below", Rect{0, 125, 80, 5}, VisibilityOptions{}, false},
		{"touching bottom edge", Rect{0, 120, 80, 5}, VisibilityOptions{}, false},
		{"one row overlap", Rect{0, 119, 80, 5}, VisibilityOptions{}, true},
		{"margin pulls in below", Rect{0, 121, 80, 5}, VisibilityOptions{RootMargin: VerticalMargin(2)}, true},
		{"margin pulls in above", Rect{0, 93, 80, 5}, VisibilityOptions{RootMargin: VerticalMargin(3)}, true},
		{"threshold not met", Rect{0, 118, 80, 4}, VisibilityOptions{Threshold: 0.75}, false},
		{"threshold met", Rect{0, 117, 80, 4}, VisibilityOptions{Threshold: 0.75}, true},
		{"full threshold", Rect{0, 100, 80, 20}, VisibilityOptions{Threshold: 1}, true},
		{"zero size inside", Rect{10, 110, 0, 0}, VisibilityOptions{}, true},
		{"zero size outside", Rect{10, 130, 0, 0}, VisibilityOptions{}, false},
		{"horizontally outside", Rect{90, 105, 10, 2}, VisibilityOptions{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Intersecting(vp, tt.bounds, tt.opts))
		})
	}
}

type recorder struct {
	calls []bool
}

func (r *recorder) handle(in bool) tea.Cmd {
	r.calls = append(r.calls, in)
	return nil
}

func TestGeometryDetectorNotifiesOnChangeOnly(t *testing.T) {
	d := NewGeometryDetector()
	box := NewBox(Rect{Y: 30, Width: 10, Height: 2})
	var rec recorder

	d.Observe(box, VisibilityOptions{}, rec.handle)
	assert.Empty(t, rec.calls, "observe never notifies synchronously")

	d.Evaluate(Rect{Y: 0, Width: 80, Height: 10})
	d.Evaluate(Rect{Y: 1, Width: 80, Height: 10})
	d.Evaluate(Rect{Y: 25, Width: 80, Height: 10})
	d.Evaluate(Rect{Y: 26, Width: 80, Height: 10})
	d.Evaluate(Rect{Y: 50, Width: 80, Height: 10})

	assert.Equal(t, []bool{false, true, false}, rec.calls)
}

func TestGeometryDetectorRefresh(t *testing.T) {
	d := NewGeometryDetector()
	box := NewBox(Rect{Y: 30, Width: 10, Height: 2})
	var rec recorder
	d.Observe(box, VisibilityOptions{}, rec.handle)

	assert.Nil(t, d.Refresh(), "no viewport yet")
	assert.Empty(t, rec.calls)

	d.Evaluate(Rect{Width: 80, Height: 10})
	box.SetBounds(Rect{Y: 4, Width: 10, Height: 2})
	d.Refresh()

	assert.Equal(t, []bool{false, true}, rec.calls)
}

func TestGeometryDetectorOrderAndUnsubscribe(t *testing.T) {
	d := NewGeometryDetector()
	var order []string
	var second Subscription

	d.Observe(NewBox(Rect{Width: 1, Height: 1}), VisibilityOptions{}, func(bool) tea.Cmd {
		order = append(order, "a")
		second.Unsubscribe()
		return nil
	})
	second = d.Observe(NewBox(Rect{Width: 1, Height: 1}), VisibilityOptions{}, func(bool) tea.Cmd {
		order = append(order, "b")
		return nil
	})
	d.Observe(NewBox(Rect{Width: 1, Height: 1}), VisibilityOptions{}, func(bool) tea.Cmd {
		order = append(order, "c")
		return nil
	})

	d.Evaluate(Rect{Width: 10, Height: 10})

	assert.Equal(t, []string{"a", "c"}, order)
	assert.Equal(t, 2, d.ActiveSubscriptions())

	second.Unsubscribe()
	assert.Equal(t, 2, d.ActiveSubscriptions(), "second unsubscribe is a no-op")
}

func TestGeometryDetectorBatchesCommands(t *testing.T) {
	d := NewGeometryDetector()
	msg := func() tea.Msg { return "loaded" }
	d.Observe(NewBox(Rect{Width: 1, Height: 1}), VisibilityOptions{}, func(bool) tea.Cmd { return msg })
	d.Observe(NewBox(Rect{Width: 1, Height: 1}), VisibilityOptions{}, func(bool) tea.Cmd { return nil })

	cmd := d.Evaluate(Rect{Width: 10, Height: 10})
	require.NotNil(t, cmd)
	assert.Equal(t, "loaded", cmd())

	assert.Nil(t, d.Evaluate(Rect{Width: 10, Height: 10}), "nothing changed")
}

func TestRectIntersect(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}

	assert.Equal(t, Rect{X: 5, Y: 5, Width: 5, Height: 5}, a.Intersect(Rect{X: 5, Y: 5, Width: 10, Height: 10}))
	assert.True(t, a.Intersect(Rect{X: 20, Y: 20, Width: 5, Height: 5}).Empty())
	assert.Equal(t, 0, Rect{Width: -1, Height: 4}.Area())
	assert.Equal(t, Rect{X: -1, Y: -2, Width: 12, Height: 14}, a.Grow(Margin{Top: 2, Right: 1, Bottom: 2, Left: 1}))
}
