package viewport

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestScrollerClamps(t *testing.T) {
	s := NewScroller()
	s.SetGeometry(100, 20)

	s.ScrollTo(-5)
	assert.Equal(t, 0, s.Top())
	s.ScrollTo(500)
	assert.Equal(t, 80, s.Top())
	s.PageUp()
	assert.Equal(t, 60, s.Top())
	s.Home()
	assert.Equal(t, 0, s.Top())
	s.PageDown()
	assert.Equal(t, 20, s.Top())
	s.End()
	assert.Equal(t, 80, s.Top())

	// Shrinking content pulls the offset back.
	s.SetGeometry(50, 20)
	assert.Equal(t, 30, s.Top())

	s.SetGeometry(10, 20)
	assert.Equal(t, 0, s.MaxTop())
	assert.Equal(t, 0, s.Top())
}

func TestScrollerPublishesOnlyOnMove(t *testing.T) {
	s := NewScroller()
	s.SetGeometry(100, 10)

	var events []ScrollEvent
	sub := s.SubscribeScroll(func(ev ScrollEvent) tea.Cmd {
		events = append(events, ev)
		return nil
	})

	s.ScrollBy(3)
	s.ScrollBy(0)
	s.ScrollTo(3)
	s.ScrollBy(-10)
	s.ScrollBy(-1)

	assert.Equal(t, []ScrollEvent{
		{ScrollTop: 3, ScrollHeight: 100, ClientHeight: 10},
		{ScrollTop: 0, ScrollHeight: 100, ClientHeight: 10},
	}, events)

	s.Notify()
	assert.Len(t, events, 3)

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, s.Subscribers())
	s.ScrollBy(5)
	assert.Len(t, events, 3)
}

func TestScrollerUnsubscribeDuringPublish(t *testing.T) {
	s := NewScroller()
	s.SetGeometry(100, 10)

	var calls int
	var first Subscription
	first = s.SubscribeScroll(func(ScrollEvent) tea.Cmd {
		calls++
		first.Unsubscribe()
		return nil
	})
	s.SubscribeScroll(func(ScrollEvent) tea.Cmd {
		calls++
		return nil
	})

	s.ScrollBy(1)
	s.ScrollBy(1)

	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, s.Subscribers())
}
