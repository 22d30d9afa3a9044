package viewport

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ScrollEvent is what a scroll container reports after its position moves.
type ScrollEvent struct {
	ScrollTop    int
	ScrollHeight int
	ClientHeight int
}

// ScrollHandler consumes scroll events.
type ScrollHandler func(ScrollEvent) tea.Cmd

// ScrollSource delivers scroll events for one scroll container.
type ScrollSource interface {
	SubscribeScroll(fn ScrollHandler) Subscription
}

type scrollSub struct {
	fn     ScrollHandler
	closed bool
	owner  *Scroller
}

func (s *scrollSub) Unsubscribe() {
	if s.closed {
		return
	}
	s.closed = true
	s.owner.remove(s)
}

// Scroller is a row-based scroll container. It clamps its offset to the
// content and publishes a ScrollEvent to subscribers whenever the offset
// actually changes.
type Scroller struct {
	top           int
	contentHeight int
	clientHeight  int
	subs          []*scrollSub
}

// NewScroller creates an empty scroll container.
func NewScroller() *Scroller {
	return &Scroller{}
}

// SubscribeScroll implements ScrollSource.
func (s *Scroller) SubscribeScroll(fn ScrollHandler) Subscription {
	sub := &scrollSub{fn: fn, owner: s}
	s.subs = append(s.subs, sub)
	return sub
}

// Subscribers returns the number of open scroll subscriptions.
func (s *Scroller) Subscribers() int {
	return len(s.subs)
}

// SetGeometry updates content and client heights. If that forces the offset
// back into range, subscribers are notified.
func (s *Scroller) SetGeometry(contentHeight, clientHeight int) tea.Cmd {
	s.contentHeight = max(0, contentHeight)
	s.clientHeight = max(0, clientHeight)
	return s.ScrollTo(s.top)
}

// MaxTop returns the largest valid offset.
func (s *Scroller) MaxTop() int {
	return max(0, s.contentHeight-s.clientHeight)
}

// Top returns the current offset.
func (s *Scroller) Top() int { return s.top }

// Event returns the current geometry as a ScrollEvent.
func (s *Scroller) Event() ScrollEvent {
	return ScrollEvent{
		ScrollTop:    s.top,
		ScrollHeight: s.contentHeight,
		ClientHeight: s.clientHeight,
	}
}

// ScrollTo moves to an absolute offset.
func (s *Scroller) ScrollTo(top int) tea.Cmd {
	top = min(max(0, top), s.MaxTop())
	if top == s.top {
		return nil
	}
	s.top = top
	return s.publish()
}

// ScrollBy moves by delta rows.
func (s *Scroller) ScrollBy(delta int) tea.Cmd {
	return s.ScrollTo(s.top + delta)
}

// PageDown scrolls one client height down.
func (s *Scroller) PageDown() tea.Cmd { return s.ScrollBy(max(1, s.clientHeight)) }

// PageUp scrolls one client height up.
func (s *Scroller) PageUp() tea.Cmd { return s.ScrollBy(-max(1, s.clientHeight)) }

// Home scrolls to the top.
func (s *Scroller) Home() tea.Cmd { return s.ScrollTo(0) }

// End scrolls to the bottom.
func (s *Scroller) End() tea.Cmd { return s.ScrollTo(s.MaxTop()) }

// Notify publishes the current position without moving, e.g. so a freshly
// mounted list can take its initial window.
func (s *Scroller) Notify() tea.Cmd {
	return s.publish()
}

func (s *Scroller) publish() tea.Cmd {
	ev := s.Event()
	snapshot := append([]*scrollSub(nil), s.subs...)
	var cmds []tea.Cmd
	for _, sub := range snapshot {
		if sub.closed {
			continue
		}
		if cmd := sub.fn(ev); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

func (s *Scroller) remove(sub *scrollSub) {
	for i, cur := range s.subs {
		if cur == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}
