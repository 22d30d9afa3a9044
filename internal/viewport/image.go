package viewport

import (
	"context"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

// ResourceState is the load lifecycle of a lazily fetched resource.
type ResourceState int

const (
	ResourceIdle ResourceState = iota
	ResourceLoading
	ResourceLoaded
	ResourceErrored
)

func (s ResourceState) String() string {
	switch s {
	case ResourceIdle:
		return "idle"
	case ResourceLoading:
		return "loading"
	case ResourceLoaded:
		return "loaded"
	case ResourceErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// ResourceLoader fetches src and renders it into a width x height cell block.
type ResourceLoader interface {
	Load(ctx context.Context, src string, width, height int) (string, error)
}

// ImageOptions configure an Image.
type ImageOptions struct {
	Src    string
	Alt    string
	Width  int
	Height int

	Placeholder func() string
	OnLoad      func() tea.Cmd
	OnError     func(error) tea.Cmd

	RootMargin Margin
	Threshold  float64
}

// ImageLoadedMsg reports a successful load for the image with ID.
type ImageLoadedMsg struct {
	ID      string
	Attempt int
	Content string
}

// ImageErroredMsg reports a failed load for the image with ID.
type ImageErroredMsg struct {
	ID      string
	Attempt int
	Err     error
}

// ImageFadeMsg advances the fade-in animation of the image with ID.
type ImageFadeMsg struct {
	ID string
}

const fadeFPS = 30

var (
	styleImageDim = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	styleImageErr = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
)

// Image defers fetching a single media resource until its element becomes
// visible. A failed load renders a fixed fallback and is never retried.
type Image struct {
	id       string
	opts     ImageOptions
	loader   ResourceLoader
	boundary *Boundary

	state   ResourceState
	attempt int
	content string
	err     error

	ctx     context.Context
	cancel  context.CancelFunc
	mounted bool

	spring   harmonica.Spring
	opacity  float64
	velocity float64
}

// NewImage creates an unmounted lazy image for el.
func NewImage(el Element, loader ResourceLoader, opts ImageOptions) *Image {
	img := &Image{
		id:      uuid.NewString(),
		opts:    opts,
		loader:  loader,
		spring:  harmonica.NewSpring(harmonica.FPS(fadeFPS), 8.0, 1.0),
		opacity: 1,
	}
	img.boundary = NewBoundary(el, img.renderLive, img.renderPlaceholder, BoundaryOptions{
		RootMargin: opts.RootMargin,
		Threshold:  opts.Threshold,
		Once:       true,
		OnLoad:     img.begin,
	})
	return img
}

// ID identifies this image's messages.
func (img *Image) ID() string { return img.id }

// State returns the resource state.
func (img *Image) State() ResourceState { return img.state }

// Err returns the load error once Errored.
func (img *Image) Err() error { return img.err }

// Opacity is 1 except while a freshly loaded resource fades in.
func (img *Image) Opacity() float64 { return img.opacity }

// Boundary exposes the underlying visibility boundary.
func (img *Image) Boundary() *Boundary { return img.boundary }

// Mount starts observing. The load begins when the element becomes visible.
func (img *Image) Mount(d VisibilityDetector) {
	if img.mounted {
		return
	}
	img.ctx, img.cancel = context.WithCancel(context.Background())
	img.mounted = true
	img.boundary.Mount(d)
}

// Unmount stops observing and cancels an in-flight load. A cancelled load
// returns the image to Idle, so a later Mount fetches it again.
func (img *Image) Unmount() {
	if !img.mounted {
		return
	}
	img.mounted = false
	img.boundary.Unmount()
	img.cancel()
	if img.state == ResourceLoading {
		img.state = ResourceIdle
		img.boundary.rearm()
	}
}

// Update consumes the image's own messages; anything else is ignored.
func (img *Image) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ImageLoadedMsg:
		if !img.current(msg.ID, msg.Attempt) {
			return nil
		}
		img.state = ResourceLoaded
		img.content = msg.Content
		img.opacity, img.velocity = 0, 0
		img.boundary.Invalidate()
		cmds := []tea.Cmd{img.fadeTick()}
		if img.opts.OnLoad != nil {
			cmds = append(cmds, img.opts.OnLoad())
		}
		return tea.Batch(cmds...)

	case ImageErroredMsg:
		if !img.current(msg.ID, msg.Attempt) {
			return nil
		}
		img.state = ResourceErrored
		img.err = msg.Err
		img.boundary.Invalidate()
		if img.opts.OnError != nil {
			return img.opts.OnError(msg.Err)
		}
		return nil

	case ImageFadeMsg:
		if msg.ID != img.id || !img.mounted || img.state != ResourceLoaded || img.opacity >= 1 {
			return nil
		}
		img.opacity, img.velocity = img.spring.Update(img.opacity, img.velocity, 1.0)
		if math.Abs(1-img.opacity) < 0.01 && math.Abs(img.velocity) < 0.01 {
			img.opacity, img.velocity = 1, 0
			img.boundary.Invalidate()
			return nil
		}
		img.boundary.Invalidate()
		return img.fadeTick()
	}
	return nil
}

// View renders the image, its placeholder or its fallback.
func (img *Image) View() string {
	return img.boundary.View()
}

func (img *Image) begin() tea.Cmd {
	if img.state != ResourceIdle {
		return nil
	}
	img.state = ResourceLoading
	img.attempt++
	img.boundary.Invalidate()

	ctx, loader, id, attempt := img.ctx, img.loader, img.id, img.attempt
	src, w, h := img.opts.Src, img.opts.Width, img.opts.Height
	return func() tea.Msg {
		content, err := loader.Load(ctx, src, w, h)
		if err != nil {
			return ImageErroredMsg{ID: id, Attempt: attempt, Err: err}
		}
		return ImageLoadedMsg{ID: id, Attempt: attempt, Content: content}
	}
}

// current reports whether a load result belongs to the load in flight.
// Results of a load cancelled by Unmount carry an older attempt.
func (img *Image) current(id string, attempt int) bool {
	return id == img.id && attempt == img.attempt && img.mounted && img.state == ResourceLoading
}

func (img *Image) fadeTick() tea.Cmd {
	id := img.id
	return tea.Tick(time.Second/fadeFPS, func(time.Time) tea.Msg {
		return ImageFadeMsg{ID: id}
	})
}

func (img *Image) renderLive() string {
	switch img.state {
	case ResourceLoaded:
		if img.opacity < 0.6 {
			return lipgloss.NewStyle().Faint(true).Render(img.content)
		}
		return img.content
	case ResourceErrored:
		return img.place(styleImageErr.Render("✗ " + img.label()))
	default:
		return img.place(styleImageDim.Render("… " + img.label()))
	}
}

func (img *Image) renderPlaceholder() string {
	if img.opts.Placeholder != nil {
		return img.opts.Placeholder()
	}
	return img.place(styleImageDim.Render("▢ " + img.label()))
}

func (img *Image) label() string {
	if img.opts.Alt != "" {
		return img.opts.Alt
	}
	return "image"
}

func (img *Image) place(s string) string {
	w, h := max(1, img.opts.Width), max(1, img.opts.Height)
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, s)
}
