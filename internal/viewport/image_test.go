package viewport

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	calls   int
	lastCtx context.Context
	content string
	err     error
}

func (f *fakeLoader) Load(ctx context.Context, src string, width, height int) (string, error) {
	f.calls++
	f.lastCtx = ctx
	if f.err != nil {
		return "", f.err
	}
	return f.content + ":" + src, nil
}

var (
	offscreen = Rect{Y: 0, Width: 80, Height: 10}
	onscreen  = Rect{Y: 50, Width: 80, Height: 10}
)

func newTestImage(loader ResourceLoader, opts ImageOptions) (*Image, *GeometryDetector) {
	if opts.Width == 0 {
		opts.Width, opts.Height = 12, 3
	}
	d := NewGeometryDetector()
	img := NewImage(NewBox(Rect{Y: 52, Width: opts.Width, Height: opts.Height}), loader, opts)
	img.Mount(d)
	return img, d
}

func TestImageLoadsWhenVisible(t *testing.T) {
	loader := &fakeLoader{content: "pixels"}
	loaded := 0
	img, d := newTestImage(loader, ImageOptions{
		Src: "cover.png",
		Alt: "Cover",
		OnLoad: func() tea.Cmd {
			loaded++
			return nil
		},
	})

	assert.Nil(t, d.Evaluate(offscreen))
	assert.Equal(t, ResourceIdle, img.State())
	assert.Contains(t, img.View(), "▢ Cover")
	assert.Equal(t, 0, loader.calls)

	cmd := d.Evaluate(onscreen)
	require.NotNil(t, cmd)
	assert.Equal(t, ResourceLoading, img.State())
	assert.Contains(t, img.View(), "… Cover")

	msg := cmd()
	require.IsType(t, ImageLoadedMsg{}, msg)
	assert.Equal(t, 1, loader.calls)

	require.NotNil(t, img.Update(msg))
	assert.Equal(t, ResourceLoaded, img.State())
	assert.Equal(t, 1, loaded)
	assert.Equal(t, 0.0, img.Opacity())
	assert.Contains(t, img.View(), "pixels:cover.png")
}

func TestImageFadeCompletes(t *testing.T) {
	img, d := newTestImage(&fakeLoader{content: "px"}, ImageOptions{Src: "a"})
	img.Update(d.Evaluate(onscreen)())

	steps := 0
	for img.Opacity() < 1 && steps < 300 {
		img.Update(ImageFadeMsg{ID: img.ID()})
		steps++
	}
	assert.Equal(t, 1.0, img.Opacity())
	assert.Less(t, steps, 300)
	assert.Nil(t, img.Update(ImageFadeMsg{ID: img.ID()}), "no ticks after the fade settles")
	assert.Equal(t, "px:a", img.View())
}

func TestImageErrorIsTerminal(t *testing.T) {
	loader := &fakeLoader{err: errors.New("404")}
	var gotErr error
	img, d := newTestImage(loader, ImageOptions{
		Src: "missing.png",
		Alt: "Missing",
		OnError: func(err error) tea.Cmd {
			gotErr = err
			return nil
		},
	})

	msg := d.Evaluate(onscreen)()
	require.IsType(t, ImageErroredMsg{}, msg)
	img.Update(msg)

	assert.Equal(t, ResourceErrored, img.State())
	assert.EqualError(t, gotErr, "404")
	assert.EqualError(t, img.Err(), "404")
	assert.Contains(t, img.View(), "✗ Missing")

	// Scrolling away and back never retries.
	assert.Nil(t, d.Evaluate(offscreen))
	assert.Nil(t, d.Evaluate(onscreen))
	assert.Equal(t, 1, loader.calls)
	assert.Equal(t, ResourceErrored, img.State())
}

func TestImageIgnoresForeignAndStaleMessages(t *testing.T) {
	img, d := newTestImage(&fakeLoader{content: "px"}, ImageOptions{Src: "a"})

	assert.Nil(t, img.Update(ImageLoadedMsg{ID: img.ID(), Content: "early"}), "not loading yet")
	assert.Equal(t, ResourceIdle, img.State())

	cmd := d.Evaluate(onscreen)
	assert.Nil(t, img.Update(ImageLoadedMsg{ID: "someone-else", Content: "x"}))
	assert.Equal(t, ResourceLoading, img.State())

	img.Update(cmd())
	assert.Equal(t, ResourceLoaded, img.State())

	assert.Nil(t, img.Update(ImageErroredMsg{ID: img.ID(), Err: errors.New("late")}))
	assert.Equal(t, ResourceLoaded, img.State())
	assert.Nil(t, img.Err())
}

func TestImageUnmountCancelsLoad(t *testing.T) {
	loader := &fakeLoader{content: "px"}
	img, d := newTestImage(loader, ImageOptions{Src: "a"})

	cmd := d.Evaluate(onscreen)
	msg := cmd()
	require.NotNil(t, loader.lastCtx)
	assert.NoError(t, loader.lastCtx.Err())

	img.Unmount()
	assert.ErrorIs(t, loader.lastCtx.Err(), context.Canceled)
	assert.Equal(t, 0, d.ActiveSubscriptions())

	assert.Nil(t, img.Update(msg), "results after unmount are dropped")
	assert.Equal(t, ResourceIdle, img.State())
}

func TestImageRemountRestartsCancelledLoad(t *testing.T) {
	loader := &fakeLoader{content: "px"}
	loaded := 0
	img, d := newTestImage(loader, ImageOptions{
		Src: "a",
		OnLoad: func() tea.Cmd {
			loaded++
			return nil
		},
	})

	stale := d.Evaluate(onscreen)()
	img.Unmount()
	assert.Nil(t, img.Update(stale))

	img.Mount(d)
	assert.Nil(t, d.Evaluate(offscreen))
	assert.Equal(t, ResourceIdle, img.State())

	cmd := d.Evaluate(onscreen)
	require.NotNil(t, cmd, "a remounted image loads again")
	assert.Equal(t, ResourceLoading, img.State())

	// The result of the cancelled attempt does not settle the new one.
	assert.Nil(t, img.Update(stale))
	assert.Equal(t, ResourceLoading, img.State())

	img.Update(cmd())
	assert.Equal(t, 2, loader.calls)
	assert.Equal(t, ResourceLoaded, img.State())
	assert.Equal(t, 1, loaded)
	assert.NoError(t, loader.lastCtx.Err())
}

func TestImageHidingDoesNotCancel(t *testing.T) {
	loader := &fakeLoader{content: "px"}
	img, d := newTestImage(loader, ImageOptions{Src: "a"})

	cmd := d.Evaluate(onscreen)
	d.Evaluate(offscreen)
	img.Update(cmd())

	assert.NoError(t, loader.lastCtx.Err())
	assert.Equal(t, ResourceLoaded, img.State())
}

func TestImageCustomPlaceholder(t *testing.T) {
	img, _ := newTestImage(&fakeLoader{}, ImageOptions{
		Placeholder: func() string { return strings.Repeat("░", 4) },
	})
	assert.Equal(t, "░░░░", img.View())
	assert.Equal(t, "idle", img.State().String())
}
