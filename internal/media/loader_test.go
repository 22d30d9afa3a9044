package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// inflatedPNG is a valid one pixel PNG whose header claims w x h.
func inflatedPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	// Signature, IHDR length and type precede width and height.
	binary.BigEndian.PutUint32(data[16:20], uint32(w))
	binary.BigEndian.PutUint32(data[20:24], uint32(h))
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	data := pngBytes(t, 16, 16)
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.png", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	})
	mux.HandleFunc("/huge.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(inflatedPNG(t, 20000, 20000))
	})
	mux.HandleFunc("/text", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello, not an image"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPLoaderLoad(t *testing.T) {
	srv := newTestServer(t)
	l := NewHTTPLoader("secret", 5*time.Second, zerolog.Nop())

	out, err := l.Load(context.Background(), srv.URL+"/ok.png", 8, 3)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.Equal(t, 8, ansi.StringWidth(line))
		assert.Equal(t, strings.Repeat("▀", 8), ansi.Strip(line))
	}
}

func TestHTTPLoaderErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name    string
		token   string
		path    string
		wantErr string
	}{
		{"missing", "secret", "/missing.png", "404"},
		{"unauthorized", "", "/ok.png", "401"},
		{"not an image", "secret", "/text", "unsupported image format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewHTTPLoader(tt.token, 5*time.Second, zerolog.Nop())
			_, err := l.Load(context.Background(), srv.URL+tt.path, 4, 2)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHTTPLoaderUnsupportedIsSentinel(t *testing.T) {
	srv := newTestServer(t)
	l := NewHTTPLoader("", 5*time.Second, zerolog.Nop())

	_, err := l.Load(context.Background(), srv.URL+"/text", 4, 2)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestHTTPLoaderRejectsOversizedCanvas(t *testing.T) {
	srv := newTestServer(t)
	l := NewHTTPLoader("", 5*time.Second, zerolog.Nop())

	_, err := l.Load(context.Background(), srv.URL+"/huge.png", 4, 2)
	require.ErrorIs(t, err, ErrTooLarge)
	assert.Contains(t, err.Error(), "20000x20000")
	assert.NotErrorIs(t, err, ErrUnsupported)
}

func TestHTTPLoaderHonoursContext(t *testing.T) {
	srv := newTestServer(t)
	l := NewHTTPLoader("secret", 5*time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Load(ctx, srv.URL+"/ok.png", 4, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderDegenerate(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	assert.Equal(t, "", Render(img, 0, 3))
	assert.Equal(t, "", Render(img, 3, 0))
}
