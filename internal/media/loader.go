// Package media turns remote images into terminal cell blocks.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	// ErrUnsupported is returned for bodies that are not a decodable image.
	ErrUnsupported = errors.New("unsupported image format")
	// ErrTooLarge is returned for images declaring more than maxPixels.
	ErrTooLarge = errors.New("image dimensions too large")
)

const (
	maxBody   = 8 << 20
	maxPixels = 4096 * 4096
)

// HTTPLoader fetches images over HTTP and renders them with half-block
// characters, two pixels per cell.
type HTTPLoader struct {
	token  string
	client *http.Client
	log    zerolog.Logger
}

// NewHTTPLoader creates a loader. token, if set, is sent as a bearer token.
func NewHTTPLoader(token string, timeout time.Duration, log zerolog.Logger) *HTTPLoader {
	return &HTTPLoader{
		token:  token,
		client: &http.Client{Timeout: timeout},
		log:    log.With().Str("component", "media").Logger(),
	}
}

// Load implements viewport.ResourceLoader.
func (l *HTTPLoader) Load(ctx context.Context, src string, width, height int) (string, error) {
	img, err := l.fetch(ctx, src)
	if err != nil {
		l.log.Debug().Err(err).Str("src", src).Msg("image load failed")
		return "", err
	}
	return Render(img, width, height), nil
}

func (l *HTTPLoader) fetch(ctx context.Context, src string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("GET %s: %d %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// The declared canvas is checked before decoding allocates for it.
	body := io.LimitReader(resp.Body, maxBody)
	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(body, &head))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(io.MultiReader(&head, body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return img, nil
}

// Render scales img to width x 2*height pixels and draws it as width x
// height cells. Each cell shows the upper pixel as foreground and the lower
// pixel as background.
func Render(img image.Image, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height*2))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var b strings.Builder
	for row := 0; row < height; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < width; x++ {
			top := dst.RGBAAt(x, row*2)
			bottom := dst.RGBAAt(x, row*2+1)
			b.WriteString(lipgloss.NewStyle().
				Foreground(hex(top)).
				Background(hex(bottom)).
				Render("▀"))
		}
	}
	return b.String()
}

func hex(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
