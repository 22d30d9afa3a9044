package mockapi

import (
	"bytes"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

const (
	coverWidth  = 96
	coverHeight = 64
)

// CoverPNG draws a cover for name. The palette is derived from the name so a
// given scenario always gets the same picture.
func CoverPNG(name string) ([]byte, error) {
	h := fnv.New32a()
	h.Write([]byte(name))
	seed := h.Sum32()

	base := color.RGBA{R: uint8(seed), G: uint8(seed >> 8), B: uint8(seed >> 16), A: 0xff}
	accent := color.RGBA{R: 0xff - base.R, G: 0xff - base.G, B: 0xff - base.B, A: 0xff}

	// A coarse 4x3 grid upscaled with nearest neighbour gives crisp blocks
	// that survive the half-block renderer.
	small := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			if (seed>>(y*4+x+20))&1 == 1 {
				small.SetRGBA(x, y, accent)
			} else {
				small.SetRGBA(x, y, shade(base, x+y))
			}
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, coverWidth, coverHeight))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), small, small.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func shade(c color.RGBA, step int) color.RGBA {
	f := func(v uint8) uint8 { return uint8(int(v) * (8 - step) / 8) }
	return color.RGBA{R: f(c.R), G: f(c.G), B: f(c.B), A: c.A}
}
