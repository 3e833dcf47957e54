// Package canvas is an in-memory drawing surface for image sequences and
// the viewport geometry it is sized from.
package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"seehuhn.de/go/geom/rect"
)

// Canvas is an RGBA backing surface. Frames are drawn cover-fit over a
// background colour. All methods are safe for concurrent use.
type Canvas struct {
	scaler     draw.Scaler
	background color.Color

	mu  sync.RWMutex
	img *image.RGBA
}

// Options configures a Canvas.
type Options struct {
	// Background is a hex colour such as "#000000". Defaults to black.
	Background string
	// Scaler defaults to draw.ApproxBiLinear.
	Scaler draw.Scaler
}

// New returns a width x height canvas filled with the background colour.
func New(width, height int, opts Options) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas size %dx%d: dimensions must be positive", width, height)
	}
	bg := color.Color(color.Black)
	if opts.Background != "" {
		c, err := colorful.Hex(opts.Background)
		if err != nil {
			return nil, fmt.Errorf("canvas background %q: %w", opts.Background, err)
		}
		r, g, b := c.Clamped().RGB255()
		bg = color.RGBA{R: r, G: g, B: b, A: 0xff}
	}
	scaler := opts.Scaler
	if scaler == nil {
		scaler = draw.ApproxBiLinear
	}

	c := &Canvas{scaler: scaler, background: bg}
	c.img = c.blank(width, height)
	return c, nil
}

func (c *Canvas) blank(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(c.background), image.Point{}, draw.Src)
	return img
}

// DrawCoverFit clears dst and draws img scaled to cover it. Overflow
// outside dst is clipped.
func (c *Canvas) DrawCoverFit(img image.Image, dst rect.Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	clip := pixelRect(dst).Intersect(c.img.Bounds())
	if clip.Empty() {
		return
	}
	region := c.img.SubImage(clip).(*image.RGBA)
	draw.Draw(region, clip, image.NewUniform(c.background), image.Point{}, draw.Src)

	sb := img.Bounds()
	cover := pixelRect(CoverFit(float64(sb.Dx()), float64(sb.Dy()), dst))
	c.scaler.Scale(region, cover, img, sb, draw.Over, nil)
}

// Resize replaces the surface with a blank width x height one.
func (c *Canvas) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("canvas size %dx%d: dimensions must be positive", width, height)
	}
	c.mu.Lock()
	c.img = c.blank(width, height)
	c.mu.Unlock()
	return nil
}

// Bounds returns the surface bounds.
func (c *Canvas) Bounds() image.Rectangle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.img.Bounds()
}

// Snapshot returns a copy of the surface.
func (c *Canvas) Snapshot() *image.RGBA {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := image.NewRGBA(c.img.Bounds())
	copy(out.Pix, c.img.Pix)
	return out
}

// WritePNG encodes the surface as PNG.
func (c *Canvas) WritePNG(w io.Writer) error {
	return png.Encode(w, c.Snapshot())
}
