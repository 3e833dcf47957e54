package canvas

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"seehuhn.de/go/geom/rect"
)

func TestCoverFit(t *testing.T) {
	dst := rect.Rect{URx: 100, URy: 100}

	cases := []struct {
		name       string
		srcW, srcH float64
		want       rect.Rect
	}{
		{"same aspect", 50, 50, rect.Rect{URx: 100, URy: 100}},
		{"wide source overflows horizontally", 200, 100, rect.Rect{LLx: -50, URx: 150, URy: 100}},
		{"tall source overflows vertically", 100, 400, rect.Rect{LLy: -150, URx: 100, URy: 250}},
		{"degenerate source", 0, 10, dst},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CoverFit(tc.srcW, tc.srcH, dst)
			if got != tc.want {
				t.Errorf("CoverFit(%v, %v) = %+v, want %+v", tc.srcW, tc.srcH, got, tc.want)
			}
		})
	}
}

func TestCoverFit_always_covers(t *testing.T) {
	dst := rect.Rect{LLx: 10, LLy: 20, URx: 330, URy: 200}
	for _, size := range [][2]float64{{1, 1}, {1920, 1080}, {1080, 1920}, {7, 3}, {3, 7}} {
		got := CoverFit(size[0], size[1], dst)
		if got.LLx > dst.LLx || got.LLy > dst.LLy || got.URx < dst.URx || got.URy < dst.URy {
			t.Errorf("%v: %+v does not cover %+v", size, got, dst)
		}
		gotRatio := (got.URx - got.LLx) / (got.URy - got.LLy)
		if diff := gotRatio - size[0]/size[1]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%v: aspect ratio %v not preserved", size, gotRatio)
		}
	}
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCanvas_DrawCoverFit_fills_destination(t *testing.T) {
	c, err := New(40, 20, Options{Background: "#000000"})
	if err != nil {
		t.Fatal(err)
	}
	red := color.RGBA{R: 0xff, A: 0xff}
	c.DrawCoverFit(solid(10, 10, red), rect.Rect{URx: 40, URy: 20})

	snap := c.Snapshot()
	for _, p := range []image.Point{{0, 0}, {39, 0}, {0, 19}, {39, 19}, {20, 10}} {
		if got := snap.RGBAAt(p.X, p.Y); got != red {
			t.Errorf("pixel %v = %v, want red", p, got)
		}
	}
}

func TestCanvas_DrawCoverFit_clears_before_drawing(t *testing.T) {
	c, err := New(10, 10, Options{Background: "#0000ff"})
	if err != nil {
		t.Fatal(err)
	}
	c.DrawCoverFit(solid(2, 2, color.RGBA{R: 0xff, A: 0xff}), rect.Rect{URx: 10, URy: 10})
	c.DrawCoverFit(solid(2, 2, color.Transparent), rect.Rect{URx: 10, URy: 10})

	blue := color.RGBA{B: 0xff, A: 0xff}
	if got := c.Snapshot().RGBAAt(5, 5); got != blue {
		t.Errorf("pixel after transparent frame = %v, want the background", got)
	}
}

func TestCanvas_DrawCoverFit_clips_to_destination(t *testing.T) {
	c, _ := New(20, 10, Options{})
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	c.DrawCoverFit(solid(4, 4, white), rect.Rect{URx: 10, URy: 10})

	snap := c.Snapshot()
	if got := snap.RGBAAt(5, 5); got != white {
		t.Errorf("inside destination = %v, want white", got)
	}
	if got := snap.RGBAAt(15, 5); got != (color.RGBA{A: 0xff}) {
		t.Errorf("outside destination = %v, want black", got)
	}
}

func TestNew_rejects_bad_input(t *testing.T) {
	if _, err := New(0, 10, Options{}); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := New(10, 10, Options{Background: "not-a-colour"}); err == nil {
		t.Error("expected error for a bad background")
	}
}

func TestCanvas_Resize_and_WritePNG(t *testing.T) {
	c, _ := New(4, 4, Options{})
	if err := c.Resize(8, 2); err != nil {
		t.Fatal(err)
	}
	if b := c.Bounds(); b.Dx() != 8 || b.Dy() != 2 {
		t.Errorf("bounds after resize = %v", b)
	}
	if err := c.Resize(-1, 2); err == nil {
		t.Error("expected error for negative width")
	}

	var buf bytes.Buffer
	if err := c.WritePNG(&buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("decoded width = %d, want 8", img.Bounds().Dx())
	}
}

func TestViewport(t *testing.T) {
	v, err := NewViewport(1280, 720, 3600)
	if err != nil {
		t.Fatal(err)
	}
	if d := v.ScrollableDistance(); d != 2880 {
		t.Errorf("ScrollableDistance = %v, want 2880", d)
	}
	if r := v.Rect(); r != (rect.Rect{URx: 1280, URy: 720}) {
		t.Errorf("Rect = %+v", r)
	}

	var order []string
	v.OnResize(func() { order = append(order, "first") })
	cancel := v.OnResize(func() { order = append(order, "second") })
	v.OnResize(func() { order = append(order, "third") })
	cancel()

	if err := v.Resize(800, 600, 500); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "third" {
		t.Errorf("resize listeners ran as %v", order)
	}
	if d := v.ScrollableDistance(); d != -100 {
		t.Errorf("ScrollableDistance = %v, want -100", d)
	}
	if err := v.Resize(0, 600, 500); err == nil {
		t.Error("expected error for zero width")
	}
	if w, h := v.Size(); w != 800 || h != 600 {
		t.Errorf("rejected resize changed size to %vx%v", w, h)
	}
}
