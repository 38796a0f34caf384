// Package avatar draws the round initial badges shown next to employees.
package avatar

import (
	"bytes"
	"image"
	"image/color"
	stddraw "image/draw"
	"image/png"
	"strings"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultSize = 64
	glyphCanvas = 16
)

var departmentColors = map[string]color.RGBA{
	"HR":          {R: 0xdb, G: 0x27, B: 0x77, A: 0xff},
	"Engineering": {R: 0x08, G: 0x91, B: 0xb2, A: 0xff},
	"Sales":       {R: 0xd9, G: 0x77, B: 0x06, A: 0xff},
	"Marketing":   {R: 0x7c, G: 0x3a, B: 0xed, A: 0xff},
	"Finance":     {R: 0x05, G: 0x96, B: 0x69, A: 0xff},
}

var neutral = color.RGBA{R: 0x47, G: 0x55, B: 0x69, A: 0xff}

// Color is the badge background for a department.
func Color(department string) color.RGBA {
	if c, ok := departmentColors[department]; ok {
		return c
	}
	return neutral
}

// Render draws initial in white on a department-tinted disc of size pixels.
// The glyph is rasterized small and scaled up so the bitmap font stays legible.
func Render(initial, department string, size int) image.Image {
	if size <= 0 {
		size = DefaultSize
	}
	initial = normalizeInitial(initial)

	small := image.NewRGBA(image.Rect(0, 0, glyphCanvas, glyphCanvas))
	stddraw.Draw(small, small.Bounds(), &image.Uniform{C: Color(department)}, image.Point{}, stddraw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: small, Src: image.White, Face: face}
	width := drawer.MeasureString(initial).Ceil()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	x := (glyphCanvas - width) / 2
	y := (glyphCanvas-height)/2 + metrics.Ascent.Ceil()
	drawer.Dot = fixed.P(x, y)
	drawer.DrawString(initial)

	scaled := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), small, small.Bounds(), xdraw.Src, nil)

	out := image.NewRGBA(scaled.Bounds())
	stddraw.DrawMask(out, out.Bounds(), scaled, image.Point{}, &disc{size: size}, image.Point{}, stddraw.Over)
	return out
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Cache keeps encoded badges; the set of initials and departments is small.
type Cache struct {
	size int

	mu      sync.Mutex
	entries map[string][]byte
}

func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	return &Cache{size: size, entries: map[string][]byte{}}
}

func (c *Cache) PNG(initial, department string) ([]byte, error) {
	initial = normalizeInitial(initial)
	if _, ok := departmentColors[department]; !ok {
		department = ""
	}
	key := initial + "|" + department

	c.mu.Lock()
	if raw, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return raw, nil
	}
	c.mu.Unlock()

	raw, err := EncodePNG(Render(initial, department, c.size))
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[key] = raw
	c.mu.Unlock()
	return raw, nil
}

func normalizeInitial(initial string) string {
	for _, r := range strings.TrimSpace(initial) {
		if r > 0x7e || r < 0x21 {
			return "?"
		}
		return strings.ToUpper(string(r))
	}
	return "?"
}

// disc is an alpha mask that is opaque inside the inscribed circle.
type disc struct {
	size int
}

func (d *disc) ColorModel() color.Model { return color.AlphaModel }

func (d *disc) Bounds() image.Rectangle { return image.Rect(0, 0, d.size, d.size) }

func (d *disc) At(x, y int) color.Color {
	r := float64(d.size) / 2
	dx := float64(x) + 0.5 - r
	dy := float64(y) + 0.5 - r
	if dx*dx+dy*dy <= r*r {
		return color.Alpha{A: 0xff}
	}
	return color.Alpha{}
}
