package ui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Overlay selects which key images are drawn over the background.
type Overlay struct {
	Up    bool
	Down  bool
	Left  bool
	Right bool
	Space bool
}

// Renderer composes the assets into terminal cells. Each cell shows two
// pixels stacked vertically using an upper half block, so a canvas of
// w x h cells samples the images at w x 2h pixels.
type Renderer struct {
	assets *Assets
	width  int
	height int
	cache  map[Overlay]string
}

// NewRenderer returns a renderer for a canvas of width x height cells.
func NewRenderer(a *Assets, width, height int) *Renderer {
	return &Renderer{
		assets: a,
		width:  width,
		height: height,
		cache:  make(map[Overlay]string),
	}
}

// Size returns the canvas size in cells.
func (r *Renderer) Size() (width, height int) {
	return r.width, r.height
}

// Render returns the canvas for the given overlay. Results are cached since
// the canvas only depends on which overlays are shown.
func (r *Renderer) Render(o Overlay) string {
	if s, ok := r.cache[o]; ok {
		return s
	}

	layers := []image.Image{r.assets.Background}
	for _, l := range []struct {
		on  bool
		img image.Image
	}{
		{o.Up, r.assets.Up},
		{o.Down, r.assets.Down},
		{o.Left, r.assets.Left},
		{o.Right, r.assets.Right},
		{o.Space, r.assets.Space},
	} {
		if l.on {
			layers = append(layers, l.img)
		}
	}

	var sb strings.Builder
	for y := 0; y < r.height; y++ {
		for x := 0; x < r.width; x++ {
			top := r.pixel(layers, x, 2*y)
			bottom := r.pixel(layers, x, 2*y+1)
			cell := lipgloss.NewStyle().
				Foreground(hex(top)).
				Background(hex(bottom))
			sb.WriteString(cell.Render("▀"))
		}
		if y < r.height-1 {
			sb.WriteByte('\n')
		}
	}

	s := sb.String()
	r.cache[o] = s
	return s
}

// pixel samples the topmost opaque layer at canvas pixel (x, y).
func (r *Renderer) pixel(layers []image.Image, x, y int) color.Color {
	var c color.Color = color.White
	for _, img := range layers {
		b := img.Bounds()
		sx := b.Min.X + x*b.Dx()/r.width
		sy := b.Min.Y + y*b.Dy()/(2*r.height)
		px := img.At(sx, sy)
		if _, _, _, a := px.RGBA(); a >= 0x8000 {
			c = px
		}
	}
	return c
}

func hex(c color.Color) lipgloss.Color {
	rgba := color.NRGBAModel.Convert(c).(color.NRGBA)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B))
}
