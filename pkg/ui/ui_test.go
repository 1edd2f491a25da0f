package ui

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func writeAssets(t *testing.T, dir string, skip string) {
	t.Helper()
	for _, name := range []string{BackgroundFile, ArrowUpFile, ArrowDownFile, ArrowLeftFile, ArrowRightFile, SpaceActionFile} {
		if name == skip {
			continue
		}
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, solid(8, 8, color.NRGBA{R: 200, A: 255})); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
}

func TestLoadAssets(t *testing.T) {
	dir := t.TempDir()
	writeAssets(t, dir, "")

	a, err := LoadAssets(dir)
	if err != nil {
		t.Fatal(err)
	}
	for i, img := range []image.Image{a.Background, a.Up, a.Down, a.Left, a.Right, a.Space} {
		if img == nil || img.Bounds().Dx() != 8 {
			t.Errorf("asset %d not loaded", i)
		}
	}
}

func TestLoadAssets_Missing(t *testing.T) {
	dir := t.TempDir()
	writeAssets(t, dir, ArrowLeftFile)

	_, err := LoadAssets(dir)
	if err == nil {
		t.Fatal("LoadAssets() = nil error with a missing file")
	}
	if !strings.Contains(err.Error(), ArrowLeftFile) {
		t.Errorf("error %q does not name the missing file", err)
	}
}

func TestLoadAssets_NotPNG(t *testing.T) {
	dir := t.TempDir()
	writeAssets(t, dir, BackgroundFile)
	if err := os.WriteFile(filepath.Join(dir, BackgroundFile), []byte("GIF89a"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAssets(dir); err == nil {
		t.Error("LoadAssets() = nil error with a corrupt file")
	}
}

func TestLoadAssets_Shipped(t *testing.T) {
	if _, err := LoadAssets(filepath.Join("..", "..", "img")); err != nil {
		t.Errorf("shipped assets: %v", err)
	}
}

func testAssets() *Assets {
	transparent := solid(4, 4, color.NRGBA{})
	up := solid(4, 4, color.NRGBA{})
	// top half green
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			up.Set(x, y, color.NRGBA{G: 255, A: 255})
		}
	}
	return &Assets{
		Background: solid(4, 4, color.NRGBA{R: 255, G: 255, B: 255, A: 255}),
		Up:         up,
		Down:       transparent,
		Left:       transparent,
		Right:      transparent,
		Space:      transparent,
	}
}

func TestRenderer_Size(t *testing.T) {
	r := NewRenderer(testAssets(), 10, 5)
	out := r.Render(Overlay{Up: true})

	lines := strings.Split(out, "\n")
	if len(lines) != 5 {
		t.Fatalf("rendered %d lines, want 5", len(lines))
	}
	for i, l := range lines {
		if w := lipgloss.Width(l); w != 10 {
			t.Errorf("line %d width = %d, want 10", i, w)
		}
	}
}

func TestRenderer_Overlay(t *testing.T) {
	r := NewRenderer(testAssets(), 4, 2)
	layers := []image.Image{r.assets.Background, r.assets.Up}

	if c := r.pixel(layers, 0, 0); c != (color.NRGBA{G: 255, A: 255}) {
		t.Errorf("top pixel = %v, want overlay green", c)
	}
	if c := r.pixel(layers, 0, 3); c != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("bottom pixel = %v, want background", c)
	}
}

func TestRenderer_Cache(t *testing.T) {
	r := NewRenderer(testAssets(), 4, 2)
	first := r.Render(Overlay{Left: true})
	if len(r.cache) != 1 {
		t.Fatalf("cache has %d entries, want 1", len(r.cache))
	}
	if second := r.Render(Overlay{Left: true}); second != first {
		t.Error("cached render differs")
	}
}
