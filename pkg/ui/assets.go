// Package ui draws the remote control screen in the terminal.
package ui

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// Asset file names, relative to the asset directory.
const (
	BackgroundFile  = "background.png"
	ArrowUpFile     = "arrow_up.png"
	ArrowDownFile   = "arrow_down.png"
	ArrowLeftFile   = "arrow_left.png"
	ArrowRightFile  = "arrow_right.png"
	SpaceActionFile = "space_action.png"
)

// Assets are the images the screen is composed of. Overlays are drawn over
// the background wherever they are not transparent.
type Assets struct {
	Background image.Image
	Up         image.Image
	Down       image.Image
	Left       image.Image
	Right      image.Image
	Space      image.Image
}

// LoadAssets loads all six images from dir. A missing or unreadable image
// is an error.
func LoadAssets(dir string) (*Assets, error) {
	var a Assets
	for _, item := range []struct {
		name string
		dst  *image.Image
	}{
		{BackgroundFile, &a.Background},
		{ArrowUpFile, &a.Up},
		{ArrowDownFile, &a.Down},
		{ArrowLeftFile, &a.Left},
		{ArrowRightFile, &a.Right},
		{SpaceActionFile, &a.Space},
	} {
		img, err := loadPNG(filepath.Join(dir, item.name))
		if err != nil {
			return nil, err
		}
		*item.dst = img
	}
	return &a, nil
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load asset: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode asset %s: %w", path, err)
	}
	return img, nil
}
