// Package preview renders enlarged copies of icons for pixel-level review.
// Each source pixel becomes a scale×scale block, so anti-aliased edges stay
// visible instead of being smoothed by a viewer's own scaling.
package preview

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"tools.zach/dev/iconsmith/internal/pngenc"
)

// Enlarge scales a size×size straight-alpha RGBA buffer by scale using
// nearest-neighbour sampling and returns the result as a PNG.
func Enlarge(size int, pix []byte, scale int) ([]byte, error) {
	if size <= 0 || scale <= 0 {
		return nil, fmt.Errorf("enlarge: size %d and scale %d must be positive", size, scale)
	}
	if len(pix) != size*size*4 {
		return nil, fmt.Errorf("enlarge: got %d bytes for a %d×%d image", len(pix), size, size)
	}

	src := &image.NRGBA{Pix: pix, Stride: size * 4, Rect: image.Rect(0, 0, size, size)}
	dst := image.NewNRGBA(image.Rect(0, 0, size*scale, size*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	data, err := pngenc.Encode(size*scale, size*scale, dst.Pix)
	if err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return data, nil
}
