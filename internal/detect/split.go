package detect

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/park285/boardwatch/internal/board"
)

// Split cuts a cropped board image into an 8x8 grid of equally sized cells.
// Remainder pixels on the right and bottom edges are dropped.
func Split(img image.Image) (*Grid, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil board image", ErrMalformedGrid)
	}
	bounds := img.Bounds()
	cellW := bounds.Dx() / board.Size
	cellH := bounds.Dy() / board.Size
	if cellW == 0 || cellH == 0 {
		return nil, fmt.Errorf("%w: board image %v is smaller than %dx%d", ErrMalformedGrid, bounds.Size(), board.Size, board.Size)
	}

	var grid Grid
	for row := 0; row < board.Size; row++ {
		for col := 0; col < board.Size; col++ {
			x := bounds.Min.X + col*cellW
			y := bounds.Min.Y + row*cellH
			grid[row][col] = crop(img, image.Rect(x, y, x+cellW, y+cellH))
		}
	}
	return &grid, nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func crop(img image.Image, r image.Rectangle) image.Image {
	if s, ok := img.(subImager); ok {
		return s.SubImage(r)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}
