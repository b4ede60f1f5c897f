// Package render draws board positions as PNG images.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"github.com/park285/boardwatch/internal/board"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const DefaultSquareSize = 64

// Highlight marks the last resolved move.
type Highlight struct {
	From     board.Square
	To       board.Square
	Side     board.Side
	Rejected bool
}

type Options struct {
	Highlight  *Highlight
	Header     string
	Footer     string
	SquareSize int
	// Plain drops margins, coordinates and text, producing an image that
	// splits cleanly into an 8x8 grid.
	Plain bool
}

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	backgroundColor = color.RGBA{28, 31, 46, 255}
	textColor       = color.RGBA{236, 239, 255, 255}
	coordColor      = color.RGBA{8, 214, 120, 255}
	whiteMoveFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveArrow  = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	rejectedArrow   = color.NRGBA{R: 230, G: 72, B: 72, A: 170}
)

var (
	fontOnce    sync.Once
	fontErr     error
	captionFont *truetype.Font
)

// captionFace returns a new face over the shared parsed font. A font.Face
// keeps glyph caches and is not safe for concurrent use, so every render
// gets its own.
func captionFace() (font.Face, error) {
	fontOnce.Do(func() {
		captionFont, fontErr = truetype.Parse(goregular.TTF)
		if fontErr != nil {
			fontErr = fmt.Errorf("parse font: %w", fontErr)
		}
	})
	if fontErr != nil {
		return nil, fontErr
	}
	return truetype.NewFace(captionFont, &truetype.Options{Size: 16, DPI: 72, Hinting: font.HintingFull}), nil
}

// RenderPNG renders b and encodes it as PNG.
func RenderPNG(ctx context.Context, b *board.Board, opts Options) ([]byte, error) {
	img, err := Render(ctx, b, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Render draws b onto a new RGBA image.
func Render(ctx context.Context, b *board.Board, opts Options) (*image.RGBA, error) {
	if b == nil {
		return nil, fmt.Errorf("board is nil")
	}
	sq := opts.SquareSize
	if sq <= 0 {
		sq = DefaultSquareSize
	}

	margin, top, bottom := sq/2, sq, sq/2
	if opts.Plain {
		margin, top, bottom = 0, 0, 0
	}
	boardSize := sq * board.Size
	img := image.NewRGBA(image.Rect(0, 0, boardSize+2*margin, boardSize+top+bottom))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)
	origin := image.Pt(margin, top)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for r := 0; r < board.Size; r++ {
		for c := 0; c < board.Size; c++ {
			clr := lightSquare
			if (r+c)%2 == 1 {
				clr = darkSquare
			}
			draw.Draw(img, cellRect(board.Sq(r, c), sq, origin), image.NewUniform(clr), image.Point{}, draw.Src)
		}
	}

	if h := opts.Highlight; h != nil && h.From.Valid() && h.To.Valid() {
		switch {
		case h.Rejected:
			drawArrow(img, h.From, h.To, sq, origin, rejectedArrow)
		case h.Side == board.White:
			draw.Draw(img, cellRect(h.From, sq, origin), image.NewUniform(whiteMoveFill), image.Point{}, draw.Over)
			draw.Draw(img, cellRect(h.To, sq, origin), image.NewUniform(whiteMoveFill), image.Point{}, draw.Over)
		default:
			drawArrow(img, h.From, h.To, sq, origin, blackMoveArrow)
		}
	}

	for r := 0; r < board.Size; r++ {
		for c := 0; c < board.Size; c++ {
			p, ok := b.At(board.Sq(r, c))
			if !ok || p.IsZero() {
				continue
			}
			g, err := glyph(p, sq)
			if err != nil {
				return nil, err
			}
			draw.Draw(img, cellRect(board.Sq(r, c), sq, origin), g, image.Point{}, draw.Over)
		}
	}

	if opts.Plain {
		return img, ctx.Err()
	}

	face, err := captionFace()
	if err != nil {
		return nil, err
	}
	defer face.Close()
	drawer := &font.Drawer{Dst: img, Face: face}
	drawer.Src = image.NewUniform(coordColor)
	ascent := face.Metrics().Ascent.Ceil()
	for i := 0; i < board.Size; i++ {
		centre := origin.Y + i*sq + sq/2
		drawCentered(drawer, strconv.Itoa(board.Size-i), margin/2, centre+ascent/2)
		drawCentered(drawer, string(rune('a'+i)), origin.X+i*sq+sq/2, origin.Y+boardSize+ascent)
	}

	drawer.Src = image.NewUniform(textColor)
	if s := strings.TrimSpace(opts.Header); s != "" {
		drawCentered(drawer, s, img.Bounds().Dx()/2, (top+ascent)/2)
	}
	if s := strings.TrimSpace(opts.Footer); s != "" {
		drawCentered(drawer, s, img.Bounds().Dx()/2, origin.Y+boardSize+bottom-2)
	}
	return img, ctx.Err()
}

func cellRect(s board.Square, size int, origin image.Point) image.Rectangle {
	x := origin.X + s.Col*size
	y := origin.Y + s.Row*size
	return image.Rect(x, y, x+size, y+size)
}

func drawCentered(d *font.Drawer, text string, centerX, baseline int) {
	w := d.MeasureString(text).Round()
	d.Dot = fixed.P(centerX-w/2, baseline)
	d.DrawString(text)
}

// drawArrow fills a shaft and head from the centre of one cell to another.
func drawArrow(img *image.RGBA, from, to board.Square, size int, origin image.Point, clr color.Color) {
	if from == to {
		return
	}
	a, b := cellRect(from, size, origin), cellRect(to, size, origin)
	sx, sy := float64(a.Min.X+size/2), float64(a.Min.Y+size/2)
	ex, ey := float64(b.Min.X+size/2), float64(b.Min.Y+size/2)
	dx, dy := ex-sx, ey-sy
	length := math.Hypot(dx, dy)
	ux, uy := dx/length, dy/length
	px, py := -uy, ux

	half := float64(size) * 0.12
	head := float64(size) * 0.3
	shaft := length - head
	bx, by := sx+ux*shaft, sy+uy*shaft

	bounds := img.Bounds()
	scanner := rasterx.NewScannerGV(bounds.Dx(), bounds.Dy(), img, bounds)
	filler := rasterx.NewFiller(bounds.Dx(), bounds.Dy(), scanner)
	filler.SetColor(clr)

	filler.Start(rasterx.ToFixedP(sx+px*half, sy+py*half))
	filler.Line(rasterx.ToFixedP(bx+px*half, by+py*half))
	filler.Line(rasterx.ToFixedP(bx+px*head, by+py*head))
	filler.Line(rasterx.ToFixedP(ex, ey))
	filler.Line(rasterx.ToFixedP(bx-px*head, by-py*head))
	filler.Line(rasterx.ToFixedP(bx-px*half, by-py*half))
	filler.Line(rasterx.ToFixedP(sx-px*half, sy-py*half))
	filler.Stop(true)
	filler.Draw()
}
