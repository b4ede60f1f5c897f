package render

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/park285/boardwatch/internal/board"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Glyph outlines on a 45x45 canvas. Fill and stroke are substituted per side.
var glyphPaths = map[board.Kind][]string{
	board.Pawn: {
		`<circle cx="22.5" cy="14" r="6"/>`,
		`<path d="M 12 38 L 33 38 L 29 24 L 16 24 Z"/>`,
	},
	board.Rook: {
		`<path d="M 11 38 L 34 38 L 34 34 L 31 34 L 31 17 L 34 17 L 34 10 L 29 10 L 29 13 L 25 13 L 25 10 L 20 10 L 20 13 L 16 13 L 16 10 L 11 10 L 11 17 L 14 17 L 14 34 L 11 34 Z"/>`,
	},
	board.Knight: {
		`<path d="M 12 38 L 34 38 L 32 30 C 32 20 30 12 22 9 L 19 6 L 17 11 C 12 14 9 20 10 23 L 14 24 L 18 20 L 21 21 C 16 26 13 30 12 38 Z"/>`,
	},
	board.Bishop: {
		`<circle cx="22.5" cy="8" r="3"/>`,
		`<path d="M 12 38 L 33 38 L 29 32 C 33 25 30 16 22.5 11 C 15 16 12 25 16 32 Z"/>`,
	},
	board.Queen: {
		`<path d="M 10 38 L 35 38 L 33 30 L 38 14 L 30 24 L 28 10 L 22.5 24 L 17 10 L 15 24 L 7 14 L 12 30 Z"/>`,
	},
	board.King: {
		`<path d="M 21 4 L 24 4 L 24 7 L 27 7 L 27 10 L 24 10 L 24 15 L 21 15 L 21 10 L 18 10 L 18 7 L 21 7 Z"/>`,
		`<path d="M 11 38 L 34 38 L 32 28 C 38 22 34 15 28 17 L 22.5 21 L 17 17 C 11 15 7 22 13 28 Z"/>`,
	},
}

func glyphSVG(p board.Piece) ([]byte, error) {
	parts, ok := glyphPaths[p.Kind()]
	if !ok {
		return nil, fmt.Errorf("no glyph for %s", p)
	}
	fill, stroke := "#ffffff", "#1a1a1a"
	if p.Side() == board.Black {
		fill, stroke = "#1a1a1a", "#f0f0f0"
	}
	var sb strings.Builder
	sb.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`)
	fmt.Fprintf(&sb, `<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">`, fill, stroke)
	for _, part := range parts {
		sb.WriteString(part)
	}
	sb.WriteString(`</g></svg>`)
	return []byte(sb.String()), nil
}

type glyphKey struct {
	piece board.Piece
	size  int
}

var (
	glyphCache   = map[glyphKey]*image.RGBA{}
	glyphCacheMu sync.RWMutex
)

// glyph rasterises p at size x size pixels and caches the result.
func glyph(p board.Piece, size int) (*image.RGBA, error) {
	key := glyphKey{piece: p, size: size}
	glyphCacheMu.RLock()
	img, ok := glyphCache[key]
	glyphCacheMu.RUnlock()
	if ok {
		return img, nil
	}

	src, err := glyphSVG(p)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(string(src)))
	if err != nil {
		return nil, fmt.Errorf("parse glyph %s: %w", p, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img = image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	glyphCacheMu.Lock()
	glyphCache[key] = img
	glyphCacheMu.Unlock()
	return img, nil
}
