package render

import (
	"bytes"
	"context"
	"image/png"
	"sync"
	"testing"

	"github.com/park285/boardwatch/internal/board"
	"github.com/park285/boardwatch/internal/detect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPNGDimensions(t *testing.T) {
	raw, err := RenderPNG(context.Background(), board.StartPosition(), Options{
		Header: "Turn 1 - White to move",
		Footer: "e2e4",
	})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	sq := DefaultSquareSize
	assert.Equal(t, sq*8+sq, img.Bounds().Dx())
	assert.Equal(t, sq*8+sq+sq/2, img.Bounds().Dy())
}

func TestRenderPlainSquareColours(t *testing.T) {
	img, err := Render(context.Background(), &board.Board{}, Options{Plain: true, SquareSize: 10})
	require.NoError(t, err)
	require.Equal(t, 80, img.Bounds().Dx())

	assert.Equal(t, lightSquare, img.RGBAAt(5, 5), "a8 is light")
	assert.Equal(t, darkSquare, img.RGBAAt(15, 5), "b8 is dark")
	assert.Equal(t, lightSquare, img.RGBAAt(75, 75), "h1 is light")
}

func TestRenderDrawsPieces(t *testing.T) {
	empty, err := Render(context.Background(), &board.Board{}, Options{Plain: true})
	require.NoError(t, err)
	full, err := Render(context.Background(), board.StartPosition(), Options{Plain: true})
	require.NoError(t, err)

	// centre of e2 carries the white pawn glyph
	x, y := 4*DefaultSquareSize+DefaultSquareSize/2, 6*DefaultSquareSize+DefaultSquareSize*2/3
	assert.NotEqual(t, empty.RGBAAt(x, y), full.RGBAAt(x, y))
	// e4 stays empty
	y = 4*DefaultSquareSize + DefaultSquareSize/2
	assert.Equal(t, empty.RGBAAt(x, y), full.RGBAAt(x, y))
}

func TestRenderHighlight(t *testing.T) {
	b := board.StartPosition()
	b.Move(board.Sq(6, 4), board.Sq(4, 4))

	plain, err := Render(context.Background(), b, Options{Plain: true})
	require.NoError(t, err)
	lit, err := Render(context.Background(), b, Options{
		Plain:     true,
		Highlight: &Highlight{From: board.Sq(6, 4), To: board.Sq(4, 4), Side: board.White},
	})
	require.NoError(t, err)

	x, y := 4*DefaultSquareSize+2, 6*DefaultSquareSize+2
	assert.NotEqual(t, plain.RGBAAt(x, y), lit.RGBAAt(x, y))

	arrow, err := Render(context.Background(), b, Options{
		Plain:     true,
		Highlight: &Highlight{From: board.Sq(6, 4), To: board.Sq(4, 4), Rejected: true},
	})
	require.NoError(t, err)
	// the shaft passes through the empty e3 square
	x, y = 4*DefaultSquareSize+DefaultSquareSize/2, 5*DefaultSquareSize+DefaultSquareSize/2
	assert.NotEqual(t, plain.RGBAAt(x, y), arrow.RGBAAt(x, y))
}

func TestRenderedFramesFeedDetection(t *testing.T) {
	ctx := context.Background()
	before := board.StartPosition()
	after := before.Clone()
	after.Move(board.Sq(6, 4), board.Sq(4, 4))

	imgA, err := Render(ctx, before, Options{Plain: true})
	require.NoError(t, err)
	imgB, err := Render(ctx, after, Options{Plain: true})
	require.NoError(t, err)

	gridA, err := detect.Split(imgA)
	require.NoError(t, err)
	gridB, err := detect.Split(imgB)
	require.NoError(t, err)

	changes, err := detect.Detect(gridA, gridB, detect.SSIM{}, detect.DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, detect.ChangeSet{board.Sq(4, 4), board.Sq(6, 4)}, changes)
}

func TestRenderNilBoardAndCancelledContext(t *testing.T) {
	_, err := Render(context.Background(), nil, Options{})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Render(ctx, board.StartPosition(), Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRenderConcurrentCaptionsMatch(t *testing.T) {
	const workers = 8
	opts := Options{Header: "White to move", Footer: "e2-e4"}
	want, err := RenderPNG(context.Background(), board.StartPosition(), opts)
	require.NoError(t, err)

	var wg sync.WaitGroup
	outs := make([][]byte, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = RenderPNG(context.Background(), board.StartPosition(), opts)
		}(i)
	}
	wg.Wait()
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.True(t, bytes.Equal(want, outs[i]), "render %d differs", i)
	}
}
