package detect

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/gonum/stat"
)

const (
	ssimWindow = 7
	ssimRange  = 255.0
)

var (
	ssimC1 = (0.01 * ssimRange) * (0.01 * ssimRange)
	ssimC2 = (0.03 * ssimRange) * (0.03 * ssimRange)
)

// SSIM is the default Comparator: mean structural similarity of the 8-bit luma
// channel over 7x7 windows, clamped to [0,1].
type SSIM struct{}

func (SSIM) Compare(a, b image.Image) float64 {
	if a == nil || b == nil {
		return 0
	}
	ga := luma(a, a.Bounds())
	gb := luma(b, a.Bounds())
	w, h := a.Bounds().Dx(), a.Bounds().Dy()
	if w == 0 || h == 0 {
		return 0
	}

	win := ssimWindow
	if w < win || h < win {
		return clamp01(windowSSIM(ga, gb, w, 0, 0, w, h))
	}

	var sum float64
	var n int
	for y := 0; y+win <= h; y++ {
		for x := 0; x+win <= w; x++ {
			sum += windowSSIM(ga, gb, w, x, y, win, win)
			n++
		}
	}
	return clamp01(sum / float64(n))
}

func windowSSIM(a, b []float64, stride, x0, y0, w, h int) float64 {
	xs := make([]float64, 0, w*h)
	ys := make([]float64, 0, w*h)
	for y := y0; y < y0+h; y++ {
		row := y * stride
		xs = append(xs, a[row+x0:row+x0+w]...)
		ys = append(ys, b[row+x0:row+x0+w]...)
	}
	if len(xs) < 2 {
		if xs[0] == ys[0] {
			return 1
		}
		return 0
	}
	mx, vx := stat.MeanVariance(xs, nil)
	my, vy := stat.MeanVariance(ys, nil)
	cov := stat.Covariance(xs, ys, nil)

	num := (2*mx*my + ssimC1) * (2*cov + ssimC2)
	den := (mx*mx + my*my + ssimC1) * (vx + vy + ssimC2)
	return num / den
}

// luma converts img to row-major grayscale samples sized to frame. Images with
// other dimensions are scaled first.
func luma(img image.Image, frame image.Rectangle) []float64 {
	src := img
	if img.Bounds().Dx() != frame.Dx() || img.Bounds().Dy() != frame.Dy() {
		scaled := image.NewRGBA(image.Rect(0, 0, frame.Dx(), frame.Dy()))
		xdraw.BiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		src = scaled
	}
	b := src.Bounds()
	out := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(src.At(x, y)).(color.Gray)
			out = append(out, float64(g.Y))
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
