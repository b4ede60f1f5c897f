// Package detect finds the board cells that changed between two snapshots.
package detect

import (
	"errors"
	"fmt"
	"image"

	"github.com/hashicorp/go-multierror"

	"github.com/park285/boardwatch/internal/board"
)

// DefaultThreshold is the similarity below which a cell counts as changed.
const DefaultThreshold = 0.9

var ErrMalformedGrid = errors.New("malformed cell grid")

// Comparator scores two equally sized cell images in [0,1]; 1 means identical.
type Comparator interface {
	Compare(a, b image.Image) float64
}

// ComparatorFunc adapts a plain function to Comparator.
type ComparatorFunc func(a, b image.Image) float64

func (f ComparatorFunc) Compare(a, b image.Image) float64 { return f(a, b) }

// Grid holds the 64 cell images of one snapshot, row-major, [0][0] top-left.
type Grid [board.Size][board.Size]image.Image

// ChangeSet lists changed squares in row-major order without duplicates.
type ChangeSet []board.Square

func (c ChangeSet) Contains(sq board.Square) bool {
	for _, s := range c {
		if s == sq {
			return true
		}
	}
	return false
}

// Validate checks that every cell is present and that paired cells share bounds.
func Validate(before, after *Grid) error {
	if before == nil || after == nil {
		return fmt.Errorf("%w: nil grid", ErrMalformedGrid)
	}
	var errs *multierror.Error
	for row := 0; row < board.Size; row++ {
		for col := 0; col < board.Size; col++ {
			sq := board.Sq(row, col).Coords()
			a, b := before[row][col], after[row][col]
			switch {
			case a == nil || b == nil:
				errs = multierror.Append(errs, fmt.Errorf("cell %s missing", sq))
			case a.Bounds().Dx() != b.Bounds().Dx() || a.Bounds().Dy() != b.Bounds().Dy():
				errs = multierror.Append(errs, fmt.Errorf("cell %s size %v vs %v", sq, a.Bounds().Size(), b.Bounds().Size()))
			case a.Bounds().Empty():
				errs = multierror.Append(errs, fmt.Errorf("cell %s is empty", sq))
			}
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedGrid, err)
	}
	return nil
}

// Detect compares every cell pair and returns the squares whose similarity is
// below threshold. A non-positive threshold selects DefaultThreshold.
func Detect(before, after *Grid, cmp Comparator, threshold float64) (ChangeSet, error) {
	if cmp == nil {
		return nil, errors.New("detect: comparator is required")
	}
	if err := Validate(before, after); err != nil {
		return nil, err
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	var changes ChangeSet
	for row := 0; row < board.Size; row++ {
		for col := 0; col < board.Size; col++ {
			if cmp.Compare(before[row][col], after[row][col]) < threshold {
				changes = append(changes, board.Sq(row, col))
			}
		}
	}
	return changes, nil
}
