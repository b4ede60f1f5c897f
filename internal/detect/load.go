package detect

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Decode reads a snapshot in any registered format (png, jpeg, gif, bmp, webp).
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return img, nil
}

// Load decodes a snapshot file. The image is expected to show the cropped board
// only; locating the board inside a wider photo is not done here.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// LoadGrid loads and splits a snapshot file.
func LoadGrid(path string) (*Grid, error) {
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Split(img)
}
