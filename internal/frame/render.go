// Package frame renders and stores the still images that make up a sync
// clip: per-cycle QR flash images and the two checkerboard alignment
// images.
package frame

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
)

// Renderer is the set of image primitives the Store needs.
type Renderer interface {
	Solid(width, height int, c color.Color) draw.Image
	Paste(dst draw.Image, src image.Image, at image.Point)
	MachineCode(payload string, level qrcode.RecoveryLevel) (image.Image, error)
	Resize(img image.Image, size int) image.Image
	Save(img image.Image, path string) error
}

// Canvas is the default Renderer, drawing into RGBA images and saving PNG.
type Canvas struct{}

var _ Renderer = Canvas{}

func (Canvas) Solid(width, height int, c color.Color) draw.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func (Canvas) Paste(dst draw.Image, src image.Image, at image.Point) {
	b := src.Bounds()
	draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(b.Size())}, src, b.Min, draw.Src)
}

// MachineCode renders payload as a QR symbol with one pixel per module and
// the standard quiet zone.
func (Canvas) MachineCode(payload string, level qrcode.RecoveryLevel) (image.Image, error) {
	q, err := qrcode.New(payload, level)
	if err != nil {
		return nil, fmt.Errorf("frame: encode qr %q: %w", payload, err)
	}
	return q.Image(-1), nil
}

// Resize scales img to a size×size square with nearest-neighbour sampling
// so QR modules keep hard edges.
func (Canvas) Resize(img image.Image, size int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func (Canvas) Save(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("frame: encode %s: %w", path, err)
	}
	return f.Close()
}
