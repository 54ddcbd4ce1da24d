package asset

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

// Texture is tightly packed 8-bit RGBA pixel data.
type Texture struct {
	Width  int
	Height int
	Pixels []byte
}

// LoadTexture decodes a PNG or JPEG file.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open texture")
	}
	defer f.Close()

	texture, err := DecodeTexture(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode texture %s", path)
	}

	log.WithFields(log.Fields{
		"path":   path,
		"width":  texture.Width,
		"height": texture.Height,
	}).Info("loaded texture")

	return texture, nil
}

// DecodeTexture decodes any registered image format into RGBA.
func DecodeTexture(r io.Reader) (*Texture, error) {
	decodedImage, format, err := image.Decode(r)
	if err != nil {
		return nil, err
	}

	bounds := decodedImage.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), decodedImage, bounds.Min, draw.Src)

	log.WithField("format", format).Debug("decoded texture")

	return &Texture{
		Width:  rgba.Rect.Dx(),
		Height: rgba.Rect.Dy(),
		Pixels: rgba.Pix,
	}, nil
}
