package vision

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/webp"
)

// LoadImage decodes a screenshot from disk. Format is taken from the file
// extension; webp goes through x/image because imaging does not decode it.
func LoadImage(path string) (image.Image, error) {
	switch FormatFromPath(path) {
	case "webp":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open screenshot: %w", err)
		}
		defer f.Close()
		img, err := webp.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode webp screenshot %s: %w", path, err)
		}
		return img, nil
	default:
		img, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("decode screenshot %s: %w", path, err)
		}
		return img, nil
	}
}

// FormatFromPath maps a file extension to the contract's format enum. An
// unrecognized extension comes back empty.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".webp":
		return "webp"
	case ".bmp":
		return "bmp"
	default:
		return ""
	}
}

// NewRawInput builds the raw-input payload for a screenshot on disk by
// probing its dimensions.
func NewRawInput(path string) (RawInput, error) {
	format := FormatFromPath(path)
	if format == "" {
		return RawInput{}, fmt.Errorf("unsupported screenshot format %q", filepath.Ext(path))
	}
	img, err := LoadImage(path)
	if err != nil {
		return RawInput{}, err
	}
	b := img.Bounds()
	return RawInput{
		Version:   1,
		ImagePath: path,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Format:    format,
	}, nil
}
