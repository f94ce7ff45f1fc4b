package screenshot

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"strings"

	"golang.org/x/image/bmp"

	"github.com/bryanchriswhite/snapmaster/internal/logger"
)

// Format is an output image format
type Format string

const (
	FormatPNG  Format = "PNG"
	FormatJPEG Format = "JPEG"
	FormatBMP  Format = "BMP"
	FormatGIF  Format = "GIF"
)

const (
	minQuality = 10
	maxQuality = 100
)

// ParseFormat normalizes a user-supplied format name, defaulting to
// PNG for anything unrecognized.
func ParseFormat(s string) Format {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "JPEG", "JPG":
		return FormatJPEG
	case "BMP":
		return FormatBMP
	case "GIF":
		return FormatGIF
	default:
		return FormatPNG
	}
}

// Ext returns the file extension for the format
func (f Format) Ext() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatBMP:
		return ".bmp"
	case FormatGIF:
		return ".gif"
	default:
		return ".png"
	}
}

// clampQuality bounds JPEG quality to a sane range
func clampQuality(q int) int {
	if q < minQuality {
		return minQuality
	}
	if q > maxQuality {
		return maxQuality
	}
	return q
}

// encodeTo writes img to path in the given format
func encodeTo(path string, img image.Image, format Format, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	switch format {
	case FormatJPEG:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: clampQuality(quality)})
	case FormatBMP:
		err = bmp.Encode(f, img)
	case FormatGIF:
		err = gif.Encode(f, img, &gif.Options{NumColors: 256})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", string(format), err)
	}

	return f.Close()
}

// saveImage writes img to path, falling back to PNG under a .png
// extension when the requested format fails to encode. The fallback
// runs once; PNG failures are final.
func saveImage(path string, img image.Image, format Format, quality int) (string, error) {
	err := encodeTo(path, img, format, quality)
	if err == nil {
		return path, nil
	}
	if format == FormatPNG {
		return "", err
	}

	logger.WithComponent("screenshot").Warn().
		Str("format", string(format)).
		Err(err).
		Msg("Encoding failed, retrying as PNG")

	os.Remove(path)
	pngPath := strings.TrimSuffix(path, format.Ext()) + FormatPNG.Ext()
	if err := encodeTo(pngPath, img, FormatPNG, quality); err != nil {
		return "", err
	}
	return pngPath, nil
}
