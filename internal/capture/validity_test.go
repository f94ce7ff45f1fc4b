package capture

import (
	"image"
	"image/color"
	"testing"
)

func TestValidCapture(t *testing.T) {
	lit := filledImage(200, 200, color.RGBA{128, 128, 128, 255})
	if !validCapture(lit) {
		t.Error("uniformly lit image should be valid")
	}

	black := image.NewRGBA(image.Rect(0, 0, 200, 200))
	if validCapture(black) {
		t.Error("all-black image should be invalid")
	}

	if validCapture(nil) {
		t.Error("nil image should be invalid")
	}

	tiny := filledImage(5, 5, color.RGBA{128, 128, 128, 255})
	if validCapture(tiny) {
		t.Error("sub-minimum image should be invalid")
	}
}

func TestValidCapturePartiallyLit(t *testing.T) {
	// Dark capture with a lit band: enough signal to accept.
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 30; y++ {
		for x := 0; x < 100; x++ {
			img.SetRGBA(x, y, color.RGBA{200, 200, 200, 255})
		}
	}
	if !validCapture(img) {
		t.Error("image with a lit band should be valid")
	}

	// A few lit pixels in a black field: still blank for practical
	// purposes.
	sparse := image.NewRGBA(image.Rect(0, 0, 100, 100))
	sparse.SetRGBA(0, 0, color.RGBA{255, 255, 255, 255})
	if validCapture(sparse) {
		t.Error("nearly black image should be invalid")
	}
}

func TestConvertZPixmap(t *testing.T) {
	// One pixel, BGRX order: blue=1, green=2, red=3.
	data := []byte{1, 2, 3, 0}
	img, err := convertZPixmap(data, 1, 1)
	if err != nil {
		t.Fatalf("convertZPixmap: %v", err)
	}
	got := img.RGBAAt(0, 0)
	want := color.RGBA{R: 3, G: 2, B: 1, A: 255}
	if got != want {
		t.Errorf("pixel = %+v, want %+v", got, want)
	}
}

func TestConvertZPixmapShortData(t *testing.T) {
	if _, err := convertZPixmap([]byte{1, 2}, 10, 10); err == nil {
		t.Error("expected error for short data")
	}
}
