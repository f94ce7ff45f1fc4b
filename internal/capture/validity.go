package capture

import "image"

const (
	// minCaptureDim rejects degenerate captures of collapsed or
	// still-mapping windows.
	minCaptureDim = 10

	// Sampling grid for the blank-image check. A full pixel scan on a
	// 4K capture is wasted work when a sparse grid answers the same
	// question.
	sampleGrid = 32

	litThreshold  = 24 // per-pixel RGB sum above this counts as lit
	litMinPercent = 10 // captures need at least this share of lit samples
)

// validCapture reports whether img looks like a real window capture:
// large enough to be a window, and not uniformly black. Compositor
// pixmap copies of unmapped or freshly-minimized windows come back as
// all-zero buffers, which this rejects so the chain can fall through
// to the next strategy.
func validCapture(img *image.RGBA) bool {
	if img == nil {
		return false
	}

	b := img.Bounds()
	if b.Dx() < minCaptureDim || b.Dy() < minCaptureDim {
		return false
	}

	stepX := b.Dx() / sampleGrid
	if stepX < 1 {
		stepX = 1
	}
	stepY := b.Dy() / sampleGrid
	if stepY < 1 {
		stepY = 1
	}

	samples, lit := 0, 0
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			off := img.PixOffset(x, y)
			sum := int(img.Pix[off]) + int(img.Pix[off+1]) + int(img.Pix[off+2])
			samples++
			if sum > litThreshold {
				lit++
			}
		}
	}

	if samples == 0 {
		return false
	}
	return lit*100 >= samples*litMinPercent
}
