package selector

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// dimPercent is the brightness kept in the darkened backdrop
	dimPercent = 30

	borderThickness = 2
	cornerSize      = 8
)

var (
	borderColor = color.RGBA{R: 0, G: 174, B: 255, A: 255}
	labelColor  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	labelShadow = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// darken produces the dimmed backdrop shown outside the selection
func darken(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(b)
	for i := 0; i < len(src.Pix); i += 4 {
		out.Pix[i+0] = uint8(int(src.Pix[i+0]) * dimPercent / 100)
		out.Pix[i+1] = uint8(int(src.Pix[i+1]) * dimPercent / 100)
		out.Pix[i+2] = uint8(int(src.Pix[i+2]) * dimPercent / 100)
		out.Pix[i+3] = 0xff
	}
	return out
}

// normalizeRect converts two drag corners into a canonical rectangle
func normalizeRect(x0, y0, x1, y1 int) image.Rectangle {
	return image.Rect(x0, y0, x1, y1) // image.Rect canonicalizes
}

// renderFrame composes one overlay frame into dst: the dimmed
// backdrop, the original pixels revealed inside sel, a border with
// corner markers, and a size label.
func renderFrame(dst, dark, snapshot *image.RGBA, sel image.Rectangle) {
	copy(dst.Pix, dark.Pix)

	sel = sel.Intersect(dst.Bounds())
	if sel.Empty() {
		return
	}

	draw.Draw(dst, sel, snapshot, sel.Min, draw.Src)
	drawBorder(dst, sel)
	drawCorners(dst, sel)
	drawSizeLabel(dst, sel)
}

func drawBorder(dst *image.RGBA, sel image.Rectangle) {
	fillRect(dst, image.Rect(sel.Min.X, sel.Min.Y, sel.Max.X, sel.Min.Y+borderThickness))
	fillRect(dst, image.Rect(sel.Min.X, sel.Max.Y-borderThickness, sel.Max.X, sel.Max.Y))
	fillRect(dst, image.Rect(sel.Min.X, sel.Min.Y, sel.Min.X+borderThickness, sel.Max.Y))
	fillRect(dst, image.Rect(sel.Max.X-borderThickness, sel.Min.Y, sel.Max.X, sel.Max.Y))
}

func drawCorners(dst *image.RGBA, sel image.Rectangle) {
	corners := []image.Point{
		sel.Min,
		{X: sel.Max.X - cornerSize, Y: sel.Min.Y},
		{X: sel.Min.X, Y: sel.Max.Y - cornerSize},
		{X: sel.Max.X - cornerSize, Y: sel.Max.Y - cornerSize},
	}
	for _, c := range corners {
		fillRect(dst, image.Rect(c.X, c.Y, c.X+cornerSize, c.Y+cornerSize))
	}
}

func fillRect(dst *image.RGBA, r image.Rectangle) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), &image.Uniform{C: borderColor}, image.Point{}, draw.Src)
}

// drawSizeLabel renders "WxH" near the selection, placed above it when
// there is room and inside it otherwise.
func drawSizeLabel(dst *image.RGBA, sel image.Rectangle) {
	text := fmt.Sprintf("%dx%d", sel.Dx(), sel.Dy())

	face := basicfont.Face7x13
	x := sel.Min.X
	y := sel.Min.Y - 6
	if y-face.Ascent < dst.Bounds().Min.Y {
		y = sel.Min.Y + face.Ascent + 6
	}

	// shadow first, then the label
	drawText(dst, text, face, x+1, y+1, labelShadow)
	drawText(dst, text, face, x, y, labelColor)
}

func drawText(dst *image.RGBA, text string, face font.Face, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
