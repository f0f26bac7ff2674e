package posture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultAnnotateWidth bounds the width of the annotated photo
const DefaultAnnotateWidth = 640

var (
	shoulderColor = drawing.Color{R: 0x27, G: 0xAE, B: 0x60, A: 0xFF}
	hipColor      = drawing.Color{R: 0xE7, G: 0x4C, B: 0x3C, A: 0xFF}
	labelColor    = drawing.Color{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	labelBack     = drawing.Color{R: 0x00, G: 0x00, B: 0x00, A: 0xA0}
)

// Annotate scales the photo down to maxWidth and draws the shoulder and hip
// segments with the ratio written in the corner. The result is PNG encoded.
func Annotate(src image.Image, l Landmarks, ratio float64, maxWidth int) ([]byte, error) {
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("empty image")
	}

	w, h := b.Dx(), b.Dy()
	if maxWidth > 0 && w > maxWidth {
		h = h * maxWidth / w
		w = maxWidth
		if h == 0 {
			h = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	gc, err := drawing.NewRasterGraphicContext(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create graphic context: %w", err)
	}

	lineWidth := float64(w) / 160
	if lineWidth < 2 {
		lineWidth = 2
	}
	segment(gc, l.LeftShoulder, l.RightShoulder, w, h, shoulderColor, lineWidth)
	segment(gc, l.LeftHip, l.RightHip, w, h, hipColor, lineWidth)

	label(dst, fmt.Sprintf("shoulder/hip %.2f", ratio))

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode annotated photo: %w", err)
	}
	return buf.Bytes(), nil
}

// segment strokes a line between two normalized points and marks both ends
func segment(gc *drawing.RasterGraphicContext, a, b Point, w, h int, c drawing.Color, width float64) {
	ax, ay := a.X*float64(w), a.Y*float64(h)
	bx, by := b.X*float64(w), b.Y*float64(h)

	gc.BeginPath()
	gc.SetStrokeColor(c)
	gc.SetLineWidth(width)
	gc.MoveTo(ax, ay)
	gc.LineTo(bx, by)
	gc.Stroke()

	gc.SetFillColor(c)
	for _, p := range [][2]float64{{ax, ay}, {bx, by}} {
		gc.BeginPath()
		gc.MoveTo(p[0]+width*1.5, p[1])
		gc.ArcTo(p[0], p[1], width*1.5, width*1.5, 0, 2*math.Pi)
		gc.Close()
		gc.Fill()
	}
}

// label writes text on a translucent strip in the top left corner
func label(dst *image.RGBA, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil() + 12
	height := face.Metrics().Height.Ceil() + 8

	strip := image.Rect(0, 0, width, height).Intersect(dst.Bounds())
	draw.Draw(dst, strip, image.NewUniform(labelBack), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(6, face.Metrics().Ascent.Ceil()+4),
	}
	d.DrawString(text)
}
