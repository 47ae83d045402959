// Package annotate draws detection boxes onto an image.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/skyscope/skyscope/internal/models"
)

// palette cycles per class so neighbouring boxes stay distinguishable
var palette = []color.RGBA{
	{255, 215, 0, 255},
	{0, 200, 255, 255},
	{255, 80, 80, 255},
	{120, 255, 120, 255},
	{255, 120, 255, 255},
}

const thickness = 2

// Draw returns a copy of img with a labelled rectangle per detection.
func Draw(img image.Image, detections []models.Detection) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	colors := map[string]color.RGBA{}
	for _, d := range detections {
		c, ok := colors[d.Class]
		if !ok {
			c = palette[len(colors)%len(palette)]
			colors[d.Class] = c
		}

		r := image.Rect(
			bounds.Min.X+int(math.Round(d.BBox[0])),
			bounds.Min.Y+int(math.Round(d.BBox[1])),
			bounds.Min.X+int(math.Round(d.BBox[2])),
			bounds.Min.Y+int(math.Round(d.BBox[3])),
		).Intersect(bounds)
		if r.Empty() {
			continue
		}
		rectangle(out, r, c)
		label(out, r, c, fmt.Sprintf("%s %.2f", d.Class, d.Confidence))
	}
	return out
}

// WritePNG encodes img as PNG
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func rectangle(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	src := &image.Uniform{c}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}

func label(dst *image.RGBA, r image.Rectangle, c color.RGBA, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()

	// above the box when there is room, otherwise just inside it
	top := r.Min.Y - height
	if top < dst.Bounds().Min.Y {
		top = r.Min.Y
	}
	bg := image.Rect(r.Min.X, top, r.Min.X+width+4, top+height).Intersect(dst.Bounds())
	draw.Draw(dst, bg, &image.Uniform{c}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(r.Min.X+2, top+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}
