package detector

import (
	"image"
	"image/color"

	"go-detection-viewer/pkg/models"

	"github.com/disintegration/imaging"
)

var boxColor = color.NRGBA{R: 255, G: 56, B: 56, A: 255}

const boxThickness = 2

// DrawBoxes returns a copy of img with an outline around every box.
// Boxes are clipped to the image bounds.
func DrawBoxes(img image.Image, boxes []models.BoundingBox) *image.NRGBA {
	dst := imaging.Clone(img)
	bounds := dst.Bounds()

	for _, box := range boxes {
		rect := image.Rect(box.X, box.Y, box.X+box.Width, box.Y+box.Height).
			Add(bounds.Min).
			Intersect(bounds)
		if rect.Empty() {
			continue
		}
		for t := 0; t < boxThickness; t++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				dst.SetNRGBA(x, rect.Min.Y+t, boxColor)
				dst.SetNRGBA(x, rect.Max.Y-1-t, boxColor)
			}
			for y := rect.Min.Y; y < rect.Max.Y; y++ {
				dst.SetNRGBA(rect.Min.X+t, y, boxColor)
				dst.SetNRGBA(rect.Max.X-1-t, y, boxColor)
			}
		}
	}
	return dst
}
