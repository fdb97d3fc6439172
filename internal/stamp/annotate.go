package stamp

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/model"
)

var annotationColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}

const annotationThickness = 2

// DrawBoxes renders the given boxes onto a copy of the page image and
// returns it encoded as PNG. Used for visual inspection of detections.
func DrawBoxes(imagePath string, boxes []model.Rect) ([]byte, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, eris.Wrapf(err, "stamp: open image %s", imagePath)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, eris.Wrapf(err, "stamp: decode image %s", imagePath)
	}

	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	for _, box := range boxes {
		rect := image.Rect(int(box[0]), int(box[1]), int(box[2]), int(box[3])).Intersect(canvas.Bounds())
		if rect.Empty() {
			continue
		}
		drawRect(canvas, rect)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, eris.Wrap(err, "stamp: encode annotated image")
	}
	return buf.Bytes(), nil
}

func drawRect(canvas *image.RGBA, rect image.Rectangle) {
	for t := 0; t < annotationThickness; t++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			canvas.Set(x, rect.Min.Y+t, annotationColor)
			canvas.Set(x, rect.Max.Y-1-t, annotationColor)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			canvas.Set(rect.Min.X+t, y, annotationColor)
			canvas.Set(rect.Max.X-1-t, y, annotationColor)
		}
	}
}
