package stamp

import (
	"bytes"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/model"
)

// cropRegion cuts the given box out of a page image and returns it encoded
// as PNG. Coordinates are clamped to the image bounds.
func cropRegion(imagePath string, rect model.Rect) ([]byte, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, eris.Wrapf(err, "stamp: open image %s", imagePath)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, eris.Wrapf(err, "stamp: decode image %s", imagePath)
	}

	bounds := img.Bounds()
	region := image.Rect(int(rect[0]), int(rect[1]), int(rect[2]), int(rect[3])).Intersect(bounds)
	if region.Empty() {
		return nil, eris.Errorf("stamp: box %v lies outside image bounds %v", rect, bounds)
	}

	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	si, ok := img.(subImager)
	if !ok {
		return nil, eris.New("stamp: image type does not support cropping")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, si.SubImage(region)); err != nil {
		return nil, eris.Wrap(err, "stamp: encode crop")
	}
	return buf.Bytes(), nil
}
