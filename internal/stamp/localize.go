// Package stamp implements stamp localization on invoice pages and the
// resolution of localized stamps to company identities through the
// embedding similarity index.
package stamp

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/pkg/vision"
)

// minDetectionConfidence is the exclusive lower bound for keeping a
// detector box. Boxes at exactly this confidence are dropped.
const minDetectionConfidence = 0.35

// Localizer produces candidate stamp bounding boxes from the detector.
type Localizer struct {
	vision vision.Client
}

// NewLocalizer creates a Localizer over the vision model server.
func NewLocalizer(v vision.Client) *Localizer {
	return &Localizer{vision: v}
}

// Locate runs the stamp detector on a page image and returns the boxes
// surviving the confidence filter. No merging or suppression is applied
// beyond what the detector already did.
func (l *Localizer) Locate(ctx context.Context, imagePath string) ([]model.BoundingBox, error) {
	detections, err := l.vision.DetectStamps(ctx, imagePath)
	if err != nil {
		return nil, eris.Wrap(err, "stamp: detect")
	}

	boxes := make([]model.BoundingBox, 0, len(detections))
	for _, d := range detections {
		if d.Confidence <= minDetectionConfidence {
			continue
		}
		boxes = append(boxes, model.BoundingBox{
			X1:         d.X1,
			Y1:         d.Y1,
			X2:         d.X2,
			Y2:         d.Y2,
			Rotation:   d.Rotation,
			Confidence: d.Confidence,
		})
	}
	return boxes, nil
}
