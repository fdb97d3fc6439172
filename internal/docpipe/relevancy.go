package docpipe

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/pkg/vision"
)

// defaultRelevancyLabel is the classifier label that admits a page into
// field extraction.
const defaultRelevancyLabel = "Relevant"

// RelevancyFilter decides whether a page is worth extracting fields from.
type RelevancyFilter struct {
	vision vision.Client
	label  string
}

// NewRelevancyFilter creates a filter over the page classifier. An empty
// label takes the default.
func NewRelevancyFilter(v vision.Client, label string) *RelevancyFilter {
	if label == "" {
		label = defaultRelevancyLabel
	}
	return &RelevancyFilter{vision: v, label: label}
}

// Relevant classifies one page image. Only the single most probable class
// counts; a relevant runner-up never admits a page.
func (f *RelevancyFilter) Relevant(ctx context.Context, imagePath string) (bool, error) {
	classification, err := f.vision.ClassifyDocument(ctx, imagePath)
	if err != nil {
		return false, eris.Wrap(err, "docpipe: classify page")
	}

	top := classification.Top()
	zap.L().Debug("docpipe: page classified",
		zap.String("image", imagePath),
		zap.String("label", top),
	)
	return top == f.label, nil
}
