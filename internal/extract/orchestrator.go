package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
)

// QueryAnswerer is the primary extraction strategy: a document-QA model
// that answers one natural-language prompt over one page image.
type QueryAnswerer interface {
	Answer(ctx context.Context, imagePath, prompt string) (model.CandidateAnswer, error)
}

// TextRecognizer supplies full-page text for the OCR fallback strategy.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, imagePath string) (string, error)
}

// Orchestrator drives the prioritized query cascade through the primary
// strategy and falls back to an OCR pattern scan when the primary strategy
// recovers neither identifier.
type Orchestrator struct {
	qa        QueryAnswerer
	ocr       TextRecognizer
	queries   []FieldQueries
	validator Validator
}

// NewOrchestrator wires the orchestrator with its collaborators. queries
// may be nil, in which case the built-in set is used.
func NewOrchestrator(qa QueryAnswerer, ocr TextRecognizer, queries []FieldQueries, validator Validator) *Orchestrator {
	if queries == nil {
		queries = DefaultQueries()
	}
	return &Orchestrator{qa: qa, ocr: ocr, queries: queries, validator: validator}
}

// ExtractFields runs the cascade over one page image. Every configured key
// is present in the result; keys with no accepted candidate map to "".
// Individual inference failures are never fatal to the page.
func (o *Orchestrator) ExtractFields(ctx context.Context, imagePath string) model.FieldSet {
	log := zap.L().With(zap.String("image", imagePath))
	results := make(model.FieldSet, len(o.queries))

	for _, fq := range o.queries {
		results[fq.Key] = o.runCascade(ctx, log, imagePath, fq, results)
	}

	if results.Empty(model.FieldShipmentID, model.FieldDeliveryID) {
		log.Info("extract: primary strategy found no identifiers, running OCR fallback")
		o.ocrFallback(ctx, log, imagePath, results)
	}

	log.Info("extract: fields extracted",
		zap.String("shipment_id", results.Value(model.FieldShipmentID)),
		zap.String("delivery_id", results.Value(model.FieldDeliveryID)),
	)
	return results
}

// runCascade tries each prompt for one key in priority order and returns
// the first accepted answer, or "" when no prompt satisfies the validator.
func (o *Orchestrator) runCascade(ctx context.Context, log *zap.Logger, imagePath string, fq FieldQueries, prior model.FieldSet) string {
	for _, prompt := range fq.Prompts {
		answer, err := o.qa.Answer(ctx, imagePath, prompt)
		if err != nil {
			// A single failed inference is "no candidate"; try the
			// next prompt.
			log.Warn("extract: query failed",
				zap.String("key", string(fq.Key)),
				zap.String("prompt", prompt),
				zap.Error(err),
			)
			continue
		}
		if answer.Text == "" {
			continue
		}

		answer.Source = model.SourcePrimary
		accepted := o.validator.Accept(answer, fq.Key, prior)
		log.Debug("extract: candidate evaluated",
			zap.String("key", string(fq.Key)),
			zap.String("answer", answer.Text),
			zap.Float64("confidence", answer.Confidence),
			zap.Bool("accepted", accepted),
		)
		if accepted {
			return answer.Text
		}
	}
	return ""
}

// ocrFallback recognizes the whole page once and overlays any identifiers
// the pattern extractor recovers. It is all-or-nothing per page: invoked
// only when the primary strategy found neither id.
func (o *Orchestrator) ocrFallback(ctx context.Context, log *zap.Logger, imagePath string, results model.FieldSet) {
	text, err := o.ocr.RecognizeText(ctx, imagePath)
	if err != nil {
		log.Warn("extract: OCR fallback failed", zap.Error(err))
		return
	}

	results[model.FieldShipmentID] = ShipmentNumber(text)
	results[model.FieldDeliveryID] = DeliveryNumber(text)
}
