package extract

import (
	"github.com/sells-group/invoice-cli/internal/model"
)

// Validator scores a candidate answer against the acceptance rules.
type Validator struct {
	// MinConfidence is exclusive: a candidate at exactly this confidence
	// is rejected.
	MinConfidence float64
	// MinLength is the minimum accepted answer length.
	MinLength int
}

// NewValidator returns a Validator with the production thresholds.
func NewValidator() Validator {
	return Validator{MinConfidence: 0.9, MinLength: minNumberLength}
}

// Accept reports whether a candidate answer should be recorded for key.
// prior holds fields already accepted for the same page; a delivery number
// equal to the accepted shipment number is rejected to prevent field
// confusion when both prompts hit the same number.
func (v Validator) Accept(answer model.CandidateAnswer, key model.FieldKey, prior model.FieldSet) bool {
	if answer.Confidence <= v.MinConfidence {
		return false
	}
	if len(answer.Text) < v.MinLength {
		return false
	}
	if !digitsOnly(answer.Text) {
		return false
	}
	if answer.Source == model.SourcePrimary && !v.reproducible(answer.Text, key) {
		return false
	}
	if key == model.FieldDeliveryID && answer.Text == prior.Value(model.FieldShipmentID) {
		return false
	}
	return true
}

// reproducible guards against the model returning a partial or garbled
// numeric string: the pattern extractor must reproduce the answer exactly.
func (v Validator) reproducible(answer string, key model.FieldKey) bool {
	switch key {
	case model.FieldShipmentID:
		return ShipmentNumber(answer) == answer
	case model.FieldDeliveryID:
		return DeliveryNumber(answer) == answer
	default:
		return true
	}
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
