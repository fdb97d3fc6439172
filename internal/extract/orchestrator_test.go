package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/invoice-cli/internal/model"
)

type mockAnswerer struct {
	mock.Mock
}

func (m *mockAnswerer) Answer(ctx context.Context, imagePath, prompt string) (model.CandidateAnswer, error) {
	args := m.Called(ctx, imagePath, prompt)
	return args.Get(0).(model.CandidateAnswer), args.Error(1)
}

type mockRecognizer struct {
	mock.Mock
}

func (m *mockRecognizer) RecognizeText(ctx context.Context, imagePath string) (string, error) {
	args := m.Called(ctx, imagePath)
	return args.String(0), args.Error(1)
}

func noAnswer() model.CandidateAnswer { return model.CandidateAnswer{} }

func TestExtractFieldsFirstPromptWinsShortCircuit(t *testing.T) {
	ctx := context.Background()
	qa := &mockAnswerer{}
	ocr := &mockRecognizer{}

	// Only the first shipment prompt may be issued; a second call would be
	// an unexpected invocation and fail the test.
	qa.On("Answer", ctx, "page.png", "what is No. Embarque?").
		Return(model.CandidateAnswer{Text: "4712345", Confidence: 0.95}, nil).Once()
	qa.On("Answer", ctx, "page.png", "what is No entrega ?").
		Return(model.CandidateAnswer{Text: "8512345", Confidence: 0.95}, nil).Once()

	o := NewOrchestrator(qa, ocr, nil, NewValidator())
	fields := o.ExtractFields(ctx, "page.png")

	assert.Equal(t, "4712345", fields.Value(model.FieldShipmentID))
	assert.Equal(t, "8512345", fields.Value(model.FieldDeliveryID))
	qa.AssertExpectations(t)
	ocr.AssertNotCalled(t, "RecognizeText", mock.Anything, mock.Anything)
}

func TestExtractFieldsRejectedCandidateTriesNextPrompt(t *testing.T) {
	ctx := context.Background()
	qa := &mockAnswerer{}
	ocr := &mockRecognizer{}

	// First prompt confident but garbled; second prompt clean.
	qa.On("Answer", ctx, "page.png", "what is No. Embarque?").
		Return(model.CandidateAnswer{Text: "1234756", Confidence: 0.99}, nil).Once()
	qa.On("Answer", ctx, "page.png", "what is Shipment Number?").
		Return(model.CandidateAnswer{Text: "4712345", Confidence: 0.95}, nil).Once()
	qa.On("Answer", ctx, "page.png", "what is No entrega ?").
		Return(model.CandidateAnswer{Text: "8512345", Confidence: 0.95}, nil).Once()

	o := NewOrchestrator(qa, ocr, nil, NewValidator())
	fields := o.ExtractFields(ctx, "page.png")

	assert.Equal(t, "4712345", fields.Value(model.FieldShipmentID))
	qa.AssertExpectations(t)
}

func TestExtractFieldsInferenceErrorIsNotFatal(t *testing.T) {
	ctx := context.Background()
	qa := &mockAnswerer{}
	ocr := &mockRecognizer{}

	qa.On("Answer", ctx, "page.png", "what is No. Embarque?").
		Return(noAnswer(), errors.New("model server unavailable")).Once()
	qa.On("Answer", ctx, "page.png", "what is Shipment Number?").
		Return(model.CandidateAnswer{Text: "4712345", Confidence: 0.95}, nil).Once()
	qa.On("Answer", ctx, "page.png", "what is No entrega ?").
		Return(model.CandidateAnswer{Text: "8512345", Confidence: 0.95}, nil).Once()

	o := NewOrchestrator(qa, ocr, nil, NewValidator())
	fields := o.ExtractFields(ctx, "page.png")

	assert.Equal(t, "4712345", fields.Value(model.FieldShipmentID))
	assert.Equal(t, "8512345", fields.Value(model.FieldDeliveryID))
	qa.AssertExpectations(t)
}

func TestExtractFieldsFallbackInvokedOnceWhenBothEmpty(t *testing.T) {
	ctx := context.Background()
	qa := &mockAnswerer{}
	ocr := &mockRecognizer{}

	qa.On("Answer", ctx, "page.png", mock.AnythingOfType("string")).
		Return(noAnswer(), nil).Times(5)
	ocr.On("RecognizeText", ctx, "page.png").
		Return("No. Embarque 4712345 No entrega 8512345", nil).Once()

	o := NewOrchestrator(qa, ocr, nil, NewValidator())
	fields := o.ExtractFields(ctx, "page.png")

	assert.Equal(t, "4712345", fields.Value(model.FieldShipmentID))
	assert.Equal(t, "8512345", fields.Value(model.FieldDeliveryID))
	qa.AssertExpectations(t)
	ocr.AssertExpectations(t)
}

func TestExtractFieldsNoFallbackWhenOneFieldFound(t *testing.T) {
	ctx := context.Background()
	qa := &mockAnswerer{}
	ocr := &mockRecognizer{}

	qa.On("Answer", ctx, "page.png", "what is No. Embarque?").
		Return(model.CandidateAnswer{Text: "4712345", Confidence: 0.95}, nil).Once()
	qa.On("Answer", ctx, "page.png", mock.AnythingOfType("string")).
		Return(noAnswer(), nil).Times(3)

	o := NewOrchestrator(qa, ocr, nil, NewValidator())
	fields := o.ExtractFields(ctx, "page.png")

	assert.Equal(t, "4712345", fields.Value(model.FieldShipmentID))
	assert.Empty(t, fields.Value(model.FieldDeliveryID))
	ocr.AssertNotCalled(t, "RecognizeText", mock.Anything, mock.Anything)
}

func TestExtractFieldsFallbackErrorLeavesFieldsEmpty(t *testing.T) {
	ctx := context.Background()
	qa := &mockAnswerer{}
	ocr := &mockRecognizer{}

	qa.On("Answer", ctx, "page.png", mock.AnythingOfType("string")).
		Return(noAnswer(), nil).Times(5)
	ocr.On("RecognizeText", ctx, "page.png").
		Return("", errors.New("ocr timeout")).Once()

	o := NewOrchestrator(qa, ocr, nil, NewValidator())
	fields := o.ExtractFields(ctx, "page.png")

	assert.Empty(t, fields.Value(model.FieldShipmentID))
	assert.Empty(t, fields.Value(model.FieldDeliveryID))
}
