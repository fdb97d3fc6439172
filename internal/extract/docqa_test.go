package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/pkg/docqa"
)

type mockDocQA struct {
	mock.Mock
}

func (m *mockDocQA) Answer(ctx context.Context, imagePath, prompt string) (*docqa.Answer, error) {
	args := m.Called(ctx, imagePath, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*docqa.Answer), args.Error(1)
}

func TestDocQAAnswererTrimsAndTags(t *testing.T) {
	client := &mockDocQA{}
	client.On("Answer", mock.Anything, "page.png", "What is the shipment number?").
		Return(&docqa.Answer{Text: " 0471234567 ", Confidence: 0.97}, nil)

	answer, err := NewDocQAAnswerer(client).Answer(context.Background(), "page.png", "What is the shipment number?")
	require.NoError(t, err)
	assert.Equal(t, "0471234567", answer.Text)
	assert.Equal(t, 0.97, answer.Confidence)
	assert.Equal(t, model.SourcePrimary, answer.Source)
}

func TestDocQAAnswererPropagatesError(t *testing.T) {
	client := &mockDocQA{}
	client.On("Answer", mock.Anything, "page.png", "prompt").
		Return(nil, assert.AnError)

	_, err := NewDocQAAnswerer(client).Answer(context.Background(), "page.png", "prompt")
	assert.Error(t, err)
}
