package docpipe

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-cli/pkg/vision"
)

type mockVision struct {
	mock.Mock
}

func (m *mockVision) DetectStamps(ctx context.Context, imagePath string) ([]vision.Detection, error) {
	args := m.Called(ctx, imagePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vision.Detection), args.Error(1)
}

func (m *mockVision) ClassifyDocument(ctx context.Context, imagePath string) (*vision.Classification, error) {
	args := m.Called(ctx, imagePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vision.Classification), args.Error(1)
}

func TestRelevantTopLabelWins(t *testing.T) {
	v := &mockVision{}
	v.On("ClassifyDocument", mock.Anything, "page.png").Return(&vision.Classification{
		Labels: []string{"Relevant", "Irrelevant", "Cover"},
		Probs:  []float64{0.7, 0.2, 0.1},
	}, nil)

	ok, err := NewRelevancyFilter(v, "").Relevant(context.Background(), "page.png")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRelevantRunnerUpDoesNotCount(t *testing.T) {
	v := &mockVision{}
	v.On("ClassifyDocument", mock.Anything, "page.png").Return(&vision.Classification{
		Labels: []string{"Relevant", "Irrelevant"},
		Probs:  []float64{0.4, 0.6},
	}, nil)

	ok, err := NewRelevancyFilter(v, "").Relevant(context.Background(), "page.png")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRelevantCustomLabel(t *testing.T) {
	v := &mockVision{}
	v.On("ClassifyDocument", mock.Anything, "page.png").Return(&vision.Classification{
		Labels: []string{"invoice", "other"},
		Probs:  []float64{0.9, 0.1},
	}, nil)

	ok, err := NewRelevancyFilter(v, "invoice").Relevant(context.Background(), "page.png")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRelevantClassifierError(t *testing.T) {
	v := &mockVision{}
	v.On("ClassifyDocument", mock.Anything, "page.png").Return(nil, eris.New("model server down"))

	_, err := NewRelevancyFilter(v, "").Relevant(context.Background(), "page.png")
	assert.Error(t, err)
}
