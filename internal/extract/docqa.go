package extract

import (
	"context"
	"strings"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/pkg/docqa"
)

// DocQAAnswerer adapts a docqa.Client to the cascade's QueryAnswerer.
type DocQAAnswerer struct {
	client docqa.Client
}

// NewDocQAAnswerer wraps a document-QA client.
func NewDocQAAnswerer(client docqa.Client) *DocQAAnswerer {
	return &DocQAAnswerer{client: client}
}

// Answer runs one prompt and tags the result as a primary-strategy
// candidate.
func (a *DocQAAnswerer) Answer(ctx context.Context, imagePath, prompt string) (model.CandidateAnswer, error) {
	ans, err := a.client.Answer(ctx, imagePath, prompt)
	if err != nil {
		return model.CandidateAnswer{}, err
	}
	return model.CandidateAnswer{
		Text:       strings.TrimSpace(ans.Text),
		Confidence: ans.Confidence,
		Source:     model.SourcePrimary,
	}, nil
}
