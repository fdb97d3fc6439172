package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Remote recognizes text through a hosted OCR model server.
type Remote struct {
	endpoint string
	client   *http.Client
}

// NewRemote creates a Remote recognizer against the given endpoint.
func NewRemote(endpoint string) *Remote {
	return &Remote{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

type remoteOCRRequest struct {
	Image string `json:"image"`
}

type remoteOCRResponse struct {
	Lines []string `json:"lines"`
	Text  string   `json:"text"`
}

// RecognizeText reads an image file, sends it to the model server, and
// returns the recognized text. Servers answer with either a flat text
// field or per-line strings; lines win when both are present.
func (r *Remote) RecognizeText(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: read image %s", imagePath)
	}

	bodyBytes, err := json.Marshal(remoteOCRRequest{
		Image: base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return "", eris.Wrap(err, "ocr: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "ocr: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "ocr: model server call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "ocr: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("ocr: model server returned %d: %s", resp.StatusCode, string(respBody))
	}

	var ocrResp remoteOCRResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return "", eris.Wrap(err, "ocr: unmarshal response")
	}

	if len(ocrResp.Lines) > 0 {
		return strings.Join(ocrResp.Lines, "\n"), nil
	}
	return ocrResp.Text, nil
}
