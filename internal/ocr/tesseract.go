package ocr

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/rotisserie/eris"
)

// Tesseract recognizes text from images using the tesseract CLI tool.
type Tesseract struct {
	binPath   string
	languages string
}

// NewTesseract creates a Tesseract recognizer. If binPath is empty,
// "tesseract" is used; if languages is empty, "eng+spa" is used (shipment
// documents mix English and Spanish field labels).
func NewTesseract(binPath, languages string) *Tesseract {
	if binPath == "" {
		binPath = "tesseract"
	}
	if languages == "" {
		languages = "eng+spa"
	}
	return &Tesseract{binPath: binPath, languages: languages}
}

// RecognizeText runs tesseract on the given image and returns stdout.
func (t *Tesseract) RecognizeText(ctx context.Context, imagePath string) (string, error) {
	cmd := exec.CommandContext(ctx, t.binPath, imagePath, "-", "-l", t.languages)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "ocr: tesseract failed for %s: %s", imagePath, stderr.String())
	}

	return stdout.String(), nil
}
