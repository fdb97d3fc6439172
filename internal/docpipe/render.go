package docpipe

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/rotisserie/eris"
)

// renderPDF rasterizes every page of a PDF into PNG files under dir and
// returns the page image paths in page order.
func renderPDF(pdfPath, dir string, dpi int) ([]string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, eris.Wrapf(err, "docpipe: open PDF %s", pdfPath)
	}
	defer doc.Close()

	if dpi <= 0 {
		dpi = 200
	}

	paths := make([]string, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.ImageDPI(n, float64(dpi))
		if err != nil {
			return nil, eris.Wrapf(err, "docpipe: render page %d of %s", n, pdfPath)
		}

		path := filepath.Join(dir, fmt.Sprintf("page_%03d.png", n))
		f, err := os.Create(path)
		if err != nil {
			return nil, eris.Wrapf(err, "docpipe: create page image %s", path)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return nil, eris.Wrapf(err, "docpipe: encode page image %s", path)
		}
		if err := f.Close(); err != nil {
			return nil, eris.Wrapf(err, "docpipe: close page image %s", path)
		}
		paths = append(paths, path)
	}

	return paths, nil
}
