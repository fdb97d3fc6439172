package docpipe

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/stamp"
)

// FieldExtractor produces the field set for one page image.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, imagePath string) model.FieldSet
}

// StampLocator produces filtered stamp boxes for one page image.
type StampLocator interface {
	Locate(ctx context.Context, imagePath string) ([]model.BoundingBox, error)
}

// StampResolver resolves localized stamps to company identities.
type StampResolver interface {
	Identify(ctx context.Context, imagePath string, box model.BoundingBox) (*model.StampMatch, error)
	VerifyPage(ctx context.Context, imagePath string, boxes []model.BoundingBox, companyID string) model.VerificationRecord
	Enroll(ctx context.Context, imagePath, companyID string) (model.StampEnrollment, error)
}

// PageFilter decides whether a page is worth processing.
type PageFilter interface {
	Relevant(ctx context.Context, imagePath string) (bool, error)
}

// CoordinatorConfig tunes document processing.
type CoordinatorConfig struct {
	// TempDir is where rendered page images live; empty means the
	// system default.
	TempDir string
	// RenderDPI is the PDF rasterization resolution (default 200).
	RenderDPI int
	// SkipRelevancy disables the page classifier for PDFs.
	SkipRelevancy bool
}

// Coordinator runs the per-document state machine: file type detection,
// page rendering, relevancy filtering, field extraction, and the stamp
// workflows. Pages are processed sequentially.
type Coordinator struct {
	extractor FieldExtractor
	locator   StampLocator
	resolver  StampResolver
	filter    PageFilter
	cfg       CoordinatorConfig
}

// NewCoordinator wires a Coordinator from its collaborators.
func NewCoordinator(extractor FieldExtractor, locator StampLocator, resolver StampResolver, filter PageFilter, cfg CoordinatorConfig) *Coordinator {
	return &Coordinator{
		extractor: extractor,
		locator:   locator,
		resolver:  resolver,
		filter:    filter,
		cfg:       cfg,
	}
}

// Options controls processing of one document.
type Options struct {
	// StampDetection enables stamp localization and open identification
	// per page.
	StampDetection bool
	// Transient marks the input as a temporary artifact to be deleted
	// when processing ends, success or failure.
	Transient bool
}

// page is one retained page awaiting extraction.
type page struct {
	index     int // 1-based position in the original document
	imagePath string
}

// Process extracts fields (and optionally stamps) from every retained page
// of a document. A failure on one page yields an empty record for that
// page; sibling pages still run. Only unsupported input fails the whole
// document.
func (c *Coordinator) Process(ctx context.Context, path string, opts Options) ([]model.PageRecord, error) {
	if opts.Transient {
		defer c.cleanup(path)
	}

	pages, done, err := c.pages(ctx, path)
	if err != nil {
		return nil, err
	}
	defer done()

	records := make([]model.PageRecord, 0, len(pages))
	for _, p := range pages {
		records = append(records, c.processPage(ctx, p, opts.StampDetection))
	}
	return records, nil
}

func (c *Coordinator) processPage(ctx context.Context, p page, stampDetection bool) model.PageRecord {
	log := zap.L().With(zap.Int("page", p.index))
	started := time.Now()

	record := model.PageRecord{
		PageIndex:    p.index,
		StampDetails: []model.StampMatch{},
	}

	fields := c.extractor.ExtractFields(ctx, p.imagePath)
	record.ShipmentID = fields.Value(model.FieldShipmentID)
	record.DeliveryID = fields.Value(model.FieldDeliveryID)

	if stampDetection {
		boxes, err := c.locator.Locate(ctx, p.imagePath)
		if err != nil {
			// Stamp failures degrade to a record without stamps.
			log.Warn("docpipe: stamp localization failed", zap.Error(err))
		} else {
			record.StampCount = len(boxes)
			for _, box := range boxes {
				match, err := c.resolver.Identify(ctx, p.imagePath, box)
				if err != nil {
					log.Warn("docpipe: stamp identification failed", zap.Error(err))
					continue
				}
				if match != nil {
					record.StampDetails = append(record.StampDetails, *match)
				}
			}
		}
	}

	record.DurationSeconds = time.Since(started).Seconds()
	log.Info("docpipe: page processed",
		zap.String("shipment_id", record.ShipmentID),
		zap.String("delivery_id", record.DeliveryID),
		zap.Int("stamp_count", record.StampCount),
		zap.Float64("duration", record.DurationSeconds),
	)
	return record
}

// Verify checks whether the target company's stamp appears anywhere in the
// document. Existence and match aggregate across pages with OR; boxes from
// every page accumulate in order.
func (c *Coordinator) Verify(ctx context.Context, path, companyID string, transient bool) (model.VerificationRecord, error) {
	if transient {
		defer c.cleanup(path)
	}

	pages, done, err := c.pages(ctx, path)
	if err != nil {
		return model.VerificationRecord{}, err
	}
	defer done()

	record := model.VerificationRecord{Boxes: []model.Rect{}}
	detected := false
	for _, p := range pages {
		boxes, err := c.locator.Locate(ctx, p.imagePath)
		if err != nil {
			return model.VerificationRecord{}, eris.Wrapf(err, "docpipe: locate stamps on page %d", p.index)
		}
		if len(boxes) == 0 {
			continue
		}
		detected = true

		pageRecord := c.resolver.VerifyPage(ctx, p.imagePath, boxes, companyID)
		record.CompanyExists = record.CompanyExists || pageRecord.CompanyExists
		record.CompanyMatch = record.CompanyMatch || pageRecord.CompanyMatch
		record.Boxes = append(record.Boxes, pageRecord.Boxes...)
	}

	if !detected {
		return model.VerificationRecord{}, model.ErrNoStampMatch
	}
	return record, nil
}

// Enroll registers a stamp image for a company. Only raster images are
// accepted; PDFs are rejected before any model call.
func (c *Coordinator) Enroll(ctx context.Context, path, companyID string, transient bool) (model.StampEnrollment, error) {
	if transient {
		defer c.cleanup(path)
	}

	if DetectFileType(path) != FileTypeImage {
		return model.StampEnrollment{}, model.ErrEnrollmentNotImage
	}
	return c.resolver.Enroll(ctx, path, companyID)
}

// Annotate draws the detected stamp boxes onto a page image and returns
// the result as PNG bytes. Image inputs only.
func (c *Coordinator) Annotate(ctx context.Context, path string, transient bool) ([]byte, error) {
	if transient {
		defer c.cleanup(path)
	}

	if DetectFileType(path) != FileTypeImage {
		return nil, model.ErrUnsupportedFileType
	}

	boxes, err := c.locator.Locate(ctx, path)
	if err != nil {
		return nil, eris.Wrap(err, "docpipe: locate stamps")
	}

	rects := make([]model.Rect, len(boxes))
	for i, b := range boxes {
		rects[i] = b.Rect()
	}
	return stamp.DrawBoxes(path, rects)
}

// pages resolves a document into its retained pages plus a finalizer for
// rendered artifacts. Image inputs are a single always-retained page; PDF
// pages pass the relevancy filter, keeping their original 1-based index.
func (c *Coordinator) pages(ctx context.Context, path string) ([]page, func(), error) {
	noop := func() {}

	switch DetectFileType(path) {
	case FileTypeImage:
		return []page{{index: 1, imagePath: path}}, noop, nil

	case FileTypePDF:
		dir, err := os.MkdirTemp(c.cfg.TempDir, "invoice-pages-*")
		if err != nil {
			return nil, noop, eris.Wrap(err, "docpipe: create page dir")
		}
		done := func() {
			if err := os.RemoveAll(dir); err != nil {
				zap.L().Warn("docpipe: remove page dir failed", zap.String("dir", dir), zap.Error(err))
			}
		}

		paths, err := renderPDF(path, dir, c.cfg.RenderDPI)
		if err != nil {
			done()
			return nil, noop, err
		}

		return c.filterPages(ctx, paths), done, nil

	default:
		return nil, noop, model.ErrUnsupportedFileType
	}
}

// filterPages runs the relevancy classifier over rendered page images.
// A dropped page does not renumber its survivors: each retained page
// keeps the 1-based index of its position in the original document.
func (c *Coordinator) filterPages(ctx context.Context, paths []string) []page {
	pages := make([]page, 0, len(paths))
	for i, imagePath := range paths {
		p := page{index: i + 1, imagePath: imagePath}
		if c.cfg.SkipRelevancy {
			pages = append(pages, p)
			continue
		}
		relevant, err := c.filter.Relevant(ctx, imagePath)
		if err != nil {
			// Fail open: a classifier outage must not drop pages.
			zap.L().Warn("docpipe: relevancy check failed", zap.Int("page", p.index), zap.Error(err))
			relevant = true
		}
		if relevant {
			pages = append(pages, p)
		}
	}
	return pages
}

// cleanup deletes a transient input artifact, best-effort.
func (c *Coordinator) cleanup(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		zap.L().Warn("docpipe: cleanup failed", zap.String("path", path), zap.Error(err))
	}
}
