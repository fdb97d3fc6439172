// Package model holds the shared domain types for the invoice extraction
// and stamp verification pipeline.
package model

import (
	"encoding/json"
	"time"
)

// FieldKey identifies an extractable invoice field.
type FieldKey string

const (
	FieldShipmentID FieldKey = "shipmentId"
	FieldDeliveryID FieldKey = "deliveryId"
)

// StrategySource records which extraction strategy produced a candidate.
type StrategySource string

const (
	// SourcePrimary is the document-QA model cascade.
	SourcePrimary StrategySource = "primary"
	// SourceFallback is the OCR-plus-pattern scan.
	SourceFallback StrategySource = "fallback"
)

// CandidateAnswer is one raw answer from an extraction strategy. Candidates
// are ephemeral: they exist only between a query attempt and validation.
type CandidateAnswer struct {
	Text       string
	Confidence float64
	Source     StrategySource
}

// FieldSet maps field keys to accepted values. A key maps to "" when no
// query produced an accepted candidate.
type FieldSet map[FieldKey]string

// Value returns the accepted value for key, or "" when absent.
func (f FieldSet) Value(key FieldKey) string {
	if f == nil {
		return ""
	}
	return f[key]
}

// Empty reports whether none of the given keys carry a value.
func (f FieldSet) Empty(keys ...FieldKey) bool {
	for _, k := range keys {
		if f.Value(k) != "" {
			return false
		}
	}
	return true
}

// Rect is an axis-aligned box as [x1, y1, x2, y2] page coordinates.
type Rect [4]float64

// BoundingBox is one stamp detection on a page.
type BoundingBox struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Rotation   float64 `json:"rotation"`
	Confidence float64 `json:"confidence"`
}

// Rect returns the box coordinates without rotation or confidence.
func (b BoundingBox) Rect() Rect {
	return Rect{b.X1, b.Y1, b.X2, b.Y2}
}

// StampMatch is a detected stamp resolved to a company identity.
type StampMatch struct {
	CompanyID   string `json:"companyId"`
	Coordinates Rect   `json:"boundingBoxCoordinates"`
}

// PageRecord is the per-page extraction result. Records are immutable once
// the coordinator returns them.
type PageRecord struct {
	PageIndex       int          `json:"page"`
	ShipmentID      string       `json:"shipmentId"`
	DeliveryID      string       `json:"deliveryId"`
	StampCount      int          `json:"stampCount,omitempty"`
	StampDetails    []StampMatch `json:"stampDetails,omitempty"`
	DurationSeconds float64      `json:"duration"`
}

// VerificationRecord is the document-level result of checking a document
// against one target company. Existence and match aggregate across pages;
// boxes accumulate in page order.
type VerificationRecord struct {
	CompanyExists bool   `json:"companyExists"`
	CompanyMatch  bool   `json:"companyMatch"`
	Boxes         []Rect `json:"boundingBoxCoordinates"`
}

// StampEnrollment is the outcome of adding a stamp embedding to the
// similarity index.
type StampEnrollment struct {
	StampID   string `json:"stampId"`
	CompanyID string `json:"companyId"`
}

// RunKind distinguishes the operations recorded in run history.
type RunKind string

const (
	RunExtract RunKind = "extract"
	RunVerify  RunKind = "verify"
	RunEnroll  RunKind = "enroll"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded document operation.
type Run struct {
	ID        string          `json:"id"`
	Kind      RunKind         `json:"kind"`
	Document  string          `json:"document"`
	Status    RunStatus       `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
