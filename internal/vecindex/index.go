// Package vecindex provides the similarity index holding stamp embeddings.
// Queries are read-only; the explicit Upsert path is the only write.
package vecindex

import "context"

// MetadataCompanyID is the payload field tagging each embedding with the
// company that owns the stamp.
const MetadataCompanyID = "company_id"

// Point is one stored embedding with its metadata.
type Point struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// Match is a single nearest-neighbor result.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// CompanyID returns the company tag from the match metadata, or "".
func (m Match) CompanyID() string {
	if v, ok := m.Metadata[MetadataCompanyID].(string); ok {
		return v
	}
	return ""
}

// Index is the nearest-neighbor store for stamp embeddings.
type Index interface {
	// Search returns the topK nearest neighbors of vector, ordered by
	// descending similarity. A non-empty companyID restricts results to
	// embeddings tagged with that company.
	Search(ctx context.Context, vector []float32, topK int, companyID string) ([]Match, error)

	// Upsert writes one embedding. Implementations wait for the write to
	// be acknowledged, not necessarily for it to be queryable.
	Upsert(ctx context.Context, point Point) error

	// Has reports whether a point with the given id is visible to reads.
	// Used by the enrollment settle policy.
	Has(ctx context.Context, id string) (bool, error)
}
