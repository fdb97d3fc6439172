package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// ParseSource classifies a raw value as a URL source when it carries a
// scheme the fetcher supports, and a local path otherwise.
func ParseSource(value string) Source {
	lower := strings.ToLower(value)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "ftp://") {
		return Source{URL: value}
	}
	return Source{Path: value}
}

// ReadSourceList reads document sources from CSV input, one source per
// row in the first column. Extra columns are ignored, blank rows are
// skipped, and a leading "source" header row is tolerated. A positive
// limit stops reading once that many sources are collected.
func ReadSourceList(r io.Reader, limit int) ([]Source, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var sources []Source
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return sources, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "fetch: read source list")
		}

		value := strings.TrimSpace(row[0])
		if first {
			first = false
			if strings.EqualFold(value, "source") {
				continue
			}
		}
		if value == "" {
			continue
		}

		sources = append(sources, ParseSource(value))
		if limit > 0 && len(sources) >= limit {
			return sources, nil
		}
	}
}
