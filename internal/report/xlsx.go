// Package report writes batch processing results to spreadsheet files for
// the operations team.
package report

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/invoice-cli/internal/model"
)

// DocumentResult is one batch entry: a processed document and its page
// records, or the error that stopped it.
type DocumentResult struct {
	Document string
	Records  []model.PageRecord
	Err      error
}

var header = []string{
	"document", "page", "shipment_id", "delivery_id",
	"stamp_count", "companies", "duration_seconds", "error",
}

// WriteXLSX writes one row per processed page (or one row per failed
// document) to an XLSX file at path.
func WriteXLSX(path string, results []DocumentResult) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("results")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	headerRow := sheet.AddRow()
	for _, h := range header {
		headerRow.AddCell().SetString(h)
	}

	for _, result := range results {
		if result.Err != nil {
			row := sheet.AddRow()
			row.AddCell().SetString(result.Document)
			for range 6 {
				row.AddCell()
			}
			row.AddCell().SetString(result.Err.Error())
			continue
		}

		for _, record := range result.Records {
			row := sheet.AddRow()
			row.AddCell().SetString(result.Document)
			row.AddCell().SetInt(record.PageIndex)
			row.AddCell().SetString(record.ShipmentID)
			row.AddCell().SetString(record.DeliveryID)
			row.AddCell().SetInt(record.StampCount)
			row.AddCell().SetString(companyList(record.StampDetails))
			row.AddCell().SetFloat(record.DurationSeconds)
			row.AddCell()
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func companyList(matches []model.StampMatch) string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.CompanyID)
	}
	return strings.Join(ids, ", ")
}
