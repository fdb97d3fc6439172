package extract

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/invoice-cli/internal/model"
)

// FieldQueries maps one field key to its ordered prompt variants. Slice
// order is priority order: the first prompt whose answer passes validation
// wins and the rest are skipped.
type FieldQueries struct {
	Key     model.FieldKey `yaml:"key"`
	Prompts []string       `yaml:"prompts"`
}

// DefaultQueries returns the built-in query set. The Spanish variants lead
// because the bulk of the document corpus is Spanish-language invoices.
func DefaultQueries() []FieldQueries {
	return []FieldQueries{
		{
			Key: model.FieldShipmentID,
			Prompts: []string{
				"what is No. Embarque?",
				"what is Shipment Number?",
			},
		},
		{
			Key: model.FieldDeliveryID,
			Prompts: []string{
				"what is No entrega ?",
				"what is Delivery Note Number?",
				"what is No. remission?",
			},
		},
	}
}

// LoadQueries reads a query set from a YAML file. The file is a list of
// {key, prompts} entries; list order is preserved as priority order.
func LoadQueries(path string) ([]FieldQueries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read query set %s", path)
	}

	var queries []FieldQueries
	if err := yaml.Unmarshal(data, &queries); err != nil {
		return nil, eris.Wrapf(err, "extract: parse query set %s", path)
	}

	for _, q := range queries {
		if q.Key == "" || len(q.Prompts) == 0 {
			return nil, eris.Errorf("extract: query set %s: every entry needs a key and at least one prompt", path)
		}
	}
	return queries, nil
}
