package dataset

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spboyer/irtcal/internal/models"
	"github.com/spboyer/irtcal/internal/validation"
)

// document is the YAML/JSON dataset layout.
type document struct {
	Examinees int               `yaml:"examinees"`
	Items     int               `yaml:"items"`
	ItemNames []string          `yaml:"item_names,omitempty"`
	Responses []models.Response `yaml:"responses"`
}

// parseDocument reads a YAML or JSON dataset after checking it against the
// dataset schema.
func parseDocument(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if errs := validation.ValidateDatasetBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("%w: yaml: %s", models.ErrInvalidInput, strings.Join(errs, "; "))
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: yaml: %v", models.ErrInvalidInput, err)
	}
	if len(doc.ItemNames) > 0 && len(doc.ItemNames) != doc.Items {
		return nil, fmt.Errorf("%w: yaml: %d item names for %d items", models.ErrInvalidInput, len(doc.ItemNames), doc.Items)
	}

	d, err := models.NewDataset(doc.Examinees, doc.Items, doc.Responses)
	if err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return &Table{Dataset: d, ItemNames: doc.ItemNames, Format: FormatYAML}, nil
}
