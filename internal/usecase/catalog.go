package usecase

import (
	"context"

	"EditaisScanner/internal/classify"
	"EditaisScanner/internal/ports"
)

// Catalog answers which category labels exist.
type Catalog struct {
	reader      ports.CategoryReader
	categorizer *classify.Categorizer
}

// NewCatalog wires storage and the taxonomy used as the seed list. reader may be nil.
func NewCatalog(reader ports.CategoryReader, categorizer *classify.Categorizer) *Catalog {
	if categorizer == nil {
		categorizer = classify.NewCategorizer(classify.DefaultTaxonomy())
	}
	return &Catalog{reader: reader, categorizer: categorizer}
}

// Categories returns the distinct stored categories, or the taxonomy labels when storage has
// none yet.
func (c *Catalog) Categories(ctx context.Context) ([]string, error) {
	if c.reader != nil {
		stored, err := c.reader.DistinctCategories(ctx)
		if err != nil {
			return nil, err
		}
		if len(stored) > 0 {
			return stored, nil
		}
	}
	return c.categorizer.Labels(), nil
}
