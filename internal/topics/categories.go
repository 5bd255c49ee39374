// Package topics maps aggregator-specific category names onto the common
// category vocabulary the pipeline uses across all sources.
package topics

import (
	"fmt"
	"sort"

	"newsdal/internal/model"
)

// SupportedAggregationCategories is the common category vocabulary.
var SupportedAggregationCategories = map[string]struct{}{
	"business":      {},
	"entertainment": {},
	"health":        {},
	"science":       {},
	"sports":        {},
	"technology":    {},
	"politics":      {},
	"world":         {},
}

// IsSupportedCategory reports whether name is in the common vocabulary.
func IsSupportedCategory(name string) bool {
	_, ok := SupportedAggregationCategories[name]
	return ok
}

// SupportedCategories returns the common vocabulary in sorted order.
func SupportedCategories() []string {
	names := make([]string, 0, len(SupportedAggregationCategories))
	for name := range SupportedAggregationCategories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AggregatorCategoryMapper translates one aggregator's category names into
// the common vocabulary.
type AggregatorCategoryMapper struct {
	aggregatorID string
	mapping      map[string]string
}

// NewAggregatorCategoryMapper builds a mapper. Every target value in the
// mapping must be a supported common category.
func NewAggregatorCategoryMapper(aggregatorID string, mapping map[string]string) (*AggregatorCategoryMapper, error) {
	for source, target := range mapping {
		if !IsSupportedCategory(target) {
			return nil, fmt.Errorf("aggregator %s maps %q to unsupported category %q", aggregatorID, source, target)
		}
	}
	copied := make(map[string]string, len(mapping))
	for source, target := range mapping {
		copied[source] = target
	}
	return &AggregatorCategoryMapper{aggregatorID: aggregatorID, mapping: copied}, nil
}

func (m *AggregatorCategoryMapper) AggregatorID() string {
	return m.aggregatorID
}

// Category returns the common category for an aggregator-specific name, or
// the no-category sentinel when the name is unmapped.
func (m *AggregatorCategoryMapper) Category(aggregatorCategory string) string {
	if target, ok := m.mapping[aggregatorCategory]; ok {
		return target
	}
	return model.NoCategory
}
