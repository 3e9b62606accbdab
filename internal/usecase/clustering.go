package usecase

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/serpprice/backend/internal/domain"
)

const (
	otherBrandsKey  = "otras"
	otherBrandsName = "Otras marcas"
	otherTierName   = "Otros"
)

// clusterBuilder keeps clusters in first-seen order so ties sort stably
type clusterBuilder struct {
	order []*domain.ProductCluster
	byKey map[string]*domain.ProductCluster
}

func newClusterBuilder() *clusterBuilder {
	return &clusterBuilder{byKey: make(map[string]*domain.ProductCluster)}
}

func (b *clusterBuilder) add(key, name string, p *domain.ProductRecord) {
	c, ok := b.byKey[key]
	if !ok {
		c = &domain.ProductCluster{Key: key, Name: name}
		b.byKey[key] = c
		b.order = append(b.order, c)
	}
	c.Products = append(c.Products, p)
}

// build returns clusters largest first
func (b *clusterBuilder) build() []*domain.ProductCluster {
	out := make([]*domain.ProductCluster, len(b.order))
	copy(out, b.order)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Products) > len(out[j].Products)
	})
	return out
}

// ClusterByTier groups priced products by brand, series, GPU tier and CPU
// generation. Products without specs are extracted from their title.
func ClusterByTier(products []*domain.ProductRecord) []*domain.ProductCluster {
	b := newClusterBuilder()
	for _, p := range products {
		if !p.HasPrice() {
			continue
		}
		specs := specsOf(p)
		b.add(specs.TierKey(), tierClusterName(specs), p)
	}
	return b.build()
}

func tierClusterName(specs domain.ProductSpecs) string {
	var parts []string
	if specs.Brand != "" {
		parts = append(parts, specs.Brand)
	}
	if specs.Series != "" {
		parts = append(parts, specs.Series)
	}
	if specs.GPUTier != "" {
		parts = append(parts, specs.GPUTier)
	} else if specs.GPU != "" {
		parts = append(parts, specs.GPU)
	}
	if len(parts) == 0 {
		return otherTierName
	}
	return strings.Join(parts, " ")
}

// ClusterByBrand groups priced products by the brand detected in the title.
// Titles without a known brand share one catch-all cluster.
func ClusterByBrand(products []*domain.ProductRecord) []*domain.ProductCluster {
	title := cases.Title(language.Spanish)
	b := newClusterBuilder()
	for _, p := range products {
		if !p.HasPrice() {
			continue
		}
		brand := detectBrand(expandSynonyms(normalizeTitle(p.Title)))
		if brand == "" {
			b.add(otherBrandsKey, otherBrandsName, p)
			continue
		}
		b.add(brand, title.String(brand), p)
	}
	return b.build()
}

// ClusterProducts dispatches to the requested strategy
func ClusterProducts(products []*domain.ProductRecord, strategy domain.ClusterStrategy) []*domain.ProductCluster {
	if strategy == domain.ClusterByTier {
		return ClusterByTier(products)
	}
	return ClusterByBrand(products)
}

// specsOf returns the product's specs, extracting them when absent
func specsOf(p *domain.ProductRecord) domain.ProductSpecs {
	if p.Specs != nil {
		return *p.Specs
	}
	return ExtractSpecs(p.Title)
}
