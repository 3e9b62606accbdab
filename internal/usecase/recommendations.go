package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/serpprice/backend/internal/domain"
)

const (
	topRankTarget        = 3
	increaseMarginFloor  = 20.0
	increaseMarginShare  = 0.7
	aggressiveDiscount   = 15.0
	maxNamedOfferStores  = 3
	maxListedOffers      = 5
	clusterOverpriceRate = 1.10
	maxTitleInPayload    = 60
)

// generateRecommendations evaluates every rule independently and returns
// the findings ordered high to medium to low, stable within a priority.
func generateRecommendations(a *domain.PriceAnalysis, cfg domain.AnalysisConfig) []domain.Recommendation {
	recs := []domain.Recommendation{}
	add := func(r *domain.Recommendation) {
		if r != nil {
			recs = append(recs, *r)
		}
	}

	priced := pricedProducts(a.AllProducts)
	if len(priced) > 0 {
		add(priceCutRecommendation(a, priced))
		add(priceIncreaseRecommendation(a, priced))
		add(similarCheaperRecommendation(a))
		add(aggressiveOffersRecommendation(a, priced))
		add(ownListingsRecommendation(a))
	}
	add(notVisibleRecommendation(a))
	if len(priced) > 0 && cfg.Strategy() == domain.StrategySpecs {
		add(clusterPriceRecommendation(a))
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() < recs[j].Priority.Rank()
	})
	return recs
}

func priceCutRecommendation(a *domain.PriceAnalysis, priced []*domain.ProductRecord) *domain.Recommendation {
	if a.Cheapest == nil || a.Cheapest.Price >= a.SellerPrice {
		return nil
	}
	gap := a.SellerPrice - a.Cheapest.Price

	if a.YourPriceRank > topRankTarget {
		prices := sortedPrices(priced)
		target := prices[topRankTarget-1]
		cut := a.SellerPrice - target
		if cut <= 0 {
			return nil
		}
		return &domain.Recommendation{
			Type:        domain.RecPriceReduction,
			Priority:    domain.PriorityHigh,
			Title:       "Cut price to compete",
			Description: fmt.Sprintf("You are #%d by price. %s has the best price at %.2f€.", a.YourPriceRank, a.Cheapest.Store, a.Cheapest.Price),
			Action:      fmt.Sprintf("Lower your price by %.2f€ to enter the top %d", cut, topRankTarget),
			Impact:      fmt.Sprintf("You would move from #%d to #%d", a.YourPriceRank, topRankTarget),
			Data: map[string]any{
				"current_rank":     a.YourPriceRank,
				"target_rank":      topRankTarget,
				"target_price":     target,
				"reduction_needed": cut,
				"competitor":       a.Cheapest.Store,
			},
		}
	}

	if a.YourPriceRank > 1 {
		return &domain.Recommendation{
			Type:        domain.RecPriceReduction,
			Priority:    domain.PriorityMedium,
			Title:       "Within reach of the lowest price",
			Description: fmt.Sprintf("You are %.2f€ away from the best price.", gap),
			Action:      fmt.Sprintf("Lower your price by %.2f€ to be the cheapest", gap),
			Impact:      fmt.Sprintf("You would move from #%d to #1", a.YourPriceRank),
			Data: map[string]any{
				"current_rank":     a.YourPriceRank,
				"reduction_needed": gap,
				"competitor":       a.Cheapest.Store,
			},
		}
	}
	return nil
}

func priceIncreaseRecommendation(a *domain.PriceAnalysis, priced []*domain.ProductRecord) *domain.Recommendation {
	if a.YourPriceRank != 1 || len(priced) < 2 {
		return nil
	}
	byPrice := make([]*domain.ProductRecord, len(priced))
	copy(byPrice, priced)
	sort.SliceStable(byPrice, func(i, j int) bool { return byPrice[i].Price < byPrice[j].Price })

	next := byPrice[1]
	margin := next.Price - a.SellerPrice
	if margin <= increaseMarginFloor {
		return nil
	}
	increase := margin * increaseMarginShare
	return &domain.Recommendation{
		Type:        domain.RecPriceIncrease,
		Priority:    domain.PriorityMedium,
		Title:       "Room to raise your price",
		Description: fmt.Sprintf("You are the cheapest with a %.2f€ lead over %s.", margin, next.Store),
		Action:      fmt.Sprintf("You could raise your price by up to %.2f€ and stay competitive", increase),
		Impact:      "Higher margin while keeping the top position",
		Data: map[string]any{
			"margin_available":     margin,
			"recommended_increase": increase,
			"next_competitor":      next.Store,
			"next_price":           next.Price,
		},
	}
}

func similarCheaperRecommendation(a *domain.PriceAnalysis) *domain.Recommendation {
	var cheapest *domain.ProductRecord
	for _, p := range a.ExactMatches {
		if !p.HasPrice() || p.Price >= a.SellerPrice {
			continue
		}
		if cheapest == nil || p.Price < cheapest.Price {
			cheapest = p
		}
	}
	if cheapest == nil {
		return nil
	}
	gap := a.SellerPrice - cheapest.Price
	return &domain.Recommendation{
		Type:        domain.RecSimilarProductAlert,
		Priority:    domain.PriorityHigh,
		Title:       "Near-identical product is cheaper",
		Description: fmt.Sprintf("%s lists an equivalent product at %.2f€ (%.2f€ below you).", cheapest.Store, cheapest.Price, gap),
		Action:      "Check whether it is the same product and adjust your price",
		Impact:      "Direct loss of sales",
		Data: map[string]any{
			"competitor":       cheapest.Store,
			"competitor_price": cheapest.Price,
			"gap":              gap,
			"match_level":      cheapest.MatchLevel.String(),
			"product":          truncate(cheapest.Title, maxTitleInPayload),
		},
	}
}

func aggressiveOffersRecommendation(a *domain.PriceAnalysis, priced []*domain.ProductRecord) *domain.Recommendation {
	var offers []*domain.ProductRecord
	for _, p := range priced {
		if isOwnListing(p, a.YourStoreProducts) {
			continue
		}
		if pct, ok := p.DiscountPct(); ok && pct > aggressiveDiscount {
			offers = append(offers, p)
		}
	}
	if len(offers) == 0 {
		return nil
	}

	var stores []string
	seen := make(map[string]bool)
	for _, p := range offers {
		if len(stores) == maxNamedOfferStores {
			break
		}
		if p.Store != "" && !seen[p.Store] {
			seen[p.Store] = true
			stores = append(stores, p.Store)
		}
	}

	listed := make([]map[string]any, 0, maxListedOffers)
	for i, p := range offers {
		if i == maxListedOffers {
			break
		}
		pct, _ := p.DiscountPct()
		listed = append(listed, map[string]any{"store": p.Store, "discount": pct, "price": p.Price})
	}

	return &domain.Recommendation{
		Type:        domain.RecAlert,
		Priority:    domain.PriorityHigh,
		Title:       fmt.Sprintf("%d competitors running aggressive offers", len(offers)),
		Description: fmt.Sprintf("Discounts above %.0f%% at stores such as %s.", aggressiveDiscount, strings.Join(stores, ", ")),
		Action:      "Monitor these offers and consider responding",
		Impact:      "Risk of losing sales to temporary promotions",
		Data:        map[string]any{"offers": listed, "stores": stores},
	}
}

func ownListingsRecommendation(a *domain.PriceAnalysis) *domain.Recommendation {
	if len(a.YourStoreProducts) <= 1 {
		return nil
	}
	listed := make([]map[string]any, 0, len(a.YourStoreProducts))
	for _, p := range a.YourStoreProducts {
		listed = append(listed, map[string]any{"title": truncate(p.Title, 50), "price": p.Price})
	}
	return &domain.Recommendation{
		Type:        domain.RecOpportunity,
		Priority:    domain.PriorityLow,
		Title:       fmt.Sprintf("%d of your listings appear", len(a.YourStoreProducts)),
		Description: "Several of your products rank for this search.",
		Action:      "Check that all of them are relevant or whether they compete with each other",
		Impact:      "Cleaner visible catalog",
		Data:        map[string]any{"products": listed},
	}
}

func notVisibleRecommendation(a *domain.PriceAnalysis) *domain.Recommendation {
	if a.YourSERPPosition != nil || len(a.YourStoreProducts) > 0 {
		return nil
	}
	return &domain.Recommendation{
		Type:        domain.RecAlert,
		Priority:    domain.PriorityHigh,
		Title:       "Not visible in the results",
		Description: "Your store does not appear for this search.",
		Action:      "Review your product feed and Shopping campaigns",
		Impact:      "Complete loss of visibility",
		Data:        map[string]any{},
	}
}

func clusterPriceRecommendation(a *domain.PriceAnalysis) *domain.Recommendation {
	c := a.YourCluster
	if c == nil || len(c.Products) <= 1 {
		return nil
	}
	avg := c.AvgPrice()
	if avg <= 0 || a.SellerPrice <= avg*clusterOverpriceRate {
		return nil
	}
	over := a.SellerPrice - avg
	return &domain.Recommendation{
		Type:        domain.RecClusterAnalysis,
		Priority:    domain.PriorityHigh,
		Title:       fmt.Sprintf("Above the %s average", c.Name),
		Description: fmt.Sprintf("Comparable products average %.2f€; you are %.2f€ (%.0f%%) above.", avg, over, over/avg*100),
		Action:      fmt.Sprintf("Align your price with the cluster average of %.2f€", avg),
		Impact:      "Better competitiveness against comparable products",
		Data: map[string]any{
			"cluster":       c.Name,
			"cluster_size":  len(c.Products),
			"cluster_avg":   avg,
			"excess":        over,
			"rank_in_group": a.YourPriceRankInCluster,
		},
	}
}

func isOwnListing(p *domain.ProductRecord, own []*domain.ProductRecord) bool {
	for _, o := range own {
		if o == p {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
