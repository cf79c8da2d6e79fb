package economy

import (
	"fmt"

	"fishbot-economy-api/internal/catalog"
	"fishbot-economy-api/internal/model"
)

// SellPricePolicy decides what a sold item pays out.
type SellPricePolicy string

const (
	// SellAtCurrentPrice pays the catalog price at the time of the sale.
	// Items no longer listed pay their recorded price.
	SellAtCurrentPrice SellPricePolicy = "current"
	// SellAtPurchasePrice pays the price recorded in the inventory copy.
	SellAtPurchasePrice SellPricePolicy = "purchase"
)

// ParseSellPricePolicy accepts "current" and "purchase". Empty means current.
func ParseSellPricePolicy(s string) (SellPricePolicy, error) {
	switch SellPricePolicy(s) {
	case "", SellAtCurrentPrice:
		return SellAtCurrentPrice, nil
	case SellAtPurchasePrice:
		return SellAtPurchasePrice, nil
	default:
		return "", fmt.Errorf("unknown sell price policy %q", s)
	}
}

func (p SellPricePolicy) payout(c *catalog.Catalog, held model.Item) int64 {
	if p == SellAtPurchasePrice {
		return held.Price
	}
	if listed, err := c.FindByName(held.Name); err == nil {
		return listed.Price
	}
	return held.Price
}
