package importer

import (
	"math"
	"sort"
)

// aggressiveDiscountPct marks deals whose discount is steep enough to warrant
// a merchant-review warning.
const aggressiveDiscountPct = 90

// ApplyDiscountRules selects a tier per row and computes the final price.
//
// Tier selection: rules are sorted ascending by days_lte and the applicable
// tier is the first whose threshold is >= the row's days-to-expiry, i.e. the
// smallest sufficient threshold. Rows beyond every threshold fall back to the
// largest tier. A same-day row therefore matches even a days_lte=1 tier.
func ApplyDiscountRules(rows []NormalizedRow, rules []DiscountRule, roundPrices bool) ([]DealPreview, error) {
	if len(rules) == 0 {
		return nil, newValidationError([]RowError{{
			Row:     0,
			Field:   "discount_rules",
			Value:   "[]",
			Message: "At least one discount rule is required",
		}})
	}

	sorted := make([]DiscountRule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DaysLte < sorted[j].DaysLte })

	deals := make([]DealPreview, 0, len(rows))
	for _, row := range rows {
		tier := sorted[len(sorted)-1]
		for _, rule := range sorted {
			if rule.DaysLte >= row.DaysToExpiry {
				tier = rule
				break
			}
		}

		finalPrice := row.OriginalPrice * (1 - float64(tier.DiscountPct)/100)

		if roundPrices && finalPrice >= 0.90 {
			charmed := math.Round(finalPrice-0.9) + 0.9
			// Guard: never let rounding produce a negative price.
			if charmed >= 0 {
				finalPrice = charmed
			}
		}
		finalPrice = math.Round(finalPrice*100) / 100

		deals = append(deals, DealPreview{
			NormalizedRow:      row,
			DiscountPct:        tier.DiscountPct,
			FinalPrice:         finalPrice,
			AggressiveDiscount: tier.DiscountPct >= aggressiveDiscountPct,
		})
	}
	return deals, nil
}
