package importer

import "sort"

// BuildPreview assembles the dry-run summary: raw counts, accumulated row
// errors, and a discount histogram sorted ascending by percentage. No I/O.
func BuildPreview(retained, expired []NormalizedRow, errs []RowError, totalRows int, deals []DealPreview) Preview {
	counts := make(map[int]int, len(deals))
	for _, deal := range deals {
		counts[deal.DiscountPct]++
	}

	distribution := make([]DistributionBucket, 0, len(counts))
	for pct, count := range counts {
		distribution = append(distribution, DistributionBucket{DiscountPct: pct, Count: count})
	}
	sort.Slice(distribution, func(i, j int) bool {
		return distribution[i].DiscountPct < distribution[j].DiscountPct
	})

	return Preview{
		TotalRows:    totalRows,
		Retained:     len(retained),
		Expired:      len(expired),
		ParseErrors:  errs,
		Distribution: distribution,
		Deals:        deals,
	}
}
