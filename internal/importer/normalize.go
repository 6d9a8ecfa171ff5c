package importer

import (
	"strconv"
	"strings"
	"time"
)

// headerOffset converts a zero-based data-row index into the human-facing row
// number of the source file (1-based plus the header line).
const headerOffset = 2

// NormalizeRows extracts, validates, and types raw rows using the supplied
// column mapping, then deduplicates on (SKU, expiry date): colliding rows sum
// quantities and keep the lower price. Rows failing any check are reported in
// the returned error list and excluded entirely; they never merge.
//
// The accumulator is owned by this call; nothing is shared across imports.
func NormalizeRows(rows []RawRow, mapping ColumnMapping, today time.Time) ([]NormalizedRow, []RowError) {
	errs := make([]RowError, 0)
	index := make(map[string]int, len(rows))
	normalized := make([]NormalizedRow, 0, len(rows))

	for i, raw := range rows {
		rowNum := i + headerOffset

		sku := strings.TrimSpace(raw[mapping.SKU])
		if sku == "" {
			errs = append(errs, RowError{Row: rowNum, Field: "sku", Value: "", Message: "SKU is required"})
			continue
		}

		productName := strings.TrimSpace(raw[mapping.Name])
		if productName == "" {
			errs = append(errs, RowError{Row: rowNum, Field: "name", Value: "", Message: "Product name is required"})
			continue
		}

		var barcode *string
		if mapping.Barcode != "" {
			if value := strings.TrimSpace(raw[mapping.Barcode]); value != "" {
				barcode = &value
			}
		}

		rawDate := strings.TrimSpace(raw[mapping.ExpiryDate])
		expiryDate, ok := TryParseDate(rawDate)
		if !ok {
			errs = append(errs, RowError{Row: rowNum, Field: "expiry_date", Value: rawDate, Message: "Invalid date format"})
			continue
		}
		daysToExpiry := daysBetween(today, expiryDate)

		rawQty := strings.TrimSpace(raw[mapping.Quantity])
		quantity, err := strconv.Atoi(rawQty)
		if err != nil || quantity <= 0 {
			errs = append(errs, RowError{Row: rowNum, Field: "quantity", Value: rawQty, Message: "Quantity must be a positive integer"})
			continue
		}

		rawPrice := stripNonNumeric(strings.TrimSpace(raw[mapping.Price]))
		originalPrice, err := strconv.ParseFloat(rawPrice, 64)
		if err != nil || originalPrice <= 0 {
			errs = append(errs, RowError{Row: rowNum, Field: "price", Value: raw[mapping.Price], Message: "Price must be a positive number"})
			continue
		}

		key := sku + "|" + expiryDate.Format("2006-01-02")
		if at, seen := index[key]; seen {
			normalized[at].Quantity += quantity
			if originalPrice < normalized[at].OriginalPrice {
				normalized[at].OriginalPrice = originalPrice
			}
			continue
		}

		index[key] = len(normalized)
		normalized = append(normalized, NormalizedRow{
			SKU:           sku,
			ProductName:   productName,
			Barcode:       barcode,
			ExpiryDate:    expiryDate,
			DaysToExpiry:  daysToExpiry,
			Quantity:      quantity,
			OriginalPrice: originalPrice,
		})
	}

	return normalized, errs
}

// stripNonNumeric drops everything except digits and the decimal point, which
// is enough to shed currency symbols and thousands separators.
func stripNonNumeric(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
