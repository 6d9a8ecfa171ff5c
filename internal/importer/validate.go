package importer

import (
	"fmt"
	"strconv"
)

const (
	minRules   = 1
	maxRules   = 10
	minDaysLte = 1
	maxDaysLte = 90
	minPct     = 1
	maxPct     = 99
)

// ValidateDiscountRules checks a client-supplied rule set: 1-10 entries,
// days_lte an integer 1-90 unique across the set, discount_pct an integer
// 1-99. Every violation is collected before failing; positions are 1-based.
func ValidateDiscountRules(rules []DiscountRule) error {
	if len(rules) < minRules || len(rules) > maxRules {
		return newValidationError([]RowError{{
			Row:     0,
			Field:   "discount_rules",
			Value:   strconv.Itoa(len(rules)),
			Message: fmt.Sprintf("Must have between %d and %d discount rules", minRules, maxRules),
		}})
	}

	violations := make([]RowError, 0)
	seenDays := make(map[int]bool, len(rules))

	for i, rule := range rules {
		pos := i + 1

		switch {
		case rule.DaysLte < minDaysLte || rule.DaysLte > maxDaysLte:
			violations = append(violations, RowError{
				Row:     pos,
				Field:   "days_lte",
				Value:   strconv.Itoa(rule.DaysLte),
				Message: fmt.Sprintf("days_lte must be an integer between %d and %d", minDaysLte, maxDaysLte),
			})
		case seenDays[rule.DaysLte]:
			violations = append(violations, RowError{
				Row:     pos,
				Field:   "days_lte",
				Value:   strconv.Itoa(rule.DaysLte),
				Message: fmt.Sprintf("Duplicate days_lte value: %d", rule.DaysLte),
			})
		default:
			seenDays[rule.DaysLte] = true
		}

		if rule.DiscountPct < minPct || rule.DiscountPct > maxPct {
			violations = append(violations, RowError{
				Row:     pos,
				Field:   "discount_pct",
				Value:   strconv.Itoa(rule.DiscountPct),
				Message: fmt.Sprintf("discount_pct must be an integer between %d and %d", minPct, maxPct),
			})
		}
	}

	if len(violations) > 0 {
		return newValidationError(violations)
	}
	return nil
}

// ValidateColumnMapping checks that every required role names a column present
// in the parsed file, and that the optional barcode role, when given, does too.
func ValidateColumnMapping(mapping ColumnMapping, availableColumns []string) error {
	available := make(map[string]bool, len(availableColumns))
	for _, column := range availableColumns {
		available[column] = true
	}

	required := []struct {
		role   string
		column string
	}{
		{"sku", mapping.SKU},
		{"expiry_date", mapping.ExpiryDate},
		{"quantity", mapping.Quantity},
		{"price", mapping.Price},
		{"name", mapping.Name},
	}

	violations := make([]RowError, 0)
	for _, entry := range required {
		if entry.column == "" {
			violations = append(violations, RowError{
				Row:     0,
				Field:   entry.role,
				Value:   "",
				Message: fmt.Sprintf("Column mapping for %q is required", entry.role),
			})
		} else if !available[entry.column] {
			violations = append(violations, RowError{
				Row:     0,
				Field:   entry.role,
				Value:   entry.column,
				Message: fmt.Sprintf("Column %q does not exist in the file", entry.column),
			})
		}
	}

	if mapping.Barcode != "" && !available[mapping.Barcode] {
		violations = append(violations, RowError{
			Row:     0,
			Field:   "barcode",
			Value:   mapping.Barcode,
			Message: fmt.Sprintf("Column %q does not exist in the file", mapping.Barcode),
		})
	}

	if len(violations) > 0 {
		return newValidationError(violations)
	}
	return nil
}
