package importer

import "time"

// RawRow is one source record keyed by column name, exactly as parsed from
// the uploaded file. Values are always strings; typing happens in NormalizeRows.
type RawRow map[string]string

// ColumnMapping declares which file column feeds each semantic field.
// Barcode is optional; the rest are required and validated against the
// parsed column list before normalization runs.
type ColumnMapping struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	ExpiryDate string `json:"expiry_date"`
	Quantity   string `json:"quantity"`
	Price      string `json:"price"`
	Barcode    string `json:"barcode,omitempty"`
}

// NormalizedRow is a validated, typed inventory line. After deduplication
// there is at most one per (SKU, expiry date) within a single import.
type NormalizedRow struct {
	SKU           string    `json:"sku"`
	ProductName   string    `json:"productName"`
	Barcode       *string   `json:"barcode"`
	ExpiryDate    time.Time `json:"expiryDate"`
	DaysToExpiry  int       `json:"daysToExpiry"`
	Quantity      int       `json:"quantity"`
	OriginalPrice float64   `json:"originalPrice"`
}

// DiscountRule is one pricing tier: rows expiring within DaysLte days get
// DiscountPct percent off.
type DiscountRule struct {
	DaysLte     int `json:"days_lte"`
	DiscountPct int `json:"discount_pct"`
}

// DealPreview is a priced row ready for merchant review or persistence.
type DealPreview struct {
	NormalizedRow
	DiscountPct        int     `json:"discountPct"`
	FinalPrice         float64 `json:"finalPrice"`
	AggressiveDiscount bool    `json:"aggressiveDiscount,omitempty"`
}

// DistributionBucket is one bar of the discount histogram.
type DistributionBucket struct {
	DiscountPct int `json:"discountPct"`
	Count       int `json:"count"`
}

// Preview is the dry-run summary returned before a merchant commits.
type Preview struct {
	TotalRows    int                  `json:"totalRows"`
	Retained     int                  `json:"retained"`
	Expired      int                  `json:"expired"`
	ParseErrors  []RowError           `json:"parseErrors"`
	Distribution []DistributionBucket `json:"distribution"`
	Deals        []DealPreview        `json:"deals"`
}

// ParsedFile is the output of ParseFile: ordered column names plus every
// data row as a RawRow.
type ParsedFile struct {
	Columns   []string `json:"columns"`
	Rows      []RawRow `json:"rows"`
	TotalRows int      `json:"totalRows"`
}
