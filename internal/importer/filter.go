package importer

// FilterRows partitions normalized rows into retained (inside the expiry
// window, both bounds inclusive) and expired (already past expiry, collected
// only when includeExpired is set). Rows further out than windowDays are
// dropped: too far from expiry to surface yet.
func FilterRows(normalized []NormalizedRow, windowDays int, includeExpired bool) (retained, expired []NormalizedRow) {
	retained = make([]NormalizedRow, 0, len(normalized))
	expired = make([]NormalizedRow, 0)

	for _, row := range normalized {
		switch {
		case row.DaysToExpiry >= 0 && row.DaysToExpiry <= windowDays:
			retained = append(retained, row)
		case row.DaysToExpiry < 0 && includeExpired:
			expired = append(expired, row)
		}
	}
	return retained, expired
}
