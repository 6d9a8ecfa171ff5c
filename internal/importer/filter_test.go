package importer

import "testing"

func rowAt(days int) NormalizedRow {
	return NormalizedRow{SKU: "SKU", ProductName: "Item", DaysToExpiry: days, Quantity: 1, OriginalPrice: 1}
}

func TestFilterRowsWindowBoundsInclusive(t *testing.T) {
	rows := []NormalizedRow{rowAt(0), rowAt(3), rowAt(7), rowAt(8)}
	retained, expired := FilterRows(rows, 7, false)

	if len(retained) != 3 {
		t.Fatalf("expected 3 retained rows, got %d", len(retained))
	}
	if retained[0].DaysToExpiry != 0 || retained[2].DaysToExpiry != 7 {
		t.Fatalf("expected both window bounds retained: %+v", retained)
	}
	if len(expired) != 0 {
		t.Fatalf("expected no expired rows, got %d", len(expired))
	}
}

func TestFilterRowsCollectsExpiredOnlyWhenRequested(t *testing.T) {
	rows := []NormalizedRow{rowAt(-1), rowAt(2)}

	_, expired := FilterRows(rows, 7, true)
	if len(expired) != 1 || expired[0].DaysToExpiry != -1 {
		t.Fatalf("expected expired row collected, got %+v", expired)
	}

	retained, expired := FilterRows(rows, 7, false)
	if len(expired) != 0 {
		t.Fatalf("expected expired rows dropped without flag, got %+v", expired)
	}
	if len(retained) != 1 {
		t.Fatalf("expected 1 retained row, got %d", len(retained))
	}
}

func TestFilterRowsDropsRowsBeyondWindow(t *testing.T) {
	retained, expired := FilterRows([]NormalizedRow{rowAt(30)}, 7, true)
	if len(retained) != 0 || len(expired) != 0 {
		t.Fatalf("expected row beyond window to vanish, got retained=%d expired=%d", len(retained), len(expired))
	}
}
