package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/claudyio484/lastbite-backend/internal/importer"
)

// importTx implements importer.Tx on top of a single pgx transaction.
type importTx struct {
	tx pgx.Tx
}

func (t *importTx) CreateBatch(ctx context.Context, batch importer.BatchRecord) (uuid.UUID, error) {
	rowErrors := []byte("[]")
	if len(batch.Errors) > 0 {
		encoded, err := json.Marshal(batch.Errors)
		if err != nil {
			return uuid.Nil, fmt.Errorf("marshal row errors: %w", err)
		}
		rowErrors = encoded
	}

	var id uuid.UUID
	err := t.tx.QueryRow(ctx, `
		INSERT INTO import_batches (tenant_id, status, total_rows, retained_rows, skipped_rows, row_errors)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, batch.TenantID, batch.Status, batch.TotalRows, batch.RetainedRows, batch.SkippedRows, rowErrors).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert import batch: %w", err)
	}
	return id, nil
}

func (t *importTx) UpsertDeal(ctx context.Context, upsert importer.DealUpsert) error {
	deal := upsert.Deal
	expiryDate := pgtype.Date{Time: deal.ExpiryDate, Valid: true}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO deals (
			tenant_id, batch_id, sku, product_name, barcode, expiry_date,
			quantity, original_price, discount_pct, final_price,
			aggressive_discount, status, source
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (tenant_id, sku, expiry_date) DO UPDATE SET
			batch_id = EXCLUDED.batch_id,
			product_name = EXCLUDED.product_name,
			barcode = EXCLUDED.barcode,
			quantity = EXCLUDED.quantity,
			original_price = EXCLUDED.original_price,
			discount_pct = EXCLUDED.discount_pct,
			final_price = EXCLUDED.final_price,
			aggressive_discount = EXCLUDED.aggressive_discount,
			status = EXCLUDED.status,
			source = EXCLUDED.source,
			updated_at = now()
	`, upsert.TenantID, upsert.BatchID, deal.SKU, deal.ProductName, deal.Barcode, expiryDate,
		deal.Quantity, deal.OriginalPrice, deal.DiscountPct, deal.FinalPrice,
		deal.AggressiveDiscount, upsert.Status, upsert.Source)
	if err != nil {
		return fmt.Errorf("upsert deal %s: %w", deal.SKU, err)
	}
	return nil
}

func (t *importTx) ExpireDeals(ctx context.Context, tenantID uuid.UUID, sku string, expiryDate time.Time) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE deals
		SET status = 'EXPIRED', updated_at = now()
		WHERE tenant_id = $1 AND sku = $2 AND expiry_date = $3 AND status <> 'EXPIRED'
	`, tenantID, sku, pgtype.Date{Time: expiryDate, Valid: true})
	if err != nil {
		return fmt.Errorf("expire deal %s: %w", sku, err)
	}
	return nil
}

func (t *importTx) FinalizeBatch(ctx context.Context, batchID uuid.UUID, status string, publishedCount, draftCount int) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE import_batches
		SET status = $1, published_count = $2, draft_count = $3, completed_at = now()
		WHERE id = $4
	`, status, publishedCount, draftCount, batchID)
	if err != nil {
		return fmt.Errorf("finalize import batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("import batch %s not found", batchID)
	}
	return nil
}
