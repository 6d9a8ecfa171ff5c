package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Deal lifecycle states and batch outcomes persisted by the gateway.
const (
	DealDraft     = "DRAFT"
	DealPublished = "PUBLISHED"
	DealExpired   = "EXPIRED"

	BatchProcessing   = "PROCESSING"
	BatchSuccess      = "SUCCESS"
	BatchPartialError = "PARTIAL_ERROR"

	SourceBulkImport = "BULK_IMPORT"
)

// BatchRecord captures the row accounting stored when a commit starts.
type BatchRecord struct {
	TenantID     uuid.UUID
	Status       string
	TotalRows    int
	RetainedRows int
	SkippedRows  int
	Errors       []RowError
}

// DealUpsert is one priced row bound for persistence, keyed by
// (tenant, SKU, expiry date) at the storage layer.
type DealUpsert struct {
	TenantID uuid.UUID
	BatchID  uuid.UUID
	Deal     DealPreview
	Status   string
	Source   string
}

// Tx is the set of writes the committer performs inside one transaction.
type Tx interface {
	CreateBatch(ctx context.Context, batch BatchRecord) (uuid.UUID, error)
	UpsertDeal(ctx context.Context, upsert DealUpsert) error
	ExpireDeals(ctx context.Context, tenantID uuid.UUID, sku string, expiryDate time.Time) error
	FinalizeBatch(ctx context.Context, batchID uuid.UUID, status string, publishedCount, draftCount int) error
}

// Gateway runs a function inside a single storage transaction; a returned
// error rolls back every write, including the batch record.
type Gateway interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// CommitInput is the validated payload shared with the preview path, plus the
// publish decision.
type CommitInput struct {
	Mapping        ColumnMapping
	WindowDays     int
	IncludeExpired bool
	Rules          []DiscountRule
	RoundPrices    bool
	Publish        bool
	Rows           []RawRow
}

// CommitResult is the summary returned to the caller after a successful
// commit.
type CommitResult struct {
	BatchID        uuid.UUID
	PublishedCount int
	DraftCount     int
	ErrorsCount    int
}

// Committer executes the full pipeline (normalize, filter, price) and
// persists the outcome atomically through a Gateway.
type Committer struct {
	gateway Gateway
	now     func() time.Time
}

func NewCommitter(gateway Gateway) *Committer {
	return &Committer{gateway: gateway, now: time.Now}
}

// NewCommitterAt pins the committer's reference date, for deterministic runs.
func NewCommitterAt(gateway Gateway, now func() time.Time) *Committer {
	return &Committer{gateway: gateway, now: now}
}

// Commit runs the pipeline against pre-validated input and persists priced
// rows as deals within one transaction. Row-level errors collected during
// normalization do not abort the commit; they are stored on the batch and
// reflected in its final status.
func (c *Committer) Commit(ctx context.Context, tenantID uuid.UUID, in CommitInput) (CommitResult, error) {
	today := c.now()

	normalized, rowErrs := NormalizeRows(in.Rows, in.Mapping, today)
	retained, expired := FilterRows(normalized, in.WindowDays, in.IncludeExpired)
	deals, err := ApplyDiscountRules(retained, in.Rules, in.RoundPrices)
	if err != nil {
		return CommitResult{}, err
	}

	dealStatus := DealDraft
	if in.Publish {
		dealStatus = DealPublished
	}

	var (
		batchID        *uuid.UUID
		publishedCount int
		draftCount     int
	)

	err = c.gateway.InTx(ctx, func(ctx context.Context, tx Tx) error {
		id, err := tx.CreateBatch(ctx, BatchRecord{
			TenantID:     tenantID,
			Status:       BatchProcessing,
			TotalRows:    len(in.Rows),
			RetainedRows: len(retained),
			SkippedRows:  len(in.Rows) - len(retained) - len(expired),
			Errors:       rowErrs,
		})
		if err != nil {
			return fmt.Errorf("create import batch: %w", err)
		}
		batchID = &id

		for _, deal := range deals {
			if err := tx.UpsertDeal(ctx, DealUpsert{
				TenantID: tenantID,
				BatchID:  id,
				Deal:     deal,
				Status:   dealStatus,
				Source:   SourceBulkImport,
			}); err != nil {
				return fmt.Errorf("upsert deal %s: %w", deal.SKU, err)
			}
			if in.Publish {
				publishedCount++
			} else {
				draftCount++
			}
		}

		// Best-effort sweep: matching nothing is fine, a failed update is not.
		if in.IncludeExpired {
			for _, row := range expired {
				if err := tx.ExpireDeals(ctx, tenantID, row.SKU, row.ExpiryDate); err != nil {
					return fmt.Errorf("expire deal %s: %w", row.SKU, err)
				}
			}
		}

		finalStatus := BatchSuccess
		if len(rowErrs) > 0 {
			finalStatus = BatchPartialError
		}
		if err := tx.FinalizeBatch(ctx, id, finalStatus, publishedCount, draftCount); err != nil {
			return fmt.Errorf("finalize import batch: %w", err)
		}
		return nil
	})
	if err != nil {
		var pipelineErr *Error
		if errors.As(err, &pipelineErr) && pipelineErr.Kind == KindValidation {
			return CommitResult{}, pipelineErr
		}
		// batchID, if set, was allocated inside the rolled-back transaction;
		// it is carried for log correlation only.
		return CommitResult{}, newCommitError(fmt.Sprintf("Import transaction failed: %v", err), batchID)
	}

	return CommitResult{
		BatchID:        *batchID,
		PublishedCount: publishedCount,
		DraftCount:     draftCount,
		ErrorsCount:    len(rowErrs),
	}, nil
}
