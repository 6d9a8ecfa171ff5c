package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claudyio484/lastbite-backend/internal/importer"
)

// DiscountSettings is the per-tenant import configuration. Tenants that have
// never saved their own settings get the defaults.
type DiscountSettings struct {
	Rules             []importer.DiscountRule `json:"discount_rules"`
	RoundPrices       bool                    `json:"round_prices"`
	DefaultWindowDays int                     `json:"default_window_days"`
}

func DefaultDiscountSettings() DiscountSettings {
	return DiscountSettings{
		Rules: []importer.DiscountRule{
			{DaysLte: 7, DiscountPct: 20},
			{DaysLte: 3, DiscountPct: 40},
			{DaysLte: 1, DiscountPct: 60},
		},
		RoundPrices:       false,
		DefaultWindowDays: 7,
	}
}

func (s *Store) GetDiscountSettings(ctx context.Context, tenantID uuid.UUID) (DiscountSettings, error) {
	var (
		rulesJSON []byte
		settings  DiscountSettings
	)
	err := s.pool.QueryRow(ctx, `
		SELECT rules, round_prices, default_window_days
		FROM store_discount_rules
		WHERE tenant_id = $1
	`, tenantID).Scan(&rulesJSON, &settings.RoundPrices, &settings.DefaultWindowDays)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultDiscountSettings(), nil
	}
	if err != nil {
		return DiscountSettings{}, fmt.Errorf("load discount settings: %w", err)
	}

	if err := json.Unmarshal(rulesJSON, &settings.Rules); err != nil {
		return DiscountSettings{}, fmt.Errorf("decode discount rules: %w", err)
	}
	return settings, nil
}

func (s *Store) SaveDiscountSettings(ctx context.Context, tenantID uuid.UUID, settings DiscountSettings) error {
	rulesJSON, err := json.Marshal(settings.Rules)
	if err != nil {
		return fmt.Errorf("marshal discount rules: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO store_discount_rules (tenant_id, rules, round_prices, default_window_days)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id) DO UPDATE SET
			rules = EXCLUDED.rules,
			round_prices = EXCLUDED.round_prices,
			default_window_days = EXCLUDED.default_window_days,
			updated_at = now()
	`, tenantID, rulesJSON, settings.RoundPrices, settings.DefaultWindowDays)
	if err != nil {
		return fmt.Errorf("save discount settings: %w", err)
	}
	return nil
}
