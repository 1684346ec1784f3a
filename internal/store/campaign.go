package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateCampaignParams represents parameters for persisting a generated
// campaign suggestion
type CreateCampaignParams struct {
	UserID     uuid.UUID
	Name       string
	ThemeKind  string
	Suggestion JSONB
}

const sqlCreateCampaign = `
INSERT INTO campaigns (user_id, name, theme_kind, suggestion)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, name, theme_kind, suggestion, created_at, updated_at, deleted_at`

func (s *Store) CreateCampaign(ctx context.Context, params CreateCampaignParams) (Campaign, error) {
	var campaign Campaign
	err := s.db.GetContext(ctx, &campaign, sqlCreateCampaign,
		params.UserID, params.Name, params.ThemeKind, params.Suggestion)
	if err != nil {
		s.logger.Error(ctx, "failed to create campaign", err)
		return Campaign{}, fmt.Errorf("failed to create campaign: %w", err)
	}
	return campaign, nil
}

const sqlGetCampaignByID = `
SELECT id, user_id, name, theme_kind, suggestion, created_at, updated_at, deleted_at
FROM campaigns
WHERE id = $1
  AND deleted_at IS NULL`

func (s *Store) GetCampaignByID(ctx context.Context, campaignID uuid.UUID) (Campaign, error) {
	var campaign Campaign
	err := s.db.GetContext(ctx, &campaign, sqlGetCampaignByID, campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get campaign", err)
		return Campaign{}, fmt.Errorf("failed to get campaign: %w", err)
	}
	return campaign, nil
}

const sqlListCampaignsByUser = `
SELECT id, user_id, name, theme_kind, suggestion, created_at, updated_at, deleted_at
FROM campaigns
WHERE user_id = $1
  AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (s *Store) ListCampaignsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Campaign, error) {
	if limit <= 0 {
		limit = 50
	}
	campaigns := []Campaign{}
	err := s.db.SelectContext(ctx, &campaigns, sqlListCampaignsByUser, userID, limit, offset)
	if err != nil {
		s.logger.Error(ctx, "failed to list campaigns", err)
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

const sqlDeleteCampaign = `
UPDATE campaigns
SET deleted_at = NOW(),
    updated_at = NOW()
WHERE id = $1
  AND user_id = $2
  AND deleted_at IS NULL`

func (s *Store) DeleteCampaign(ctx context.Context, campaignID, userID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, sqlDeleteCampaign, campaignID, userID)
	if err != nil {
		s.logger.Error(ctx, "failed to delete campaign", err)
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
