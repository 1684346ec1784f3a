package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateSocialAccountParams represents parameters for claiming a profile
type CreateSocialAccountParams struct {
	UserID           uuid.UUID
	Platform         string
	ProfileURL       string
	Username         string
	VerificationCode string
}

const sqlCreateSocialAccount = `
INSERT INTO social_accounts (user_id, platform, profile_url, username, verification_code, verification_status, scrape_status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, platform, profile_url, username, verification_code, verification_status, scrape_status, snapshot_id, attempts, profile_payload, verified_at, created_at, updated_at`

func (s *Store) CreateSocialAccount(ctx context.Context, params CreateSocialAccountParams) (SocialAccount, error) {
	var account SocialAccount
	err := s.db.GetContext(ctx, &account, sqlCreateSocialAccount,
		params.UserID,
		params.Platform,
		params.ProfileURL,
		params.Username,
		params.VerificationCode,
		VerificationStatusPending,
		ScrapeStatusPending)
	if err != nil {
		s.logger.Error(ctx, "failed to create social account", err)
		return SocialAccount{}, fmt.Errorf("failed to create social account: %w", err)
	}
	return account, nil
}

const sqlGetSocialAccountByID = `
SELECT id, user_id, platform, profile_url, username, verification_code, verification_status, scrape_status, snapshot_id, attempts, profile_payload, verified_at, created_at, updated_at
FROM social_accounts
WHERE id = $1`

func (s *Store) GetSocialAccountByID(ctx context.Context, accountID uuid.UUID) (SocialAccount, error) {
	var account SocialAccount
	err := s.db.GetContext(ctx, &account, sqlGetSocialAccountByID, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SocialAccount{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get social account", err)
		return SocialAccount{}, fmt.Errorf("failed to get social account: %w", err)
	}
	return account, nil
}

const sqlGetSocialAccountBySnapshotID = `
SELECT id, user_id, platform, profile_url, username, verification_code, verification_status, scrape_status, snapshot_id, attempts, profile_payload, verified_at, created_at, updated_at
FROM social_accounts
WHERE snapshot_id = $1`

func (s *Store) GetSocialAccountBySnapshotID(ctx context.Context, snapshotID string) (SocialAccount, error) {
	var account SocialAccount
	err := s.db.GetContext(ctx, &account, sqlGetSocialAccountBySnapshotID, snapshotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SocialAccount{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get social account by snapshot", err)
		return SocialAccount{}, fmt.Errorf("failed to get social account by snapshot: %w", err)
	}
	return account, nil
}

const sqlListSocialAccountsByUser = `
SELECT id, user_id, platform, profile_url, username, verification_code, verification_status, scrape_status, snapshot_id, attempts, profile_payload, verified_at, created_at, updated_at
FROM social_accounts
WHERE user_id = $1
ORDER BY created_at DESC`

func (s *Store) ListSocialAccountsByUser(ctx context.Context, userID uuid.UUID) ([]SocialAccount, error) {
	accounts := []SocialAccount{}
	err := s.db.SelectContext(ctx, &accounts, sqlListSocialAccountsByUser, userID)
	if err != nil {
		s.logger.Error(ctx, "failed to list social accounts", err)
		return nil, fmt.Errorf("failed to list social accounts: %w", err)
	}
	return accounts, nil
}

const sqlGetSocialAccountByProfileURL = `
SELECT id, user_id, platform, profile_url, username, verification_code, verification_status, scrape_status, snapshot_id, attempts, profile_payload, verified_at, created_at, updated_at
FROM social_accounts
WHERE user_id = $1
  AND profile_url = $2`

func (s *Store) GetSocialAccountByProfileURL(ctx context.Context, userID uuid.UUID, profileURL string) (SocialAccount, error) {
	var account SocialAccount
	err := s.db.GetContext(ctx, &account, sqlGetSocialAccountByProfileURL, userID, profileURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SocialAccount{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get social account by profile url", err)
		return SocialAccount{}, fmt.Errorf("failed to get social account by profile url: %w", err)
	}
	return account, nil
}

const sqlDeleteSocialAccount = `
DELETE FROM social_accounts
WHERE id = $1
  AND user_id = $2`

func (s *Store) DeleteSocialAccount(ctx context.Context, accountID, userID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, sqlDeleteSocialAccount, accountID, userID)
	if err != nil {
		s.logger.Error(ctx, "failed to delete social account", err)
		return fmt.Errorf("failed to delete social account: %w", err)
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

const sqlResetSocialAccountVerification = `
UPDATE social_accounts
SET verification_status = $2,
    scrape_status       = $3,
    snapshot_id         = $4,
    verification_code   = $5,
    updated_at          = NOW()
WHERE id = $1
RETURNING id, user_id, platform, profile_url, username, verification_code, verification_status, scrape_status, snapshot_id, attempts, profile_payload, verified_at, created_at, updated_at`

// ResetSocialAccountVerification puts the account back into PENDING with a
// fresh scrape job handle and, optionally, a fresh code.
func (s *Store) ResetSocialAccountVerification(ctx context.Context, accountID uuid.UUID, snapshotID string, code string) (SocialAccount, error) {
	var account SocialAccount
	err := s.db.GetContext(ctx, &account, sqlResetSocialAccountVerification,
		accountID, VerificationStatusPending, ScrapeStatusPending, snapshotID, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SocialAccount{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to reset social account verification", err)
		return SocialAccount{}, fmt.Errorf("failed to reset social account verification: %w", err)
	}
	return account, nil
}

const sqlMarkSocialAccountVerified = `
UPDATE social_accounts
SET verification_status = $2,
    scrape_status       = $3,
    profile_payload     = $4,
    verified_at         = NOW(),
    updated_at          = NOW()
WHERE id = $1
RETURNING id, user_id, platform, profile_url, username, verification_code, verification_status, scrape_status, snapshot_id, attempts, profile_payload, verified_at, created_at, updated_at`

func (s *Store) MarkSocialAccountVerified(ctx context.Context, accountID uuid.UUID, profilePayload JSONB) (SocialAccount, error) {
	var account SocialAccount
	err := s.db.GetContext(ctx, &account, sqlMarkSocialAccountVerified,
		accountID, VerificationStatusVerified, ScrapeStatusCompleted, profilePayload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SocialAccount{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to mark social account verified", err)
		return SocialAccount{}, fmt.Errorf("failed to mark social account verified: %w", err)
	}
	return account, nil
}

const sqlMarkSocialAccountFailed = `
UPDATE social_accounts
SET verification_status = $2,
    scrape_status       = $3,
    profile_payload     = COALESCE($4, profile_payload),
    attempts            = attempts + 1,
    updated_at          = NOW()
WHERE id = $1
RETURNING id, user_id, platform, profile_url, username, verification_code, verification_status, scrape_status, snapshot_id, attempts, profile_payload, verified_at, created_at, updated_at`

// MarkSocialAccountFailed records a failed attempt. Attempts increment only
// on failure.
func (s *Store) MarkSocialAccountFailed(ctx context.Context, accountID uuid.UUID, profilePayload JSONB) (SocialAccount, error) {
	var account SocialAccount
	err := s.db.GetContext(ctx, &account, sqlMarkSocialAccountFailed,
		accountID, VerificationStatusFailed, ScrapeStatusCompleted, profilePayload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SocialAccount{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to mark social account failed", err)
		return SocialAccount{}, fmt.Errorf("failed to mark social account failed: %w", err)
	}
	return account, nil
}

const sqlListPendingSocialAccounts = `
SELECT id, user_id, platform, profile_url, username, verification_code, verification_status, scrape_status, snapshot_id, attempts, profile_payload, verified_at, created_at, updated_at
FROM social_accounts
WHERE verification_status = $1
  AND snapshot_id IS NOT NULL
ORDER BY updated_at ASC
LIMIT $2`

// ListPendingSocialAccounts returns accounts with an in-flight scrape job,
// oldest first, for the background sweeper.
func (s *Store) ListPendingSocialAccounts(ctx context.Context, limit int) ([]SocialAccount, error) {
	accounts := []SocialAccount{}
	err := s.db.SelectContext(ctx, &accounts, sqlListPendingSocialAccounts, VerificationStatusPending, limit)
	if err != nil {
		s.logger.Error(ctx, "failed to list pending social accounts", err)
		return nil, fmt.Errorf("failed to list pending social accounts: %w", err)
	}
	return accounts, nil
}
