package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateCommunityParams represents parameters for creating a community
type CreateCommunityParams struct {
	Name        string
	Slug        string
	Description *string
	CreatedBy   uuid.UUID
}

const sqlCreateCommunity = `
INSERT INTO communities (name, slug, description, created_by, member_count)
VALUES ($1, $2, $3, $4, 1)
RETURNING id, name, slug, description, created_by, member_count, created_at, updated_at, deleted_at`

const sqlCreateCommunityOwner = `
INSERT INTO community_members (community_id, user_id, role)
VALUES ($1, $2, $3)
RETURNING id, community_id, user_id, role, joined_at`

// CreateCommunity creates a community together with its owner membership.
func (s *Store) CreateCommunity(ctx context.Context, params CreateCommunityParams) (Community, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.Error(ctx, "failed to begin transaction", err)
		return Community{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error(ctx, "failed to rollback transaction", rbErr)
			}
		}
	}()

	var community Community
	err = tx.GetContext(ctx, &community, sqlCreateCommunity,
		params.Name, params.Slug, params.Description, params.CreatedBy)
	if err != nil {
		s.logger.Error(ctx, "failed to create community", err)
		return Community{}, fmt.Errorf("failed to create community: %w", err)
	}

	var member CommunityMember
	err = tx.GetContext(ctx, &member, sqlCreateCommunityOwner,
		community.ID, params.CreatedBy, CommunityRoleOwner)
	if err != nil {
		s.logger.Error(ctx, "failed to create community owner membership", err)
		return Community{}, fmt.Errorf("failed to create community owner membership: %w", err)
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error(ctx, "failed to commit transaction", err)
		return Community{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return community, nil
}

const sqlGetCommunityByID = `
SELECT id, name, slug, description, created_by, member_count, created_at, updated_at, deleted_at
FROM communities
WHERE id = $1
  AND deleted_at IS NULL`

func (s *Store) GetCommunityByID(ctx context.Context, communityID uuid.UUID) (Community, error) {
	var community Community
	err := s.db.GetContext(ctx, &community, sqlGetCommunityByID, communityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Community{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get community", err)
		return Community{}, fmt.Errorf("failed to get community: %w", err)
	}
	return community, nil
}

const sqlListCommunities = `
SELECT id, name, slug, description, created_by, member_count, created_at, updated_at, deleted_at
FROM communities
WHERE deleted_at IS NULL
ORDER BY member_count DESC, created_at DESC
LIMIT $1 OFFSET $2`

func (s *Store) ListCommunities(ctx context.Context, limit, offset int) ([]Community, error) {
	if limit <= 0 {
		limit = 50
	}
	communities := []Community{}
	err := s.db.SelectContext(ctx, &communities, sqlListCommunities, limit, offset)
	if err != nil {
		s.logger.Error(ctx, "failed to list communities", err)
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}
	return communities, nil
}

const sqlGetCommunityMember = `
SELECT id, community_id, user_id, role, joined_at
FROM community_members
WHERE community_id = $1
  AND user_id = $2`

func (s *Store) GetCommunityMember(ctx context.Context, communityID, userID uuid.UUID) (CommunityMember, error) {
	var member CommunityMember
	err := s.db.GetContext(ctx, &member, sqlGetCommunityMember, communityID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CommunityMember{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get community member", err)
		return CommunityMember{}, fmt.Errorf("failed to get community member: %w", err)
	}
	return member, nil
}

const sqlAddCommunityMember = `
INSERT INTO community_members (community_id, user_id, role)
VALUES ($1, $2, $3)
ON CONFLICT (community_id, user_id) DO NOTHING
RETURNING id, community_id, user_id, role, joined_at`

const sqlIncrementMemberCount = `
UPDATE communities SET member_count = member_count + 1, updated_at = NOW() WHERE id = $1`

func (s *Store) AddCommunityMember(ctx context.Context, communityID, userID uuid.UUID) (CommunityMember, error) {
	var member CommunityMember
	err := s.db.GetContext(ctx, &member, sqlAddCommunityMember, communityID, userID, CommunityRoleMember)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Conflict path, membership already exists.
			return s.GetCommunityMember(ctx, communityID, userID)
		}
		s.logger.Error(ctx, "failed to add community member", err)
		return CommunityMember{}, fmt.Errorf("failed to add community member: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlIncrementMemberCount, communityID); err != nil {
		s.logger.Error(ctx, "failed to increment member count", err)
	}
	return member, nil
}

const sqlRemoveCommunityMember = `
DELETE FROM community_members
WHERE community_id = $1
  AND user_id = $2`

const sqlDecrementMemberCount = `
UPDATE communities SET member_count = GREATEST(member_count - 1, 0), updated_at = NOW() WHERE id = $1`

func (s *Store) RemoveCommunityMember(ctx context.Context, communityID, userID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, sqlRemoveCommunityMember, communityID, userID)
	if err != nil {
		s.logger.Error(ctx, "failed to remove community member", err)
		return fmt.Errorf("failed to remove community member: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	if _, err := s.db.ExecContext(ctx, sqlDecrementMemberCount, communityID); err != nil {
		s.logger.Error(ctx, "failed to decrement member count", err)
	}
	return nil
}

const sqlListCommunityMembers = `
SELECT id, community_id, user_id, role, joined_at
FROM community_members
WHERE community_id = $1
ORDER BY joined_at ASC
LIMIT $2 OFFSET $3`

func (s *Store) ListCommunityMembers(ctx context.Context, communityID uuid.UUID, limit, offset int) ([]CommunityMember, error) {
	if limit <= 0 {
		limit = 100
	}
	members := []CommunityMember{}
	err := s.db.SelectContext(ctx, &members, sqlListCommunityMembers, communityID, limit, offset)
	if err != nil {
		s.logger.Error(ctx, "failed to list community members", err)
		return nil, fmt.Errorf("failed to list community members: %w", err)
	}
	return members, nil
}
