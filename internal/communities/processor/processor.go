package processor

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"fanforge-server/internal/observability"
	"fanforge-server/internal/store"

	"github.com/google/uuid"
)

var (
	ErrCommunityNotFound = errors.New("community not found")
	ErrNotMember         = errors.New("user is not a member of the community")
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

type Store interface {
	CreateCommunity(ctx context.Context, params store.CreateCommunityParams) (store.Community, error)
	GetCommunityByID(ctx context.Context, communityID uuid.UUID) (store.Community, error)
	ListCommunities(ctx context.Context, limit, offset int) ([]store.Community, error)
	GetCommunityMember(ctx context.Context, communityID, userID uuid.UUID) (store.CommunityMember, error)
	AddCommunityMember(ctx context.Context, communityID, userID uuid.UUID) (store.CommunityMember, error)
	RemoveCommunityMember(ctx context.Context, communityID, userID uuid.UUID) error
	ListCommunityMembers(ctx context.Context, communityID uuid.UUID, limit, offset int) ([]store.CommunityMember, error)
}

type Processor struct {
	store  Store
	logger *observability.Logger
}

func New(st Store, logger *observability.Logger) Processor {
	return Processor{store: st, logger: logger}
}

func (p *Processor) CreateCommunity(ctx context.Context, userID uuid.UUID, name string, description *string) (store.Community, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "community_name", Value: name})

	community, err := p.store.CreateCommunity(ctx, store.CreateCommunityParams{
		Name:        name,
		Slug:        Slugify(name),
		Description: description,
		CreatedBy:   userID,
	})
	if err != nil {
		return store.Community{}, err
	}

	p.logger.Info(ctx, "community created")
	return community, nil
}

func (p *Processor) GetCommunity(ctx context.Context, communityID uuid.UUID) (store.Community, error) {
	community, err := p.store.GetCommunityByID(ctx, communityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Community{}, ErrCommunityNotFound
		}
		return store.Community{}, err
	}
	return community, nil
}

func (p *Processor) ListCommunities(ctx context.Context, limit, offset int) ([]store.Community, error) {
	return p.store.ListCommunities(ctx, limit, offset)
}

func (p *Processor) JoinCommunity(ctx context.Context, communityID, userID uuid.UUID) (store.CommunityMember, error) {
	if _, err := p.GetCommunity(ctx, communityID); err != nil {
		return store.CommunityMember{}, err
	}
	return p.store.AddCommunityMember(ctx, communityID, userID)
}

func (p *Processor) LeaveCommunity(ctx context.Context, communityID, userID uuid.UUID) error {
	err := p.store.RemoveCommunityMember(ctx, communityID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotMember
	}
	return err
}

func (p *Processor) ListMembers(ctx context.Context, communityID uuid.UUID, limit, offset int) ([]store.CommunityMember, error) {
	if _, err := p.GetCommunity(ctx, communityID); err != nil {
		return nil, err
	}
	return p.store.ListCommunityMembers(ctx, communityID, limit, offset)
}

// IsMember reports whether the user belongs to the community.
func (p *Processor) IsMember(ctx context.Context, communityID, userID uuid.UUID) (bool, error) {
	_, err := p.store.GetCommunityMember(ctx, communityID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Slugify lowercases a name and collapses everything non-alphanumeric into
// single hyphens.
func Slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
