package processor

import (
	"context"
	"errors"

	"fanforge-server/internal/observability"
	"fanforge-server/internal/store"

	"github.com/google/uuid"
)

var ErrCreatorNotFound = errors.New("creator not found")

type Store interface {
	GetCreatorByID(ctx context.Context, creatorID uuid.UUID) (store.Creator, error)
	ListCreators(ctx context.Context, platform string, limit, offset int) ([]store.Creator, error)
}

type Processor struct {
	store  Store
	logger *observability.Logger
}

func New(st Store, logger *observability.Logger) Processor {
	return Processor{store: st, logger: logger}
}

func (p *Processor) GetCreator(ctx context.Context, creatorID uuid.UUID) (store.Creator, error) {
	creator, err := p.store.GetCreatorByID(ctx, creatorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Creator{}, ErrCreatorNotFound
		}
		return store.Creator{}, err
	}
	return creator, nil
}

func (p *Processor) ListCreators(ctx context.Context, platform string, limit, offset int) ([]store.Creator, error) {
	return p.store.ListCreators(ctx, platform, limit, offset)
}
