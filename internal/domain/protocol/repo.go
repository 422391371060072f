package protocol

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Protocol) error
	GetByID(ctx context.Context, id uuid.UUID) (*Protocol, error)
	// ExistsByName reports whether another protocol (id != exclude) already
	// uses name.
	ExistsByName(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
	Update(ctx context.Context, p *Protocol) error
	ReplaceMilestones(ctx context.Context, protocolID uuid.UUID, ms []Milestone) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, category Category) ([]*Protocol, error)
}
