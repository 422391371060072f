package inventory

import (
	"context"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
)

type LotRepository interface {
	Create(ctx context.Context, l *Lot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Lot, error)
	// GetByKey returns (nil, nil) when no lot matches.
	GetByKey(ctx context.Context, medicationName, lotNumber string) (*Lot, error)
	// AddStock increments quantity and reactivates the lot.
	AddStock(ctx context.Context, id uuid.UUID, qty int) (*Lot, error)
	Update(ctx context.Context, l *Lot) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f LotFilter) ([]*Lot, error)
	Available(ctx context.Context, medicationName string, day civil.Date) ([]*Lot, error)
	// DecrementIfAvailable takes one unit if quantity > 0. ok is false when
	// no row matched, either because the lot is missing or empty.
	DecrementIfAvailable(ctx context.Context, id uuid.UUID) (l *Lot, ok bool, err error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type DispenseLogRepository interface {
	ExistsForDose(ctx context.Context, doseID uuid.UUID) (bool, error)
	Create(ctx context.Context, l *DispenseLog) error
	List(ctx context.Context, f LogFilter) ([]*DispenseLog, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]*DispenseLog, error)
}
