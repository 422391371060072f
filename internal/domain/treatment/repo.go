package treatment

import (
	"context"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/pkg/pagination"
)

type TreatmentRepository interface {
	Create(ctx context.Context, t *Treatment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Treatment, error)
	// GetForUpdate locks the treatment row until the surrounding
	// transaction ends. Dose mutations take this lock first.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Treatment, error)
	Update(ctx context.Context, t *Treatment) error
	SetStartDate(ctx context.Context, id uuid.UUID, start civil.Date) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f TreatmentFilter, p pagination.Params) ([]*Treatment, int, error)
	// ListByPatients filters by patient when patientIDs is non-nil and by
	// status when status is non-empty.
	ListByPatients(ctx context.Context, patientIDs []uuid.UUID, status Status) ([]*Treatment, error)
}

type DoseRepository interface {
	Create(ctx context.Context, d *Dose) error
	GetByID(ctx context.Context, id uuid.UUID) (*Dose, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Dose, error)
	Update(ctx context.Context, d *Dose) error
	Delete(ctx context.Context, id uuid.UUID) error
	MaxCycle(ctx context.Context, treatmentID uuid.UUID) (int, error)
	ListByTreatment(ctx context.Context, treatmentID uuid.UUID) ([]*Dose, error)
	ListByTreatments(ctx context.Context, treatmentIDs []uuid.UUID) ([]*Dose, error)
	List(ctx context.Context, f DoseFilter, p pagination.Params) ([]*Dose, int, error)
}
