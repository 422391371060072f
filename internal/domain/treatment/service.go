package treatment

import (
	"context"
	"errors"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DarkMage108/medical-service-backend/internal/domain/inventory"
	"github.com/DarkMage108/medical-service-backend/internal/domain/protocol"
	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
	"github.com/DarkMage108/medical-service-backend/internal/platform/db"
	"github.com/DarkMage108/medical-service-backend/internal/platform/metrics"
	"github.com/DarkMage108/medical-service-backend/pkg/pagination"
)

type ProtocolReader interface {
	Get(ctx context.Context, id uuid.UUID) (*protocol.Protocol, error)
}

// Dispenser consumes stock for an administered dose. It must join the
// transaction found on ctx.
type Dispenser interface {
	Dispense(ctx context.Context, lotID, patientID, doseID uuid.UUID) (*inventory.DispenseLog, error)
}

type Service struct {
	treatments TreatmentRepository
	doses      DoseRepository
	protocols  ProtocolReader
	dispenser  Dispenser
	tx         db.Transactor
	logger     zerolog.Logger
	now        func() time.Time
	loc        *time.Location
}

func NewService(treatments TreatmentRepository, doses DoseRepository, protocols ProtocolReader,
	dispenser Dispenser, tx db.Transactor) *Service {
	return &Service{
		treatments: treatments,
		doses:      doses,
		protocols:  protocols,
		dispenser:  dispenser,
		tx:         tx,
		logger:     zerolog.Nop(),
		now:        time.Now,
		loc:        time.Local,
	}
}

func (s *Service) SetLogger(l zerolog.Logger) {
	s.logger = l
}

// SetClock overrides the wall clock and the zone used to derive "today".
func (s *Service) SetClock(now func() time.Time, loc *time.Location) {
	s.now = now
	s.loc = loc
}

func (s *Service) today() civil.Date {
	return civil.DateOf(s.now().In(s.loc))
}

func (s *Service) CreateTreatment(ctx context.Context, in TreatmentInput) (*Treatment, error) {
	if in.PatientID == uuid.Nil || in.ProtocolID == uuid.Nil {
		return nil, apperr.Validation("patientId and protocolId are required")
	}
	if !in.StartDate.IsValid() {
		return nil, apperr.Validation("startDate is required")
	}
	if in.PlannedDosesBeforeConsult < 0 {
		return nil, apperr.Validation("plannedDosesBeforeConsult must not be negative")
	}

	p, err := s.protocols.Get(ctx, in.ProtocolID)
	if err != nil {
		return nil, err
	}

	t := &Treatment{
		PatientID:                 in.PatientID,
		ProtocolID:                in.ProtocolID,
		ProtocolName:              p.Name,
		FrequencyDays:             p.FrequencyDays,
		Status:                    StatusOngoing,
		StartDate:                 in.StartDate,
		PlannedDosesBeforeConsult: in.PlannedDosesBeforeConsult,
		NextConsultationDate:      in.NextConsultationDate,
		Observations:              in.Observations,
	}
	if err := s.treatments.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTreatment returns the treatment with its doses ordered by cycle.
func (s *Service) GetTreatment(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	t, err := s.treatments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	doses, err := s.doses.ListByTreatment(ctx, id)
	if err != nil {
		return nil, err
	}
	if doses == nil {
		doses = []*Dose{}
	}
	t.Doses = doses
	return t, nil
}

func (s *Service) ListTreatments(ctx context.Context, f TreatmentFilter, p pagination.Params) ([]*Treatment, int, error) {
	return s.treatments.List(ctx, f, p)
}

// ListByStatus returns every treatment in status without doses.
func (s *Service) ListByStatus(ctx context.Context, status Status) ([]*Treatment, error) {
	return s.treatments.ListByPatients(ctx, nil, status)
}

// ListWithDoses loads treatments together with their doses. A nil
// patientIDs selects every patient; an empty status selects every status.
func (s *Service) ListWithDoses(ctx context.Context, patientIDs []uuid.UUID, status Status) ([]*Treatment, error) {
	ts, err := s.treatments.ListByPatients(ctx, patientIDs, status)
	if err != nil || len(ts) == 0 {
		return ts, err
	}
	ids := make([]uuid.UUID, len(ts))
	byID := make(map[uuid.UUID]*Treatment, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
		t.Doses = []*Dose{}
		byID[t.ID] = t
	}
	doses, err := s.doses.ListByTreatments(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, d := range doses {
		if t, ok := byID[d.TreatmentID]; ok {
			t.Doses = append(t.Doses, d)
		}
	}
	return ts, nil
}

// UpdateTreatment applies patch. An explicit startDate rechains the pending
// doses and then resyncs the start date against the dose history.
func (s *Service) UpdateTreatment(ctx context.Context, id uuid.UUID, patch TreatmentPatch) (*Treatment, error) {
	var out *Treatment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.treatments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if patch.Status != nil {
			st, err := ParseStatus(*patch.Status)
			if err != nil {
				return err
			}
			t.Status = st
		}
		if patch.PlannedDosesBeforeConsult != nil {
			if *patch.PlannedDosesBeforeConsult < 0 {
				return apperr.Validation("plannedDosesBeforeConsult must not be negative")
			}
			t.PlannedDosesBeforeConsult = *patch.PlannedDosesBeforeConsult
		}
		if patch.ClearNextConsultation {
			t.NextConsultationDate = nil
		} else if patch.NextConsultationDate != nil {
			t.NextConsultationDate = patch.NextConsultationDate
		}
		if patch.Observations != nil {
			t.Observations = patch.Observations
		}
		if patch.StartDate != nil {
			if !patch.StartDate.IsValid() {
				return apperr.Validation("invalid startDate")
			}
			t.StartDate = *patch.StartDate
		}

		if err := s.treatments.Update(ctx, t); err != nil {
			return err
		}
		if patch.StartDate != nil {
			if err := s.rechain(ctx, t, *patch.StartDate); err != nil {
				return err
			}
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) DeleteTreatment(ctx context.Context, id uuid.UUID) error {
	return s.treatments.Delete(ctx, id)
}

// rechain moves every pending dose after the last applied cycle onto a
// fresh chain starting at newStart.
func (s *Service) rechain(ctx context.Context, t *Treatment, newStart civil.Date) error {
	doses, err := s.doses.ListByTreatment(ctx, t.ID)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*Dose, len(doses))
	for _, d := range doses {
		byID[d.ID] = d
	}

	today := s.today()
	plan := PlanRechain(doses, newStart, t.FrequencyDays)
	for _, step := range plan {
		d := byID[step.DoseID]
		d.ScheduledDate = step.Date
		d.ApplicationDate = step.Date
		if err := applySchedule(d, t.FrequencyDays, today); err != nil {
			return err
		}
		if err := s.doses.Update(ctx, d); err != nil {
			return err
		}
	}

	metrics.RecordRechain()
	s.logger.Info().
		Str("treatment_id", t.ID.String()).
		Str("start_date", newStart.String()).
		Int("rescheduled", len(plan)).
		Msg("pending doses rechained")

	return s.resyncWith(ctx, t, doses)
}

// resync realigns the treatment start date with its dose history.
func (s *Service) resync(ctx context.Context, t *Treatment) error {
	doses, err := s.doses.ListByTreatment(ctx, t.ID)
	if err != nil {
		return err
	}
	return s.resyncWith(ctx, t, doses)
}

func (s *Service) resyncWith(ctx context.Context, t *Treatment, doses []*Dose) error {
	ref, ok := ReferenceDate(doses)
	if !ok || ref == t.StartDate {
		return nil
	}
	if err := s.treatments.SetStartDate(ctx, t.ID, ref); err != nil {
		return err
	}
	t.StartDate = ref
	return nil
}

// dispense consumes stock for d. A dose that was already dispensed is left
// alone.
func (s *Service) dispense(ctx context.Context, t *Treatment, d *Dose) error {
	_, err := s.dispenser.Dispense(ctx, *d.InventoryLotID, t.PatientID, d.ID)
	if errors.Is(err, inventory.ErrAlreadyDispensed) {
		s.logger.Debug().Str("dose_id", d.ID.String()).Msg("dose already dispensed, skipping")
		return nil
	}
	return err
}
