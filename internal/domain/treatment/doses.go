package treatment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
	"github.com/DarkMage108/medical-service-backend/internal/platform/metrics"
	"github.com/DarkMage108/medical-service-backend/pkg/pagination"
)

func (s *Service) GetDose(ctx context.Context, id uuid.UUID) (*Dose, error) {
	return s.doses.GetByID(ctx, id)
}

func (s *Service) ListDoses(ctx context.Context, f DoseFilter, p pagination.Params) ([]*Dose, int, error) {
	return s.doses.List(ctx, f, p)
}

// CreateDose records a new cycle. Cycle numbers only grow: an omitted cycle
// takes the next one and a cycle at or below the current maximum is a
// conflict.
func (s *Service) CreateDose(ctx context.Context, in DoseInput) (*Dose, error) {
	if in.TreatmentID == uuid.Nil {
		return nil, apperr.Validation("treatmentId is required")
	}
	if !in.ApplicationDate.IsValid() {
		return nil, apperr.Validation("applicationDate is required")
	}
	if in.CycleNumber < 0 {
		return nil, apperr.Validation("cycleNumber must be positive")
	}

	requested := DosePending
	if in.Status != "" {
		st, err := ParseDoseStatus(in.Status)
		if err != nil {
			return nil, err
		}
		requested = st
	}
	payment := PaymentWaitingPix
	if in.PaymentStatus != "" {
		ps, err := ParsePaymentStatus(in.PaymentStatus)
		if err != nil {
			return nil, err
		}
		payment = ps
	}
	survey := SurveyNotSent
	if in.Nurse {
		survey = SurveyWaiting
		if in.SurveyStatus != "" {
			ss, err := ParseSurveyStatus(in.SurveyStatus)
			if err != nil {
				return nil, err
			}
			survey = ss
		}
	}
	purchased := true
	if in.Purchased != nil {
		purchased = *in.Purchased
	}

	d := &Dose{
		ID:                  uuid.New(),
		TreatmentID:         in.TreatmentID,
		CycleNumber:         in.CycleNumber,
		ScheduledDate:       in.ApplicationDate,
		ApplicationDate:     in.ApplicationDate,
		PaymentStatus:       payment,
		InventoryLotID:      in.InventoryLotID,
		LotNumber:           in.LotNumber,
		ExpiryDate:          in.ExpiryDate,
		IsLastBeforeConsult: in.IsLastBeforeConsult,
		ConsultationDate:    in.ConsultationDate,
		Nurse:               in.Nurse,
		SurveyStatus:        survey,
		Purchased:           purchased,
		DeliveryStatus:      in.DeliveryStatus,
	}
	if in.ScheduledDate != nil {
		if !in.ScheduledDate.IsValid() {
			return nil, apperr.Validation("invalid scheduledDate")
		}
		d.ScheduledDate = *in.ScheduledDate
	}
	if in.Nurse {
		d.SurveyScore = in.SurveyScore
		d.SurveyComment = in.SurveyComment
	}

	today := s.today()
	d.Status = Classify(requested, d.ScheduledDate, d.ApplicationDate)
	if err := ValidateApplication(d.Status, d.ApplicationDate, today); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.treatments.GetForUpdate(ctx, d.TreatmentID)
		if err != nil {
			return err
		}
		maxCycle, err := s.doses.MaxCycle(ctx, t.ID)
		if err != nil {
			return err
		}
		if d.CycleNumber == 0 {
			d.CycleNumber = maxCycle + 1
		} else if d.CycleNumber <= maxCycle {
			return apperr.Conflict("cycle %d must be greater than the latest cycle %d", d.CycleNumber, maxCycle)
		}

		if err := applySchedule(d, t.FrequencyDays, today); err != nil {
			return err
		}
		if NeedsDispense(DosePending, d.Status, d.InventoryLotID) {
			if err := s.dispense(ctx, t, d); err != nil {
				return err
			}
		}
		if err := s.doses.Create(ctx, d); err != nil {
			return err
		}
		return s.resync(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDoseTransition("", string(d.Status))
	return d, nil
}

// UpdateDose applies patch as one transaction: status check, dispense,
// dose write and start date resync. A failed dispense leaves the dose
// untouched.
func (s *Service) UpdateDose(ctx context.Context, id uuid.UUID, patch DosePatch) (*Dose, error) {
	var out *Dose
	var from DoseStatus
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.doses.GetByID(ctx, id)
		if err != nil {
			return err
		}
		t, err := s.treatments.GetForUpdate(ctx, cur.TreatmentID)
		if err != nil {
			return err
		}
		d, err := s.doses.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = d.Status

		requested := d.Status
		if patch.Status != nil {
			st, err := ParseDoseStatus(*patch.Status)
			if err != nil {
				return err
			}
			requested = st
		}
		if !CanTransition(from, requested) {
			return apperr.Validation("dose cannot move from %s to %s", from, requested)
		}

		dateChanged := false
		if patch.ApplicationDate != nil {
			if !patch.ApplicationDate.IsValid() {
				return apperr.Validation("invalid applicationDate")
			}
			dateChanged = *patch.ApplicationDate != d.ApplicationDate
			d.ApplicationDate = *patch.ApplicationDate
		}
		if err := applyDoseFields(d, patch, s.now()); err != nil {
			return err
		}

		today := s.today()
		d.Status = Classify(requested, d.ScheduledDate, d.ApplicationDate)
		if err := ValidateApplication(d.Status, d.ApplicationDate, today); err != nil {
			return err
		}
		if dateChanged {
			if err := applySchedule(d, t.FrequencyDays, today); err != nil {
				return err
			}
		}

		if NeedsDispense(from, d.Status, d.InventoryLotID) {
			if err := s.dispense(ctx, t, d); err != nil {
				return err
			}
		}
		if err := s.doses.Update(ctx, d); err != nil {
			return err
		}
		if dateChanged || d.Status != from {
			if err := s.resync(ctx, t); err != nil {
				return err
			}
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDoseTransition(string(from), string(out.Status))
	return out, nil
}

// applyDoseFields copies the fields that do not drive the lifecycle.
// Turning nurse follow-up off resets the survey.
func applyDoseFields(d *Dose, patch DosePatch, now time.Time) error {
	if patch.PaymentStatus != nil {
		ps, err := ParsePaymentStatus(*patch.PaymentStatus)
		if err != nil {
			return err
		}
		d.PaymentStatus = ps
		d.PaymentUpdatedAt = &now
	}
	if patch.InventoryLotID != nil {
		d.InventoryLotID = patch.InventoryLotID
	}
	if patch.LotNumber != nil {
		d.LotNumber = patch.LotNumber
	}
	if patch.ExpiryDate != nil {
		d.ExpiryDate = patch.ExpiryDate
	}
	if patch.IsLastBeforeConsult != nil {
		d.IsLastBeforeConsult = *patch.IsLastBeforeConsult
	}
	if patch.ConsultationDate != nil {
		d.ConsultationDate = patch.ConsultationDate
	}
	if patch.Purchased != nil {
		d.Purchased = *patch.Purchased
	}
	if patch.DeliveryStatus != nil {
		d.DeliveryStatus = patch.DeliveryStatus
	}

	if patch.Nurse != nil {
		d.Nurse = *patch.Nurse
		if !d.Nurse {
			d.SurveyStatus = SurveyNotSent
			d.SurveyScore = nil
			d.SurveyComment = nil
		}
	}
	if d.Nurse {
		if patch.SurveyStatus != nil {
			ss, err := ParseSurveyStatus(*patch.SurveyStatus)
			if err != nil {
				return err
			}
			d.SurveyStatus = ss
		}
		if patch.SurveyScore != nil {
			d.SurveyScore = patch.SurveyScore
		}
		if patch.SurveyComment != nil {
			d.SurveyComment = patch.SurveyComment
		}
	}
	return nil
}

func (s *Service) DeleteDose(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.doses.GetByID(ctx, id)
		if err != nil {
			return err
		}
		t, err := s.treatments.GetForUpdate(ctx, d.TreatmentID)
		if err != nil {
			return err
		}
		if err := s.doses.Delete(ctx, id); err != nil {
			return err
		}
		return s.resync(ctx, t)
	})
}

// UpdateSurvey edits the follow-up survey only. Dates, status and stock are
// not touched.
func (s *Service) UpdateSurvey(ctx context.Context, id uuid.UUID, patch SurveyPatch) (*Dose, error) {
	var out *Dose
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.doses.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if patch.SurveyStatus != nil {
			ss, err := ParseSurveyStatus(*patch.SurveyStatus)
			if err != nil {
				return err
			}
			d.SurveyStatus = ss
		}
		if patch.SurveyScore != nil {
			if *patch.SurveyScore < 0 {
				return apperr.Validation("surveyScore must not be negative")
			}
			d.SurveyScore = patch.SurveyScore
		}
		if patch.SurveyComment != nil {
			d.SurveyComment = patch.SurveyComment
		}
		if err := s.doses.Update(ctx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	return out, err
}
