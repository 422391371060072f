package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
	"github.com/DarkMage108/medical-service-backend/internal/platform/db"
	"github.com/DarkMage108/medical-service-backend/internal/platform/metrics"
)

// ErrAlreadyDispensed is returned when a dispense log already exists for the
// dose. Callers that only need at-most-once semantics treat it as a no-op.
var ErrAlreadyDispensed = fmt.Errorf("dose already dispensed: %w", apperr.ErrConflict)

// Dispenser consumes one unit of a lot for an administered dose.
type Dispenser struct {
	lots   LotRepository
	logs   DispenseLogRepository
	tx     db.Transactor
	logger zerolog.Logger
}

func NewDispenser(lots LotRepository, logs DispenseLogRepository, tx db.Transactor) *Dispenser {
	return &Dispenser{lots: lots, logs: logs, tx: tx, logger: zerolog.Nop()}
}

func (d *Dispenser) SetLogger(l zerolog.Logger) {
	d.logger = l
}

// Dispense decrements the lot and writes the dispense log in one
// transaction. When called inside an open transaction it joins it, so a
// failure also rolls back the caller's writes.
func (d *Dispenser) Dispense(ctx context.Context, lotID, patientID, doseID uuid.UUID) (*DispenseLog, error) {
	var entry *DispenseLog
	err := d.tx.WithinTx(ctx, func(ctx context.Context) error {
		done, err := d.logs.ExistsForDose(ctx, doseID)
		if err != nil {
			return fmt.Errorf("check dispense log: %w", err)
		}
		if done {
			return fmt.Errorf("dose %s: %w", doseID, ErrAlreadyDispensed)
		}

		lot, ok, err := d.lots.DecrementIfAvailable(ctx, lotID)
		if err != nil {
			return fmt.Errorf("decrement lot: %w", err)
		}
		if !ok {
			exists, err := d.lots.Exists(ctx, lotID)
			if err != nil {
				return fmt.Errorf("lookup lot: %w", err)
			}
			if !exists {
				return apperr.NotFound("inventory lot %s not found", lotID)
			}
			return apperr.InsufficientInventory("inventory lot %s has no remaining stock", lotID)
		}

		entry = &DispenseLog{
			PatientID:      patientID,
			InventoryLotID: lotID,
			LotNumber:      lot.LotNumber,
			DoseID:         doseID,
			MedicationName: lot.MedicationName,
			Quantity:       1,
		}
		return d.logs.Create(ctx, entry)
	})
	if err != nil {
		metrics.RecordDispenseFailure(failureReason(err))
		return nil, err
	}

	metrics.RecordDispense()
	d.logger.Info().
		Str("lot_id", lotID.String()).
		Str("dose_id", doseID.String()).
		Str("medication", entry.MedicationName).
		Msg("dose dispensed")
	return entry, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyDispensed):
		return "already_dispensed"
	case errors.Is(err, apperr.ErrInsufficientInventory):
		return "insufficient"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
