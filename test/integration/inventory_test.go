package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/internal/domain/inventory"
	"github.com/DarkMage108/medical-service-backend/internal/platform/db"
)

// A repeated dispense log insert reports ErrAlreadyDispensed and leaves the
// transaction usable, so the caller can treat it as a no-op and carry on.
func TestDispenseLog_DuplicateKeepsTransactionUsable(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	lot := s.createLot(t, ctx, "L-"+uuid.NewString()[:8], 5)
	logs := inventory.NewDispenseLogRepoPG(globalPool)
	doseID := uuid.New()

	err := db.NewTransactor(globalPool).WithinTx(ctx, func(ctx context.Context) error {
		entry := func() *inventory.DispenseLog {
			return &inventory.DispenseLog{
				PatientID:      uuid.New(),
				InventoryLotID: lot.ID,
				DoseID:         doseID,
				MedicationName: lot.MedicationName,
				Quantity:       1,
			}
		}
		if err := logs.Create(ctx, entry()); err != nil {
			return err
		}
		if err := logs.Create(ctx, entry()); !errors.Is(err, inventory.ErrAlreadyDispensed) {
			t.Errorf("expected ErrAlreadyDispensed, got %v", err)
		}

		done, err := logs.ExistsForDose(ctx, doseID)
		if err != nil {
			return err
		}
		if !done {
			t.Error("expected the first log to be visible in the transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed after duplicate insert: %v", err)
	}

	exists, err := logs.ExistsForDose(ctx, doseID)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Error("expected the dispense log to be committed")
	}
}
