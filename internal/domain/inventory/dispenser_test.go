package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
)

func TestDispense_DecrementsAndLogs(t *testing.T) {
	lots, logs, tx := newTestStores()
	lot := seedLot(lots, "Leuprorelina", 3, date(2030, time.January, 1))
	d := NewDispenser(lots, logs, tx)

	patient, dose := uuid.New(), uuid.New()
	entry, err := d.Dispense(context.Background(), lot.ID, patient, dose)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lots.lots[lot.ID].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", lots.lots[lot.ID].Quantity)
	}
	if len(logs.logs) != 1 {
		t.Fatalf("expected 1 dispense log, got %d", len(logs.logs))
	}
	if entry.MedicationName != "Leuprorelina" || entry.Quantity != 1 || entry.DoseID != dose || entry.PatientID != patient {
		t.Errorf("unexpected log entry %+v", entry)
	}
}

// A single-unit lot serves one dose, the next dose is refused.
func TestDispense_LastUnitThenInsufficient(t *testing.T) {
	lots, logs, tx := newTestStores()
	lot := seedLot(lots, "Triptorelina", 1, date(2030, time.January, 1))
	d := NewDispenser(lots, logs, tx)
	ctx := context.Background()

	if _, err := d.Dispense(ctx, lot.ID, uuid.New(), uuid.New()); err != nil {
		t.Fatalf("first dispense: %v", err)
	}
	if lots.lots[lot.ID].Quantity != 0 {
		t.Fatalf("expected quantity 0, got %d", lots.lots[lot.ID].Quantity)
	}

	_, err := d.Dispense(ctx, lot.ID, uuid.New(), uuid.New())
	if !errors.Is(err, apperr.ErrInsufficientInventory) {
		t.Fatalf("expected insufficient inventory, got %v", err)
	}
	if lots.lots[lot.ID].Quantity != 0 {
		t.Errorf("quantity must never go negative, got %d", lots.lots[lot.ID].Quantity)
	}
	if len(logs.logs) != 1 {
		t.Errorf("expected exactly 1 log, got %d", len(logs.logs))
	}
}

func TestDispense_SameDoseTwice(t *testing.T) {
	lots, logs, tx := newTestStores()
	lot := seedLot(lots, "GH", 5, date(2030, time.January, 1))
	d := NewDispenser(lots, logs, tx)
	ctx := context.Background()
	dose := uuid.New()

	if _, err := d.Dispense(ctx, lot.ID, uuid.New(), dose); err != nil {
		t.Fatalf("first dispense: %v", err)
	}
	_, err := d.Dispense(ctx, lot.ID, uuid.New(), dose)
	if !errors.Is(err, ErrAlreadyDispensed) {
		t.Fatalf("expected ErrAlreadyDispensed, got %v", err)
	}
	if !errors.Is(err, apperr.ErrConflict) {
		t.Error("expected ErrAlreadyDispensed to be a conflict")
	}
	if lots.lots[lot.ID].Quantity != 4 {
		t.Errorf("expected a single decrement, got quantity %d", lots.lots[lot.ID].Quantity)
	}
}

func TestDispense_UnknownLot(t *testing.T) {
	lots, logs, tx := newTestStores()
	d := NewDispenser(lots, logs, tx)
	_, err := d.Dispense(context.Background(), uuid.New(), uuid.New(), uuid.New())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDispense_LogFailureRollsBackDecrement(t *testing.T) {
	lots, logs, tx := newTestStores()
	lot := seedLot(lots, "GH", 2, date(2030, time.January, 1))
	logs.createErr = errors.New("disk full")
	d := NewDispenser(lots, logs, tx)

	if _, err := d.Dispense(context.Background(), lot.ID, uuid.New(), uuid.New()); err == nil {
		t.Fatal("expected error")
	}
	if lots.lots[lot.ID].Quantity != 2 {
		t.Errorf("expected decrement to be rolled back, got quantity %d", lots.lots[lot.ID].Quantity)
	}
}

func TestFailureReason(t *testing.T) {
	tests := map[string]error{
		"already_dispensed": ErrAlreadyDispensed,
		"insufficient":      apperr.InsufficientInventory("empty"),
		"not_found":         apperr.NotFound("gone"),
		"error":             errors.New("boom"),
	}
	for want, err := range tests {
		if got := failureReason(err); got != want {
			t.Errorf("failureReason(%v) = %s, want %s", err, got, want)
		}
	}
}
