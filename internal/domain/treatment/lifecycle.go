package treatment

import (
	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
)

// CanTransition reports whether a dose may move from one status to another.
// NOT_ACCEPTED is terminal; applied doses may only be corrected back to
// PENDING or reclassified.
func CanTransition(from, to DoseStatus) bool {
	switch from {
	case DosePending:
		switch to {
		case DosePending, DoseApplied, DoseAppliedLate, DoseNotAccepted:
			return true
		}
	case DoseApplied, DoseAppliedLate:
		switch to {
		case DoseApplied, DoseAppliedLate, DosePending:
			return true
		}
	case DoseNotAccepted:
		return to == DoseNotAccepted
	}
	return false
}

// Classify turns a requested status into the stored one. Applied statuses
// are decided by the delay between the planned and actual dates, whichever
// of the two the caller asked for.
func Classify(requested DoseStatus, scheduled, applied civil.Date) DoseStatus {
	if !requested.IsApplied() {
		return requested
	}
	if applied.DaysSince(scheduled) > 0 {
		return DoseAppliedLate
	}
	return DoseApplied
}

// ValidateApplication rejects an applied dose dated after today.
func ValidateApplication(status DoseStatus, applied, today civil.Date) error {
	if status.IsApplied() && applied.After(today) {
		return apperr.Validation(
			"applicationDate %s is in the future; record the dose as PENDING until it is administered",
			applied)
	}
	return nil
}

// NeedsDispense reports whether a status change consumes stock: entering an
// applied status from a non-applied one with a lot attached.
func NeedsDispense(from, to DoseStatus, lotID *uuid.UUID) bool {
	return lotID != nil && *lotID != uuid.Nil && to.IsApplied() && !from.IsApplied()
}
