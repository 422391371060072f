package treatment

import (
	"github.com/golang-sql/civil"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
)

// Schedule is the next due date derived from a reference dose date.
type Schedule struct {
	NextDate      civil.Date
	DaysUntilNext int
}

// NextSchedule adds frequencyDays to ref. DaysUntilNext is negative once the
// next date has passed.
func NextSchedule(ref civil.Date, frequencyDays int, today civil.Date) (Schedule, error) {
	if frequencyDays < 1 {
		return Schedule{}, apperr.Validation("frequencyDays must be at least 1, got %d", frequencyDays)
	}
	if !ref.IsValid() {
		return Schedule{}, apperr.Validation("invalid reference date")
	}
	next := ref.AddDays(frequencyDays)
	return Schedule{NextDate: next, DaysUntilNext: next.DaysSince(today)}, nil
}

func applySchedule(d *Dose, frequencyDays int, today civil.Date) error {
	s, err := NextSchedule(d.ApplicationDate, frequencyDays, today)
	if err != nil {
		return err
	}
	d.CalculatedNextDate = s.NextDate
	d.DaysUntilNext = s.DaysUntilNext
	return nil
}
