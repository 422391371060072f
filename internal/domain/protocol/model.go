package protocol

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
)

type Category string

const (
	CategoryMedication Category = "MEDICATION"
	CategoryMonitoring Category = "MONITORING"
)

func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToUpper(strings.TrimSpace(s))) {
	case CategoryMedication:
		return CategoryMedication, nil
	case CategoryMonitoring:
		return CategoryMonitoring, nil
	}
	return "", apperr.Validation("invalid category %q: use MEDICATION or MONITORING", s)
}

// Protocol is the dosing template a treatment follows.
type Protocol struct {
	ID             uuid.UUID   `json:"id"`
	Name           string      `json:"name"`
	Category       Category    `json:"category"`
	MedicationType *string     `json:"medicationType,omitempty"`
	FrequencyDays  int         `json:"frequencyDays"`
	Goal           *string     `json:"goal,omitempty"`
	Message        *string     `json:"message,omitempty"`
	Milestones     []Milestone `json:"milestones"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// Milestone is a follow-up contact due DayOffset days after a treatment's
// start date.
type Milestone struct {
	ID        uuid.UUID `json:"id"`
	DayOffset int       `json:"dayOffset"`
	Message   string    `json:"message"`
}

// Patch carries a partial protocol update. A non-nil Milestones replaces the
// whole milestone list.
type Patch struct {
	Name           *string      `json:"name"`
	Category       *string      `json:"category"`
	MedicationType *string      `json:"medicationType"`
	FrequencyDays  *int         `json:"frequencyDays"`
	Goal           *string      `json:"goal"`
	Message        *string      `json:"message"`
	Milestones     *[]Milestone `json:"milestones"`
}

func validateFrequency(days int) error {
	if days < 1 {
		return apperr.Validation("frequencyDays must be at least 1, got %d", days)
	}
	return nil
}

// validateMilestones also rejects two milestones on the same day: the day
// offset is part of the contact id, so it must be unique per protocol.
func validateMilestones(ms []Milestone) error {
	seen := make(map[int]bool, len(ms))
	for i, m := range ms {
		if m.DayOffset < 0 {
			return apperr.Validation("milestone %d: dayOffset must be >= 0", i)
		}
		if seen[m.DayOffset] {
			return apperr.Validation("milestone %d: dayOffset %d is already used", i, m.DayOffset)
		}
		seen[m.DayOffset] = true
		if strings.TrimSpace(m.Message) == "" {
			return apperr.Validation("milestone %d: message is required", i)
		}
	}
	return nil
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
