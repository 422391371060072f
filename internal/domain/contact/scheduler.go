package contact

import (
	"sort"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/internal/domain/protocol"
	"github.com/DarkMage108/medical-service-backend/internal/domain/treatment"
)

// Window bounds the upcoming list to [today-PastDays, today+DaysAhead].
type Window struct {
	PastDays  int
	DaysAhead int
}

// Upcoming lists milestone contacts of ongoing treatments that fall inside
// the window and were not dismissed, earliest first.
func Upcoming(treatments []*treatment.Treatment, protocols map[uuid.UUID]*protocol.Protocol,
	dismissed map[string]bool, today civil.Date, w Window) []Contact {
	from := today.AddDays(-w.PastDays)
	to := today.AddDays(w.DaysAhead)

	out := []Contact{}
	for _, t := range treatments {
		if t.Status != treatment.StatusOngoing {
			continue
		}
		p, ok := protocols[t.ProtocolID]
		if !ok {
			continue
		}
		for _, m := range p.Milestones {
			id := ID(t.ID, m.DayOffset)
			if dismissed[id] {
				continue
			}
			day := t.StartDate.AddDays(m.DayOffset)
			if day.Before(from) || day.After(to) {
				continue
			}
			out = append(out, Contact{
				ContactID:    id,
				TreatmentID:  t.ID,
				PatientID:    t.PatientID,
				ContactDate:  day,
				Message:      m.Message,
				ProtocolName: p.Name,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ContactDate != out[j].ContactDate {
			return out[i].ContactDate.Before(out[j].ContactDate)
		}
		return out[i].ContactID < out[j].ContactID
	})
	return out
}
