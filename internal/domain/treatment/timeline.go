package treatment

import (
	"sort"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
)

// ReferenceDate picks the date a treatment's timeline hangs off: the most
// recent applied dose, else the earliest pending one. ok is false when the
// treatment has neither.
func ReferenceDate(doses []*Dose) (ref civil.Date, ok bool) {
	for _, d := range doses {
		if d.Status.IsApplied() && (!ok || d.ApplicationDate.After(ref)) {
			ref, ok = d.ApplicationDate, true
		}
	}
	if ok {
		return ref, true
	}
	for _, d := range doses {
		if d.Status == DosePending && (!ok || d.ApplicationDate.Before(ref)) {
			ref, ok = d.ApplicationDate, true
		}
	}
	return ref, ok
}

// Reschedule moves one pending dose to a new planned date.
type Reschedule struct {
	DoseID      uuid.UUID
	CycleNumber int
	Date        civil.Date
}

// PlanRechain lays the pending doses after the last applied cycle out again,
// one frequency apart, starting from newStart. Applied doses keep their
// dates.
func PlanRechain(doses []*Dose, newStart civil.Date, frequencyDays int) []Reschedule {
	lastCycle := 0
	prev := newStart
	for _, d := range doses {
		if d.Status.IsApplied() && d.CycleNumber > lastCycle {
			lastCycle = d.CycleNumber
			prev = d.ApplicationDate
		}
	}
	anyApplied := lastCycle > 0

	pending := make([]*Dose, 0, len(doses))
	for _, d := range doses {
		if d.Status == DosePending && d.CycleNumber > lastCycle {
			pending = append(pending, d)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CycleNumber < pending[j].CycleNumber })

	plan := make([]Reschedule, 0, len(pending))
	for _, d := range pending {
		next := prev.AddDays(frequencyDays)
		if d.CycleNumber == 1 && !anyApplied {
			next = newStart
		}
		plan = append(plan, Reschedule{DoseID: d.ID, CycleNumber: d.CycleNumber, Date: next})
		prev = next
	}
	return plan
}
