package adherence

import (
	"github.com/golang-sql/civil"

	"github.com/DarkMage108/medical-service-backend/internal/domain/treatment"
)

// Classify rates one patient from the given treatments. Only ONGOING
// treatments count; with none the result is nil.
func Classify(treatments []*treatment.Treatment, th Thresholds, today civil.Date) *Tier {
	return Assess(treatments, th, today).AdherenceLevel
}

// Assess sums late doses over the patient's ongoing treatments and flags
// abandonment, then picks the tier in the order ABANDONO, RUIM, PARCIAL, BOA.
func Assess(treatments []*treatment.Treatment, th Thresholds, today civil.Date) Assessment {
	var a Assessment
	ongoing := 0
	for _, t := range treatments {
		if t.Status != treatment.StatusOngoing {
			continue
		}
		ongoing++
		late, veryLate := lateCounts(t.Doses, th)
		a.LateCount += late
		a.VeryLateCount += veryLate
		if abandoned(t, th, today) {
			a.Abandoned = true
		}
	}
	if ongoing == 0 {
		return a
	}

	tier := TierGood
	switch {
	case a.Abandoned:
		tier = TierAbandoned
	case a.VeryLateCount > th.MaxLateDoses:
		tier = TierPoor
	case a.LateCount >= 2 && a.LateCount <= th.MaxLateDoses:
		tier = TierPartial
	}
	a.AdherenceLevel = &tier
	return a
}

func lateCounts(doses []*treatment.Dose, th Thresholds) (late, veryLate int) {
	for _, d := range doses {
		if d.Status != treatment.DoseAppliedLate {
			continue
		}
		delay := d.Delay()
		if delay > th.MaxDelayGood {
			late++
		}
		if delay > th.SevereDelay {
			veryLate++
		}
	}
	return late, veryLate
}

// abandoned looks at the last planned cycle that still lacks an applied
// dose. Cycle n is due on startDate + frequency*(n-1).
func abandoned(t *treatment.Treatment, th Thresholds, today civil.Date) bool {
	byCycle := make(map[int]*treatment.Dose, len(t.Doses))
	for _, d := range t.Doses {
		byCycle[d.CycleNumber] = d
	}
	for cycle := t.PlannedDosesBeforeConsult; cycle >= 1; cycle-- {
		d, ok := byCycle[cycle]
		if ok && d.Status != treatment.DosePending {
			continue
		}
		due := t.StartDate.AddDays(t.FrequencyDays * (cycle - 1))
		return today.DaysSince(due) > th.AbandonDays
	}
	return false
}
