package treatment

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func dose(cycle int, status DoseStatus, applied string, t *testing.T) *Dose {
	d := mustDate(t, applied)
	return &Dose{ID: uuid.New(), CycleNumber: cycle, Status: status, ScheduledDate: d, ApplicationDate: d}
}

func TestReferenceDate(t *testing.T) {
	tests := []struct {
		name   string
		doses  []*Dose
		want   string
		wantOK bool
	}{
		{"no doses", nil, "", false},
		{"latest applied wins", []*Dose{
			dose(1, DoseApplied, "2024-01-01", t),
			dose(2, DoseAppliedLate, "2024-02-03", t),
			dose(3, DosePending, "2024-03-01", t),
		}, "2024-02-03", true},
		{"earliest pending when nothing applied", []*Dose{
			dose(2, DosePending, "2024-02-01", t),
			dose(1, DosePending, "2024-01-05", t),
		}, "2024-01-05", true},
		{"refused only", []*Dose{dose(1, DoseNotAccepted, "2024-01-01", t)}, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ReferenceDate(tc.doses)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && got.String() != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

// The pending dose chains off the applied dose, not the new
// start date.
func TestPlanRechain_ChainsFromLastApplied(t *testing.T) {
	applied := dose(1, DoseApplied, "2024-01-03", t)
	pending := dose(2, DosePending, "2024-01-31", t)

	plan := PlanRechain([]*Dose{pending, applied}, date(2024, time.February, 10), 28)
	if len(plan) != 1 {
		t.Fatalf("expected 1 reschedule, got %d", len(plan))
	}
	if plan[0].DoseID != pending.ID {
		t.Errorf("expected pending dose to be rescheduled")
	}
	if plan[0].Date != date(2024, time.January, 31) {
		t.Errorf("expected 2024-01-31 (applied + 28), got %s", plan[0].Date)
	}
}

func TestPlanRechain_FromNewStartWhenNothingApplied(t *testing.T) {
	doses := []*Dose{
		dose(1, DosePending, "2024-01-01", t),
		dose(2, DosePending, "2024-01-29", t),
		dose(3, DosePending, "2024-02-26", t),
	}
	plan := PlanRechain(doses, date(2024, time.March, 1), 28)
	want := []string{"2024-03-01", "2024-03-29", "2024-04-26"}
	if len(plan) != len(want) {
		t.Fatalf("expected %d steps, got %d", len(want), len(plan))
	}
	for i, step := range plan {
		if step.CycleNumber != i+1 || step.Date.String() != want[i] {
			t.Errorf("step %d = cycle %d on %s, want cycle %d on %s", i, step.CycleNumber, step.Date, i+1, want[i])
		}
	}
}

func TestPlanRechain_SkipsEarlierAndNonPendingDoses(t *testing.T) {
	doses := []*Dose{
		dose(1, DosePending, "2024-01-01", t),
		dose(2, DoseAppliedLate, "2024-02-05", t),
		dose(3, DoseNotAccepted, "2024-03-04", t),
		dose(4, DosePending, "2024-04-01", t),
	}
	plan := PlanRechain(doses, date(2024, time.January, 1), 28)
	if len(plan) != 1 {
		t.Fatalf("expected only cycle 4 to move, got %+v", plan)
	}
	if plan[0].CycleNumber != 4 || plan[0].Date != date(2024, time.March, 4) {
		t.Errorf("got cycle %d on %s, want cycle 4 on 2024-03-04", plan[0].CycleNumber, plan[0].Date)
	}
}
