package inventory

import (
	"fmt"
	"time"
)

func periodKey(t time.Time, period ReportPeriod) string {
	switch period {
	case PeriodQuarterly:
		return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	case PeriodYearly:
		return fmt.Sprintf("%d", t.Year())
	default:
		return fmt.Sprintf("%d-%02d", t.Year(), int(t.Month()))
	}
}

// BuildReport sums dispensed quantities per medication and period. logs must
// be ordered by date ascending; rows and periods keep first-seen order.
func BuildReport(logs []*DispenseLog, period ReportPeriod, loc *time.Location) []ReportRow {
	rows := []ReportRow{}
	rowIdx := make(map[string]int)
	periodIdx := make(map[string]map[string]int)

	for _, l := range logs {
		i, ok := rowIdx[l.MedicationName]
		if !ok {
			i = len(rows)
			rowIdx[l.MedicationName] = i
			periodIdx[l.MedicationName] = make(map[string]int)
			rows = append(rows, ReportRow{MedicationName: l.MedicationName})
		}
		key := periodKey(l.DispensedAt.In(loc), period)
		j, ok := periodIdx[l.MedicationName][key]
		if !ok {
			j = len(rows[i].Periods)
			periodIdx[l.MedicationName][key] = j
			rows[i].Periods = append(rows[i].Periods, PeriodQuantity{Period: key})
		}
		rows[i].Periods[j].Quantity += l.Quantity
		rows[i].Total += l.Quantity
	}
	return rows
}
