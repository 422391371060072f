package inventory

import (
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
)

const DefaultUnit = "Ampola"

// Lot is one batch of a medication. Quantity never goes below zero.
type Lot struct {
	ID             uuid.UUID  `json:"id"`
	MedicationName string     `json:"medicationName"`
	LotNumber      string     `json:"lotNumber"`
	Quantity       int        `json:"quantity"`
	Unit           string     `json:"unit"`
	ExpiryDate     civil.Date `json:"expiryDate"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Usable reports whether the lot may be offered for a new dose on day.
func (l *Lot) Usable(day civil.Date) bool {
	return l.Active && l.Quantity > 0 && l.ExpiryDate.After(day)
}

type LotPatch struct {
	MedicationName *string     `json:"medicationName"`
	LotNumber      *string     `json:"lotNumber"`
	ExpiryDate     *civil.Date `json:"expiryDate"`
	Quantity       *int        `json:"quantity"`
	Unit           *string     `json:"unit"`
	Active         *bool       `json:"active"`
}

type LotFilter struct {
	Search string
	Active *bool
	// NotExpiredOn drops lots whose expiry is on or before this day.
	NotExpiredOn *civil.Date
}

// LotGroup is the per-medication view of the lot list.
type LotGroup struct {
	MedicationName string `json:"medicationName"`
	TotalQuantity  int    `json:"totalQuantity"`
	Lots           []*Lot `json:"lots"`
}

// GroupByMedication keeps the input order of both groups and lots.
func GroupByMedication(lots []*Lot) []LotGroup {
	var groups []LotGroup
	index := make(map[string]int)
	for _, l := range lots {
		i, ok := index[l.MedicationName]
		if !ok {
			i = len(groups)
			index[l.MedicationName] = i
			groups = append(groups, LotGroup{MedicationName: l.MedicationName})
		}
		groups[i].TotalQuantity += l.Quantity
		groups[i].Lots = append(groups[i].Lots, l)
	}
	return groups
}

// DispenseLog records one unit consumed by a dose. At most one exists per dose.
type DispenseLog struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patientId"`
	InventoryLotID uuid.UUID `json:"inventoryLotId"`
	LotNumber      string    `json:"lotNumber,omitempty"`
	DoseID         uuid.UUID `json:"doseId"`
	MedicationName string    `json:"medicationName"`
	Quantity       int       `json:"quantity"`
	DispensedAt    time.Time `json:"date"`
}

type LogFilter struct {
	PatientID      *uuid.UUID
	MedicationName string
	From           *time.Time
	To             *time.Time
}

type ReportPeriod string

const (
	PeriodMonthly   ReportPeriod = "monthly"
	PeriodQuarterly ReportPeriod = "quarterly"
	PeriodYearly    ReportPeriod = "yearly"
)

func ParseReportPeriod(s string) (ReportPeriod, error) {
	switch ReportPeriod(strings.ToLower(s)) {
	case "", PeriodMonthly:
		return PeriodMonthly, nil
	case PeriodQuarterly:
		return PeriodQuarterly, nil
	case PeriodYearly:
		return PeriodYearly, nil
	}
	return "", apperr.Validation("invalid period %q: use monthly, quarterly or yearly", s)
}

type PeriodQuantity struct {
	Period   string `json:"period"`
	Quantity int    `json:"quantity"`
}

type ReportRow struct {
	MedicationName string           `json:"medicationName"`
	Periods        []PeriodQuantity `json:"periods"`
	Total          int              `json:"total"`
}
