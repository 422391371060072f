package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
	"github.com/DarkMage108/medical-service-backend/internal/platform/db"
)

type Service struct {
	lots LotRepository
	logs DispenseLogRepository
	tx   db.Transactor
	now  func() time.Time
	loc  *time.Location
}

func NewService(lots LotRepository, logs DispenseLogRepository, tx db.Transactor) *Service {
	return &Service{lots: lots, logs: logs, tx: tx, now: time.Now, loc: time.Local}
}

// SetClock overrides the wall clock and the zone used to derive "today".
func (s *Service) SetClock(now func() time.Time, loc *time.Location) {
	s.now = now
	s.loc = loc
}

func (s *Service) today() civil.Date {
	return civil.DateOf(s.now().In(s.loc))
}

// CreateLot adds stock. A lot with the same medication and lot number is
// topped up and reactivated instead of duplicated; created reports which
// happened.
func (s *Service) CreateLot(ctx context.Context, l *Lot) (out *Lot, created bool, err error) {
	l.MedicationName = strings.TrimSpace(l.MedicationName)
	l.LotNumber = strings.TrimSpace(l.LotNumber)
	if l.MedicationName == "" || l.LotNumber == "" {
		return nil, false, apperr.Validation("medicationName and lotNumber are required")
	}
	if l.Quantity <= 0 {
		return nil, false, apperr.Validation("quantity must be greater than 0")
	}
	if !l.ExpiryDate.IsValid() {
		return nil, false, apperr.Validation("expiryDate is required")
	}
	if strings.TrimSpace(l.Unit) == "" {
		l.Unit = DefaultUnit
	}
	l.Active = true

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.lots.GetByKey(ctx, l.MedicationName, l.LotNumber)
		if err != nil {
			return err
		}
		if existing != nil {
			out, err = s.lots.AddStock(ctx, existing.ID, l.Quantity)
			return err
		}
		if err := s.lots.Create(ctx, l); err != nil {
			return err
		}
		out, created = l, true
		return nil
	})
	return out, created, err
}

func (s *Service) GetLot(ctx context.Context, id uuid.UUID) (*Lot, error) {
	return s.lots.GetByID(ctx, id)
}

func (s *Service) UpdateLot(ctx context.Context, id uuid.UUID, p LotPatch) (*Lot, error) {
	var out *Lot
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		l, err := s.lots.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p.MedicationName != nil && strings.TrimSpace(*p.MedicationName) != "" {
			l.MedicationName = strings.TrimSpace(*p.MedicationName)
		}
		if p.LotNumber != nil && strings.TrimSpace(*p.LotNumber) != "" {
			l.LotNumber = strings.TrimSpace(*p.LotNumber)
		}
		if p.ExpiryDate != nil {
			if !p.ExpiryDate.IsValid() {
				return apperr.Validation("invalid expiryDate")
			}
			l.ExpiryDate = *p.ExpiryDate
		}
		if p.Quantity != nil {
			if *p.Quantity < 0 {
				return apperr.Validation("quantity must not be negative")
			}
			l.Quantity = *p.Quantity
		}
		if p.Unit != nil && strings.TrimSpace(*p.Unit) != "" {
			l.Unit = *p.Unit
		}
		if p.Active != nil {
			l.Active = *p.Active
		}
		if err := s.lots.Update(ctx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	return out, err
}

func (s *Service) DeleteLot(ctx context.Context, id uuid.UUID) error {
	return s.lots.Delete(ctx, id)
}

// ListLots applies f. excludeExpired drops lots expiring today or earlier.
func (s *Service) ListLots(ctx context.Context, f LotFilter, excludeExpired bool) ([]*Lot, error) {
	if excludeExpired {
		today := s.today()
		f.NotExpiredOn = &today
	}
	return s.lots.List(ctx, f)
}

// AvailableLots lists lots that can be used for a dose today, soonest
// expiry first.
func (s *Service) AvailableLots(ctx context.Context, medicationName string) ([]*Lot, error) {
	return s.lots.Available(ctx, strings.TrimSpace(medicationName), s.today())
}

// LogQuery filters the dispense history by calendar day, both ends inclusive.
type LogQuery struct {
	PatientID      *uuid.UUID
	MedicationName string
	FromDate       *civil.Date
	ToDate         *civil.Date
}

func (s *Service) ListDispenseLogs(ctx context.Context, q LogQuery) ([]*DispenseLog, error) {
	if q.FromDate != nil && q.ToDate != nil && q.ToDate.Before(*q.FromDate) {
		return nil, apperr.Validation("toDate must not be before fromDate")
	}
	f := LogFilter{PatientID: q.PatientID, MedicationName: strings.TrimSpace(q.MedicationName)}
	if q.FromDate != nil {
		from := q.FromDate.In(s.loc)
		f.From = &from
	}
	if q.ToDate != nil {
		to := q.ToDate.AddDays(1).In(s.loc)
		f.To = &to
	}
	return s.logs.List(ctx, f)
}

// Report groups one calendar year of dispenses. year <= 0 means the current
// year.
func (s *Service) Report(ctx context.Context, period ReportPeriod, year int) ([]ReportRow, error) {
	if year <= 0 {
		year = s.now().In(s.loc).Year()
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
	to := from.AddDate(1, 0, 0)
	logs, err := s.logs.ListBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return BuildReport(logs, period, s.loc), nil
}
