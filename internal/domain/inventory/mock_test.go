package inventory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
)

type mockLotRepo struct {
	lots map[uuid.UUID]*Lot
}

func newMockLotRepo() *mockLotRepo {
	return &mockLotRepo{lots: make(map[uuid.UUID]*Lot)}
}

func (m *mockLotRepo) Create(_ context.Context, l *Lot) error {
	l.ID = uuid.New()
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt
	cp := *l
	m.lots[l.ID] = &cp
	return nil
}

func (m *mockLotRepo) GetByID(_ context.Context, id uuid.UUID) (*Lot, error) {
	l, ok := m.lots[id]
	if !ok {
		return nil, apperr.NotFound("inventory lot not found")
	}
	cp := *l
	return &cp, nil
}

func (m *mockLotRepo) GetByKey(_ context.Context, name, lot string) (*Lot, error) {
	for _, l := range m.lots {
		if l.MedicationName == name && l.LotNumber == lot {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockLotRepo) AddStock(_ context.Context, id uuid.UUID, qty int) (*Lot, error) {
	l, ok := m.lots[id]
	if !ok {
		return nil, apperr.NotFound("inventory lot not found")
	}
	l.Quantity += qty
	l.Active = true
	cp := *l
	return &cp, nil
}

func (m *mockLotRepo) Update(_ context.Context, l *Lot) error {
	if _, ok := m.lots[l.ID]; !ok {
		return apperr.NotFound("inventory lot not found")
	}
	cp := *l
	m.lots[l.ID] = &cp
	return nil
}

func (m *mockLotRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.lots[id]; !ok {
		return apperr.NotFound("inventory lot not found")
	}
	delete(m.lots, id)
	return nil
}

func (m *mockLotRepo) List(_ context.Context, f LotFilter) ([]*Lot, error) {
	var out []*Lot
	for _, l := range m.lots {
		if f.Search != "" && !strings.Contains(strings.ToLower(l.MedicationName), strings.ToLower(f.Search)) {
			continue
		}
		if f.Active != nil && l.Active != *f.Active {
			continue
		}
		if f.NotExpiredOn != nil && !l.ExpiryDate.After(*f.NotExpiredOn) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MedicationName != out[j].MedicationName {
			return out[i].MedicationName < out[j].MedicationName
		}
		return out[i].ExpiryDate.Before(out[j].ExpiryDate)
	})
	return out, nil
}

func (m *mockLotRepo) Available(_ context.Context, name string, day civil.Date) ([]*Lot, error) {
	var out []*Lot
	for _, l := range m.lots {
		if l.Usable(day) && (name == "" || strings.Contains(strings.ToLower(l.MedicationName), strings.ToLower(name))) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(out[j].ExpiryDate) })
	return out, nil
}

func (m *mockLotRepo) DecrementIfAvailable(_ context.Context, id uuid.UUID) (*Lot, bool, error) {
	l, ok := m.lots[id]
	if !ok || l.Quantity <= 0 {
		return nil, false, nil
	}
	l.Quantity--
	cp := *l
	return &cp, true, nil
}

func (m *mockLotRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := m.lots[id]
	return ok, nil
}

type mockLogRepo struct {
	logs      []*DispenseLog
	createErr error
}

func (m *mockLogRepo) ExistsForDose(_ context.Context, doseID uuid.UUID) (bool, error) {
	for _, l := range m.logs {
		if l.DoseID == doseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockLogRepo) Create(_ context.Context, l *DispenseLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	l.ID = uuid.New()
	l.DispensedAt = time.Now()
	m.logs = append(m.logs, l)
	return nil
}

func (m *mockLogRepo) List(_ context.Context, f LogFilter) ([]*DispenseLog, error) {
	var out []*DispenseLog
	for _, l := range m.logs {
		if f.PatientID != nil && l.PatientID != *f.PatientID {
			continue
		}
		if f.From != nil && l.DispensedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !l.DispensedAt.Before(*f.To) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *mockLogRepo) ListBetween(_ context.Context, from, to time.Time) ([]*DispenseLog, error) {
	var out []*DispenseLog
	for _, l := range m.logs {
		if !l.DispensedAt.Before(from) && l.DispensedAt.Before(to) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DispensedAt.Before(out[j].DispensedAt) })
	return out, nil
}

// rollbackTx restores both mock stores when fn fails, like a database
// transaction would.
type rollbackTx struct {
	lots *mockLotRepo
	logs *mockLogRepo
}

func (t rollbackTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	savedLots := make(map[uuid.UUID]Lot, len(t.lots.lots))
	for id, l := range t.lots.lots {
		savedLots[id] = *l
	}
	savedLogs := append([]*DispenseLog(nil), t.logs.logs...)

	if err := fn(ctx); err != nil {
		t.lots.lots = make(map[uuid.UUID]*Lot, len(savedLots))
		for id, l := range savedLots {
			l := l
			t.lots.lots[id] = &l
		}
		t.logs.logs = savedLogs
		return err
	}
	return nil
}

func newTestStores() (*mockLotRepo, *mockLogRepo, rollbackTx) {
	lots := newMockLotRepo()
	logs := &mockLogRepo{}
	return lots, logs, rollbackTx{lots: lots, logs: logs}
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func seedLot(m *mockLotRepo, name string, qty int, expiry civil.Date) *Lot {
	l := &Lot{MedicationName: name, LotNumber: "L-" + name, Quantity: qty, Unit: DefaultUnit, ExpiryDate: expiry, Active: true}
	_ = m.Create(context.Background(), l)
	return l
}
