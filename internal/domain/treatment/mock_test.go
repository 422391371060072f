package treatment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/internal/domain/inventory"
	"github.com/DarkMage108/medical-service-backend/internal/domain/protocol"
	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
	"github.com/DarkMage108/medical-service-backend/pkg/pagination"
)

type mockTreatmentRepo struct {
	items map[uuid.UUID]*Treatment
}

func newMockTreatmentRepo() *mockTreatmentRepo {
	return &mockTreatmentRepo{items: make(map[uuid.UUID]*Treatment)}
}

func (m *mockTreatmentRepo) Create(_ context.Context, t *Treatment) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *mockTreatmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Treatment, error) {
	t, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("treatment not found")
	}
	cp := *t
	return &cp, nil
}

func (m *mockTreatmentRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	return m.GetByID(ctx, id)
}

func (m *mockTreatmentRepo) Update(_ context.Context, t *Treatment) error {
	if _, ok := m.items[t.ID]; !ok {
		return apperr.NotFound("treatment not found")
	}
	cp := *t
	cp.Doses = nil
	m.items[t.ID] = &cp
	return nil
}

func (m *mockTreatmentRepo) SetStartDate(_ context.Context, id uuid.UUID, start civil.Date) error {
	if t, ok := m.items[id]; ok {
		t.StartDate = start
	}
	return nil
}

func (m *mockTreatmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("treatment not found")
	}
	delete(m.items, id)
	return nil
}

func (m *mockTreatmentRepo) List(_ context.Context, f TreatmentFilter, p pagination.Params) ([]*Treatment, int, error) {
	var out []*Treatment
	for _, t := range m.items {
		if f.PatientID != nil && t.PatientID != *f.PatientID {
			continue
		}
		if f.ProtocolID != nil && t.ProtocolID != *f.ProtocolID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	total := len(out)
	if p.Offset >= total {
		return nil, total, nil
	}
	end := p.Offset + p.Limit
	if end > total {
		end = total
	}
	return out[p.Offset:end], total, nil
}

func (m *mockTreatmentRepo) ListByPatients(_ context.Context, patientIDs []uuid.UUID, status Status) ([]*Treatment, error) {
	want := make(map[uuid.UUID]bool, len(patientIDs))
	for _, id := range patientIDs {
		want[id] = true
	}
	var out []*Treatment
	for _, t := range m.items {
		if patientIDs != nil && !want[t.PatientID] {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

type mockDoseRepo struct {
	items map[uuid.UUID]*Dose
}

func newMockDoseRepo() *mockDoseRepo {
	return &mockDoseRepo{items: make(map[uuid.UUID]*Dose)}
}

func (m *mockDoseRepo) Create(_ context.Context, d *Dose) error {
	for _, other := range m.items {
		if other.TreatmentID == d.TreatmentID && other.CycleNumber == d.CycleNumber {
			return apperr.Conflict("cycle %d already exists for this treatment", d.CycleNumber)
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	cp := *d
	m.items[d.ID] = &cp
	return nil
}

func (m *mockDoseRepo) GetByID(_ context.Context, id uuid.UUID) (*Dose, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("dose not found")
	}
	cp := *d
	return &cp, nil
}

func (m *mockDoseRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*Dose, error) {
	return m.GetByID(ctx, id)
}

func (m *mockDoseRepo) Update(_ context.Context, d *Dose) error {
	if _, ok := m.items[d.ID]; !ok {
		return apperr.NotFound("dose not found")
	}
	cp := *d
	m.items[d.ID] = &cp
	return nil
}

func (m *mockDoseRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("dose not found")
	}
	delete(m.items, id)
	return nil
}

func (m *mockDoseRepo) MaxCycle(_ context.Context, treatmentID uuid.UUID) (int, error) {
	max := 0
	for _, d := range m.items {
		if d.TreatmentID == treatmentID && d.CycleNumber > max {
			max = d.CycleNumber
		}
	}
	return max, nil
}

func (m *mockDoseRepo) ListByTreatment(_ context.Context, treatmentID uuid.UUID) ([]*Dose, error) {
	var out []*Dose
	for _, d := range m.items {
		if d.TreatmentID == treatmentID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CycleNumber < out[j].CycleNumber })
	return out, nil
}

func (m *mockDoseRepo) ListByTreatments(ctx context.Context, ids []uuid.UUID) ([]*Dose, error) {
	var out []*Dose
	for _, id := range ids {
		ds, _ := m.ListByTreatment(ctx, id)
		out = append(out, ds...)
	}
	return out, nil
}

func (m *mockDoseRepo) List(_ context.Context, f DoseFilter, p pagination.Params) ([]*Dose, int, error) {
	var out []*Dose
	for _, d := range m.items {
		if f.TreatmentID != nil && d.TreatmentID != *f.TreatmentID {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.PaymentStatus != "" && d.PaymentStatus != f.PaymentStatus {
			continue
		}
		if f.Nurse != nil && d.Nurse != *f.Nurse {
			continue
		}
		if f.FromDate != nil && d.ApplicationDate.Before(*f.FromDate) {
			continue
		}
		if f.ToDate != nil && d.ApplicationDate.After(*f.ToDate) {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApplicationDate.After(out[j].ApplicationDate) })
	total := len(out)
	if p.Offset >= total {
		return nil, total, nil
	}
	end := p.Offset + p.Limit
	if end > total {
		end = total
	}
	return out[p.Offset:end], total, nil
}

type mockProtocols map[uuid.UUID]*protocol.Protocol

func (m mockProtocols) Get(_ context.Context, id uuid.UUID) (*protocol.Protocol, error) {
	p, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("protocol not found")
	}
	return p, nil
}

// fakeDispenser tracks stock per lot and refuses to dispense a dose twice.
type fakeDispenser struct {
	stock     map[uuid.UUID]int
	dispensed map[uuid.UUID]uuid.UUID
	calls     int
}

func newFakeDispenser() *fakeDispenser {
	return &fakeDispenser{stock: make(map[uuid.UUID]int), dispensed: make(map[uuid.UUID]uuid.UUID)}
}

func (f *fakeDispenser) Dispense(_ context.Context, lotID, patientID, doseID uuid.UUID) (*inventory.DispenseLog, error) {
	f.calls++
	if _, done := f.dispensed[doseID]; done {
		return nil, fmt.Errorf("dose %s: %w", doseID, inventory.ErrAlreadyDispensed)
	}
	qty, ok := f.stock[lotID]
	if !ok {
		return nil, apperr.NotFound("inventory lot %s not found", lotID)
	}
	if qty <= 0 {
		return nil, apperr.InsufficientInventory("inventory lot %s has no remaining stock", lotID)
	}
	f.stock[lotID] = qty - 1
	f.dispensed[doseID] = lotID
	return &inventory.DispenseLog{ID: uuid.New(), PatientID: patientID, InventoryLotID: lotID, DoseID: doseID, Quantity: 1}, nil
}

// rollbackTx restores every fake store when fn fails.
type rollbackTx struct {
	treatments *mockTreatmentRepo
	doses      *mockDoseRepo
	dispenser  *fakeDispenser
}

func (t rollbackTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	savedT := make(map[uuid.UUID]Treatment, len(t.treatments.items))
	for id, v := range t.treatments.items {
		savedT[id] = *v
	}
	savedD := make(map[uuid.UUID]Dose, len(t.doses.items))
	for id, v := range t.doses.items {
		savedD[id] = *v
	}
	savedStock := make(map[uuid.UUID]int, len(t.dispenser.stock))
	for id, v := range t.dispenser.stock {
		savedStock[id] = v
	}
	savedDispensed := make(map[uuid.UUID]uuid.UUID, len(t.dispenser.dispensed))
	for id, v := range t.dispenser.dispensed {
		savedDispensed[id] = v
	}

	if err := fn(ctx); err != nil {
		t.treatments.items = make(map[uuid.UUID]*Treatment, len(savedT))
		for id, v := range savedT {
			v := v
			t.treatments.items[id] = &v
		}
		t.doses.items = make(map[uuid.UUID]*Dose, len(savedD))
		for id, v := range savedD {
			v := v
			t.doses.items[id] = &v
		}
		t.dispenser.stock = savedStock
		t.dispenser.dispensed = savedDispensed
		return err
	}
	return nil
}

type testEnv struct {
	svc        *Service
	treatments *mockTreatmentRepo
	doses      *mockDoseRepo
	protocols  mockProtocols
	dispenser  *fakeDispenser
}

// fixedNow is 2024-03-15 in UTC; every service test derives "today" from it.
var fixedNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func newTestEnv() *testEnv {
	env := &testEnv{
		treatments: newMockTreatmentRepo(),
		doses:      newMockDoseRepo(),
		protocols:  mockProtocols{},
		dispenser:  newFakeDispenser(),
	}
	tx := rollbackTx{treatments: env.treatments, doses: env.doses, dispenser: env.dispenser}
	env.svc = NewService(env.treatments, env.doses, env.protocols, env.dispenser, tx)
	env.svc.SetClock(func() time.Time { return fixedNow }, time.UTC)
	return env
}

func (env *testEnv) seedProtocol(freq int) *protocol.Protocol {
	p := &protocol.Protocol{ID: uuid.New(), Name: "Leuprorelina 28d", Category: protocol.CategoryMedication, FrequencyDays: freq}
	env.protocols[p.ID] = p
	return p
}

func (env *testEnv) seedTreatment(freq int, start civil.Date) *Treatment {
	p := env.seedProtocol(freq)
	t := &Treatment{
		PatientID:     uuid.New(),
		ProtocolID:    p.ID,
		ProtocolName:  p.Name,
		FrequencyDays: freq,
		Status:        StatusOngoing,
		StartDate:     start,
	}
	if err := env.treatments.Create(context.Background(), t); err != nil {
		panic(err)
	}
	return t
}

func (env *testEnv) seedDose(t *Treatment, cycle int, status DoseStatus, scheduled, applied civil.Date) *Dose {
	d := &Dose{
		TreatmentID:     t.ID,
		CycleNumber:     cycle,
		ScheduledDate:   scheduled,
		ApplicationDate: applied,
		Status:          status,
		PaymentStatus:   PaymentWaitingPix,
		SurveyStatus:    SurveyNotSent,
		Purchased:       true,
	}
	if err := applySchedule(d, t.FrequencyDays, civil.DateOf(fixedNow)); err != nil {
		panic(err)
	}
	if err := env.doses.Create(context.Background(), d); err != nil {
		panic(err)
	}
	return d
}

func (env *testEnv) seedLot(qty int) uuid.UUID {
	id := uuid.New()
	env.dispenser.stock[id] = qty
	return id
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func ptr[T any](v T) *T { return &v }
