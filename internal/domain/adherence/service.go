package adherence

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/internal/domain/treatment"
	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
	"github.com/DarkMage108/medical-service-backend/internal/platform/db"
)

// MaxBatch caps the number of patients per batch query.
const MaxBatch = 500

// TreatmentSource loads treatments with their doses attached.
type TreatmentSource interface {
	ListWithDoses(ctx context.Context, patientIDs []uuid.UUID, status treatment.Status) ([]*treatment.Treatment, error)
}

type Service struct {
	settings   SettingsRepository
	treatments TreatmentSource
	tx         db.Transactor
	now        func() time.Time
	loc        *time.Location
}

func NewService(settings SettingsRepository, treatments TreatmentSource, tx db.Transactor) *Service {
	return &Service{settings: settings, treatments: treatments, tx: tx, now: time.Now, loc: time.Local}
}

// SetClock overrides the wall clock and the zone used to derive "today".
func (s *Service) SetClock(now func() time.Time, loc *time.Location) {
	s.now = now
	s.loc = loc
}

func (s *Service) today() civil.Date {
	return civil.DateOf(s.now().In(s.loc))
}

func (s *Service) Thresholds(ctx context.Context) (Thresholds, error) {
	m, err := s.settings.ByPrefix(ctx, SettingsPrefix)
	if err != nil {
		return Thresholds{}, err
	}
	return ThresholdsFrom(m), nil
}

func (s *Service) ForPatient(ctx context.Context, patientID uuid.UUID) (*Assessment, error) {
	out, err := s.ForPatients(ctx, []uuid.UUID{patientID})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// ForPatients assesses each patient once, in input order. Thresholds are
// read a single time for the whole batch.
func (s *Service) ForPatients(ctx context.Context, patientIDs []uuid.UUID) ([]Assessment, error) {
	if len(patientIDs) == 0 {
		return nil, apperr.Validation("at least one patientId is required")
	}
	if len(patientIDs) > MaxBatch {
		return nil, apperr.Validation("at most %d patients per query", MaxBatch)
	}
	th, err := s.Thresholds(ctx)
	if err != nil {
		return nil, err
	}
	ts, err := s.treatments.ListWithDoses(ctx, patientIDs, treatment.StatusOngoing)
	if err != nil {
		return nil, err
	}
	byPatient := make(map[uuid.UUID][]*treatment.Treatment)
	for _, t := range ts {
		byPatient[t.PatientID] = append(byPatient[t.PatientID], t)
	}

	today := s.today()
	out := make([]Assessment, len(patientIDs))
	for i, id := range patientIDs {
		a := Assess(byPatient[id], th, today)
		a.PatientID = id
		out[i] = a
	}
	return out, nil
}

func (s *Service) ListSettings(ctx context.Context) ([]Setting, error) {
	return s.settings.List(ctx)
}

func (s *Service) AdherenceSettings(ctx context.Context) (map[string]string, error) {
	return s.settings.ByPrefix(ctx, SettingsPrefix)
}

// UpdateSettings upserts every pair in one transaction. Adherence keys must
// hold non-negative integers.
func (s *Service) UpdateSettings(ctx context.Context, values map[string]string) ([]Setting, error) {
	if len(values) == 0 {
		return nil, apperr.Validation("settings object is required")
	}
	clean := make(map[string]string, len(values))
	keys := make([]string, 0, len(values))
	for k, v := range values {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" {
			return nil, apperr.Validation("setting key must not be empty")
		}
		if strings.HasPrefix(k, SettingsPrefix) {
			if n, err := strconv.Atoi(v); err != nil || n < 0 {
				return nil, apperr.Validation("%s must be a non-negative integer", k)
			}
		}
		clean[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Setting
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, k := range keys {
			if err := s.settings.Upsert(ctx, k, clean[k]); err != nil {
				return err
			}
		}
		var err error
		out, err = s.settings.List(ctx)
		return err
	})
	return out, err
}
