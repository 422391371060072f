package contact

import (
	"context"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/internal/domain/protocol"
	"github.com/DarkMage108/medical-service-backend/internal/domain/treatment"
	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
	"github.com/DarkMage108/medical-service-backend/internal/platform/metrics"
)

const (
	DefaultPastWindowDays = 60
	DefaultDaysAhead      = 7
)

type TreatmentSource interface {
	ListByStatus(ctx context.Context, status treatment.Status) ([]*treatment.Treatment, error)
}

type ProtocolSource interface {
	List(ctx context.Context, category string) ([]*protocol.Protocol, error)
}

type Service struct {
	dismissed  DismissedRepository
	treatments TreatmentSource
	protocols  ProtocolSource
	pastDays   int
	daysAhead  int
	now        func() time.Time
	loc        *time.Location
}

func NewService(dismissed DismissedRepository, treatments TreatmentSource, protocols ProtocolSource) *Service {
	return &Service{
		dismissed:  dismissed,
		treatments: treatments,
		protocols:  protocols,
		pastDays:   DefaultPastWindowDays,
		daysAhead:  DefaultDaysAhead,
		now:        time.Now,
		loc:        time.Local,
	}
}

// SetWindow overrides how far back contacts stay listed and the default
// look-ahead when the caller gives none.
func (s *Service) SetWindow(pastDays, defaultDaysAhead int) {
	s.pastDays = pastDays
	s.daysAhead = defaultDaysAhead
}

// SetClock overrides the wall clock and the zone used to derive "today".
func (s *Service) SetClock(now func() time.Time, loc *time.Location) {
	s.now = now
	s.loc = loc
}

func (s *Service) today() civil.Date {
	return civil.DateOf(s.now().In(s.loc))
}

// Upcoming lists due contacts. A nil daysAhead uses the configured default.
func (s *Service) Upcoming(ctx context.Context, daysAhead *int) ([]Contact, error) {
	n := s.daysAhead
	if daysAhead != nil {
		n = *daysAhead
	}
	if n < 0 {
		return nil, apperr.Validation("days must not be negative")
	}

	ts, err := s.treatments.ListByStatus(ctx, treatment.StatusOngoing)
	if err != nil {
		return nil, err
	}
	ps, err := s.protocols.List(ctx, "")
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*protocol.Protocol, len(ps))
	for _, p := range ps {
		byID[p.ID] = p
	}
	dismissed, err := s.dismissed.IDs(ctx)
	if err != nil {
		return nil, err
	}
	return Upcoming(ts, byID, dismissed, s.today(), Window{PastDays: s.pastDays, DaysAhead: n}), nil
}

// Dismiss hides a contact for good. Feedback with text starts out pending.
func (s *Service) Dismiss(ctx context.Context, contactID string, in *FeedbackInput) (*DismissedLog, error) {
	if _, _, err := ParseID(contactID); err != nil {
		return nil, err
	}
	l := &DismissedLog{ContactID: contactID}
	if in != nil {
		l.Feedback = Feedback{
			Text:                 emptyToNil(in.Text),
			Classification:       emptyToNil(in.Classification),
			NeedsMedicalResponse: in.NeedsMedicalResponse,
			Urgency:              emptyToNil(in.Urgency),
		}
		if l.Feedback.Text != nil {
			st := FeedbackPending
			l.Feedback.Status = &st
		}
	}
	if err := s.dismissed.Create(ctx, l); err != nil {
		return nil, err
	}
	metrics.RecordContactDismissed()
	return l, nil
}

// UpdateFeedback merges in the fields present in the input; omitted fields
// keep their stored value. Without an explicit status the feedback goes back
// to pending.
func (s *Service) UpdateFeedback(ctx context.Context, contactID string, in FeedbackInput) (*DismissedLog, error) {
	st := FeedbackPending
	if in.Status != nil {
		parsed, err := ParseFeedbackStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		st = parsed
	}

	l, err := s.dismissed.Get(ctx, contactID)
	if err != nil {
		return nil, err
	}
	f := l.Feedback
	if in.Text != nil {
		f.Text = emptyToNil(in.Text)
	}
	if in.Classification != nil {
		f.Classification = emptyToNil(in.Classification)
	}
	if in.NeedsMedicalResponse != nil {
		f.NeedsMedicalResponse = in.NeedsMedicalResponse
	}
	if in.Urgency != nil {
		f.Urgency = emptyToNil(in.Urgency)
	}
	f.Status = &st
	return s.dismissed.UpdateFeedback(ctx, contactID, f)
}

func (s *Service) Resolve(ctx context.Context, contactID string) (*DismissedLog, error) {
	l, err := s.dismissed.Get(ctx, contactID)
	if err != nil {
		return nil, err
	}
	st := FeedbackResolved
	l.Feedback.Status = &st
	return s.dismissed.UpdateFeedback(ctx, contactID, l.Feedback)
}

func (s *Service) ListDismissed(ctx context.Context) ([]*DismissedLog, error) {
	return s.dismissed.List(ctx)
}
