package contact

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
)

const idSeparator = "_m_"

// ID builds the stable key of a milestone contact.
func ID(treatmentID uuid.UUID, dayOffset int) string {
	return treatmentID.String() + idSeparator + strconv.Itoa(dayOffset)
}

// ParseID splits a contact id back into its treatment and day offset.
func ParseID(id string) (uuid.UUID, int, error) {
	tid, day, ok := strings.Cut(id, idSeparator)
	if !ok {
		return uuid.Nil, 0, apperr.Validation("malformed contactId %q", id)
	}
	treatmentID, err := uuid.Parse(tid)
	if err != nil {
		return uuid.Nil, 0, apperr.Validation("malformed contactId %q", id)
	}
	offset, err := strconv.Atoi(day)
	if err != nil || offset < 0 {
		return uuid.Nil, 0, apperr.Validation("malformed contactId %q", id)
	}
	return treatmentID, offset, nil
}

// Contact is a follow-up due for a treatment milestone.
type Contact struct {
	ContactID    string     `json:"contactId"`
	TreatmentID  uuid.UUID  `json:"treatmentId"`
	PatientID    uuid.UUID  `json:"patientId"`
	ContactDate  civil.Date `json:"contactDate"`
	Message      string     `json:"message"`
	ProtocolName string     `json:"protocolName"`
}

type FeedbackStatus string

const (
	FeedbackPending  FeedbackStatus = "pending"
	FeedbackResolved FeedbackStatus = "resolved"
)

func ParseFeedbackStatus(s string) (FeedbackStatus, error) {
	switch st := FeedbackStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case FeedbackPending, FeedbackResolved:
		return st, nil
	}
	return "", apperr.Validation("invalid feedback status %q", s)
}

type Feedback struct {
	Text                 *string         `json:"text"`
	Classification       *string         `json:"classification"`
	NeedsMedicalResponse *bool           `json:"needsMedicalResponse"`
	Urgency              *string         `json:"urgency"`
	Status               *FeedbackStatus `json:"status"`
}

type DismissedLog struct {
	ContactID   string    `json:"contactId"`
	DismissedAt time.Time `json:"dismissedAt"`
	Feedback    Feedback  `json:"feedback"`
}

// FeedbackInput is what callers send when dismissing or annotating a
// contact.
type FeedbackInput struct {
	Text                 *string `json:"text"`
	Classification       *string `json:"classification"`
	NeedsMedicalResponse *bool   `json:"needsMedicalResponse"`
	Urgency              *string `json:"urgency"`
	Status               *string `json:"status"`
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
