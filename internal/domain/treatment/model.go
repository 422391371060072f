package treatment

import (
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
)

type Status string

const (
	StatusOngoing   Status = "ONGOING"
	StatusFinished  Status = "FINISHED"
	StatusRefused   Status = "REFUSED"
	StatusExternal  Status = "EXTERNAL"
	StatusSuspended Status = "SUSPENDED"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusOngoing, StatusFinished, StatusRefused, StatusExternal, StatusSuspended:
		return st, nil
	}
	return "", apperr.Validation("invalid treatment status %q", s)
}

type DoseStatus string

const (
	DosePending     DoseStatus = "PENDING"
	DoseApplied     DoseStatus = "APPLIED"
	DoseAppliedLate DoseStatus = "APPLIED_LATE"
	DoseNotAccepted DoseStatus = "NOT_ACCEPTED"
)

func ParseDoseStatus(s string) (DoseStatus, error) {
	switch st := DoseStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case DosePending, DoseApplied, DoseAppliedLate, DoseNotAccepted:
		return st, nil
	}
	return "", apperr.Validation("invalid dose status %q", s)
}

// IsApplied reports whether the dose was administered, on time or late.
func (s DoseStatus) IsApplied() bool {
	return s == DoseApplied || s == DoseAppliedLate
}

type PaymentStatus string

const (
	PaymentWaitingPix      PaymentStatus = "WAITING_PIX"
	PaymentWaitingCard     PaymentStatus = "WAITING_CARD"
	PaymentWaitingBoleto   PaymentStatus = "WAITING_BOLETO"
	PaymentWaitingDelivery PaymentStatus = "WAITING_DELIVERY"
	PaymentPaid            PaymentStatus = "PAID"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case PaymentWaitingPix, PaymentWaitingCard, PaymentWaitingBoleto, PaymentWaitingDelivery, PaymentPaid:
		return st, nil
	}
	return "", apperr.Validation("invalid payment status %q", s)
}

type SurveyStatus string

const (
	SurveyNotSent  SurveyStatus = "NOT_SENT"
	SurveyWaiting  SurveyStatus = "WAITING"
	SurveyAnswered SurveyStatus = "ANSWERED"
)

func ParseSurveyStatus(s string) (SurveyStatus, error) {
	switch st := SurveyStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case SurveyNotSent, SurveyWaiting, SurveyAnswered:
		return st, nil
	}
	return "", apperr.Validation("invalid survey status %q", s)
}

// Treatment is a patient's instance of a protocol. StartDate is the
// reference date for both dose chaining and milestone contacts.
type Treatment struct {
	ID                        uuid.UUID   `json:"id"`
	PatientID                 uuid.UUID   `json:"patientId"`
	ProtocolID                uuid.UUID   `json:"protocolId"`
	ProtocolName              string      `json:"protocolName,omitempty"`
	FrequencyDays             int         `json:"frequencyDays,omitempty"`
	Status                    Status      `json:"status"`
	StartDate                 civil.Date  `json:"startDate"`
	PlannedDosesBeforeConsult int         `json:"plannedDosesBeforeConsult"`
	NextConsultationDate      *civil.Date `json:"nextConsultationDate,omitempty"`
	Observations              *string     `json:"observations,omitempty"`
	DoseCount                 int         `json:"doseCount"`
	Doses                     []*Dose     `json:"doses,omitempty"`
	CreatedAt                 time.Time   `json:"createdAt"`
	UpdatedAt                 time.Time   `json:"updatedAt"`
}

type Dose struct {
	ID                  uuid.UUID     `json:"id"`
	TreatmentID         uuid.UUID     `json:"treatmentId"`
	CycleNumber         int           `json:"cycleNumber"`
	ScheduledDate       civil.Date    `json:"scheduledDate"`
	ApplicationDate     civil.Date    `json:"applicationDate"`
	Status              DoseStatus    `json:"status"`
	PaymentStatus       PaymentStatus `json:"paymentStatus"`
	PaymentUpdatedAt    *time.Time    `json:"paymentUpdatedAt,omitempty"`
	InventoryLotID      *uuid.UUID    `json:"inventoryLotId,omitempty"`
	LotNumber           *string       `json:"lotNumber,omitempty"`
	ExpiryDate          *civil.Date   `json:"expiryDate,omitempty"`
	CalculatedNextDate  civil.Date    `json:"calculatedNextDate"`
	DaysUntilNext       int           `json:"daysUntilNext"`
	IsLastBeforeConsult bool          `json:"isLastBeforeConsult"`
	ConsultationDate    *civil.Date   `json:"consultationDate,omitempty"`
	Nurse               bool          `json:"nurse"`
	SurveyStatus        SurveyStatus  `json:"surveyStatus"`
	SurveyScore         *int          `json:"surveyScore,omitempty"`
	SurveyComment       *string       `json:"surveyComment,omitempty"`
	Purchased           bool          `json:"purchased"`
	DeliveryStatus      *string       `json:"deliveryStatus,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// Delay is the number of days between the planned and actual dates.
func (d *Dose) Delay() int {
	return d.ApplicationDate.DaysSince(d.ScheduledDate)
}

type TreatmentInput struct {
	PatientID                 uuid.UUID   `json:"patientId"`
	ProtocolID                uuid.UUID   `json:"protocolId"`
	StartDate                 civil.Date  `json:"startDate"`
	PlannedDosesBeforeConsult int         `json:"plannedDosesBeforeConsult"`
	NextConsultationDate      *civil.Date `json:"nextConsultationDate"`
	Observations              *string     `json:"observations"`
}

// TreatmentPatch edits a treatment. Setting StartDate rechains the pending
// doses from the new date.
type TreatmentPatch struct {
	Status                    *string     `json:"status"`
	StartDate                 *civil.Date `json:"startDate"`
	PlannedDosesBeforeConsult *int        `json:"plannedDosesBeforeConsult"`
	NextConsultationDate      *civil.Date `json:"nextConsultationDate"`
	ClearNextConsultation     bool        `json:"clearNextConsultation"`
	Observations              *string     `json:"observations"`
}

type DoseInput struct {
	TreatmentID         uuid.UUID   `json:"treatmentId"`
	CycleNumber         int         `json:"cycleNumber"`
	ApplicationDate     civil.Date  `json:"applicationDate"`
	ScheduledDate       *civil.Date `json:"scheduledDate"`
	Status              string      `json:"status"`
	PaymentStatus       string      `json:"paymentStatus"`
	InventoryLotID      *uuid.UUID  `json:"inventoryLotId"`
	LotNumber           *string     `json:"lotNumber"`
	ExpiryDate          *civil.Date `json:"expiryDate"`
	IsLastBeforeConsult bool        `json:"isLastBeforeConsult"`
	ConsultationDate    *civil.Date `json:"consultationDate"`
	Nurse               bool        `json:"nurse"`
	SurveyStatus        string      `json:"surveyStatus"`
	SurveyScore         *int        `json:"surveyScore"`
	SurveyComment       *string     `json:"surveyComment"`
	Purchased           *bool       `json:"purchased"`
	DeliveryStatus      *string     `json:"deliveryStatus"`
}

type DosePatch struct {
	ApplicationDate     *civil.Date `json:"applicationDate"`
	Status              *string     `json:"status"`
	PaymentStatus       *string     `json:"paymentStatus"`
	InventoryLotID      *uuid.UUID  `json:"inventoryLotId"`
	LotNumber           *string     `json:"lotNumber"`
	ExpiryDate          *civil.Date `json:"expiryDate"`
	IsLastBeforeConsult *bool       `json:"isLastBeforeConsult"`
	ConsultationDate    *civil.Date `json:"consultationDate"`
	Nurse               *bool       `json:"nurse"`
	SurveyStatus        *string     `json:"surveyStatus"`
	SurveyScore         *int        `json:"surveyScore"`
	SurveyComment       *string     `json:"surveyComment"`
	Purchased           *bool       `json:"purchased"`
	DeliveryStatus      *string     `json:"deliveryStatus"`
}

type SurveyPatch struct {
	SurveyStatus  *string `json:"surveyStatus"`
	SurveyScore   *int    `json:"surveyScore"`
	SurveyComment *string `json:"surveyComment"`
}

type TreatmentFilter struct {
	PatientID  *uuid.UUID
	ProtocolID *uuid.UUID
	Status     Status
}

type DoseFilter struct {
	TreatmentID   *uuid.UUID
	Status        DoseStatus
	PaymentStatus PaymentStatus
	Nurse         *bool
	FromDate      *civil.Date
	ToDate        *civil.Date
}
