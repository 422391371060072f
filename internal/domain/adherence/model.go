package adherence

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tier is the computed adherence level of a patient. It is never stored.
type Tier string

const (
	TierGood      Tier = "BOA"
	TierPartial   Tier = "PARCIAL"
	TierPoor      Tier = "RUIM"
	TierAbandoned Tier = "ABANDONO"
)

// Setting keys read into Thresholds.
const (
	SettingsPrefix  = "adherence_"
	KeyMaxDelayGood = "adherence_max_delay_good"
	KeyMaxLateDoses = "adherence_max_late_doses"
	KeySevereDelay  = "adherence_severe_delay"
	KeyAbandonDays  = "adherence_abandon_days"
)

// Thresholds parameterize Classify. All values are in days except
// MaxLateDoses, which counts doses.
type Thresholds struct {
	MaxDelayGood int `json:"maxDelayGood"`
	MaxLateDoses int `json:"maxLateDoses"`
	SevereDelay  int `json:"severeDelay"`
	AbandonDays  int `json:"abandonDays"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{MaxDelayGood: 3, MaxLateDoses: 3, SevereDelay: 5, AbandonDays: 30}
}

// ThresholdsFrom reads the adherence_ settings. Missing or malformed values
// keep their defaults.
func ThresholdsFrom(settings map[string]string) Thresholds {
	th := DefaultThresholds()
	read := func(key string, dst *int) {
		if n, err := strconv.Atoi(strings.TrimSpace(settings[key])); err == nil && n >= 0 {
			*dst = n
		}
	}
	read(KeyMaxDelayGood, &th.MaxDelayGood)
	read(KeyMaxLateDoses, &th.MaxLateDoses)
	read(KeySevereDelay, &th.SevereDelay)
	read(KeyAbandonDays, &th.AbandonDays)
	return th
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Assessment is the per-patient aggregate behind a tier.
type Assessment struct {
	PatientID      uuid.UUID `json:"patientId"`
	AdherenceLevel *Tier     `json:"adherenceLevel"`
	LateCount      int       `json:"lateCount"`
	VeryLateCount  int       `json:"veryLateCount"`
	Abandoned      bool      `json:"abandoned"`
}
