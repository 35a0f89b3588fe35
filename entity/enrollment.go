package entity

import "fmt"

type EnrollmentStatus uint32

const (
	EnrollmentStatusUnknown EnrollmentStatus = iota
	EnrollmentStatusActive
	EnrollmentStatusCompleted
	EnrollmentStatusPaused
	EnrollmentStatusUnsubscribed
)

var SupportedEnrollmentStatuses = map[string]EnrollmentStatus{
	"active":       EnrollmentStatusActive,
	"completed":    EnrollmentStatusCompleted,
	"paused":       EnrollmentStatusPaused,
	"unsubscribed": EnrollmentStatusUnsubscribed,
}

func (s EnrollmentStatus) String() string {
	for str, status := range SupportedEnrollmentStatuses {
		if status == s {
			return str
		}
	}
	return "unknown"
}

// IsTerminal reports whether the enrollment can never become ACTIVE again.
// PAUSED is non-terminal: an operator may resume it.
func (s EnrollmentStatus) IsTerminal() bool {
	return s == EnrollmentStatusCompleted || s == EnrollmentStatusUnsubscribed
}

type Enrollment struct {
	ID               *uint64          `json:"id,omitempty"`
	CampaignID       *uint64          `json:"campaign_id,omitempty"`
	ProspectID       *uint64          `json:"prospect_id,omitempty"`
	Status           EnrollmentStatus `json:"status,omitempty"`
	CurrentStepIndex *uint32          `json:"current_step_index,omitempty"`
	EnrolledAt       *uint64          `json:"enrolled_at,omitempty"`
	LastStepSentAt   *uint64          `json:"last_step_sent_at,omitempty"`
	UpdateTime       *uint64          `json:"update_time,omitempty"`
}

func (e *Enrollment) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *Enrollment) GetCampaignID() uint64 {
	if e != nil && e.CampaignID != nil {
		return *e.CampaignID
	}
	return 0
}

func (e *Enrollment) GetProspectID() uint64 {
	if e != nil && e.ProspectID != nil {
		return *e.ProspectID
	}
	return 0
}

func (e *Enrollment) GetStatus() EnrollmentStatus {
	if e != nil {
		return e.Status
	}
	return EnrollmentStatusUnknown
}

func (e *Enrollment) GetCurrentStepIndex() uint32 {
	if e != nil && e.CurrentStepIndex != nil {
		return *e.CurrentStepIndex
	}
	return 0
}

func (e *Enrollment) GetEnrolledAt() uint64 {
	if e != nil && e.EnrolledAt != nil {
		return *e.EnrolledAt
	}
	return 0
}

func (e *Enrollment) GetLastStepSentAt() uint64 {
	if e != nil && e.LastStepSentAt != nil {
		return *e.LastStepSentAt
	}
	return 0
}

// ActiveKey is the nullable uniqueness key guarding "at most one
// non-terminal enrollment per prospect per campaign". Terminal enrollments
// carry no key, which frees the slot for re-enrollment.
func (e *Enrollment) ActiveKey() string {
	return fmt.Sprintf("%d:%d", e.GetCampaignID(), e.GetProspectID())
}

// DueAt computes when the given step becomes due: the delay counts from the
// previous step's send time, or from enrollment time for step 0.
func (e *Enrollment) DueAt(step *Step) uint64 {
	base := e.GetEnrolledAt()
	if e.GetCurrentStepIndex() > 0 {
		base = e.GetLastStepSentAt()
	}
	return base + step.DelaySeconds()
}
