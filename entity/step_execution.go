package entity

// StepExecution is the immutable record of one step sent to one enrollment.
// The (enrollment_id, step_index) pair is the idempotency key that makes
// step sends at-most-once under concurrent scheduler runs.
type StepExecution struct {
	ID           *uint64 `json:"id,omitempty"`
	CampaignID   *uint64 `json:"campaign_id,omitempty"`
	EnrollmentID *uint64 `json:"enrollment_id,omitempty"`
	ProspectID   *uint64 `json:"prospect_id,omitempty"`
	StepIndex    *uint32 `json:"step_index,omitempty"`
	SentAt       *uint64 `json:"sent_at,omitempty"`
}

func (e *StepExecution) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *StepExecution) GetCampaignID() uint64 {
	if e != nil && e.CampaignID != nil {
		return *e.CampaignID
	}
	return 0
}

func (e *StepExecution) GetEnrollmentID() uint64 {
	if e != nil && e.EnrollmentID != nil {
		return *e.EnrollmentID
	}
	return 0
}

func (e *StepExecution) GetProspectID() uint64 {
	if e != nil && e.ProspectID != nil {
		return *e.ProspectID
	}
	return 0
}

func (e *StepExecution) GetStepIndex() uint32 {
	if e != nil && e.StepIndex != nil {
		return *e.StepIndex
	}
	return 0
}

func (e *StepExecution) GetSentAt() uint64 {
	if e != nil && e.SentAt != nil {
		return *e.SentAt
	}
	return 0
}
