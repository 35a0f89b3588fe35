package mq

type Payload uint32

const (
	PayloadUnknown Payload = iota
	PayloadEngagementEvent
	PayloadStepSent
)

var Payloads = map[Payload]string{
	PayloadEngagementEvent: "engagement_event",
	PayloadStepSent:        "step_sent",
}

// EngagementEvent mirrors the tracking collaborator's callback:
// eventOccurred(enrollmentId, stepIndex, eventType, timestamp).
type EngagementEvent struct {
	EnrollmentID *uint64 `json:"enrollment_id"`
	StepIndex    *uint32 `json:"step_index"`
	Event        *string `json:"event"`
	EventTime    *uint64 `json:"event_time"`
}

func (m *EngagementEvent) GetEnrollmentID() uint64 {
	if m != nil && m.EnrollmentID != nil {
		return *m.EnrollmentID
	}
	return 0
}

func (m *EngagementEvent) GetStepIndex() uint32 {
	if m != nil && m.StepIndex != nil {
		return *m.StepIndex
	}
	return 0
}

func (m *EngagementEvent) GetEvent() string {
	if m != nil && m.Event != nil {
		return *m.Event
	}
	return ""
}

func (m *EngagementEvent) GetEventTime() uint64 {
	if m != nil && m.EventTime != nil {
		return *m.EventTime
	}
	return 0
}

// StepSent is published after a step email is delivered, for downstream
// reporting consumers.
type StepSent struct {
	CampaignID   *uint64 `json:"campaign_id"`
	EnrollmentID *uint64 `json:"enrollment_id"`
	StepIndex    *uint32 `json:"step_index"`
	SentAt       *uint64 `json:"sent_at"`
}
