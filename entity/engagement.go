package entity

type Event uint32

const (
	EventUnknown Event = iota
	EventOpened
	EventClicked
	EventReplied
	EventUnsubscribed
)

var SupportedEvents = map[string]Event{
	"opened":       EventOpened,
	"clicked":      EventClicked,
	"replied":      EventReplied,
	"unsubscribed": EventUnsubscribed,
}

func (e Event) String() string {
	for str, event := range SupportedEvents {
		if event == e {
			return str
		}
	}
	return "unknown"
}

// EngagementLog records one tracking signal against a sent step. The engine
// only stores the timestamp it is given; tracking itself is external.
type EngagementLog struct {
	ID           *uint64 `json:"id,omitempty"`
	CampaignID   *uint64 `json:"campaign_id,omitempty"`
	EnrollmentID *uint64 `json:"enrollment_id,omitempty"`
	ProspectID   *uint64 `json:"prospect_id,omitempty"`
	StepIndex    *uint32 `json:"step_index,omitempty"`
	Event        Event   `json:"event,omitempty"`
	EventTime    *uint64 `json:"event_time,omitempty"`
	CreateTime   *uint64 `json:"create_time,omitempty"`
}

func (e *EngagementLog) GetEvent() Event {
	if e != nil {
		return e.Event
	}
	return EventUnknown
}

func (e *EngagementLog) GetEnrollmentID() uint64 {
	if e != nil && e.EnrollmentID != nil {
		return *e.EnrollmentID
	}
	return 0
}

func (e *EngagementLog) GetStepIndex() uint32 {
	if e != nil && e.StepIndex != nil {
		return *e.StepIndex
	}
	return 0
}

func (e *EngagementLog) GetEventTime() uint64 {
	if e != nil && e.EventTime != nil {
		return *e.EventTime
	}
	return 0
}
