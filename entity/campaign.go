package entity

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInvalidCampaignDefinition = errors.New("invalid campaign definition")

	// ErrCampaignInUse blocks deletion of a campaign that has enrollments,
	// in any status. History must be detached before the definition can go.
	ErrCampaignInUse = errors.New("campaign has enrollments")
)

// Criteria are the enrollment eligibility rules of a campaign. A nil field
// imposes no constraint.
type Criteria struct {
	Statuses []string `json:"statuses,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	MinScore *uint32  `json:"min_score,omitempty"`
	MaxScore *uint32  `json:"max_score,omitempty"`
}

func (e *Criteria) GetStatuses() []string {
	if e != nil && e.Statuses != nil {
		return e.Statuses
	}
	return nil
}

func (e *Criteria) GetTags() []string {
	if e != nil && e.Tags != nil {
		return e.Tags
	}
	return nil
}

type Step struct {
	ID         *uint64 `json:"id,omitempty"`
	CampaignID *uint64 `json:"campaign_id,omitempty"`
	StepIndex  *uint32 `json:"step_index,omitempty"`
	TemplateID *uint64 `json:"template_id,omitempty"`
	DelayDays  *uint32 `json:"delay_days,omitempty"`
	DelayHours *uint32 `json:"delay_hours,omitempty"`
	SentCount  *uint64 `json:"sent_count,omitempty"`
	OpenCount  *uint64 `json:"open_count,omitempty"`
	ClickCount *uint64 `json:"click_count,omitempty"`
	ReplyCount *uint64 `json:"reply_count,omitempty"`
}

func (e *Step) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *Step) GetCampaignID() uint64 {
	if e != nil && e.CampaignID != nil {
		return *e.CampaignID
	}
	return 0
}

func (e *Step) GetStepIndex() uint32 {
	if e != nil && e.StepIndex != nil {
		return *e.StepIndex
	}
	return 0
}

func (e *Step) GetTemplateID() uint64 {
	if e != nil && e.TemplateID != nil {
		return *e.TemplateID
	}
	return 0
}

func (e *Step) GetDelayDays() uint32 {
	if e != nil && e.DelayDays != nil {
		return *e.DelayDays
	}
	return 0
}

func (e *Step) GetDelayHours() uint32 {
	if e != nil && e.DelayHours != nil {
		return *e.DelayHours
	}
	return 0
}

func (e *Step) GetSentCount() uint64 {
	if e != nil && e.SentCount != nil {
		return *e.SentCount
	}
	return 0
}

func (e *Step) GetOpenCount() uint64 {
	if e != nil && e.OpenCount != nil {
		return *e.OpenCount
	}
	return 0
}

func (e *Step) GetClickCount() uint64 {
	if e != nil && e.ClickCount != nil {
		return *e.ClickCount
	}
	return 0
}

func (e *Step) GetReplyCount() uint64 {
	if e != nil && e.ReplyCount != nil {
		return *e.ReplyCount
	}
	return 0
}

// DelaySeconds is the wait measured from the previous step's send time
// (or from enrollment time for step 0).
func (e *Step) DelaySeconds() uint64 {
	return uint64(e.GetDelayDays())*86400 + uint64(e.GetDelayHours())*3600
}

type Campaign struct {
	ID           *uint64   `json:"id,omitempty"`
	Name         *string   `json:"name,omitempty"`
	CampaignDesc *string   `json:"campaign_desc,omitempty"`
	IsActive     *bool     `json:"is_active,omitempty"`
	Criteria     *Criteria `json:"criteria,omitempty"`
	Steps        []*Step   `json:"steps,omitempty"`
	CreateTime   *uint64   `json:"create_time,omitempty"`
	UpdateTime   *uint64   `json:"update_time,omitempty"`
}

func (e *Campaign) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *Campaign) GetName() string {
	if e != nil && e.Name != nil {
		return *e.Name
	}
	return ""
}

func (e *Campaign) GetIsActive() bool {
	if e != nil && e.IsActive != nil {
		return *e.IsActive
	}
	return false
}

func (e *Campaign) GetCriteria() *Criteria {
	if e != nil && e.Criteria != nil {
		return e.Criteria
	}
	return nil
}

func (e *Campaign) GetSteps() []*Step {
	if e != nil && e.Steps != nil {
		return e.Steps
	}
	return nil
}

// StepAt returns the step with the given index, nil when out of range.
func (e *Campaign) StepAt(stepIndex uint32) *Step {
	for _, step := range e.GetSteps() {
		if step.GetStepIndex() == stepIndex {
			return step
		}
	}
	return nil
}

// LastStepIndex assumes a validated campaign with contiguous indices.
func (e *Campaign) LastStepIndex() uint32 {
	if len(e.GetSteps()) == 0 {
		return 0
	}
	return uint32(len(e.GetSteps()) - 1)
}

// ValidateSteps enforces the step layout invariant: at least one step,
// indices unique, contiguous and starting at 0.
func (e *Campaign) ValidateSteps() error {
	steps := e.GetSteps()
	if len(steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidCampaignDefinition)
	}

	indices := make([]uint32, 0, len(steps))
	seen := make(map[uint32]struct{}, len(steps))
	for _, step := range steps {
		idx := step.GetStepIndex()
		if _, ok := seen[idx]; ok {
			return fmt.Errorf("%w: duplicate step index %d", ErrInvalidCampaignDefinition, idx)
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)
	}

	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	for i, idx := range indices {
		if idx != uint32(i) {
			return fmt.Errorf("%w: step indices not contiguous from 0", ErrInvalidCampaignDefinition)
		}
	}

	return nil
}

func (e *Campaign) Update(campaign *Campaign) {
	if campaign == nil {
		return
	}
	if campaign.Name != nil {
		e.Name = campaign.Name
	}
	if campaign.CampaignDesc != nil {
		e.CampaignDesc = campaign.CampaignDesc
	}
	if campaign.IsActive != nil {
		e.IsActive = campaign.IsActive
	}
	if campaign.Criteria != nil {
		e.Criteria = campaign.Criteria
	}
	if campaign.UpdateTime != nil {
		e.UpdateTime = campaign.UpdateTime
	}
}
