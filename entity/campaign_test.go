package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"outreach/pkg/goutil"
)

func step(idx, days, hours uint32) *Step {
	return &Step{
		StepIndex:  goutil.Uint32(idx),
		TemplateID: goutil.Uint64(1),
		DelayDays:  goutil.Uint32(days),
		DelayHours: goutil.Uint32(hours),
	}
}

func TestValidateSteps(t *testing.T) {
	tests := []struct {
		name    string
		steps   []*Step
		wantErr bool
	}{
		{
			name:    "no steps",
			steps:   nil,
			wantErr: true,
		},
		{
			name:  "single step at zero",
			steps: []*Step{step(0, 0, 0)},
		},
		{
			name:  "contiguous from zero",
			steps: []*Step{step(0, 0, 0), step(1, 3, 0), step(2, 7, 0)},
		},
		{
			name:  "out of order but contiguous",
			steps: []*Step{step(2, 0, 0), step(0, 0, 0), step(1, 0, 0)},
		},
		{
			name:    "duplicate index",
			steps:   []*Step{step(0, 0, 0), step(0, 1, 0)},
			wantErr: true,
		},
		{
			name:    "gap in indices",
			steps:   []*Step{step(0, 0, 0), step(2, 0, 0)},
			wantErr: true,
		},
		{
			name:    "not starting at zero",
			steps:   []*Step{step(1, 0, 0), step(2, 0, 0)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			campaign := &Campaign{Steps: tt.steps}
			err := campaign.ValidateSteps()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCampaignDefinition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDelaySeconds(t *testing.T) {
	assert.Equal(t, uint64(0), step(0, 0, 0).DelaySeconds())
	assert.Equal(t, uint64(3*86400), step(0, 3, 0).DelaySeconds())
	assert.Equal(t, uint64(5*3600), step(0, 0, 5).DelaySeconds())
	assert.Equal(t, uint64(2*86400+12*3600), step(0, 2, 12).DelaySeconds())
}

func TestStepAt(t *testing.T) {
	campaign := &Campaign{Steps: []*Step{step(0, 0, 0), step(1, 3, 0)}}

	assert.Equal(t, uint32(1), campaign.StepAt(1).GetStepIndex())
	assert.Nil(t, campaign.StepAt(2))
}

func TestLastStepIndex(t *testing.T) {
	assert.Equal(t, uint32(0), (&Campaign{}).LastStepIndex())

	campaign := &Campaign{Steps: []*Step{step(0, 0, 0), step(1, 0, 0), step(2, 0, 0)}}
	assert.Equal(t, uint32(2), campaign.LastStepIndex())
}

func TestCampaignUpdate(t *testing.T) {
	campaign := &Campaign{
		Name:     goutil.String("old"),
		IsActive: goutil.Bool(false),
	}

	campaign.Update(&Campaign{IsActive: goutil.Bool(true)})

	assert.Equal(t, "old", campaign.GetName())
	assert.True(t, campaign.GetIsActive())
}
