package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"outreach/pkg/goutil"
)

func TestEnrollmentStatusIsTerminal(t *testing.T) {
	assert.False(t, EnrollmentStatusActive.IsTerminal())
	assert.False(t, EnrollmentStatusPaused.IsTerminal())
	assert.True(t, EnrollmentStatusCompleted.IsTerminal())
	assert.True(t, EnrollmentStatusUnsubscribed.IsTerminal())
}

func TestActiveKey(t *testing.T) {
	enrollment := &Enrollment{
		CampaignID: goutil.Uint64(3),
		ProspectID: goutil.Uint64(17),
	}
	assert.Equal(t, "3:17", enrollment.ActiveKey())
}

func TestDueAt(t *testing.T) {
	enrolledAt := uint64(1_000_000)
	lastSentAt := uint64(2_000_000)

	t.Run("step 0 counts from enrollment", func(t *testing.T) {
		enrollment := &Enrollment{
			CurrentStepIndex: goutil.Uint32(0),
			EnrolledAt:       goutil.Uint64(enrolledAt),
			LastStepSentAt:   goutil.Uint64(lastSentAt),
		}
		assert.Equal(t, enrolledAt+86400, enrollment.DueAt(step(0, 1, 0)))
	})

	t.Run("later steps count from previous send", func(t *testing.T) {
		enrollment := &Enrollment{
			CurrentStepIndex: goutil.Uint32(1),
			EnrolledAt:       goutil.Uint64(enrolledAt),
			LastStepSentAt:   goutil.Uint64(lastSentAt),
		}
		assert.Equal(t, lastSentAt+3*86400, enrollment.DueAt(step(1, 3, 0)))
	})

	t.Run("zero delay is due immediately", func(t *testing.T) {
		enrollment := &Enrollment{
			CurrentStepIndex: goutil.Uint32(0),
			EnrolledAt:       goutil.Uint64(enrolledAt),
		}
		assert.Equal(t, enrolledAt, enrollment.DueAt(step(0, 0, 0)))
	})
}
