package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach/entity"
	"outreach/pkg/goutil"
	"outreach/repo"
)

func newEnrollmentFixture(t *testing.T) (EnrollmentHandler, repo.EnrollmentRepo) {
	baseRepo := newTestBaseRepo(t)
	enrollmentRepo := repo.NewEnrollmentRepoWithBase(baseRepo)
	return NewEnrollmentHandler(enrollmentRepo), enrollmentRepo
}

func seedEnrollment(t *testing.T, enrollmentRepo repo.EnrollmentRepo, status entity.EnrollmentStatus) uint64 {
	t.Helper()

	id, err := enrollmentRepo.Create(context.Background(), &entity.Enrollment{
		CampaignID:       goutil.Uint64(1),
		ProspectID:       goutil.Uint64(uint64(status)), // distinct active keys per status
		Status:           status,
		CurrentStepIndex: goutil.Uint32(0),
		EnrolledAt:       goutil.Uint64(1000),
	})
	require.NoError(t, err)
	return id
}

func TestPauseEnrollment(t *testing.T) {
	h, enrollmentRepo := newEnrollmentFixture(t)
	ctx := context.Background()

	id := seedEnrollment(t, enrollmentRepo, entity.EnrollmentStatusActive)

	res := new(PauseEnrollmentResponse)
	require.NoError(t, h.PauseEnrollment(ctx, &PauseEnrollmentRequest{EnrollmentID: goutil.Uint64(id)}, res))
	assert.Equal(t, entity.EnrollmentStatusPaused, res.Enrollment.GetStatus())

	stored, err := enrollmentRepo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.EnrollmentStatusPaused, stored.GetStatus())

	// pausing again is a no-op, not an error
	res = new(PauseEnrollmentResponse)
	require.NoError(t, h.PauseEnrollment(ctx, &PauseEnrollmentRequest{EnrollmentID: goutil.Uint64(id)}, res))
	assert.Equal(t, entity.EnrollmentStatusPaused, res.Enrollment.GetStatus())
}

func TestPauseEnrollmentTerminal(t *testing.T) {
	h, enrollmentRepo := newEnrollmentFixture(t)
	ctx := context.Background()

	id := seedEnrollment(t, enrollmentRepo, entity.EnrollmentStatusCompleted)

	res := new(PauseEnrollmentResponse)
	err := h.PauseEnrollment(ctx, &PauseEnrollmentRequest{EnrollmentID: goutil.Uint64(id)}, res)
	assert.Error(t, err)
}

func TestResumeEnrollment(t *testing.T) {
	h, enrollmentRepo := newEnrollmentFixture(t)
	ctx := context.Background()

	id := seedEnrollment(t, enrollmentRepo, entity.EnrollmentStatusPaused)

	res := new(ResumeEnrollmentResponse)
	require.NoError(t, h.ResumeEnrollment(ctx, &ResumeEnrollmentRequest{EnrollmentID: goutil.Uint64(id)}, res))
	assert.Equal(t, entity.EnrollmentStatusActive, res.Enrollment.GetStatus())

	stored, err := enrollmentRepo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.EnrollmentStatusActive, stored.GetStatus())
}

func TestResumeEnrollmentOnlyFromPaused(t *testing.T) {
	h, enrollmentRepo := newEnrollmentFixture(t)
	ctx := context.Background()

	for _, status := range []entity.EnrollmentStatus{
		entity.EnrollmentStatusActive,
		entity.EnrollmentStatusCompleted,
		entity.EnrollmentStatusUnsubscribed,
	} {
		id := seedEnrollment(t, enrollmentRepo, status)

		res := new(ResumeEnrollmentResponse)
		err := h.ResumeEnrollment(ctx, &ResumeEnrollmentRequest{EnrollmentID: goutil.Uint64(id)}, res)
		assert.Error(t, err, "status %s", status)
	}
}

func TestGetEnrollments(t *testing.T) {
	h, enrollmentRepo := newEnrollmentFixture(t)
	ctx := context.Background()

	_, err := enrollmentRepo.Create(ctx, &entity.Enrollment{
		CampaignID: goutil.Uint64(1),
		ProspectID: goutil.Uint64(10),
		Status:     entity.EnrollmentStatusActive,
	})
	require.NoError(t, err)
	_, err = enrollmentRepo.Create(ctx, &entity.Enrollment{
		CampaignID: goutil.Uint64(2),
		ProspectID: goutil.Uint64(10),
		Status:     entity.EnrollmentStatusPaused,
	})
	require.NoError(t, err)

	res := new(GetEnrollmentsResponse)
	require.NoError(t, h.GetEnrollments(ctx, &GetEnrollmentsRequest{
		CampaignID: goutil.Uint64(1),
	}, res))
	require.Len(t, res.Enrollments, 1)
	assert.Equal(t, uint64(1), res.Enrollments[0].GetCampaignID())

	res = new(GetEnrollmentsResponse)
	require.NoError(t, h.GetEnrollments(ctx, &GetEnrollmentsRequest{
		Status: goutil.String("paused"),
	}, res))
	require.Len(t, res.Enrollments, 1)
	assert.Equal(t, uint64(2), res.Enrollments[0].GetCampaignID())

	// no filters returns everything
	res = new(GetEnrollmentsResponse)
	require.NoError(t, h.GetEnrollments(ctx, &GetEnrollmentsRequest{}, res))
	assert.Len(t, res.Enrollments, 2)
}
