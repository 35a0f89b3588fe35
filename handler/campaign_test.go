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

type campaignFixture struct {
	handler        CampaignHandler
	campaignRepo   repo.CampaignRepo
	enrollmentRepo repo.EnrollmentRepo
	prospectRepo   repo.ProspectRepo
}

func newCampaignFixture(t *testing.T) *campaignFixture {
	baseRepo := newTestBaseRepo(t)

	f := &campaignFixture{
		campaignRepo:   repo.NewCampaignRepoWithBase(context.Background(), baseRepo),
		enrollmentRepo: repo.NewEnrollmentRepoWithBase(baseRepo),
		prospectRepo:   repo.NewProspectRepoWithBase(baseRepo),
	}
	f.handler = NewCampaignHandler(f.campaignRepo, f.enrollmentRepo)
	return f
}

func (f *campaignFixture) createCampaign(t *testing.T, steps []*entity.Step) uint64 {
	t.Helper()

	res := new(CreateCampaignResponse)
	err := f.handler.CreateCampaign(context.Background(), &CreateCampaignRequest{
		Name:  goutil.String("drip"),
		Steps: steps,
	}, res)
	require.NoError(t, err)
	return res.Campaign.GetID()
}

func TestCreateCampaignStartsInactive(t *testing.T) {
	f := newCampaignFixture(t)
	ctx := context.Background()

	id := f.createCampaign(t, []*entity.Step{
		{StepIndex: goutil.Uint32(0), TemplateID: goutil.Uint64(1)},
		{StepIndex: goutil.Uint32(1), TemplateID: goutil.Uint64(2), DelayDays: goutil.Uint32(3)},
	})

	res := new(GetCampaignResponse)
	err := f.handler.GetCampaign(ctx, &GetCampaignRequest{CampaignID: goutil.Uint64(id)}, res)
	require.NoError(t, err)
	assert.False(t, res.Campaign.GetIsActive())
	require.Len(t, res.Campaign.GetSteps(), 2)
	assert.Equal(t, uint32(3), res.Campaign.GetSteps()[1].GetDelayDays())
}

func TestCreateCampaignRejectsBrokenSequence(t *testing.T) {
	f := newCampaignFixture(t)
	ctx := context.Background()

	tests := []struct {
		desc  string
		steps []*entity.Step
	}{
		{desc: "no steps", steps: nil},
		{desc: "gap in indices", steps: []*entity.Step{
			{StepIndex: goutil.Uint32(0), TemplateID: goutil.Uint64(1)},
			{StepIndex: goutil.Uint32(2), TemplateID: goutil.Uint64(2)},
		}},
		{desc: "not starting at zero", steps: []*entity.Step{
			{StepIndex: goutil.Uint32(1), TemplateID: goutil.Uint64(1)},
		}},
	}

	for _, tt := range tests {
		err := f.handler.CreateCampaign(ctx, &CreateCampaignRequest{
			Name:  goutil.String("drip"),
			Steps: tt.steps,
		}, new(CreateCampaignResponse))
		assert.Error(t, err, tt.desc)
	}
}

func TestActivateDeactivateCampaign(t *testing.T) {
	f := newCampaignFixture(t)
	ctx := context.Background()

	id := f.createCampaign(t, []*entity.Step{
		{StepIndex: goutil.Uint32(0), TemplateID: goutil.Uint64(1)},
	})

	activateRes := new(ActivateCampaignResponse)
	require.NoError(t, f.handler.ActivateCampaign(ctx, &ActivateCampaignRequest{
		CampaignID: goutil.Uint64(id),
	}, activateRes))
	assert.True(t, activateRes.Campaign.GetIsActive())

	active, err := f.campaignRepo.GetActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	deactivateRes := new(DeactivateCampaignResponse)
	require.NoError(t, f.handler.DeactivateCampaign(ctx, &DeactivateCampaignRequest{
		CampaignID: goutil.Uint64(id),
	}, deactivateRes))
	assert.False(t, deactivateRes.Campaign.GetIsActive())
}

func TestAppendStepEnforcesTailIndex(t *testing.T) {
	f := newCampaignFixture(t)
	ctx := context.Background()

	id := f.createCampaign(t, []*entity.Step{
		{StepIndex: goutil.Uint32(0), TemplateID: goutil.Uint64(1)},
	})

	// anything but last+1 is refused
	err := f.handler.AppendStep(ctx, &AppendStepRequest{
		CampaignID: goutil.Uint64(id),
		Step:       &entity.Step{StepIndex: goutil.Uint32(5), TemplateID: goutil.Uint64(2)},
	}, new(AppendStepResponse))
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrInvalidCampaignDefinition)

	res := new(AppendStepResponse)
	err = f.handler.AppendStep(ctx, &AppendStepRequest{
		CampaignID: goutil.Uint64(id),
		Step:       &entity.Step{StepIndex: goutil.Uint32(1), TemplateID: goutil.Uint64(2)},
	}, res)
	require.NoError(t, err)
	assert.NotZero(t, res.Step.GetID())

	steps, err := f.campaignRepo.GetSteps(ctx, id)
	require.NoError(t, err)
	assert.Len(t, steps, 2)
}

func TestDeleteCampaignBlockedByEnrollments(t *testing.T) {
	f := newCampaignFixture(t)
	ctx := context.Background()

	id := f.createCampaign(t, []*entity.Step{
		{StepIndex: goutil.Uint32(0), TemplateID: goutil.Uint64(1)},
	})

	prospectID := seedProspect(t, f.prospectRepo, &entity.Prospect{})
	_, err := f.enrollmentRepo.Create(ctx, &entity.Enrollment{
		CampaignID:       goutil.Uint64(id),
		ProspectID:       goutil.Uint64(prospectID),
		Status:           entity.EnrollmentStatusCompleted,
		CurrentStepIndex: goutil.Uint32(0),
		EnrolledAt:       goutil.Uint64(1000),
	})
	require.NoError(t, err)

	// even a finished enrollment keeps the campaign around
	err = f.handler.DeleteCampaign(ctx, &DeleteCampaignRequest{
		CampaignID: goutil.Uint64(id),
	}, new(DeleteCampaignResponse))
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrCampaignInUse)

	// a campaign nothing ever enrolled into deletes cleanly
	unused := f.createCampaign(t, []*entity.Step{
		{StepIndex: goutil.Uint32(0), TemplateID: goutil.Uint64(1)},
	})
	err = f.handler.DeleteCampaign(ctx, &DeleteCampaignRequest{
		CampaignID: goutil.Uint64(unused),
	}, new(DeleteCampaignResponse))
	require.NoError(t, err)

	_, err = f.campaignRepo.GetByID(ctx, unused)
	assert.ErrorIs(t, err, repo.ErrCampaignNotFound)
}

func TestDeleteCampaignNotFound(t *testing.T) {
	f := newCampaignFixture(t)

	err := f.handler.DeleteCampaign(context.Background(), &DeleteCampaignRequest{
		CampaignID: goutil.Uint64(404),
	}, new(DeleteCampaignResponse))
	assert.Error(t, err)
}
