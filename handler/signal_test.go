package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach/config"
	"outreach/entity"
	"outreach/pkg/goutil"
	"outreach/repo"
)

type signalFixture struct {
	handler        SignalHandler
	cfg            *config.Config
	prospectRepo   repo.ProspectRepo
	campaignRepo   repo.CampaignRepo
	enrollmentRepo repo.EnrollmentRepo

	campaignID   uint64
	prospectID   uint64
	enrollmentID uint64
}

func newSignalFixture(t *testing.T) *signalFixture {
	baseRepo := newTestBaseRepo(t)
	ctx := context.Background()

	f := &signalFixture{
		cfg:            config.NewConfig(),
		prospectRepo:   repo.NewProspectRepoWithBase(baseRepo),
		campaignRepo:   repo.NewCampaignRepoWithBase(ctx, baseRepo),
		enrollmentRepo: repo.NewEnrollmentRepoWithBase(baseRepo),
	}
	f.handler = NewSignalHandler(f.cfg, f.prospectRepo, f.campaignRepo, f.enrollmentRepo,
		repo.NewEngagementRepoWithBase(baseRepo))

	var err error
	f.campaignID, err = f.campaignRepo.Create(ctx, &entity.Campaign{
		Name: goutil.String("drip"),
		Steps: []*entity.Step{
			{StepIndex: goutil.Uint32(0), TemplateID: goutil.Uint64(1)},
		},
	})
	require.NoError(t, err)

	f.prospectID = seedProspect(t, f.prospectRepo, &entity.Prospect{})

	f.enrollmentID, err = f.enrollmentRepo.Create(ctx, &entity.Enrollment{
		CampaignID:       goutil.Uint64(f.campaignID),
		ProspectID:       goutil.Uint64(f.prospectID),
		Status:           entity.EnrollmentStatusActive,
		CurrentStepIndex: goutil.Uint32(0),
		EnrolledAt:       goutil.Uint64(1000),
	})
	require.NoError(t, err)

	return f
}

func (f *signalFixture) event(eventType string) *EngagementEvent {
	return &EngagementEvent{
		EnrollmentID: goutil.Uint64(f.enrollmentID),
		StepIndex:    goutil.Uint32(0),
		EventType:    goutil.String(eventType),
		EventTime:    goutil.Uint64(5000),
	}
}

func TestProcessEventOpened(t *testing.T) {
	f := newSignalFixture(t)
	ctx := context.Background()

	require.NoError(t, f.handler.ProcessEvent(ctx, f.event("opened")))

	steps, err := f.campaignRepo.GetSteps(ctx, f.campaignID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), steps[0].GetOpenCount())

	prospect, err := f.prospectRepo.GetByID(ctx, f.prospectID)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), prospect.GetEmailOpenedAt())

	// an open never pauses the sequence
	enrollment, err := f.enrollmentRepo.GetByID(ctx, f.enrollmentID)
	require.NoError(t, err)
	assert.Equal(t, entity.EnrollmentStatusActive, enrollment.GetStatus())
}

func TestProcessEventReplied(t *testing.T) {
	f := newSignalFixture(t)
	ctx := context.Background()

	require.NoError(t, f.handler.ProcessEvent(ctx, f.event("replied")))

	prospect, err := f.prospectRepo.GetByID(ctx, f.prospectID)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), prospect.GetRepliedAt())
	assert.Equal(t, entity.ProspectStatusResponded, prospect.GetStatus())

	enrollment, err := f.enrollmentRepo.GetByID(ctx, f.enrollmentID)
	require.NoError(t, err)
	assert.Equal(t, entity.EnrollmentStatusPaused, enrollment.GetStatus())
}

func TestProcessEventUnsubscribed(t *testing.T) {
	f := newSignalFixture(t)
	ctx := context.Background()

	require.NoError(t, f.handler.ProcessEvent(ctx, f.event("unsubscribed")))

	prospect, err := f.prospectRepo.GetByID(ctx, f.prospectID)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), prospect.GetUnsubscribedAt())

	enrollment, err := f.enrollmentRepo.GetByID(ctx, f.enrollmentID)
	require.NoError(t, err)
	assert.Equal(t, entity.EnrollmentStatusUnsubscribed, enrollment.GetStatus())
	assert.True(t, enrollment.GetStatus().IsTerminal())
}

func TestProcessEventTerminalEnrollmentNoTransition(t *testing.T) {
	f := newSignalFixture(t)
	ctx := context.Background()

	enrollment, err := f.enrollmentRepo.GetByID(ctx, f.enrollmentID)
	require.NoError(t, err)
	enrollment.Status = entity.EnrollmentStatusCompleted
	require.NoError(t, f.enrollmentRepo.UpdateState(ctx, enrollment))

	// still recorded, but the terminal status never moves
	require.NoError(t, f.handler.ProcessEvent(ctx, f.event("replied")))

	enrollment, err = f.enrollmentRepo.GetByID(ctx, f.enrollmentID)
	require.NoError(t, err)
	assert.Equal(t, entity.EnrollmentStatusCompleted, enrollment.GetStatus())

	steps, err := f.campaignRepo.GetSteps(ctx, f.campaignID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), steps[0].GetReplyCount())
}

func TestProcessEventUnknownType(t *testing.T) {
	f := newSignalFixture(t)

	err := f.handler.ProcessEvent(context.Background(), f.event("bounced"))
	assert.Error(t, err)
}

func TestOnEngagementEventWebhookKey(t *testing.T) {
	f := newSignalFixture(t)
	ctx := context.Background()

	hash, err := goutil.BCrypt("secret")
	require.NoError(t, err)
	f.cfg.Outreach.WebhookKeyHash = hash

	res := new(OnEngagementEventResponse)
	err = f.handler.OnEngagementEvent(ctx, &OnEngagementEventRequest{
		WebhookKey:      goutil.String("wrong"),
		EngagementEvent: *f.event("opened"),
	}, res)
	assert.Error(t, err)

	res = new(OnEngagementEventResponse)
	err = f.handler.OnEngagementEvent(ctx, &OnEngagementEventRequest{
		WebhookKey:      goutil.String("secret"),
		EngagementEvent: *f.event("opened"),
	}, res)
	assert.NoError(t, err)
}
