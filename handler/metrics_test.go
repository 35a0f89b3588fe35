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

func TestRate(t *testing.T) {
	assert.Equal(t, float64(0), rate(5, 0))
	assert.Equal(t, float64(0), rate(0, 0))
	assert.Equal(t, 0.5, rate(1, 2))
}

func TestGetCampaignMetrics(t *testing.T) {
	baseRepo := newTestBaseRepo(t)
	campaignRepo := repo.NewCampaignRepoWithBase(context.Background(), baseRepo)
	enrollmentRepo := repo.NewEnrollmentRepoWithBase(baseRepo)
	metricsRepo := repo.NewMetricsRepoWithBase(baseRepo)
	h := NewMetricsHandler(campaignRepo, enrollmentRepo, metricsRepo)
	ctx := context.Background()

	campaignID, err := campaignRepo.Create(ctx, &entity.Campaign{
		Name: goutil.String("two step drip"),
		Steps: []*entity.Step{
			{StepIndex: goutil.Uint32(0), TemplateID: goutil.Uint64(1)},
			{StepIndex: goutil.Uint32(1), TemplateID: goutil.Uint64(2), DelayDays: goutil.Uint32(3)},
		},
	})
	require.NoError(t, err)

	for i := uint64(1); i <= 2; i++ {
		_, err := enrollmentRepo.Create(ctx, &entity.Enrollment{
			CampaignID:       goutil.Uint64(campaignID),
			ProspectID:       goutil.Uint64(i),
			Status:           entity.EnrollmentStatusActive,
			CurrentStepIndex: goutil.Uint32(0),
		})
		require.NoError(t, err)
	}
	_, err = enrollmentRepo.Create(ctx, &entity.Enrollment{
		CampaignID:       goutil.Uint64(campaignID),
		ProspectID:       goutil.Uint64(3),
		Status:           entity.EnrollmentStatusCompleted,
		CurrentStepIndex: goutil.Uint32(1),
	})
	require.NoError(t, err)

	require.NoError(t, campaignRepo.IncrStepSentCount(ctx, campaignID, 0))
	require.NoError(t, campaignRepo.IncrStepSentCount(ctx, campaignID, 0))
	require.NoError(t, campaignRepo.IncrStepEventCount(ctx, campaignID, 0, entity.EventOpened))

	res := new(GetCampaignMetricsResponse)
	require.NoError(t, h.GetCampaignMetrics(ctx, &GetCampaignMetricsRequest{
		CampaignID: goutil.Uint64(campaignID),
	}, res))

	m := res.Metrics
	require.NotNil(t, m)
	assert.Equal(t, uint64(2), *m.TotalSent)
	assert.Equal(t, uint64(1), *m.TotalOpened)
	assert.Equal(t, 0.5, *m.OpenRate)
	assert.Equal(t, float64(0), *m.ReplyRate)

	require.Len(t, m.Steps, 2)
	assert.Equal(t, uint64(2), *m.Steps[0].Sent)
	assert.Equal(t, 0.5, *m.Steps[0].OpenRate)

	// step 1 never sent: rates are zero, not errors
	assert.Equal(t, uint64(0), *m.Steps[1].Sent)
	assert.Equal(t, float64(0), *m.Steps[1].OpenRate)

	assert.Equal(t, uint64(2), m.EnrollmentCounts["active"])
	assert.Equal(t, uint64(1), m.EnrollmentCounts["completed"])
}

func TestGetCampaignMetricsNotFound(t *testing.T) {
	baseRepo := newTestBaseRepo(t)
	h := NewMetricsHandler(
		repo.NewCampaignRepoWithBase(context.Background(), baseRepo),
		repo.NewEnrollmentRepoWithBase(baseRepo),
		repo.NewMetricsRepoWithBase(baseRepo),
	)

	res := new(GetCampaignMetricsResponse)
	err := h.GetCampaignMetrics(context.Background(), &GetCampaignMetricsRequest{
		CampaignID: goutil.Uint64(999),
	}, res)
	assert.Error(t, err)
}

func TestGetEngagementBreakdown(t *testing.T) {
	baseRepo := newTestBaseRepo(t)
	prospectRepo := repo.NewProspectRepoWithBase(baseRepo)
	stepExecutionRepo := repo.NewStepExecutionRepoWithBase(baseRepo)
	engagementRepo := repo.NewEngagementRepoWithBase(baseRepo)
	h := NewMetricsHandler(
		repo.NewCampaignRepoWithBase(context.Background(), baseRepo),
		repo.NewEnrollmentRepoWithBase(baseRepo),
		repo.NewMetricsRepoWithBase(baseRepo),
	)
	ctx := context.Background()

	scores := []uint32{90, 70, 10}
	ids := make([]uint64, 0, len(scores))
	for i, score := range scores {
		id := seedProspect(t, prospectRepo, &entity.Prospect{
			Email:     goutil.String(string(rune('a'+i)) + "@example.com"),
			LeadScore: goutil.Uint32(score),
		})
		ids = append(ids, id)

		_, err := stepExecutionRepo.Create(ctx, &entity.StepExecution{
			CampaignID:   goutil.Uint64(1),
			EnrollmentID: goutil.Uint64(uint64(i + 1)),
			ProspectID:   goutil.Uint64(id),
			StepIndex:    goutil.Uint32(0),
			SentAt:       goutil.Uint64(1000),
		})
		require.NoError(t, err)
	}

	// only the hot prospect opened
	_, err := engagementRepo.Create(ctx, &entity.EngagementLog{
		CampaignID:   goutil.Uint64(1),
		EnrollmentID: goutil.Uint64(1),
		ProspectID:   goutil.Uint64(ids[0]),
		StepIndex:    goutil.Uint32(0),
		Event:        entity.EventOpened,
		EventTime:    goutil.Uint64(2000),
	})
	require.NoError(t, err)

	// an unset dimension defaults to score band
	res := new(GetEngagementBreakdownResponse)
	require.NoError(t, h.GetEngagementBreakdown(ctx, &GetEngagementBreakdownRequest{}, res))

	err = h.GetEngagementBreakdown(ctx, &GetEngagementBreakdownRequest{
		Dimension: goutil.String("channel"),
	}, new(GetEngagementBreakdownResponse))
	assert.Error(t, err)

	require.Len(t, res.Rows, 3)

	byKey := make(map[string]*BreakdownRow)
	for _, row := range res.Rows {
		byKey[*row.GroupKey] = row
	}

	assert.Equal(t, uint64(1), *byKey["hot"].Sent)
	assert.Equal(t, uint64(1), *byKey["hot"].Opened)
	assert.Equal(t, float64(1), *byKey["hot"].OpenRate)

	assert.Equal(t, uint64(1), *byKey["warm"].Sent)
	assert.Equal(t, uint64(0), *byKey["warm"].Opened)
	assert.Equal(t, float64(0), *byKey["warm"].OpenRate)

	assert.Equal(t, uint64(1), *byKey["cold"].Sent)

	// sorted group keys
	assert.Equal(t, "cold", *res.Rows[0].GroupKey)
	assert.Equal(t, "hot", *res.Rows[1].GroupKey)
	assert.Equal(t, "warm", *res.Rows[2].GroupKey)
}
