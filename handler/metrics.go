package handler

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"outreach/entity"
	"outreach/pkg/errutil"
	"outreach/pkg/goutil"
	"outreach/pkg/validator"
	"outreach/repo"
)

type MetricsHandler interface {
	GetCampaignMetrics(ctx context.Context, req *GetCampaignMetricsRequest, res *GetCampaignMetricsResponse) error
	GetEngagementBreakdown(ctx context.Context, req *GetEngagementBreakdownRequest, res *GetEngagementBreakdownResponse) error
}

type metricsHandler struct {
	campaignRepo   repo.CampaignRepo
	enrollmentRepo repo.EnrollmentRepo
	metricsRepo    repo.MetricsRepo
}

func NewMetricsHandler(campaignRepo repo.CampaignRepo, enrollmentRepo repo.EnrollmentRepo, metricsRepo repo.MetricsRepo) MetricsHandler {
	return &metricsHandler{
		campaignRepo:   campaignRepo,
		enrollmentRepo: enrollmentRepo,
		metricsRepo:    metricsRepo,
	}
}

type StepMetrics struct {
	StepIndex *uint32  `json:"step_index,omitempty"`
	Sent      *uint64  `json:"sent,omitempty"`
	Opened    *uint64  `json:"opened,omitempty"`
	Clicked   *uint64  `json:"clicked,omitempty"`
	Replied   *uint64  `json:"replied,omitempty"`
	OpenRate  *float64 `json:"open_rate,omitempty"`
	ClickRate *float64 `json:"click_rate,omitempty"`
	ReplyRate *float64 `json:"reply_rate,omitempty"`
}

type CampaignMetrics struct {
	CampaignID       *uint64           `json:"campaign_id,omitempty"`
	Name             *string           `json:"name,omitempty"`
	TotalSent        *uint64           `json:"total_sent,omitempty"`
	TotalOpened      *uint64           `json:"total_opened,omitempty"`
	TotalClicked     *uint64           `json:"total_clicked,omitempty"`
	TotalReplied     *uint64           `json:"total_replied,omitempty"`
	OpenRate         *float64          `json:"open_rate,omitempty"`
	ClickRate        *float64          `json:"click_rate,omitempty"`
	ReplyRate        *float64          `json:"reply_rate,omitempty"`
	EnrollmentCounts map[string]uint64 `json:"enrollment_counts,omitempty"`
	Steps            []*StepMetrics    `json:"steps"`
}

type GetCampaignMetricsRequest struct {
	CampaignID *uint64 `json:"campaign_id,omitempty" schema:"campaign_id"`
}

func (r *GetCampaignMetricsRequest) GetCampaignID() uint64 {
	if r != nil && r.CampaignID != nil {
		return *r.CampaignID
	}
	return 0
}

type GetCampaignMetricsResponse struct {
	Metrics *CampaignMetrics `json:"metrics,omitempty"`
}

var GetCampaignMetricsValidator = validator.MustForm(map[string]validator.Validator{
	"campaign_id": &validator.UInt64{},
})

// GetCampaignMetrics reads the per-step counters and enrollment states.
// Rates are 0 when nothing was sent, never a division error.
func (h *metricsHandler) GetCampaignMetrics(ctx context.Context, req *GetCampaignMetricsRequest, res *GetCampaignMetricsResponse) error {
	if err := GetCampaignMetricsValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	campaign, err := h.campaignRepo.GetByID(ctx, req.GetCampaignID())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaign failed: %v", err)
		return err
	}

	steps, err := h.campaignRepo.GetSteps(ctx, req.GetCampaignID())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaign steps failed: %v", err)
		return err
	}

	statusCounts, err := h.enrollmentRepo.CountByCampaignAndStatus(ctx, req.GetCampaignID())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("count enrollments failed: %v", err)
		return err
	}

	var (
		totalSent, totalOpened, totalClicked, totalReplied uint64

		stepMetrics = make([]*StepMetrics, 0, len(steps))
	)
	for _, step := range steps {
		totalSent += step.GetSentCount()
		totalOpened += step.GetOpenCount()
		totalClicked += step.GetClickCount()
		totalReplied += step.GetReplyCount()

		stepMetrics = append(stepMetrics, &StepMetrics{
			StepIndex: goutil.Uint32(step.GetStepIndex()),
			Sent:      goutil.Uint64(step.GetSentCount()),
			Opened:    goutil.Uint64(step.GetOpenCount()),
			Clicked:   goutil.Uint64(step.GetClickCount()),
			Replied:   goutil.Uint64(step.GetReplyCount()),
			OpenRate:  goutil.Float64(rate(step.GetOpenCount(), step.GetSentCount())),
			ClickRate: goutil.Float64(rate(step.GetClickCount(), step.GetSentCount())),
			ReplyRate: goutil.Float64(rate(step.GetReplyCount(), step.GetSentCount())),
		})
	}

	enrollmentCounts := make(map[string]uint64, len(statusCounts))
	for status, count := range statusCounts {
		enrollmentCounts[status.String()] = count
	}

	res.Metrics = &CampaignMetrics{
		CampaignID:       campaign.ID,
		Name:             campaign.Name,
		TotalSent:        goutil.Uint64(totalSent),
		TotalOpened:      goutil.Uint64(totalOpened),
		TotalClicked:     goutil.Uint64(totalClicked),
		TotalReplied:     goutil.Uint64(totalReplied),
		OpenRate:         goutil.Float64(rate(totalOpened, totalSent)),
		ClickRate:        goutil.Float64(rate(totalClicked, totalSent)),
		ReplyRate:        goutil.Float64(rate(totalReplied, totalSent)),
		EnrollmentCounts: enrollmentCounts,
		Steps:            stepMetrics,
	}

	return nil
}

type BreakdownRow struct {
	GroupKey  *string  `json:"group_key,omitempty"`
	Sent      *uint64  `json:"sent,omitempty"`
	Opened    *uint64  `json:"opened,omitempty"`
	Clicked   *uint64  `json:"clicked,omitempty"`
	Replied   *uint64  `json:"replied,omitempty"`
	OpenRate  *float64 `json:"open_rate,omitempty"`
	ReplyRate *float64 `json:"reply_rate,omitempty"`
}

type GetEngagementBreakdownRequest struct {
	Dimension *string `json:"dimension,omitempty" schema:"dimension"`
}

func (r *GetEngagementBreakdownRequest) GetDimension() repo.Dimension {
	if r != nil && r.Dimension != nil {
		return repo.SupportedDimensions[*r.Dimension]
	}
	return repo.DimensionBand
}

type GetEngagementBreakdownResponse struct {
	Rows []*BreakdownRow `json:"rows"`
}

var GetEngagementBreakdownValidator = validator.MustForm(map[string]validator.Validator{
	"dimension": DimensionValidator(),
})

// GetEngagementBreakdown groups engagement across all campaigns by score
// band or prospect category. Keys that never got a send still appear when
// they produced events.
func (h *metricsHandler) GetEngagementBreakdown(ctx context.Context, req *GetEngagementBreakdownRequest, res *GetEngagementBreakdownResponse) error {
	if err := GetEngagementBreakdownValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	dim := req.GetDimension()

	sent, err := h.metricsRepo.SentCounts(ctx, dim)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("sent counts failed: %v", err)
		return err
	}

	events := make(map[entity.Event]map[string]uint64)
	for _, event := range []entity.Event{entity.EventOpened, entity.EventClicked, entity.EventReplied} {
		counts, err := h.metricsRepo.EventCounts(ctx, dim, event)
		if err != nil {
			log.Ctx(ctx).Error().Msgf("event counts failed, event: %s, err: %v", event, err)
			return err
		}
		events[event] = counts
	}

	keys := make(map[string]struct{})
	for k := range sent {
		keys[k] = struct{}{}
	}
	for _, counts := range events {
		for k := range counts {
			keys[k] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	res.Rows = make([]*BreakdownRow, 0, len(sorted))
	for _, k := range sorted {
		res.Rows = append(res.Rows, &BreakdownRow{
			GroupKey:  goutil.String(k),
			Sent:      goutil.Uint64(sent[k]),
			Opened:    goutil.Uint64(events[entity.EventOpened][k]),
			Clicked:   goutil.Uint64(events[entity.EventClicked][k]),
			Replied:   goutil.Uint64(events[entity.EventReplied][k]),
			OpenRate:  goutil.Float64(rate(events[entity.EventOpened][k], sent[k])),
			ReplyRate: goutil.Float64(rate(events[entity.EventReplied][k], sent[k])),
		})
	}

	return nil
}

// rate guards the zero denominator: no sends means a 0 rate, not NaN.
func rate(n, d uint64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
