package enroll_prospects

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"outreach/entity"
	"outreach/pkg/goutil"
	"outreach/pkg/service"
	"outreach/repo"
)

// EnrollProspects scans every active campaign and enrolls the prospects its
// criteria match. All progress lives in rows, so the job can die and rerun
// at any point: the active_key unique index turns repeats into no-ops.
type EnrollProspects struct {
	campaignRepo   repo.CampaignRepo
	prospectRepo   repo.ProspectRepo
	enrollmentRepo repo.EnrollmentRepo

	nowFunc func() time.Time
}

func New(
	campaignRepo repo.CampaignRepo,
	prospectRepo repo.ProspectRepo,
	enrollmentRepo repo.EnrollmentRepo,
) *EnrollProspects {
	return &EnrollProspects{
		campaignRepo:   campaignRepo,
		prospectRepo:   prospectRepo,
		enrollmentRepo: enrollmentRepo,
		nowFunc:        time.Now,
	}
}

var _ service.Job = (*EnrollProspects)(nil)

func (j *EnrollProspects) Init(_ context.Context) error {
	return nil
}

func (j *EnrollProspects) Run(ctx context.Context) error {
	campaigns, err := j.campaignRepo.GetActive(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get active campaigns failed: %v", err)
		return err
	}

	for _, campaign := range campaigns {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.enrollCampaign(ctx, campaign); err != nil {
			log.Ctx(ctx).Error().Msgf("enroll campaign failed, campaign_id: %d, err: %v",
				campaign.GetID(), err)
		}
	}

	return nil
}

func (j *EnrollProspects) CleanUp(_ context.Context) error {
	return nil
}

func (j *EnrollProspects) enrollCampaign(ctx context.Context, campaign *entity.Campaign) error {
	prospects, _, err := j.prospectRepo.GetMany(ctx, &repo.Filter{
		Conditions: criteriaConditions(campaign.GetCriteria()),
	})
	if err != nil {
		return err
	}

	var enrolled int
	for _, prospect := range prospects {
		now := uint64(j.nowFunc().Unix())
		enrollment := &entity.Enrollment{
			CampaignID:       campaign.ID,
			ProspectID:       prospect.ID,
			Status:           entity.EnrollmentStatusActive,
			CurrentStepIndex: goutil.Uint32(0),
			EnrolledAt:       goutil.Uint64(now),
			UpdateTime:       goutil.Uint64(now),
		}

		if _, err := j.enrollmentRepo.Create(ctx, enrollment); err != nil {
			if errors.Is(err, repo.ErrEnrollmentExists) {
				continue
			}
			log.Ctx(ctx).Error().Msgf("create enrollment failed, campaign_id: %d, prospect_id: %d, err: %v",
				campaign.GetID(), prospect.GetID(), err)
			continue
		}
		enrolled++
	}

	log.Ctx(ctx).Info().Msgf("campaign %d: %d eligible, %d newly enrolled",
		campaign.GetID(), len(prospects), enrolled)

	return nil
}

// criteriaConditions renders campaign criteria into prospect predicates.
// Archived and unsubscribed prospects are never eligible, whatever the
// criteria say.
func criteriaConditions(criteria *entity.Criteria) []*repo.Condition {
	conditions := []*repo.Condition{
		{Field: "is_archived", Op: repo.OpEq, Value: false},
		{Field: "unsubscribed_at", Op: repo.OpIsNull},
	}

	if statuses := criteria.GetStatuses(); len(statuses) > 0 {
		values := make([]uint32, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, uint32(entity.SupportedProspectStatuses[s]))
		}
		conditions = append(conditions, &repo.Condition{
			Field: "status", Op: repo.OpIn, Value: values,
		})
	}

	if tags := criteria.GetTags(); len(tags) > 0 {
		// any overlapping tag qualifies
		tagConditions := make([]*repo.Condition, 0, len(tags))
		for _, tag := range tags {
			tagConditions = append(tagConditions, &repo.Condition{
				Field: "tags", Op: repo.OpLike,
				Value:         `%"` + tag + `"%`,
				NextLogicalOp: repo.Or,
			})
		}
		conditions = append(conditions, &repo.Condition{Conditions: tagConditions})
	}

	if criteria != nil && criteria.MinScore != nil {
		conditions = append(conditions, &repo.Condition{
			Field: "lead_score", Op: repo.OpGte, Value: *criteria.MinScore,
		})
	}
	if criteria != nil && criteria.MaxScore != nil {
		conditions = append(conditions, &repo.Condition{
			Field: "lead_score", Op: repo.OpLte, Value: *criteria.MaxScore,
		})
	}

	return conditions
}
