package advance_enrollments

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"outreach/config"
	"outreach/dep"
	"outreach/entity"
	"outreach/pkg/goutil"
	"outreach/pkg/mq"
	"outreach/pkg/service"
	"outreach/repo"
)

// AdvanceEnrollments walks every ACTIVE enrollment and sends the current
// step once its delay has elapsed. The step execution row is the at-most-once
// guard and is inserted before the send: overlapping passes race on the
// unique key and only the winner delivers. A failed delivery releases the
// claim so the step stays due for the next pass.
type AdvanceEnrollments struct {
	cfg               *config.Config
	campaignRepo      repo.CampaignRepo
	prospectRepo      repo.ProspectRepo
	enrollmentRepo    repo.EnrollmentRepo
	stepExecutionRepo repo.StepExecutionRepo
	emailService      dep.EmailService
	templateService   dep.TemplateService

	// producer is optional; without it sends are simply not announced.
	producer *mq.Producer

	nowFunc func() time.Time
}

func New(
	cfg *config.Config,
	campaignRepo repo.CampaignRepo,
	prospectRepo repo.ProspectRepo,
	enrollmentRepo repo.EnrollmentRepo,
	stepExecutionRepo repo.StepExecutionRepo,
	emailService dep.EmailService,
	templateService dep.TemplateService,
	producer *mq.Producer,
) *AdvanceEnrollments {
	return &AdvanceEnrollments{
		cfg:               cfg,
		campaignRepo:      campaignRepo,
		prospectRepo:      prospectRepo,
		enrollmentRepo:    enrollmentRepo,
		stepExecutionRepo: stepExecutionRepo,
		emailService:      emailService,
		templateService:   templateService,
		producer:          producer,
		nowFunc:           time.Now,
	}
}

var _ service.Job = (*AdvanceEnrollments)(nil)

func (j *AdvanceEnrollments) Init(_ context.Context) error {
	return nil
}

func (j *AdvanceEnrollments) Run(ctx context.Context) error {
	enrollments, err := j.enrollmentRepo.GetByStatus(ctx, entity.EnrollmentStatusActive)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get active enrollments failed: %v", err)
		return err
	}

	campaigns, err := j.loadCampaigns(ctx, enrollments)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.cfg.Outreach.GetAdvanceConcurrency())

	for _, enrollment := range enrollments {
		enrollment := enrollment
		campaign := campaigns[enrollment.GetCampaignID()]
		if campaign == nil || !campaign.GetIsActive() {
			continue
		}

		g.Go(func() error {
			// one bad enrollment never blocks the rest
			if err := j.advance(gctx, campaign, enrollment); err != nil {
				log.Ctx(gctx).Error().Msgf("advance enrollment failed, enrollment_id: %d, err: %v",
					enrollment.GetID(), err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (j *AdvanceEnrollments) CleanUp(_ context.Context) error {
	return nil
}

// loadCampaigns fetches each distinct campaign once, with fresh steps, before
// the workers fan out.
func (j *AdvanceEnrollments) loadCampaigns(ctx context.Context, enrollments []*entity.Enrollment) (map[uint64]*entity.Campaign, error) {
	campaigns := make(map[uint64]*entity.Campaign)
	for _, enrollment := range enrollments {
		campaignID := enrollment.GetCampaignID()
		if _, ok := campaigns[campaignID]; ok {
			continue
		}

		campaign, err := j.campaignRepo.GetByID(ctx, campaignID)
		if err != nil {
			if errors.Is(err, repo.ErrCampaignNotFound) {
				campaigns[campaignID] = nil
				continue
			}
			log.Ctx(ctx).Error().Msgf("get campaign failed, campaign_id: %d, err: %v", campaignID, err)
			return nil, err
		}

		steps, err := j.campaignRepo.GetSteps(ctx, campaignID)
		if err != nil {
			log.Ctx(ctx).Error().Msgf("get campaign steps failed, campaign_id: %d, err: %v", campaignID, err)
			return nil, err
		}
		campaign.Steps = steps

		campaigns[campaignID] = campaign
	}
	return campaigns, nil
}

func (j *AdvanceEnrollments) advance(ctx context.Context, campaign *entity.Campaign, enrollment *entity.Enrollment) error {
	step := campaign.StepAt(enrollment.GetCurrentStepIndex())
	if step == nil {
		// cursor past the last step, nothing left to send
		return j.complete(ctx, enrollment)
	}

	now := uint64(j.nowFunc().Unix())
	if now < enrollment.DueAt(step) {
		return nil
	}

	execution, err := j.stepExecutionRepo.Get(ctx, enrollment.GetID(), step.GetStepIndex())
	if err != nil && !errors.Is(err, repo.ErrExecutionNotFound) {
		return err
	}
	if execution != nil {
		// another pass already delivered this step; move the cursor and
		// carry the recorded send time so the next delay anchors on it
		return j.advanceCursor(ctx, campaign, enrollment, execution.SentAt)
	}

	prospect, err := j.prospectRepo.GetByID(ctx, enrollment.GetProspectID())
	if err != nil {
		return err
	}

	if halted, err := j.halt(ctx, enrollment, prospect); halted || err != nil {
		return err
	}

	rendered, err := j.templateService.Render(ctx, step.GetTemplateID(), prospect)
	if err != nil {
		return err
	}

	sentAt := uint64(j.nowFunc().Unix())

	// claim the step before sending; the unique key arbitrates overlapping
	// passes so at most one of them delivers
	if _, err := j.stepExecutionRepo.Create(ctx, &entity.StepExecution{
		CampaignID:   campaign.ID,
		EnrollmentID: enrollment.ID,
		ProspectID:   enrollment.ProspectID,
		StepIndex:    goutil.Uint32(step.GetStepIndex()),
		SentAt:       goutil.Uint64(sentAt),
	}); err != nil {
		if errors.Is(err, repo.ErrDuplicateExecution) {
			// a concurrent pass owns this step now
			return nil
		}
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, time.Duration(j.cfg.Outreach.GetSendTimeoutSeconds())*time.Second)
	defer cancel()

	if err := j.emailService.SendEmail(sendCtx, &dep.SendSmtpEmail{
		CampaignID: campaign.GetID(),
		StepIndex:  step.GetStepIndex(),
		To: &dep.Receiver{
			Email: prospect.GetEmail(),
			Name:  prospect.GetName(),
		},
		Subject:     rendered.Subject,
		HtmlContent: rendered.HtmlContent,
	}); err != nil {
		// release the claim so the step stays due and the next pass retries
		if delErr := j.stepExecutionRepo.Delete(ctx, enrollment.GetID(), step.GetStepIndex()); delErr != nil {
			log.Ctx(ctx).Error().Msgf("release step claim failed, enrollment_id: %d, step_index: %d, err: %v",
				enrollment.GetID(), step.GetStepIndex(), delErr)
		}
		return err
	}

	if err := j.campaignRepo.IncrStepSentCount(ctx, campaign.GetID(), step.GetStepIndex()); err != nil {
		log.Ctx(ctx).Error().Msgf("incr sent count failed, campaign_id: %d, step_index: %d, err: %v",
			campaign.GetID(), step.GetStepIndex(), err)
	}

	if err := j.stampProspect(ctx, prospect, sentAt); err != nil {
		log.Ctx(ctx).Error().Msgf("stamp prospect failed, prospect_id: %d, err: %v",
			prospect.GetID(), err)
	}

	j.announceSend(ctx, campaign, enrollment, step, sentAt)

	return j.advanceCursor(ctx, campaign, enrollment, goutil.Uint64(sentAt))
}

// halt checks the prospect-level stop signals before sending. An unsubscribe
// ends the enrollment; a reply since the last send pauses it for a human.
func (j *AdvanceEnrollments) halt(ctx context.Context, enrollment *entity.Enrollment, prospect *entity.Prospect) (bool, error) {
	if prospect.GetUnsubscribedAt() > 0 {
		enrollment.Status = entity.EnrollmentStatusUnsubscribed
		return true, j.enrollmentRepo.UpdateState(ctx, enrollment)
	}

	base := enrollment.GetEnrolledAt()
	if enrollment.GetLastStepSentAt() > 0 {
		base = enrollment.GetLastStepSentAt()
	}
	if prospect.GetRepliedAt() > base {
		enrollment.Status = entity.EnrollmentStatusPaused
		return true, j.enrollmentRepo.UpdateState(ctx, enrollment)
	}

	return false, nil
}

func (j *AdvanceEnrollments) stampProspect(ctx context.Context, prospect *entity.Prospect, sentAt uint64) error {
	update := &entity.Prospect{
		ID:          prospect.ID,
		EmailSentAt: goutil.Uint64(sentAt),
	}
	// promote early-funnel statuses; never downgrade a responded prospect
	switch prospect.GetStatus() {
	case entity.ProspectStatusNew, entity.ProspectStatusReviewing, entity.ProspectStatusQualified:
		update.Status = entity.ProspectStatusContacted
	}
	return j.prospectRepo.Update(ctx, update)
}

func (j *AdvanceEnrollments) announceSend(ctx context.Context, campaign *entity.Campaign, enrollment *entity.Enrollment, step *entity.Step, sentAt uint64) {
	if j.producer == nil {
		return
	}

	if err := j.producer.SendMessage(&mq.Message{
		Payload: mq.PayloadStepSent,
		Key:     enrollment.ActiveKey(),
		Body: &mq.StepSent{
			CampaignID:   campaign.ID,
			EnrollmentID: enrollment.ID,
			StepIndex:    goutil.Uint32(step.GetStepIndex()),
			SentAt:       goutil.Uint64(sentAt),
		},
	}); err != nil {
		log.Ctx(ctx).Error().Msgf("publish step sent failed, enrollment_id: %d, err: %v",
			enrollment.GetID(), err)
	}
}

func (j *AdvanceEnrollments) advanceCursor(ctx context.Context, campaign *entity.Campaign, enrollment *entity.Enrollment, sentAt *uint64) error {
	if sentAt != nil {
		enrollment.LastStepSentAt = sentAt
	}

	if enrollment.GetCurrentStepIndex() >= campaign.LastStepIndex() {
		return j.complete(ctx, enrollment)
	}

	enrollment.CurrentStepIndex = goutil.Uint32(enrollment.GetCurrentStepIndex() + 1)
	return j.enrollmentRepo.UpdateState(ctx, enrollment)
}

func (j *AdvanceEnrollments) complete(ctx context.Context, enrollment *entity.Enrollment) error {
	enrollment.Status = entity.EnrollmentStatusCompleted
	return j.enrollmentRepo.UpdateState(ctx, enrollment)
}
