package handler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"outreach/config"
	"outreach/entity"
	"outreach/pkg/errutil"
	"outreach/pkg/goutil"
	"outreach/pkg/validator"
	"outreach/repo"
)

type SignalHandler interface {
	OnEngagementEvent(ctx context.Context, req *OnEngagementEventRequest, res *OnEngagementEventResponse) error
	ProcessEvent(ctx context.Context, event *EngagementEvent) error
}

type signalHandler struct {
	cfg            *config.Config
	prospectRepo   repo.ProspectRepo
	campaignRepo   repo.CampaignRepo
	enrollmentRepo repo.EnrollmentRepo
	engagementRepo repo.EngagementRepo
}

func NewSignalHandler(
	cfg *config.Config,
	prospectRepo repo.ProspectRepo,
	campaignRepo repo.CampaignRepo,
	enrollmentRepo repo.EnrollmentRepo,
	engagementRepo repo.EngagementRepo,
) SignalHandler {
	return &signalHandler{
		cfg:            cfg,
		prospectRepo:   prospectRepo,
		campaignRepo:   campaignRepo,
		enrollmentRepo: enrollmentRepo,
		engagementRepo: engagementRepo,
	}
}

// EngagementEvent is the normalized signal, shared by the HTTP webhook and
// the Kafka consumer.
type EngagementEvent struct {
	EnrollmentID *uint64 `json:"enrollment_id,omitempty"`
	StepIndex    *uint32 `json:"step_index,omitempty"`
	EventType    *string `json:"event_type,omitempty"`
	EventTime    *uint64 `json:"event_time,omitempty"`
}

func (e *EngagementEvent) GetEnrollmentID() uint64 {
	if e != nil && e.EnrollmentID != nil {
		return *e.EnrollmentID
	}
	return 0
}

func (e *EngagementEvent) GetStepIndex() uint32 {
	if e != nil && e.StepIndex != nil {
		return *e.StepIndex
	}
	return 0
}

func (e *EngagementEvent) GetEventType() string {
	if e != nil && e.EventType != nil {
		return *e.EventType
	}
	return ""
}

func (e *EngagementEvent) GetEventTime() uint64 {
	if e != nil && e.EventTime != nil {
		return *e.EventTime
	}
	return 0
}

type OnEngagementEventRequest struct {
	WebhookKey *string `json:"webhook_key,omitempty"`

	EngagementEvent
}

func (r *OnEngagementEventRequest) GetWebhookKey() string {
	if r != nil && r.WebhookKey != nil {
		return *r.WebhookKey
	}
	return ""
}

type OnEngagementEventResponse struct{}

var EngagementEventValidator = validator.MustForm(map[string]validator.Validator{
	"enrollment_id": &validator.UInt64{},
	"step_index":    &validator.UInt64{Optional: true},
	"event_type":    EventValidator(),
	"event_time":    &validator.UInt64{Optional: true},
})

var OnEngagementEventValidator = validator.MustForm(map[string]validator.Validator{
	"webhook_key":     &validator.String{Optional: true},
	"EngagementEvent": EngagementEventValidator,
})

// OnEngagementEvent is the tracking webhook. The caller proves itself with
// the shared key, which is stored only as a bcrypt hash in config.
func (h *signalHandler) OnEngagementEvent(ctx context.Context, req *OnEngagementEventRequest, res *OnEngagementEventResponse) error {
	if err := OnEngagementEventValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	if hash := h.cfg.Outreach.WebhookKeyHash; hash != "" {
		if !goutil.CompareBCrypt(hash, req.GetWebhookKey()) {
			return errutil.UnauthorizedError(errors.New("invalid webhook key"))
		}
	}

	return h.ProcessEvent(ctx, &req.EngagementEvent)
}

// ProcessEvent records the signal, bumps the step counter, stamps the
// prospect and transitions the enrollment. Events on terminal enrollments
// are still recorded for the audit trail, but cause no transition.
func (h *signalHandler) ProcessEvent(ctx context.Context, event *EngagementEvent) error {
	eventType, ok := entity.SupportedEvents[event.GetEventType()]
	if !ok {
		return errutil.ValidationError(errors.New("unsupported event type"))
	}

	enrollment, err := h.enrollmentRepo.GetByID(ctx, event.GetEnrollmentID())
	if err != nil {
		if errors.Is(err, repo.ErrEnrollmentNotFound) {
			return errutil.NotFoundError(err)
		}
		log.Ctx(ctx).Error().Msgf("get enrollment failed: %v", err)
		return err
	}

	eventTime := event.GetEventTime()
	if eventTime == 0 {
		eventTime = uint64(time.Now().Unix())
	}

	if _, err := h.engagementRepo.Create(ctx, &entity.EngagementLog{
		CampaignID:   enrollment.CampaignID,
		EnrollmentID: enrollment.ID,
		ProspectID:   enrollment.ProspectID,
		StepIndex:    goutil.Uint32(event.GetStepIndex()),
		Event:        eventType,
		EventTime:    goutil.Uint64(eventTime),
		CreateTime:   goutil.Uint64(uint64(time.Now().Unix())),
	}); err != nil {
		log.Ctx(ctx).Error().Msgf("create engagement log failed: %v", err)
		return err
	}

	if err := h.campaignRepo.IncrStepEventCount(ctx, enrollment.GetCampaignID(), event.GetStepIndex(), eventType); err != nil {
		log.Ctx(ctx).Error().Msgf("incr step counter failed: %v", err)
		return err
	}

	if err := h.stampProspect(ctx, enrollment.GetProspectID(), eventType, eventTime); err != nil {
		return err
	}

	return h.transition(ctx, enrollment, eventType)
}

func (h *signalHandler) stampProspect(ctx context.Context, prospectID uint64, event entity.Event, eventTime uint64) error {
	update := &entity.Prospect{ID: goutil.Uint64(prospectID)}
	switch event {
	case entity.EventOpened:
		update.EmailOpenedAt = goutil.Uint64(eventTime)
	case entity.EventReplied:
		update.RepliedAt = goutil.Uint64(eventTime)
		update.Status = entity.ProspectStatusResponded
	case entity.EventUnsubscribed:
		update.UnsubscribedAt = goutil.Uint64(eventTime)
	default:
		return nil
	}

	if err := h.prospectRepo.Update(ctx, update); err != nil {
		log.Ctx(ctx).Error().Msgf("stamp prospect failed: %v", err)
		return err
	}
	return nil
}

// transition: a reply pauses the sequence for a human to take over; an
// unsubscribe ends it for good. Terminal enrollments never move.
func (h *signalHandler) transition(ctx context.Context, enrollment *entity.Enrollment, event entity.Event) error {
	if enrollment.GetStatus().IsTerminal() {
		return nil
	}

	var next entity.EnrollmentStatus
	switch event {
	case entity.EventReplied:
		if enrollment.GetStatus() != entity.EnrollmentStatusActive {
			return nil
		}
		next = entity.EnrollmentStatusPaused
	case entity.EventUnsubscribed:
		next = entity.EnrollmentStatusUnsubscribed
	default:
		return nil
	}

	enrollment.Status = next
	if err := h.enrollmentRepo.UpdateState(ctx, enrollment); err != nil {
		log.Ctx(ctx).Error().Msgf("transition enrollment failed: %v", err)
		return err
	}
	return nil
}
