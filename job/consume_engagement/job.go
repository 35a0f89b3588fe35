package consume_engagement

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"outreach/config"
	"outreach/handler"
	"outreach/pkg/goutil"
	"outreach/pkg/mq"
	"outreach/pkg/service"
)

// ConsumeEngagement drains the engagement topic into the same code path as
// the HTTP webhook, so opens, clicks, replies and unsubscribes land
// identically whichever door they come through.
type ConsumeEngagement struct {
	cfg           *config.Config
	signalHandler handler.SignalHandler

	consumer *mq.Consumer
}

func New(cfg *config.Config, signalHandler handler.SignalHandler) *ConsumeEngagement {
	return &ConsumeEngagement{
		cfg:           cfg,
		signalHandler: signalHandler,
	}
}

var _ service.Job = (*ConsumeEngagement)(nil)

func (j *ConsumeEngagement) Init(_ context.Context) error {
	mq.RegisterHandler(mq.PayloadEngagementEvent, j.onEngagementEvent)
	return nil
}

// Run starts the consumer group and blocks until SIGINT/SIGTERM.
func (j *ConsumeEngagement) Run(ctx context.Context) error {
	consumer, err := mq.NewConsumer(ctx, j.cfg.Kafka.Consumer)
	if err != nil {
		return err
	}
	j.consumer = consumer

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-ctx.Done():
	}

	return nil
}

func (j *ConsumeEngagement) CleanUp(_ context.Context) error {
	if j.consumer != nil {
		return j.consumer.Close()
	}
	return nil
}

func (j *ConsumeEngagement) onEngagementEvent(ctx context.Context, msg *mq.Message) error {
	event := new(mq.EngagementEvent)
	if err := msg.ParseBody(event); err != nil {
		log.Ctx(ctx).Error().Msgf("parse engagement event failed: %v", err)
		return err
	}

	return j.signalHandler.ProcessEvent(ctx, &handler.EngagementEvent{
		EnrollmentID: goutil.Uint64(event.GetEnrollmentID()),
		StepIndex:    goutil.Uint32(event.GetStepIndex()),
		EventType:    goutil.String(event.GetEvent()),
		EventTime:    event.EventTime,
	})
}
