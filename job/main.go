package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"outreach/config"
	"outreach/dep"
	"outreach/handler"
	"outreach/job/advance_enrollments"
	"outreach/job/consume_engagement"
	"outreach/job/enroll_prospects"
	"outreach/job/run_outreach"
	"outreach/pkg/logutil"
	"outreach/pkg/mq"
	"outreach/pkg/service"
	"outreach/repo"
)

func main() {
	var (
		opt = config.NewOptions()
		ctx = logutil.InitZeroLog(context.Background(), "DEBUG")
	)

	cfg := config.NewConfig()
	if err := cfg.Load(ctx, opt.ConfigPath); err != nil {
		log.Ctx(ctx).Error().Msgf("load config failed: %v", err)
		os.Exit(1)
	}

	// base repo
	baseRepo, err := repo.NewBaseRepo(ctx, cfg.MetadataDB)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("init base repo failed, err: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := baseRepo.Close(ctx); err != nil {
			log.Ctx(ctx).Error().Msgf("close base repo failed, err: %v", err)
		}
	}()

	prospectRepo := repo.NewProspectRepoWithBase(baseRepo)
	campaignRepo := repo.NewCampaignRepoWithBase(ctx, baseRepo)
	enrollmentRepo := repo.NewEnrollmentRepoWithBase(baseRepo)
	stepExecutionRepo := repo.NewStepExecutionRepoWithBase(baseRepo)
	engagementRepo := repo.NewEngagementRepoWithBase(baseRepo)

	emailService, err := dep.NewEmailService(ctx, cfg.Brevo)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("init email service failed, err: %v", err)
		os.Exit(1)
	}

	templateService, err := dep.NewTemplateService(ctx, nil)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("init template service failed, err: %v", err)
		os.Exit(1)
	}

	// step-sent announcements are best effort; without a broker the
	// scheduler still runs
	var producer *mq.Producer
	if p, err := mq.NewProducer(ctx, cfg.Kafka.Producer); err != nil {
		log.Ctx(ctx).Warn().Msgf("init producer failed, running without: %v", err)
	} else {
		producer = p
		defer func() {
			if err := producer.Close(); err != nil {
				log.Ctx(ctx).Error().Msgf("close producer failed, err: %v", err)
			}
		}()
	}

	signalHandler := handler.NewSignalHandler(cfg, prospectRepo, campaignRepo, enrollmentRepo, engagementRepo)

	enrollJob := enroll_prospects.New(campaignRepo, prospectRepo, enrollmentRepo)
	advanceJob := advance_enrollments.New(cfg, campaignRepo, prospectRepo, enrollmentRepo,
		stepExecutionRepo, emailService, templateService, producer)

	jobs := map[string]service.Job{
		"enroll-prospects":    enrollJob,
		"advance-enrollments": advanceJob,
		"run-outreach":        run_outreach.New(enrollJob, advanceJob),
		"consume-engagement":  consume_engagement.New(cfg, signalHandler),
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go <job_name>")
		os.Exit(1)
	}

	jobName := os.Args[1]
	job, exists := jobs[jobName]
	if !exists {
		log.Ctx(ctx).Error().Msgf("job %s not found", jobName)
		os.Exit(1)
	}

	if err := job.Init(ctx); err != nil {
		log.Ctx(ctx).Error().Msgf("init job err: %v", err)
		os.Exit(1)
	}

	if err := job.Run(ctx); err != nil {
		log.Ctx(ctx).Error().Msgf("run job err: %v", err)
		os.Exit(1)
	}

	if err := job.CleanUp(ctx); err != nil {
		log.Ctx(ctx).Error().Msgf("cleanup job err: %v", err)
		os.Exit(1)
	}

	log.Ctx(ctx).Info().Msg("job executed successfully")
}
