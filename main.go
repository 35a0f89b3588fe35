package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"outreach/config"
	"outreach/handler"
	"outreach/middleware"
	"outreach/pkg/logutil"
	"outreach/pkg/router"
	"outreach/pkg/service"
	"outreach/repo"
)

type server struct {
	ctx context.Context
	opt *config.Option
	cfg *config.Config

	baseRepo       repo.BaseRepo
	prospectRepo   repo.ProspectRepo
	campaignRepo   repo.CampaignRepo
	enrollmentRepo repo.EnrollmentRepo
	engagementRepo repo.EngagementRepo
	metricsRepo    repo.MetricsRepo
	searchRepo     repo.SearchRepo

	// api handlers
	prospectHandler   handler.ProspectHandler
	bulkHandler       handler.BulkHandler
	exportHandler     handler.ExportHandler
	campaignHandler   handler.CampaignHandler
	enrollmentHandler handler.EnrollmentHandler
	signalHandler     handler.SignalHandler
	metricsHandler    handler.MetricsHandler
}

func main() {
	s := new(server)
	if err := service.Run(s); err != nil {
		log.Fatal().Msg(err.Error())
	}
}

func (s *server) Init() error {
	opt := config.NewOptions()

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		opt.LogLevel = logLevel
	}

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		opt.ConfigPath = configPath
	}

	if serverPort := os.Getenv("PORT"); serverPort != "" {
		if port, err := strconv.Atoi(serverPort); err == nil {
			opt.Port = port
		}
	}

	s.opt = opt

	return nil
}

func (s *server) Start() error {
	var err error

	// ====== init logger ===== //

	s.ctx = logutil.InitZeroLog(context.Background(), s.opt.LogLevel)

	// ===== init config ===== //

	s.cfg = config.NewConfig()
	if err = s.cfg.Load(s.ctx, s.opt.ConfigPath); err != nil {
		log.Ctx(s.ctx).Error().Msgf("load config failed, err: %v", err)
		return err
	}

	// ===== init repos ===== //

	s.baseRepo, err = repo.NewBaseRepo(s.ctx, s.cfg.MetadataDB)
	if err != nil {
		log.Ctx(s.ctx).Error().Msgf("init base repo failed, err: %v", err)
		return err
	}
	defer func() {
		if err != nil && s.baseRepo != nil {
			if err := s.baseRepo.Close(s.ctx); err != nil {
				log.Ctx(s.ctx).Error().Msgf("close base repo failed, err: %v", err)
				return
			}
		}
	}()

	s.prospectRepo = repo.NewProspectRepoWithBase(s.baseRepo)
	s.campaignRepo = repo.NewCampaignRepoWithBase(s.ctx, s.baseRepo)
	s.enrollmentRepo = repo.NewEnrollmentRepoWithBase(s.baseRepo)
	s.engagementRepo = repo.NewEngagementRepoWithBase(s.baseRepo)
	s.metricsRepo = repo.NewMetricsRepoWithBase(s.baseRepo)

	s.searchRepo, err = repo.NewSearchRepo(s.ctx, s.cfg.SearchDB)
	if err != nil {
		log.Ctx(s.ctx).Error().Msgf("init search repo failed, err: %v", err)
		return err
	}
	defer func() {
		if err != nil && s.searchRepo != nil {
			if err := s.searchRepo.Close(s.ctx); err != nil {
				log.Ctx(s.ctx).Error().Msgf("close search repo failed, err: %v", err)
				return
			}
		}
	}()

	// ===== init handlers ===== //

	s.prospectHandler = handler.NewProspectHandler(s.cfg, s.prospectRepo, s.searchRepo)
	s.bulkHandler = handler.NewBulkHandler(s.cfg, s.prospectRepo)
	s.exportHandler = handler.NewExportHandler(s.prospectRepo)
	s.campaignHandler = handler.NewCampaignHandler(s.campaignRepo, s.enrollmentRepo)
	s.enrollmentHandler = handler.NewEnrollmentHandler(s.enrollmentRepo)
	s.signalHandler = handler.NewSignalHandler(s.cfg, s.prospectRepo, s.campaignRepo, s.enrollmentRepo, s.engagementRepo)
	s.metricsHandler = handler.NewMetricsHandler(s.campaignRepo, s.enrollmentRepo, s.metricsRepo)

	// ===== start server ===== //

	go func() {
		addr := fmt.Sprintf(":%d", s.opt.Port)

		log.Info().Msgf("starting HTTP server at %s", addr)

		httpServer := &http.Server{
			BaseContext: func(_ net.Listener) context.Context {
				return s.ctx
			},
			Addr:    addr,
			Handler: cors.AllowAll().Handler(middleware.Log(s.registerRoutes())),
		}
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fail to start HTTP server, err: %v", err)
		}
	}()

	return nil
}

func (s *server) Stop() error {
	if s.searchRepo != nil {
		if err := s.searchRepo.Close(s.ctx); err != nil {
			log.Ctx(s.ctx).Error().Msgf("close search repo failed, err: %v", err)
			return err
		}
	}

	if s.baseRepo != nil {
		if err := s.baseRepo.Close(s.ctx); err != nil {
			log.Ctx(s.ctx).Error().Msgf("close base repo failed, err: %v", err)
			return err
		}
	}

	return nil
}

type HealthCheckRequest struct{}

type HealthCheckResponse struct{}

func (s *server) registerRoutes() http.Handler {
	r := &router.HttpRouter{
		Router: mux.NewRouter(),
	}

	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathHealthCheck,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(HealthCheckRequest),
			Res: new(HealthCheckResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return nil
			},
		},
	})

	// get_prospects
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathGetProspects,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.GetProspectsRequest),
			Res: new(handler.GetProspectsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.prospectHandler.GetProspects(ctx, req.(*handler.GetProspectsRequest), res.(*handler.GetProspectsResponse))
			},
		},
	})

	// count_prospects
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathCountProspects,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.CountProspectsRequest),
			Res: new(handler.CountProspectsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.prospectHandler.CountProspects(ctx, req.(*handler.CountProspectsRequest), res.(*handler.CountProspectsResponse))
			},
		},
	})

	// get_prospect
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathGetProspect,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(handler.GetProspectRequest),
			Res: new(handler.GetProspectResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.prospectHandler.GetProspect(ctx, req.(*handler.GetProspectRequest), res.(*handler.GetProspectResponse))
			},
		},
	})

	// create_prospect
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathCreateProspect,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.CreateProspectRequest),
			Res: new(handler.CreateProspectResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.prospectHandler.CreateProspect(ctx, req.(*handler.CreateProspectRequest), res.(*handler.CreateProspectResponse))
			},
		},
	})

	// update_prospect
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathUpdateProspect,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.UpdateProspectRequest),
			Res: new(handler.UpdateProspectResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.prospectHandler.UpdateProspect(ctx, req.(*handler.UpdateProspectRequest), res.(*handler.UpdateProspectResponse))
			},
		},
	})

	// search_prospects
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathSearchProspects,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(handler.SearchProspectsRequest),
			Res: new(handler.SearchProspectsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.prospectHandler.SearchProspects(ctx, req.(*handler.SearchProspectsRequest), res.(*handler.SearchProspectsResponse))
			},
		},
	})

	// bulk_update_prospects
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathBulkUpdate,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.BulkUpdateProspectsRequest),
			Res: new(handler.BulkUpdateProspectsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.bulkHandler.BulkUpdateProspects(ctx, req.(*handler.BulkUpdateProspectsRequest), res.(*handler.BulkUpdateProspectsResponse))
			},
		},
	})

	// export_prospects
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathExportProspects,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.ExportProspectsRequest),
			Res: new(handler.ExportProspectsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.exportHandler.ExportProspects(ctx, req.(*handler.ExportProspectsRequest), res.(*handler.ExportProspectsResponse))
			},
		},
	})

	// create_campaign
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathCreateCampaign,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.CreateCampaignRequest),
			Res: new(handler.CreateCampaignResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.CreateCampaign(ctx, req.(*handler.CreateCampaignRequest), res.(*handler.CreateCampaignResponse))
			},
		},
	})

	// get_campaign
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathGetCampaign,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(handler.GetCampaignRequest),
			Res: new(handler.GetCampaignResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.GetCampaign(ctx, req.(*handler.GetCampaignRequest), res.(*handler.GetCampaignResponse))
			},
		},
	})

	// get_campaigns
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathGetCampaigns,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.GetCampaignsRequest),
			Res: new(handler.GetCampaignsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.GetCampaigns(ctx, req.(*handler.GetCampaignsRequest), res.(*handler.GetCampaignsResponse))
			},
		},
	})

	// activate_campaign
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathActivateCampaign,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.ActivateCampaignRequest),
			Res: new(handler.ActivateCampaignResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.ActivateCampaign(ctx, req.(*handler.ActivateCampaignRequest), res.(*handler.ActivateCampaignResponse))
			},
		},
	})

	// deactivate_campaign
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathDeactivateCampaign,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.DeactivateCampaignRequest),
			Res: new(handler.DeactivateCampaignResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.DeactivateCampaign(ctx, req.(*handler.DeactivateCampaignRequest), res.(*handler.DeactivateCampaignResponse))
			},
		},
	})

	// append_campaign_step
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathAppendStep,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.AppendStepRequest),
			Res: new(handler.AppendStepResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.AppendStep(ctx, req.(*handler.AppendStepRequest), res.(*handler.AppendStepResponse))
			},
		},
	})

	// delete_campaign
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathDeleteCampaign,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.DeleteCampaignRequest),
			Res: new(handler.DeleteCampaignResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.DeleteCampaign(ctx, req.(*handler.DeleteCampaignRequest), res.(*handler.DeleteCampaignResponse))
			},
		},
	})

	// get_enrollments
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathGetEnrollments,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.GetEnrollmentsRequest),
			Res: new(handler.GetEnrollmentsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.enrollmentHandler.GetEnrollments(ctx, req.(*handler.GetEnrollmentsRequest), res.(*handler.GetEnrollmentsResponse))
			},
		},
	})

	// pause_enrollment
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathPauseEnrollment,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.PauseEnrollmentRequest),
			Res: new(handler.PauseEnrollmentResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.enrollmentHandler.PauseEnrollment(ctx, req.(*handler.PauseEnrollmentRequest), res.(*handler.PauseEnrollmentResponse))
			},
		},
	})

	// resume_enrollment
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathResumeEnrollment,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.ResumeEnrollmentRequest),
			Res: new(handler.ResumeEnrollmentResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.enrollmentHandler.ResumeEnrollment(ctx, req.(*handler.ResumeEnrollmentRequest), res.(*handler.ResumeEnrollmentResponse))
			},
		},
	})

	// on_engagement_event
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathOnEngagementEvent,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.OnEngagementEventRequest),
			Res: new(handler.OnEngagementEventResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.signalHandler.OnEngagementEvent(ctx, req.(*handler.OnEngagementEventRequest), res.(*handler.OnEngagementEventResponse))
			},
		},
	})

	// get_campaign_metrics
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathGetCampaignMetrics,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(handler.GetCampaignMetricsRequest),
			Res: new(handler.GetCampaignMetricsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.metricsHandler.GetCampaignMetrics(ctx, req.(*handler.GetCampaignMetricsRequest), res.(*handler.GetCampaignMetricsResponse))
			},
		},
	})

	// get_engagement_breakdown
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathGetEngagementBreakdown,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(handler.GetEngagementBreakdownRequest),
			Res: new(handler.GetEngagementBreakdownResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.metricsHandler.GetEngagementBreakdown(ctx, req.(*handler.GetEngagementBreakdownRequest), res.(*handler.GetEngagementBreakdownResponse))
			},
		},
	})

	return r
}
