package repo

import (
	"context"

	"outreach/config"
	"outreach/entity"
	"outreach/pkg/goutil"
)

type EngagementLog struct {
	ID           *uint64
	CampaignID   *uint64
	EnrollmentID *uint64 `gorm:"index"`
	ProspectID   *uint64
	StepIndex    *uint32
	Event        *uint32
	EventTime    *uint64
	CreateTime   *uint64
}

func (m *EngagementLog) TableName() string {
	return "engagement_log_tab"
}

func (m *EngagementLog) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

type EngagementRepo interface {
	Create(ctx context.Context, engagementLog *entity.EngagementLog) (uint64, error)
	BatchCreate(ctx context.Context, engagementLogs []*entity.EngagementLog) error
	Close(ctx context.Context) error
}

type engagementRepo struct {
	baseRepo BaseRepo
}

func NewEngagementRepo(ctx context.Context, mysqlCfg config.MySQL) (EngagementRepo, error) {
	baseRepo, err := NewBaseRepo(ctx, mysqlCfg)
	if err != nil {
		return nil, err
	}
	return &engagementRepo{baseRepo: baseRepo}, nil
}

func NewEngagementRepoWithBase(baseRepo BaseRepo) EngagementRepo {
	return &engagementRepo{baseRepo: baseRepo}
}

func (r *engagementRepo) Create(ctx context.Context, engagementLog *entity.EngagementLog) (uint64, error) {
	model := ToEngagementLogModel(engagementLog)
	if err := r.baseRepo.DB(ctx).Create(&model).Error; err != nil {
		return 0, err
	}
	return model.GetID(), nil
}

func (r *engagementRepo) BatchCreate(ctx context.Context, engagementLogs []*entity.EngagementLog) error {
	models := make([]*EngagementLog, 0, len(engagementLogs))
	for _, engagementLog := range engagementLogs {
		models = append(models, ToEngagementLogModel(engagementLog))
	}
	return r.baseRepo.DB(ctx).Create(&models).Error
}

func (r *engagementRepo) Close(ctx context.Context) error {
	return r.baseRepo.Close(ctx)
}

func ToEngagementLogModel(engagementLog *entity.EngagementLog) *EngagementLog {
	var event *uint32
	if engagementLog.Event != entity.EventUnknown {
		event = goutil.Uint32(uint32(engagementLog.Event))
	}

	return &EngagementLog{
		ID:           engagementLog.ID,
		CampaignID:   engagementLog.CampaignID,
		EnrollmentID: engagementLog.EnrollmentID,
		ProspectID:   engagementLog.ProspectID,
		StepIndex:    engagementLog.StepIndex,
		Event:        event,
		EventTime:    engagementLog.EventTime,
		CreateTime:   engagementLog.CreateTime,
	}
}
