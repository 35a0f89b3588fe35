package repo

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"outreach/config"
	"outreach/entity"
	"outreach/pkg/goutil"
)

const campaignCachePrefix = "campaign"

var (
	ErrCampaignNotFound = errors.New("campaign not found")
)

type Campaign struct {
	ID           *uint64
	Name         *string
	CampaignDesc *string
	IsActive     *bool
	Criteria     *string
	CreateTime   *uint64
	UpdateTime   *uint64
}

func (m *Campaign) TableName() string {
	return "campaign_tab"
}

func (m *Campaign) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

func (m *Campaign) GetCriteria() string {
	if m != nil && m.Criteria != nil {
		return *m.Criteria
	}
	return ""
}

type CampaignStep struct {
	ID         *uint64
	CampaignID *uint64 `gorm:"index"`
	StepIndex  *uint32
	TemplateID *uint64
	DelayDays  *uint32
	DelayHours *uint32
	SentCount  *uint64
	OpenCount  *uint64
	ClickCount *uint64
	ReplyCount *uint64
}

func (m *CampaignStep) TableName() string {
	return "campaign_step_tab"
}

func (m *CampaignStep) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

type CampaignRepo interface {
	Create(ctx context.Context, campaign *entity.Campaign) (uint64, error)
	GetByID(ctx context.Context, id uint64) (*entity.Campaign, error)
	GetMany(ctx context.Context, f *Filter) ([]*entity.Campaign, *Pagination, error)
	GetActive(ctx context.Context) ([]*entity.Campaign, error)
	Update(ctx context.Context, campaign *entity.Campaign) error
	AppendStep(ctx context.Context, campaignID uint64, step *entity.Step) (uint64, error)
	GetSteps(ctx context.Context, campaignID uint64) ([]*entity.Step, error)
	IncrStepSentCount(ctx context.Context, campaignID uint64, stepIndex uint32) error
	IncrStepEventCount(ctx context.Context, campaignID uint64, stepIndex uint32, event entity.Event) error
	Delete(ctx context.Context, id uint64) error
	Close(ctx context.Context) error
}

type campaignRepo struct {
	baseRepo  BaseRepo
	baseCache BaseCache
}

func NewCampaignRepo(ctx context.Context, mysqlCfg config.MySQL) (CampaignRepo, error) {
	baseRepo, err := NewBaseRepo(ctx, mysqlCfg)
	if err != nil {
		return nil, err
	}
	return &campaignRepo{
		baseRepo:  baseRepo,
		baseCache: NewBaseCache(ctx),
	}, nil
}

func NewCampaignRepoWithBase(ctx context.Context, baseRepo BaseRepo) CampaignRepo {
	return &campaignRepo{
		baseRepo:  baseRepo,
		baseCache: NewBaseCache(ctx),
	}
}

func (r *campaignRepo) Create(ctx context.Context, campaign *entity.Campaign) (uint64, error) {
	campaignModel, err := ToCampaignModel(campaign)
	if err != nil {
		return 0, err
	}

	if err := r.baseRepo.RunTx(ctx, func(ctx context.Context) error {
		if err := r.baseRepo.DB(ctx).Create(&campaignModel).Error; err != nil {
			return err
		}

		campaign.ID = campaignModel.ID

		for _, step := range campaign.Steps {
			stepModel := ToCampaignStepModel(campaignModel.GetID(), step)
			if err := r.baseRepo.DB(ctx).Create(&stepModel).Error; err != nil {
				return err
			}
			step.ID = stepModel.ID
			step.CampaignID = campaignModel.ID
		}

		return nil
	}); err != nil {
		return 0, err
	}

	return campaignModel.GetID(), nil
}

func (r *campaignRepo) GetByID(ctx context.Context, id uint64) (*entity.Campaign, error) {
	if v, ok := r.baseCache.Get(ctx, campaignCachePrefix, id); ok {
		if campaign, ok := v.(*entity.Campaign); ok {
			return cloneCampaign(campaign), nil
		}
	}

	campaignModel := new(Campaign)
	if err := r.baseRepo.DB(ctx).Where("id = ?", id).First(campaignModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}

	steps, err := r.GetSteps(ctx, id)
	if err != nil {
		return nil, err
	}

	campaign, err := ToCampaign(campaignModel, steps)
	if err != nil {
		return nil, err
	}

	r.baseCache.Set(ctx, campaignCachePrefix, id, campaign)

	return cloneCampaign(campaign), nil
}

// cloneCampaign detaches a caller's campaign from the cached value. Callers
// assign Steps and flip IsActive on what GetByID returns; handing out the
// cached pointer would let those writes race other readers.
func cloneCampaign(campaign *entity.Campaign) *entity.Campaign {
	clone := *campaign
	return &clone
}

func (r *campaignRepo) GetMany(ctx context.Context, f *Filter) ([]*entity.Campaign, *Pagination, error) {
	var (
		cond, args = ToSqlWithArgs(f.GetConditions())
		db         = r.baseRepo.DB(ctx)
	)

	var count int64
	if err := db.Model(&Campaign{}).Where(cond, args...).Count(&count).Error; err != nil {
		return nil, nil, err
	}

	pagination := f.Pagination
	if pagination == nil {
		pagination = new(Pagination)
	}

	var (
		limit = pagination.GetLimit()
		page  = pagination.GetPage()
	)
	if page == 0 {
		page = 1
	}

	var (
		offset     = (page - 1) * limit
		mCampaigns = make([]*Campaign, 0)
	)
	query := db.Where(cond, args...).Offset(int(offset)).Order(f.GetOrderBy())
	if limit > 0 {
		query = query.Limit(int(limit + 1))
	}

	if err := query.Find(&mCampaigns).Error; err != nil {
		return nil, nil, err
	}

	var hasNext bool
	if limit > 0 && len(mCampaigns) > int(limit) {
		hasNext = true
		mCampaigns = mCampaigns[:limit]
	}

	campaigns, err := r.withSteps(ctx, mCampaigns)
	if err != nil {
		return nil, nil, err
	}

	return campaigns, &Pagination{
		Page:    goutil.Uint32(page),
		Limit:   pagination.Limit, // may be nil
		HasNext: goutil.Bool(hasNext),
		Total:   goutil.Uint64(uint64(count)),
	}, nil
}

func (r *campaignRepo) GetActive(ctx context.Context) ([]*entity.Campaign, error) {
	mCampaigns := make([]*Campaign, 0)
	if err := r.baseRepo.DB(ctx).Where("is_active = ?", true).Find(&mCampaigns).Error; err != nil {
		return nil, err
	}
	return r.withSteps(ctx, mCampaigns)
}

func (r *campaignRepo) Update(ctx context.Context, campaign *entity.Campaign) error {
	campaignModel, err := ToCampaignModel(campaign)
	if err != nil {
		return err
	}
	campaignModel.ID = nil

	if err := r.baseRepo.DB(ctx).
		Model(&Campaign{}).
		Where("id = ?", campaign.GetID()).
		Updates(campaignModel).Error; err != nil {
		return err
	}

	r.baseCache.Del(ctx, campaignCachePrefix, campaign.GetID())

	return nil
}

func (r *campaignRepo) AppendStep(ctx context.Context, campaignID uint64, step *entity.Step) (uint64, error) {
	stepModel := ToCampaignStepModel(campaignID, step)
	if err := r.baseRepo.DB(ctx).Create(&stepModel).Error; err != nil {
		return 0, err
	}

	r.baseCache.Del(ctx, campaignCachePrefix, campaignID)

	return stepModel.GetID(), nil
}

// GetSteps always reads the DB so the counters are current, bypassing the
// campaign cache.
func (r *campaignRepo) GetSteps(ctx context.Context, campaignID uint64) ([]*entity.Step, error) {
	mSteps := make([]*CampaignStep, 0)
	if err := r.baseRepo.DB(ctx).
		Where("campaign_id = ?", campaignID).
		Order("step_index ASC").
		Find(&mSteps).Error; err != nil {
		return nil, err
	}

	steps := make([]*entity.Step, 0, len(mSteps))
	for _, mStep := range mSteps {
		steps = append(steps, ToCampaignStep(mStep))
	}

	return steps, nil
}

func (r *campaignRepo) IncrStepSentCount(ctx context.Context, campaignID uint64, stepIndex uint32) error {
	return r.incrStepCounter(ctx, campaignID, stepIndex, "sent_count")
}

func (r *campaignRepo) IncrStepEventCount(ctx context.Context, campaignID uint64, stepIndex uint32, event entity.Event) error {
	var column string
	switch event {
	case entity.EventOpened:
		column = "open_count"
	case entity.EventClicked:
		column = "click_count"
	case entity.EventReplied:
		column = "reply_count"
	default:
		// unsubscribes do not bump a per-step counter
		return nil
	}
	return r.incrStepCounter(ctx, campaignID, stepIndex, column)
}

func (r *campaignRepo) incrStepCounter(ctx context.Context, campaignID uint64, stepIndex uint32, column string) error {
	return r.baseRepo.DB(ctx).
		Model(&CampaignStep{}).
		Where("campaign_id = ? AND step_index = ?", campaignID, stepIndex).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
}

func (r *campaignRepo) Delete(ctx context.Context, id uint64) error {
	if err := r.baseRepo.RunTx(ctx, func(ctx context.Context) error {
		if err := r.baseRepo.DB(ctx).Where("campaign_id = ?", id).Delete(&CampaignStep{}).Error; err != nil {
			return err
		}
		return r.baseRepo.DB(ctx).Where("id = ?", id).Delete(&Campaign{}).Error
	}); err != nil {
		return err
	}

	r.baseCache.Del(ctx, campaignCachePrefix, id)

	return nil
}

func (r *campaignRepo) Close(ctx context.Context) error {
	if err := r.baseCache.Close(ctx); err != nil {
		return err
	}
	return r.baseRepo.Close(ctx)
}

func (r *campaignRepo) withSteps(ctx context.Context, mCampaigns []*Campaign) ([]*entity.Campaign, error) {
	campaigns := make([]*entity.Campaign, 0, len(mCampaigns))
	for _, mCampaign := range mCampaigns {
		steps, err := r.GetSteps(ctx, mCampaign.GetID())
		if err != nil {
			return nil, err
		}

		campaign, err := ToCampaign(mCampaign, steps)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}
	return campaigns, nil
}

func ToCampaignModel(campaign *entity.Campaign) (*Campaign, error) {
	criteria := config.EmptyJson
	if campaign.Criteria != nil {
		var err error
		criteria, err = json.Marshal(campaign.Criteria)
		if err != nil {
			return nil, err
		}
	}

	return &Campaign{
		ID:           campaign.ID,
		Name:         campaign.Name,
		CampaignDesc: campaign.CampaignDesc,
		IsActive:     campaign.IsActive,
		Criteria:     goutil.String(string(criteria)),
		CreateTime:   campaign.CreateTime,
		UpdateTime:   campaign.UpdateTime,
	}, nil
}

func ToCampaign(campaign *Campaign, steps []*entity.Step) (*entity.Campaign, error) {
	criteria := new(entity.Criteria)
	if err := json.Unmarshal([]byte(campaign.GetCriteria()), criteria); err != nil {
		return nil, err
	}

	return &entity.Campaign{
		ID:           campaign.ID,
		Name:         campaign.Name,
		CampaignDesc: campaign.CampaignDesc,
		IsActive:     campaign.IsActive,
		Criteria:     criteria,
		Steps:        steps,
		CreateTime:   campaign.CreateTime,
		UpdateTime:   campaign.UpdateTime,
	}, nil
}

func ToCampaignStepModel(campaignID uint64, step *entity.Step) *CampaignStep {
	return &CampaignStep{
		ID:         step.ID,
		CampaignID: goutil.Uint64(campaignID),
		StepIndex:  step.StepIndex,
		TemplateID: step.TemplateID,
		DelayDays:  step.DelayDays,
		DelayHours: step.DelayHours,
		SentCount:  goutil.Uint64(step.GetSentCount()),
		OpenCount:  goutil.Uint64(step.GetOpenCount()),
		ClickCount: goutil.Uint64(step.GetClickCount()),
		ReplyCount: goutil.Uint64(step.GetReplyCount()),
	}
}

func ToCampaignStep(step *CampaignStep) *entity.Step {
	return &entity.Step{
		ID:         step.ID,
		CampaignID: step.CampaignID,
		StepIndex:  step.StepIndex,
		TemplateID: step.TemplateID,
		DelayDays:  step.DelayDays,
		DelayHours: step.DelayHours,
		SentCount:  step.SentCount,
		OpenCount:  step.OpenCount,
		ClickCount: step.ClickCount,
		ReplyCount: step.ReplyCount,
	}
}
