package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"outreach/entity"
	"outreach/pkg/errutil"
	"outreach/pkg/goutil"
	"outreach/pkg/validator"
	"outreach/repo"
)

type CampaignHandler interface {
	CreateCampaign(ctx context.Context, req *CreateCampaignRequest, res *CreateCampaignResponse) error
	GetCampaign(ctx context.Context, req *GetCampaignRequest, res *GetCampaignResponse) error
	GetCampaigns(ctx context.Context, req *GetCampaignsRequest, res *GetCampaignsResponse) error
	ActivateCampaign(ctx context.Context, req *ActivateCampaignRequest, res *ActivateCampaignResponse) error
	DeactivateCampaign(ctx context.Context, req *DeactivateCampaignRequest, res *DeactivateCampaignResponse) error
	AppendStep(ctx context.Context, req *AppendStepRequest, res *AppendStepResponse) error
	DeleteCampaign(ctx context.Context, req *DeleteCampaignRequest, res *DeleteCampaignResponse) error
}

type campaignHandler struct {
	campaignRepo   repo.CampaignRepo
	enrollmentRepo repo.EnrollmentRepo
}

func NewCampaignHandler(campaignRepo repo.CampaignRepo, enrollmentRepo repo.EnrollmentRepo) CampaignHandler {
	return &campaignHandler{
		campaignRepo:   campaignRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

type CreateCampaignRequest struct {
	Name         *string          `json:"name,omitempty"`
	CampaignDesc *string          `json:"campaign_desc,omitempty"`
	Criteria     *entity.Criteria `json:"criteria,omitempty"`
	Steps        []*entity.Step   `json:"steps,omitempty"`
}

func (r *CreateCampaignRequest) ToCampaign() *entity.Campaign {
	if r.Criteria == nil {
		r.Criteria = new(entity.Criteria)
	}
	now := uint64(time.Now().Unix())
	return &entity.Campaign{
		Name:         r.Name,
		CampaignDesc: r.CampaignDesc,
		IsActive:     goutil.Bool(false),
		Criteria:     r.Criteria,
		Steps:        r.Steps,
		CreateTime:   goutil.Uint64(now),
		UpdateTime:   goutil.Uint64(now),
	}
}

type CreateCampaignResponse struct {
	Campaign *entity.Campaign `json:"campaign,omitempty"`
}

var CreateCampaignValidator = validator.MustForm(map[string]validator.Validator{
	"name":          ResourceNameValidator(false),
	"campaign_desc": ResourceDescValidator(),
	"criteria":      CriteriaValidator(),
	"steps":         &validator.Slice{MinLen: 1, Validator: StepValidator()},
})

func CriteriaValidator() validator.Validator {
	return &optionalForm{form: validator.MustForm(map[string]validator.Validator{
		"statuses":  &validator.Slice{Optional: true, Validator: ProspectStatusValidator(false)},
		"tags":      &validator.Slice{Optional: true, Validator: TagValidator()},
		"min_score": ScoreValidator(true),
		"max_score": ScoreValidator(true),
	})}
}

// CreateCampaign stores the definition inactive. Step layout is validated
// here and again at activation, so a campaign can never start sending with a
// broken sequence.
func (h *campaignHandler) CreateCampaign(ctx context.Context, req *CreateCampaignRequest, res *CreateCampaignResponse) error {
	if err := CreateCampaignValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	campaign := req.ToCampaign()
	if err := campaign.ValidateSteps(); err != nil {
		return errutil.ValidationError(err)
	}

	id, err := h.campaignRepo.Create(ctx, campaign)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("create campaign failed: %v", err)
		return err
	}

	campaign.ID = goutil.Uint64(id)
	res.Campaign = campaign

	return nil
}

type GetCampaignRequest struct {
	CampaignID *uint64 `json:"campaign_id,omitempty" schema:"campaign_id"`
}

func (r *GetCampaignRequest) GetCampaignID() uint64 {
	if r != nil && r.CampaignID != nil {
		return *r.CampaignID
	}
	return 0
}

type GetCampaignResponse struct {
	Campaign *entity.Campaign `json:"campaign,omitempty"`
}

var GetCampaignValidator = validator.MustForm(map[string]validator.Validator{
	"campaign_id": &validator.UInt64{},
})

func (h *campaignHandler) GetCampaign(ctx context.Context, req *GetCampaignRequest, res *GetCampaignResponse) error {
	if err := GetCampaignValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	campaign, err := h.getCampaign(ctx, req.GetCampaignID())
	if err != nil {
		return err
	}

	// steps re-read uncached so counters are current
	steps, err := h.campaignRepo.GetSteps(ctx, req.GetCampaignID())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaign steps failed: %v", err)
		return err
	}
	campaign.Steps = steps

	res.Campaign = campaign

	return nil
}

type GetCampaignsRequest struct {
	Keyword    *string          `json:"keyword,omitempty"`
	ActiveOnly *bool            `json:"active_only,omitempty"`
	Pagination *repo.Pagination `json:"pagination,omitempty"`
}

func (r *GetCampaignsRequest) GetKeyword() string {
	if r != nil && r.Keyword != nil {
		return *r.Keyword
	}
	return ""
}

func (r *GetCampaignsRequest) GetActiveOnly() bool {
	if r != nil && r.ActiveOnly != nil {
		return *r.ActiveOnly
	}
	return false
}

type GetCampaignsResponse struct {
	Campaigns  []*entity.Campaign `json:"campaigns"`
	Pagination *repo.Pagination   `json:"pagination,omitempty"`
}

var GetCampaignsValidator = validator.MustForm(map[string]validator.Validator{
	"keyword":     &validator.String{Optional: true, MaxLen: 120},
	"active_only": &validator.Bool{Optional: true},
	"pagination":  PaginationValidator(),
})

func (h *campaignHandler) GetCampaigns(ctx context.Context, req *GetCampaignsRequest, res *GetCampaignsResponse) error {
	if err := GetCampaignsValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	if req.Pagination == nil {
		req.Pagination = new(repo.Pagination)
	}

	conditions := make([]*repo.Condition, 0)
	if req.GetKeyword() != "" {
		conditions = append(conditions, &repo.Condition{
			Field: "LOWER(name)", Op: repo.OpLike,
			Value: fmt.Sprintf("%%%s%%", req.GetKeyword()),
		})
	}
	if req.GetActiveOnly() {
		conditions = append(conditions, &repo.Condition{
			Field: "is_active", Op: repo.OpEq, Value: true,
		})
	}

	campaigns, pagination, err := h.campaignRepo.GetMany(ctx, &repo.Filter{
		Conditions: conditions,
		Pagination: req.Pagination,
	})
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaigns failed: %v", err)
		return err
	}

	res.Campaigns = campaigns
	res.Pagination = pagination

	return nil
}

type ActivateCampaignRequest struct {
	CampaignID *uint64 `json:"campaign_id,omitempty"`
}

func (r *ActivateCampaignRequest) GetCampaignID() uint64 {
	if r != nil && r.CampaignID != nil {
		return *r.CampaignID
	}
	return 0
}

type ActivateCampaignResponse struct {
	Campaign *entity.Campaign `json:"campaign,omitempty"`
}

var ActivateCampaignValidator = validator.MustForm(map[string]validator.Validator{
	"campaign_id": &validator.UInt64{},
})

func (h *campaignHandler) ActivateCampaign(ctx context.Context, req *ActivateCampaignRequest, res *ActivateCampaignResponse) error {
	if err := ActivateCampaignValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}
	return h.setActive(ctx, req.GetCampaignID(), true, &res.Campaign)
}

type DeactivateCampaignRequest struct {
	CampaignID *uint64 `json:"campaign_id,omitempty"`
}

func (r *DeactivateCampaignRequest) GetCampaignID() uint64 {
	if r != nil && r.CampaignID != nil {
		return *r.CampaignID
	}
	return 0
}

type DeactivateCampaignResponse struct {
	Campaign *entity.Campaign `json:"campaign,omitempty"`
}

var DeactivateCampaignValidator = validator.MustForm(map[string]validator.Validator{
	"campaign_id": &validator.UInt64{},
})

func (h *campaignHandler) DeactivateCampaign(ctx context.Context, req *DeactivateCampaignRequest, res *DeactivateCampaignResponse) error {
	if err := DeactivateCampaignValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}
	return h.setActive(ctx, req.GetCampaignID(), false, &res.Campaign)
}

func (h *campaignHandler) setActive(ctx context.Context, campaignID uint64, active bool, out **entity.Campaign) error {
	campaign, err := h.getCampaign(ctx, campaignID)
	if err != nil {
		return err
	}

	if active {
		if err := campaign.ValidateSteps(); err != nil {
			return errutil.ValidationError(err)
		}
	}

	campaign.Update(&entity.Campaign{
		IsActive:   goutil.Bool(active),
		UpdateTime: goutil.Uint64(uint64(time.Now().Unix())),
	})

	if err := h.campaignRepo.Update(ctx, campaign); err != nil {
		log.Ctx(ctx).Error().Msgf("update campaign failed: %v", err)
		return err
	}

	*out = campaign

	return nil
}

type AppendStepRequest struct {
	CampaignID *uint64      `json:"campaign_id,omitempty"`
	Step       *entity.Step `json:"step,omitempty"`
}

func (r *AppendStepRequest) GetCampaignID() uint64 {
	if r != nil && r.CampaignID != nil {
		return *r.CampaignID
	}
	return 0
}

type AppendStepResponse struct {
	Step *entity.Step `json:"step,omitempty"`
}

var AppendStepValidator = validator.MustForm(map[string]validator.Validator{
	"campaign_id": &validator.UInt64{},
	"step":        StepValidator(),
})

// AppendStep grows a sequence at the tail only. Existing steps are immutable
// once enrollments may reference them; the new index must be exactly
// last+1 so the layout invariant survives without rewrites.
func (h *campaignHandler) AppendStep(ctx context.Context, req *AppendStepRequest, res *AppendStepResponse) error {
	if err := AppendStepValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	campaign, err := h.getCampaign(ctx, req.GetCampaignID())
	if err != nil {
		return err
	}

	wantIndex := campaign.LastStepIndex() + 1
	if len(campaign.GetSteps()) == 0 {
		wantIndex = 0
	}
	if req.Step.GetStepIndex() != wantIndex {
		return errutil.ValidationError(
			fmt.Errorf("%w: step index must be %d", entity.ErrInvalidCampaignDefinition, wantIndex))
	}

	id, err := h.campaignRepo.AppendStep(ctx, req.GetCampaignID(), req.Step)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("append step failed: %v", err)
		return err
	}

	req.Step.ID = goutil.Uint64(id)
	req.Step.CampaignID = goutil.Uint64(req.GetCampaignID())
	res.Step = req.Step

	return nil
}

type DeleteCampaignRequest struct {
	CampaignID *uint64 `json:"campaign_id,omitempty"`
}

func (r *DeleteCampaignRequest) GetCampaignID() uint64 {
	if r != nil && r.CampaignID != nil {
		return *r.CampaignID
	}
	return 0
}

type DeleteCampaignResponse struct{}

var DeleteCampaignValidator = validator.MustForm(map[string]validator.Validator{
	"campaign_id": &validator.UInt64{},
})

// DeleteCampaign refuses when any enrollment exists, in any status: history
// must stay explicable. Deactivation is the reversible alternative.
func (h *campaignHandler) DeleteCampaign(ctx context.Context, req *DeleteCampaignRequest, res *DeleteCampaignResponse) error {
	if err := DeleteCampaignValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	if _, err := h.getCampaign(ctx, req.GetCampaignID()); err != nil {
		return err
	}

	count, err := h.enrollmentRepo.CountByCampaign(ctx, req.GetCampaignID())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("count enrollments failed: %v", err)
		return err
	}
	if count > 0 {
		return errutil.ConflictError(entity.ErrCampaignInUse)
	}

	if err := h.campaignRepo.Delete(ctx, req.GetCampaignID()); err != nil {
		log.Ctx(ctx).Error().Msgf("delete campaign failed: %v", err)
		return err
	}

	return nil
}

func (h *campaignHandler) getCampaign(ctx context.Context, campaignID uint64) (*entity.Campaign, error) {
	campaign, err := h.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repo.ErrCampaignNotFound) {
			return nil, errutil.NotFoundError(err)
		}
		log.Ctx(ctx).Error().Msgf("get campaign failed: %v", err)
		return nil, err
	}
	return campaign, nil
}
