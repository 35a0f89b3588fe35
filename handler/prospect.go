package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"outreach/config"
	"outreach/entity"
	"outreach/pkg/errutil"
	"outreach/pkg/goutil"
	"outreach/pkg/validator"
	"outreach/repo"
)

type ProspectHandler interface {
	GetProspects(ctx context.Context, req *GetProspectsRequest, res *GetProspectsResponse) error
	CountProspects(ctx context.Context, req *CountProspectsRequest, res *CountProspectsResponse) error
	GetProspect(ctx context.Context, req *GetProspectRequest, res *GetProspectResponse) error
	CreateProspect(ctx context.Context, req *CreateProspectRequest, res *CreateProspectResponse) error
	UpdateProspect(ctx context.Context, req *UpdateProspectRequest, res *UpdateProspectResponse) error
	SearchProspects(ctx context.Context, req *SearchProspectsRequest, res *SearchProspectsResponse) error
}

type prospectHandler struct {
	cfg          *config.Config
	prospectRepo repo.ProspectRepo
	searchRepo   repo.SearchRepo
}

func NewProspectHandler(cfg *config.Config, prospectRepo repo.ProspectRepo, searchRepo repo.SearchRepo) ProspectHandler {
	return &prospectHandler{
		cfg:          cfg,
		prospectRepo: prospectRepo,
		searchRepo:   searchRepo,
	}
}

// ProspectFilter is the closed set of list predicates. Every field is
// optional; an unset field imposes no constraint. All set fields AND
// together, so the same filter always means the same row set for listing,
// counting, bulk-previewing and exporting.
type ProspectFilter struct {
	Keyword          *string  `json:"keyword,omitempty"`
	Statuses         []string `json:"statuses,omitempty"`
	MinScore         *uint32  `json:"min_score,omitempty"`
	MaxScore         *uint32  `json:"max_score,omitempty"`
	HasWebsite       *bool    `json:"has_website,omitempty"`
	WebsiteQualities []string `json:"website_qualities,omitempty"`
	Cities           []string `json:"cities,omitempty"`
	States           []string `json:"states,omitempty"`
	Categories       []string `json:"categories,omitempty"`
	Sources          []string `json:"sources,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	CreatedAfter     *uint64  `json:"created_after,omitempty"`
	CreatedBefore    *uint64  `json:"created_before,omitempty"`
	Emailed          *bool    `json:"emailed,omitempty"`
	Responded        *bool    `json:"responded,omitempty"`
	Archived         *bool    `json:"archived,omitempty"`
}

func (f *ProspectFilter) GetKeyword() string {
	if f != nil && f.Keyword != nil {
		return *f.Keyword
	}
	return ""
}

// ToConditions renders the filter into SQL predicates. Keyword expands to a
// parenthesized OR across name/company/email; each tag must be present in
// the JSON tags column (intersection).
func (f *ProspectFilter) ToConditions() []*repo.Condition {
	conditions := make([]*repo.Condition, 0)
	if f == nil {
		return conditions
	}

	if f.Keyword != nil && f.GetKeyword() != "" {
		kw := fmt.Sprintf("%%%s%%", strings.ToLower(f.GetKeyword()))
		conditions = append(conditions, &repo.Condition{
			Conditions: []*repo.Condition{
				{Field: "LOWER(name)", Op: repo.OpLike, Value: kw, NextLogicalOp: repo.Or},
				{Field: "LOWER(company)", Op: repo.OpLike, Value: kw, NextLogicalOp: repo.Or},
				{Field: "LOWER(email)", Op: repo.OpLike, Value: kw},
			},
		})
	}

	if len(f.Statuses) > 0 {
		statuses := make([]uint32, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, uint32(entity.SupportedProspectStatuses[s]))
		}
		conditions = append(conditions, &repo.Condition{
			Field: "status", Op: repo.OpIn, Value: statuses,
		})
	}

	if f.MinScore != nil {
		conditions = append(conditions, &repo.Condition{
			Field: "lead_score", Op: repo.OpGte, Value: *f.MinScore,
		})
	}
	if f.MaxScore != nil {
		conditions = append(conditions, &repo.Condition{
			Field: "lead_score", Op: repo.OpLte, Value: *f.MaxScore,
		})
	}

	if f.HasWebsite != nil {
		if *f.HasWebsite {
			conditions = append(conditions, &repo.Condition{
				Field: "website", Op: repo.OpNotEq, Value: "",
			})
		} else {
			conditions = append(conditions, &repo.Condition{
				Conditions: []*repo.Condition{
					{Field: "website", Op: repo.OpIsNull, NextLogicalOp: repo.Or},
					{Field: "website", Op: repo.OpEq, Value: ""},
				},
			})
		}
	}

	inFields := []struct {
		field  string
		values []string
	}{
		{"website_quality", f.WebsiteQualities},
		{"city", f.Cities},
		{"state", f.States},
		{"category", f.Categories},
		{"source", f.Sources},
	}
	for _, in := range inFields {
		if len(in.values) > 0 {
			conditions = append(conditions, &repo.Condition{
				Field: in.field, Op: repo.OpIn, Value: in.values,
			})
		}
	}

	for _, tag := range f.Tags {
		conditions = append(conditions, &repo.Condition{
			Field: "tags", Op: repo.OpLike, Value: fmt.Sprintf(`%%"%s"%%`, tag),
		})
	}

	if f.CreatedAfter != nil {
		conditions = append(conditions, &repo.Condition{
			Field: "create_time", Op: repo.OpGte, Value: *f.CreatedAfter,
		})
	}
	if f.CreatedBefore != nil {
		conditions = append(conditions, &repo.Condition{
			Field: "create_time", Op: repo.OpLte, Value: *f.CreatedBefore,
		})
	}

	nullFields := []struct {
		field string
		set   *bool
	}{
		{"email_sent_at", f.Emailed},
		{"replied_at", f.Responded},
	}
	for _, nf := range nullFields {
		if nf.set == nil {
			continue
		}
		op := repo.OpIsNull
		if *nf.set {
			op = repo.OpNotNull
		}
		conditions = append(conditions, &repo.Condition{Field: nf.field, Op: op})
	}

	if f.Archived != nil {
		conditions = append(conditions, &repo.Condition{
			Field: "is_archived", Op: repo.OpEq, Value: *f.Archived,
		})
	}

	return conditions
}

var ProspectFilterValidator = &optionalForm{form: validator.MustForm(map[string]validator.Validator{
	"keyword":           &validator.String{Optional: true, MaxLen: 120},
	"statuses":          &validator.Slice{Optional: true, Validator: ProspectStatusValidator(false)},
	"min_score":         ScoreValidator(true),
	"max_score":         ScoreValidator(true),
	"has_website":       &validator.Bool{Optional: true},
	"website_qualities": &validator.Slice{Optional: true, Validator: &validator.String{MinLen: 1, MaxLen: 60}},
	"cities":            &validator.Slice{Optional: true, Validator: &validator.String{MinLen: 1, MaxLen: 120}},
	"states":            &validator.Slice{Optional: true, Validator: &validator.String{MinLen: 1, MaxLen: 60}},
	"categories":        &validator.Slice{Optional: true, Validator: &validator.String{MinLen: 1, MaxLen: 120}},
	"sources":           &validator.Slice{Optional: true, Validator: &validator.String{MinLen: 1, MaxLen: 120}},
	"tags":              &validator.Slice{Optional: true, Validator: TagValidator()},
	"created_after":     &validator.UInt64{Optional: true},
	"created_before":    &validator.UInt64{Optional: true},
	"emailed":           &validator.Bool{Optional: true},
	"responded":         &validator.Bool{Optional: true},
	"archived":          &validator.Bool{Optional: true},
})}

// sortFieldColumns whitelists the sortable columns; anything else is a
// validation error, never raw SQL.
var sortFieldColumns = map[string]string{
	"name":           "name",
	"company":        "company",
	"lead_score":     "lead_score",
	"google_rating":  "google_rating",
	"annual_revenue": "annual_revenue",
	"employee_count": "employee_count",
	"create_time":    "create_time",
	"status":         "status",
}

type Sort struct {
	Field *string `json:"field,omitempty"`
	Desc  *bool   `json:"desc,omitempty"`
}

func (s *Sort) GetField() string {
	if s != nil && s.Field != nil {
		return *s.Field
	}
	return ""
}

func (s *Sort) GetDesc() bool {
	if s != nil && s.Desc != nil {
		return *s.Desc
	}
	return false
}

func (s *Sort) ToOrderBy() string {
	column, ok := sortFieldColumns[s.GetField()]
	if !ok {
		return ""
	}
	direction := "ASC"
	if s.GetDesc() {
		direction = "DESC"
	}
	return fmt.Sprintf("%s %s, id ASC", column, direction)
}

var SortValidator = &optionalForm{form: validator.MustForm(map[string]validator.Validator{
	"field": &supportedString{
		supported: func(s string) bool {
			_, ok := sortFieldColumns[s]
			return ok
		},
	},
	"desc": &validator.Bool{Optional: true},
})}

type GetProspectsRequest struct {
	Filter     *ProspectFilter  `json:"filter,omitempty"`
	Sort       *Sort            `json:"sort,omitempty"`
	Pagination *repo.Pagination `json:"pagination,omitempty"`
}

type GetProspectsResponse struct {
	Prospects  []*entity.Prospect `json:"prospects"`
	Pagination *repo.Pagination   `json:"pagination,omitempty"`
}

var GetProspectsValidator = validator.MustForm(map[string]validator.Validator{
	"filter":     ProspectFilterValidator,
	"sort":       SortValidator,
	"pagination": PaginationValidator(),
})

func (h *prospectHandler) GetProspects(ctx context.Context, req *GetProspectsRequest, res *GetProspectsResponse) error {
	if err := GetProspectsValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	if req.Pagination == nil {
		req.Pagination = new(repo.Pagination)
	}

	prospects, pagination, err := h.prospectRepo.GetMany(ctx, &repo.Filter{
		Conditions: req.Filter.ToConditions(),
		Pagination: req.Pagination,
		OrderBy:    req.Sort.ToOrderBy(),
	})
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get prospects failed: %v", err)
		return err
	}

	res.Prospects = prospects
	res.Pagination = pagination

	return nil
}

type CountProspectsRequest struct {
	Filter *ProspectFilter `json:"filter,omitempty"`
}

type CountProspectsResponse struct {
	Count *uint64 `json:"count,omitempty"`
}

var CountProspectsValidator = validator.MustForm(map[string]validator.Validator{
	"filter": ProspectFilterValidator,
})

func (h *prospectHandler) CountProspects(ctx context.Context, req *CountProspectsRequest, res *CountProspectsResponse) error {
	if err := CountProspectsValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	count, err := h.prospectRepo.Count(ctx, &repo.Filter{
		Conditions: req.Filter.ToConditions(),
	})
	if err != nil {
		log.Ctx(ctx).Error().Msgf("count prospects failed: %v", err)
		return err
	}

	res.Count = goutil.Uint64(count)

	return nil
}

type GetProspectRequest struct {
	ProspectID *uint64 `json:"prospect_id,omitempty" schema:"prospect_id"`
}

func (r *GetProspectRequest) GetProspectID() uint64 {
	if r != nil && r.ProspectID != nil {
		return *r.ProspectID
	}
	return 0
}

type GetProspectResponse struct {
	Prospect *entity.Prospect `json:"prospect,omitempty"`
}

var GetProspectValidator = validator.MustForm(map[string]validator.Validator{
	"prospect_id": &validator.UInt64{},
})

func (h *prospectHandler) GetProspect(ctx context.Context, req *GetProspectRequest, res *GetProspectResponse) error {
	if err := GetProspectValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	prospect, err := h.prospectRepo.GetByID(ctx, req.GetProspectID())
	if err != nil {
		if errors.Is(err, repo.ErrProspectNotFound) {
			return errutil.NotFoundError(err)
		}
		log.Ctx(ctx).Error().Msgf("get prospect failed: %v", err)
		return err
	}

	res.Prospect = prospect

	return nil
}

type CreateProspectRequest struct {
	Name           *string  `json:"name,omitempty"`
	Company        *string  `json:"company,omitempty"`
	Email          *string  `json:"email,omitempty"`
	Phone          *string  `json:"phone,omitempty"`
	Address        *string  `json:"address,omitempty"`
	City           *string  `json:"city,omitempty"`
	State          *string  `json:"state,omitempty"`
	Zip            *string  `json:"zip,omitempty"`
	Website        *string  `json:"website,omitempty"`
	WebsiteQuality *string  `json:"website_quality,omitempty"`
	Category       *string  `json:"category,omitempty"`
	Source         *string  `json:"source,omitempty"`
	GoogleRating   *float64 `json:"google_rating,omitempty"`
	AnnualRevenue  *uint64  `json:"annual_revenue,omitempty"`
	EmployeeCount  *uint32  `json:"employee_count,omitempty"`
	LeadScore      *uint32  `json:"lead_score,omitempty"`
	Status         *string  `json:"status,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	FollowUpAt     *uint64  `json:"follow_up_at,omitempty"`
}

func (r *CreateProspectRequest) ToProspect() *entity.Prospect {
	status := entity.ProspectStatusNew
	if r.Status != nil {
		status = entity.SupportedProspectStatuses[*r.Status]
	}

	now := uint64(time.Now().Unix())
	return &entity.Prospect{
		Name:           r.Name,
		Company:        r.Company,
		Email:          r.Email,
		Phone:          r.Phone,
		Address:        r.Address,
		City:           r.City,
		State:          r.State,
		Zip:            r.Zip,
		Website:        r.Website,
		WebsiteQuality: r.WebsiteQuality,
		Category:       r.Category,
		Source:         r.Source,
		GoogleRating:   r.GoogleRating,
		AnnualRevenue:  r.AnnualRevenue,
		EmployeeCount:  r.EmployeeCount,
		LeadScore:      r.LeadScore,
		Status:         status,
		Tags:           r.Tags,
		IsArchived:     goutil.Bool(false),
		FollowUpAt:     r.FollowUpAt,
		CreateTime:     goutil.Uint64(now),
		UpdateTime:     goutil.Uint64(now),
	}
}

type CreateProspectResponse struct {
	Prospect *entity.Prospect `json:"prospect,omitempty"`
}

var CreateProspectValidator = validator.MustForm(map[string]validator.Validator{
	"name":       ResourceNameValidator(false),
	"email":      EmailValidator(true),
	"lead_score": ScoreValidator(true),
	"status":     ProspectStatusValidator(true),
	"tags":       &validator.Slice{Optional: true, Validator: TagValidator()},
})

func (h *prospectHandler) CreateProspect(ctx context.Context, req *CreateProspectRequest, res *CreateProspectResponse) error {
	if err := CreateProspectValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	prospect := req.ToProspect()

	id, err := h.prospectRepo.Create(ctx, prospect)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("create prospect failed: %v", err)
		return err
	}

	prospect.ID = goutil.Uint64(id)
	res.Prospect = prospect

	h.indexProspect(ctx, prospect)

	return nil
}

type UpdateProspectRequest struct {
	ProspectID *uint64 `json:"prospect_id,omitempty"`

	Name           *string  `json:"name,omitempty"`
	Company        *string  `json:"company,omitempty"`
	Email          *string  `json:"email,omitempty"`
	Phone          *string  `json:"phone,omitempty"`
	Address        *string  `json:"address,omitempty"`
	City           *string  `json:"city,omitempty"`
	State          *string  `json:"state,omitempty"`
	Zip            *string  `json:"zip,omitempty"`
	Website        *string  `json:"website,omitempty"`
	WebsiteQuality *string  `json:"website_quality,omitempty"`
	Category       *string  `json:"category,omitempty"`
	Source         *string  `json:"source,omitempty"`
	GoogleRating   *float64 `json:"google_rating,omitempty"`
	AnnualRevenue  *uint64  `json:"annual_revenue,omitempty"`
	EmployeeCount  *uint32  `json:"employee_count,omitempty"`
	LeadScore      *uint32  `json:"lead_score,omitempty"`
	Status         *string  `json:"status,omitempty"`
	FollowUpAt     *uint64  `json:"follow_up_at,omitempty"`
}

func (r *UpdateProspectRequest) GetProspectID() uint64 {
	if r != nil && r.ProspectID != nil {
		return *r.ProspectID
	}
	return 0
}

type UpdateProspectResponse struct {
	Prospect *entity.Prospect `json:"prospect,omitempty"`
}

var UpdateProspectValidator = validator.MustForm(map[string]validator.Validator{
	"prospect_id": &validator.UInt64{},
	"name":        ResourceNameValidator(true),
	"email":       EmailValidator(true),
	"lead_score":  ScoreValidator(true),
	"status":      ProspectStatusValidator(true),
})

func (h *prospectHandler) UpdateProspect(ctx context.Context, req *UpdateProspectRequest, res *UpdateProspectResponse) error {
	if err := UpdateProspectValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	if _, err := h.prospectRepo.GetByID(ctx, req.GetProspectID()); err != nil {
		if errors.Is(err, repo.ErrProspectNotFound) {
			return errutil.NotFoundError(err)
		}
		return err
	}

	var status entity.ProspectStatus
	if req.Status != nil {
		status = entity.SupportedProspectStatuses[*req.Status]
	}

	update := &entity.Prospect{
		ID:             req.ProspectID,
		Name:           req.Name,
		Company:        req.Company,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		City:           req.City,
		State:          req.State,
		Zip:            req.Zip,
		Website:        req.Website,
		WebsiteQuality: req.WebsiteQuality,
		Category:       req.Category,
		Source:         req.Source,
		GoogleRating:   req.GoogleRating,
		AnnualRevenue:  req.AnnualRevenue,
		EmployeeCount:  req.EmployeeCount,
		LeadScore:      req.LeadScore,
		Status:         status,
		FollowUpAt:     req.FollowUpAt,
	}

	if err := h.prospectRepo.Update(ctx, update); err != nil {
		log.Ctx(ctx).Error().Msgf("update prospect failed: %v", err)
		return err
	}

	prospect, err := h.prospectRepo.GetByID(ctx, req.GetProspectID())
	if err != nil {
		return err
	}

	res.Prospect = prospect

	h.indexProspect(ctx, prospect)

	return nil
}

type SearchProspectsRequest struct {
	Keyword *string `json:"keyword,omitempty" schema:"keyword"`
	Limit   *uint32 `json:"limit,omitempty" schema:"limit"`
}

func (r *SearchProspectsRequest) GetKeyword() string {
	if r != nil && r.Keyword != nil {
		return *r.Keyword
	}
	return ""
}

func (r *SearchProspectsRequest) GetLimit() uint32 {
	if r != nil && r.Limit != nil {
		return *r.Limit
	}
	return 10
}

type SearchProspectsResponse struct {
	Prospects []*entity.Prospect `json:"prospects"`
}

var SearchProspectsValidator = validator.MustForm(map[string]validator.Validator{
	"keyword": &validator.String{MinLen: 1, MaxLen: 120},
	"limit":   &validator.UInt64{Optional: true, Max: goutil.Uint64(100)},
})

// SearchProspects is a best-effort suggestion endpoint over the search
// index. It returns hydrated rows in relevance order; the SQL filter path
// stays the source of truth for exact listing and counting.
func (h *prospectHandler) SearchProspects(ctx context.Context, req *SearchProspectsRequest, res *SearchProspectsResponse) error {
	if err := SearchProspectsValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	ids, err := h.searchRepo.Search(ctx, req.GetKeyword(), req.GetLimit())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("search prospects failed: %v", err)
		return err
	}

	res.Prospects = make([]*entity.Prospect, 0)
	if len(ids) == 0 {
		return nil
	}

	prospects, err := h.prospectRepo.GetByIDs(ctx, ids)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("hydrate search hits failed: %v", err)
		return err
	}

	byID := make(map[uint64]*entity.Prospect, len(prospects))
	for _, p := range prospects {
		byID[p.GetID()] = p
	}
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			res.Prospects = append(res.Prospects, p)
		}
	}

	return nil
}

func (h *prospectHandler) indexProspect(ctx context.Context, prospect *entity.Prospect) {
	if h.searchRepo == nil {
		return
	}
	if err := h.searchRepo.Index(ctx, prospect); err != nil {
		log.Ctx(ctx).Warn().Msgf("index prospect failed, id: %d, err: %v", prospect.GetID(), err)
	}
}
