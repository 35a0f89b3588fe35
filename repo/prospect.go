package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"outreach/config"
	"outreach/entity"
	"outreach/pkg/goutil"
)

var (
	ErrProspectNotFound = errors.New("prospect not found")
)

type Prospect struct {
	ID             *uint64
	Name           *string
	Company        *string
	Email          *string
	Phone          *string
	Address        *string
	City           *string
	State          *string
	Zip            *string
	Website        *string
	WebsiteQuality *string
	Category       *string
	Source         *string
	GoogleRating   *float64
	AnnualRevenue  *uint64
	EmployeeCount  *uint32
	LeadScore      *uint32
	Status         *uint32
	Tags           *string
	IsArchived     *bool
	EmailSentAt    *uint64
	EmailOpenedAt  *uint64
	RepliedAt      *uint64
	UnsubscribedAt *uint64
	FollowUpAt     *uint64
	CreateTime     *uint64
	UpdateTime     *uint64
}

func (m *Prospect) TableName() string {
	return "prospect_tab"
}

func (m *Prospect) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

func (m *Prospect) GetTags() string {
	if m != nil && m.Tags != nil {
		return *m.Tags
	}
	return ""
}

type ProspectRepo interface {
	Create(ctx context.Context, prospect *entity.Prospect) (uint64, error)
	GetByID(ctx context.Context, id uint64) (*entity.Prospect, error)
	GetByIDs(ctx context.Context, ids []uint64) ([]*entity.Prospect, error)
	GetMany(ctx context.Context, f *Filter) ([]*entity.Prospect, *Pagination, error)
	Count(ctx context.Context, f *Filter) (uint64, error)
	Update(ctx context.Context, prospect *entity.Prospect) error
	UpdateTags(ctx context.Context, id uint64, addTags, removeTags []string) error
	BatchDelete(ctx context.Context, ids []uint64) error
	Close(ctx context.Context) error
}

type prospectRepo struct {
	baseRepo BaseRepo
}

func NewProspectRepo(ctx context.Context, mysqlCfg config.MySQL) (ProspectRepo, error) {
	baseRepo, err := NewBaseRepo(ctx, mysqlCfg)
	if err != nil {
		return nil, err
	}
	return &prospectRepo{baseRepo: baseRepo}, nil
}

func NewProspectRepoWithBase(baseRepo BaseRepo) ProspectRepo {
	return &prospectRepo{baseRepo: baseRepo}
}

func (r *prospectRepo) Create(ctx context.Context, prospect *entity.Prospect) (uint64, error) {
	prospectModel, err := ToProspectModel(prospect)
	if err != nil {
		return 0, err
	}

	if prospectModel.Tags == nil {
		prospectModel.Tags = goutil.String(string(config.EmptyJsonArr))
	}

	if err := r.baseRepo.DB(ctx).Create(&prospectModel).Error; err != nil {
		return 0, err
	}

	return prospectModel.GetID(), nil
}

func (r *prospectRepo) GetByID(ctx context.Context, id uint64) (*entity.Prospect, error) {
	prospectModel := new(Prospect)
	if err := r.baseRepo.DB(ctx).Where("id = ?", id).First(prospectModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProspectNotFound
		}
		return nil, err
	}
	return ToProspect(prospectModel)
}

func (r *prospectRepo) GetByIDs(ctx context.Context, ids []uint64) ([]*entity.Prospect, error) {
	mProspects := make([]*Prospect, 0)
	if err := r.baseRepo.DB(ctx).Where("id IN ?", ids).Find(&mProspects).Error; err != nil {
		return nil, err
	}

	prospects := make([]*entity.Prospect, 0, len(mProspects))
	for _, mProspect := range mProspects {
		prospect, err := ToProspect(mProspect)
		if err != nil {
			return nil, err
		}
		prospects = append(prospects, prospect)
	}

	return prospects, nil
}

func (r *prospectRepo) GetMany(ctx context.Context, f *Filter) ([]*entity.Prospect, *Pagination, error) {
	var (
		cond, args = ToSqlWithArgs(f.GetConditions())
		db         = r.baseRepo.DB(ctx)
	)

	var count int64
	if err := db.Model(&Prospect{}).Where(cond, args...).Count(&count).Error; err != nil {
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
		mProspects = make([]*Prospect, 0)
	)
	query := db.Where(cond, args...).Offset(int(offset)).Order(f.GetOrderBy())
	if limit > 0 {
		query = query.Limit(int(limit + 1))
	}

	if err := query.Find(&mProspects).Error; err != nil {
		return nil, nil, err
	}

	var hasNext bool
	if limit > 0 && len(mProspects) > int(limit) {
		hasNext = true
		mProspects = mProspects[:limit]
	}

	prospects := make([]*entity.Prospect, 0, len(mProspects))
	for _, mProspect := range mProspects {
		prospect, err := ToProspect(mProspect)
		if err != nil {
			return nil, nil, err
		}
		prospects = append(prospects, prospect)
	}

	return prospects, &Pagination{
		Page:    goutil.Uint32(page),
		Limit:   pagination.Limit, // may be nil
		HasNext: goutil.Bool(hasNext),
		Total:   goutil.Uint64(uint64(count)),
	}, nil
}

func (r *prospectRepo) Count(ctx context.Context, f *Filter) (uint64, error) {
	cond, args := ToSqlWithArgs(f.GetConditions())

	var count int64
	if err := r.baseRepo.DB(ctx).Model(&Prospect{}).Where(cond, args...).Count(&count).Error; err != nil {
		return 0, err
	}
	return uint64(count), nil
}

func (r *prospectRepo) Update(ctx context.Context, prospect *entity.Prospect) error {
	prospectModel, err := ToProspectModel(prospect)
	if err != nil {
		return err
	}
	prospectModel.ID = nil
	prospectModel.UpdateTime = goutil.Uint64(uint64(time.Now().Unix()))

	return r.baseRepo.DB(ctx).
		Model(&Prospect{}).
		Where("id = ?", prospect.GetID()).
		Updates(prospectModel).Error
}

// UpdateTags does a read-modify-write inside a transaction so that tag sets
// on the same row never clobber each other.
func (r *prospectRepo) UpdateTags(ctx context.Context, id uint64, addTags, removeTags []string) error {
	return r.baseRepo.RunTx(ctx, func(ctx context.Context) error {
		prospectModel := new(Prospect)
		if err := r.baseRepo.DB(ctx).Where("id = ?", id).First(prospectModel).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProspectNotFound
			}
			return err
		}

		tags := make([]string, 0)
		if prospectModel.Tags != nil {
			if err := json.Unmarshal([]byte(prospectModel.GetTags()), &tags); err != nil {
				return err
			}
		}

		tags = goutil.UnionStr(tags, addTags)
		tags = goutil.DiffStr(tags, removeTags)

		b, err := json.Marshal(tags)
		if err != nil {
			return err
		}

		return r.baseRepo.DB(ctx).
			Model(&Prospect{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"tags":        string(b),
				"update_time": uint64(time.Now().Unix()),
			}).Error
	})
}

// BatchDelete removes the rows in one transaction: the batch either fully
// applies or not at all.
func (r *prospectRepo) BatchDelete(ctx context.Context, ids []uint64) error {
	return r.baseRepo.RunTx(ctx, func(ctx context.Context) error {
		return r.baseRepo.DB(ctx).Where("id IN ?", ids).Delete(&Prospect{}).Error
	})
}

func (r *prospectRepo) Close(ctx context.Context) error {
	return r.baseRepo.Close(ctx)
}

// ToProspectModel leaves Tags nil when unset so that partial updates do not
// clobber the stored tag set.
func ToProspectModel(prospect *entity.Prospect) (*Prospect, error) {
	var tags *string
	if prospect.Tags != nil {
		b, err := json.Marshal(prospect.Tags)
		if err != nil {
			return nil, err
		}
		tags = goutil.String(string(b))
	}

	var status *uint32
	if prospect.Status != entity.ProspectStatusUnknown {
		status = goutil.Uint32(uint32(prospect.Status))
	}

	return &Prospect{
		ID:             prospect.ID,
		Name:           prospect.Name,
		Company:        prospect.Company,
		Email:          prospect.Email,
		Phone:          prospect.Phone,
		Address:        prospect.Address,
		City:           prospect.City,
		State:          prospect.State,
		Zip:            prospect.Zip,
		Website:        prospect.Website,
		WebsiteQuality: prospect.WebsiteQuality,
		Category:       prospect.Category,
		Source:         prospect.Source,
		GoogleRating:   prospect.GoogleRating,
		AnnualRevenue:  prospect.AnnualRevenue,
		EmployeeCount:  prospect.EmployeeCount,
		LeadScore:      prospect.LeadScore,
		Status:         status,
		Tags:           tags,
		IsArchived:     prospect.IsArchived,
		EmailSentAt:    prospect.EmailSentAt,
		EmailOpenedAt:  prospect.EmailOpenedAt,
		RepliedAt:      prospect.RepliedAt,
		UnsubscribedAt: prospect.UnsubscribedAt,
		FollowUpAt:     prospect.FollowUpAt,
		CreateTime:     prospect.CreateTime,
		UpdateTime:     prospect.UpdateTime,
	}, nil
}

func ToProspect(prospect *Prospect) (*entity.Prospect, error) {
	tags := make([]string, 0)
	if prospect.Tags != nil {
		if err := json.Unmarshal([]byte(prospect.GetTags()), &tags); err != nil {
			return nil, err
		}
	}

	var status entity.ProspectStatus
	if prospect.Status != nil {
		status = entity.ProspectStatus(*prospect.Status)
	}

	return &entity.Prospect{
		ID:             prospect.ID,
		Name:           prospect.Name,
		Company:        prospect.Company,
		Email:          prospect.Email,
		Phone:          prospect.Phone,
		Address:        prospect.Address,
		City:           prospect.City,
		State:          prospect.State,
		Zip:            prospect.Zip,
		Website:        prospect.Website,
		WebsiteQuality: prospect.WebsiteQuality,
		Category:       prospect.Category,
		Source:         prospect.Source,
		GoogleRating:   prospect.GoogleRating,
		AnnualRevenue:  prospect.AnnualRevenue,
		EmployeeCount:  prospect.EmployeeCount,
		LeadScore:      prospect.LeadScore,
		Status:         status,
		Tags:           tags,
		IsArchived:     prospect.IsArchived,
		EmailSentAt:    prospect.EmailSentAt,
		EmailOpenedAt:  prospect.EmailOpenedAt,
		RepliedAt:      prospect.RepliedAt,
		UnsubscribedAt: prospect.UnsubscribedAt,
		FollowUpAt:     prospect.FollowUpAt,
		CreateTime:     prospect.CreateTime,
		UpdateTime:     prospect.UpdateTime,
	}, nil
}
