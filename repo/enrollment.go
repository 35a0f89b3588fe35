package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"outreach/config"
	"outreach/entity"
	"outreach/pkg/goutil"
)

var (
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrEnrollmentExists   = errors.New("enrollment already exists")
)

// Enrollment carries a nullable active_key under a unique index. The key is
// "<campaign_id>:<prospect_id>" while the enrollment is non-terminal and NULL
// once it completes or unsubscribes, so at most one live enrollment exists
// per prospect per campaign while finished ones leave the slot free.
type Enrollment struct {
	ID               *uint64
	CampaignID       *uint64 `gorm:"index"`
	ProspectID       *uint64
	Status           *uint32
	CurrentStepIndex *uint32
	EnrolledAt       *uint64
	LastStepSentAt   *uint64
	ActiveKey        *string `gorm:"uniqueIndex"`
	UpdateTime       *uint64
}

func (m *Enrollment) TableName() string {
	return "enrollment_tab"
}

func (m *Enrollment) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

type EnrollmentRepo interface {
	Create(ctx context.Context, enrollment *entity.Enrollment) (uint64, error)
	GetByID(ctx context.Context, id uint64) (*entity.Enrollment, error)
	GetMany(ctx context.Context, f *Filter) ([]*entity.Enrollment, *Pagination, error)
	GetByStatus(ctx context.Context, status entity.EnrollmentStatus) ([]*entity.Enrollment, error)
	UpdateState(ctx context.Context, enrollment *entity.Enrollment) error
	CountByCampaign(ctx context.Context, campaignID uint64) (uint64, error)
	CountByCampaignAndStatus(ctx context.Context, campaignID uint64) (map[entity.EnrollmentStatus]uint64, error)
	Close(ctx context.Context) error
}

type enrollmentRepo struct {
	baseRepo BaseRepo
}

func NewEnrollmentRepo(ctx context.Context, mysqlCfg config.MySQL) (EnrollmentRepo, error) {
	baseRepo, err := NewBaseRepo(ctx, mysqlCfg)
	if err != nil {
		return nil, err
	}
	return &enrollmentRepo{baseRepo: baseRepo}, nil
}

func NewEnrollmentRepoWithBase(baseRepo BaseRepo) EnrollmentRepo {
	return &enrollmentRepo{baseRepo: baseRepo}
}

// Create relies on the active_key unique index for idempotent intake: a
// second live enrollment of the same prospect into the same campaign comes
// back as ErrEnrollmentExists, whether racing or repeated.
func (r *enrollmentRepo) Create(ctx context.Context, enrollment *entity.Enrollment) (uint64, error) {
	enrollmentModel := ToEnrollmentModel(enrollment)
	if !enrollment.GetStatus().IsTerminal() {
		enrollmentModel.ActiveKey = goutil.String(enrollment.ActiveKey())
	}

	if err := r.baseRepo.DB(ctx).Create(&enrollmentModel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, ErrEnrollmentExists
		}
		return 0, err
	}

	return enrollmentModel.GetID(), nil
}

func (r *enrollmentRepo) GetByID(ctx context.Context, id uint64) (*entity.Enrollment, error) {
	enrollmentModel := new(Enrollment)
	if err := r.baseRepo.DB(ctx).Where("id = ?", id).First(enrollmentModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}
	return ToEnrollment(enrollmentModel), nil
}

func (r *enrollmentRepo) GetMany(ctx context.Context, f *Filter) ([]*entity.Enrollment, *Pagination, error) {
	var (
		cond, args = ToSqlWithArgs(f.GetConditions())
		db         = r.baseRepo.DB(ctx)
	)

	var count int64
	if err := db.Model(&Enrollment{}).Where(cond, args...).Count(&count).Error; err != nil {
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
		offset       = (page - 1) * limit
		mEnrollments = make([]*Enrollment, 0)
	)
	query := db.Where(cond, args...).Offset(int(offset)).Order(f.GetOrderBy())
	if limit > 0 {
		query = query.Limit(int(limit + 1))
	}

	if err := query.Find(&mEnrollments).Error; err != nil {
		return nil, nil, err
	}

	var hasNext bool
	if limit > 0 && len(mEnrollments) > int(limit) {
		hasNext = true
		mEnrollments = mEnrollments[:limit]
	}

	enrollments := make([]*entity.Enrollment, 0, len(mEnrollments))
	for _, mEnrollment := range mEnrollments {
		enrollments = append(enrollments, ToEnrollment(mEnrollment))
	}

	return enrollments, &Pagination{
		Page:    goutil.Uint32(page),
		Limit:   pagination.Limit, // may be nil
		HasNext: goutil.Bool(hasNext),
		Total:   goutil.Uint64(uint64(count)),
	}, nil
}

func (r *enrollmentRepo) GetByStatus(ctx context.Context, status entity.EnrollmentStatus) ([]*entity.Enrollment, error) {
	mEnrollments := make([]*Enrollment, 0)
	if err := r.baseRepo.DB(ctx).
		Where("status = ?", uint32(status)).
		Order("id ASC").
		Find(&mEnrollments).Error; err != nil {
		return nil, err
	}

	enrollments := make([]*entity.Enrollment, 0, len(mEnrollments))
	for _, mEnrollment := range mEnrollments {
		enrollments = append(enrollments, ToEnrollment(mEnrollment))
	}

	return enrollments, nil
}

// UpdateState persists the enrollment's cursor and status. Moving into a
// terminal status clears active_key so the prospect can be enrolled again
// later.
func (r *enrollmentRepo) UpdateState(ctx context.Context, enrollment *entity.Enrollment) error {
	updates := map[string]interface{}{
		"status":             uint32(enrollment.GetStatus()),
		"current_step_index": enrollment.GetCurrentStepIndex(),
		"update_time":        uint64(time.Now().Unix()),
	}
	if enrollment.LastStepSentAt != nil {
		updates["last_step_sent_at"] = enrollment.GetLastStepSentAt()
	}
	if enrollment.GetStatus().IsTerminal() {
		updates["active_key"] = nil
	} else {
		updates["active_key"] = enrollment.ActiveKey()
	}

	return r.baseRepo.DB(ctx).
		Model(&Enrollment{}).
		Where("id = ?", enrollment.GetID()).
		Updates(updates).Error
}

func (r *enrollmentRepo) CountByCampaign(ctx context.Context, campaignID uint64) (uint64, error) {
	var count int64
	if err := r.baseRepo.DB(ctx).
		Model(&Enrollment{}).
		Where("campaign_id = ?", campaignID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return uint64(count), nil
}

func (r *enrollmentRepo) CountByCampaignAndStatus(ctx context.Context, campaignID uint64) (map[entity.EnrollmentStatus]uint64, error) {
	rows, err := r.baseRepo.DB(ctx).
		Model(&Enrollment{}).
		Select("status, COUNT(*) AS total").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Rows()
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[entity.EnrollmentStatus]uint64)
	for rows.Next() {
		var (
			status uint32
			total  uint64
		)
		if err := rows.Scan(&status, &total); err != nil {
			return nil, err
		}
		counts[entity.EnrollmentStatus(status)] = total
	}

	return counts, rows.Err()
}

func (r *enrollmentRepo) Close(ctx context.Context) error {
	return r.baseRepo.Close(ctx)
}

func ToEnrollmentModel(enrollment *entity.Enrollment) *Enrollment {
	var status *uint32
	if enrollment.Status != entity.EnrollmentStatusUnknown {
		status = goutil.Uint32(uint32(enrollment.Status))
	}

	return &Enrollment{
		ID:               enrollment.ID,
		CampaignID:       enrollment.CampaignID,
		ProspectID:       enrollment.ProspectID,
		Status:           status,
		CurrentStepIndex: enrollment.CurrentStepIndex,
		EnrolledAt:       enrollment.EnrolledAt,
		LastStepSentAt:   enrollment.LastStepSentAt,
		UpdateTime:       enrollment.UpdateTime,
	}
}

func ToEnrollment(enrollment *Enrollment) *entity.Enrollment {
	var status entity.EnrollmentStatus
	if enrollment.Status != nil {
		status = entity.EnrollmentStatus(*enrollment.Status)
	}

	return &entity.Enrollment{
		ID:               enrollment.ID,
		CampaignID:       enrollment.CampaignID,
		ProspectID:       enrollment.ProspectID,
		Status:           status,
		CurrentStepIndex: enrollment.CurrentStepIndex,
		EnrolledAt:       enrollment.EnrolledAt,
		LastStepSentAt:   enrollment.LastStepSentAt,
		UpdateTime:       enrollment.UpdateTime,
	}
}
