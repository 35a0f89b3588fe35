package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"outreach/config"
	"outreach/entity"
)

var (
	ErrDuplicateExecution = errors.New("step already executed")
	ErrExecutionNotFound  = errors.New("step execution not found")
)

// StepExecution is append-only. The (enrollment_id, step_index) unique index
// is what makes step sends at-most-once: a concurrent scheduler pass that
// loses the insert race gets ErrDuplicateExecution and must not send again.
type StepExecution struct {
	ID           *uint64
	CampaignID   *uint64 `gorm:"index"`
	EnrollmentID *uint64 `gorm:"uniqueIndex:uidx_enrollment_step"`
	ProspectID   *uint64
	StepIndex    *uint32 `gorm:"uniqueIndex:uidx_enrollment_step"`
	SentAt       *uint64
}

func (m *StepExecution) TableName() string {
	return "step_execution_tab"
}

func (m *StepExecution) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

type StepExecutionRepo interface {
	Create(ctx context.Context, execution *entity.StepExecution) (uint64, error)
	Get(ctx context.Context, enrollmentID uint64, stepIndex uint32) (*entity.StepExecution, error)
	Exists(ctx context.Context, enrollmentID uint64, stepIndex uint32) (bool, error)
	Delete(ctx context.Context, enrollmentID uint64, stepIndex uint32) error
	Close(ctx context.Context) error
}

type stepExecutionRepo struct {
	baseRepo BaseRepo
}

func NewStepExecutionRepo(ctx context.Context, mysqlCfg config.MySQL) (StepExecutionRepo, error) {
	baseRepo, err := NewBaseRepo(ctx, mysqlCfg)
	if err != nil {
		return nil, err
	}
	return &stepExecutionRepo{baseRepo: baseRepo}, nil
}

func NewStepExecutionRepoWithBase(baseRepo BaseRepo) StepExecutionRepo {
	return &stepExecutionRepo{baseRepo: baseRepo}
}

func (r *stepExecutionRepo) Create(ctx context.Context, execution *entity.StepExecution) (uint64, error) {
	executionModel := ToStepExecutionModel(execution)
	if err := r.baseRepo.DB(ctx).Create(&executionModel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, ErrDuplicateExecution
		}
		return 0, err
	}
	return executionModel.GetID(), nil
}

func (r *stepExecutionRepo) Get(ctx context.Context, enrollmentID uint64, stepIndex uint32) (*entity.StepExecution, error) {
	executionModel := new(StepExecution)
	if err := r.baseRepo.DB(ctx).
		Where("enrollment_id = ? AND step_index = ?", enrollmentID, stepIndex).
		First(executionModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExecutionNotFound
		}
		return nil, err
	}
	return ToStepExecution(executionModel), nil
}

func (r *stepExecutionRepo) Exists(ctx context.Context, enrollmentID uint64, stepIndex uint32) (bool, error) {
	var count int64
	if err := r.baseRepo.DB(ctx).
		Model(&StepExecution{}).
		Where("enrollment_id = ? AND step_index = ?", enrollmentID, stepIndex).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete releases a send claim whose delivery failed, so the step stays due
// for the next pass.
func (r *stepExecutionRepo) Delete(ctx context.Context, enrollmentID uint64, stepIndex uint32) error {
	return r.baseRepo.DB(ctx).
		Where("enrollment_id = ? AND step_index = ?", enrollmentID, stepIndex).
		Delete(&StepExecution{}).Error
}

func (r *stepExecutionRepo) Close(ctx context.Context) error {
	return r.baseRepo.Close(ctx)
}

func ToStepExecutionModel(execution *entity.StepExecution) *StepExecution {
	return &StepExecution{
		ID:           execution.ID,
		CampaignID:   execution.CampaignID,
		EnrollmentID: execution.EnrollmentID,
		ProspectID:   execution.ProspectID,
		StepIndex:    execution.StepIndex,
		SentAt:       execution.SentAt,
	}
}

func ToStepExecution(execution *StepExecution) *entity.StepExecution {
	return &entity.StepExecution{
		ID:           execution.ID,
		CampaignID:   execution.CampaignID,
		EnrollmentID: execution.EnrollmentID,
		ProspectID:   execution.ProspectID,
		StepIndex:    execution.StepIndex,
		SentAt:       execution.SentAt,
	}
}
