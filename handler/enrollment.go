package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"outreach/entity"
	"outreach/pkg/errutil"
	"outreach/pkg/validator"
	"outreach/repo"
)

type EnrollmentHandler interface {
	GetEnrollments(ctx context.Context, req *GetEnrollmentsRequest, res *GetEnrollmentsResponse) error
	PauseEnrollment(ctx context.Context, req *PauseEnrollmentRequest, res *PauseEnrollmentResponse) error
	ResumeEnrollment(ctx context.Context, req *ResumeEnrollmentRequest, res *ResumeEnrollmentResponse) error
}

type enrollmentHandler struct {
	enrollmentRepo repo.EnrollmentRepo
}

func NewEnrollmentHandler(enrollmentRepo repo.EnrollmentRepo) EnrollmentHandler {
	return &enrollmentHandler{
		enrollmentRepo: enrollmentRepo,
	}
}

type GetEnrollmentsRequest struct {
	CampaignID *uint64          `json:"campaign_id,omitempty"`
	ProspectID *uint64          `json:"prospect_id,omitempty"`
	Status     *string          `json:"status,omitempty"`
	Pagination *repo.Pagination `json:"pagination,omitempty"`
}

type GetEnrollmentsResponse struct {
	Enrollments []*entity.Enrollment `json:"enrollments"`
	Pagination  *repo.Pagination     `json:"pagination,omitempty"`
}

var GetEnrollmentsValidator = validator.MustForm(map[string]validator.Validator{
	"campaign_id": &validator.UInt64{Optional: true},
	"prospect_id": &validator.UInt64{Optional: true},
	"status":      EnrollmentStatusValidator(true),
	"pagination":  PaginationValidator(),
})

func (h *enrollmentHandler) GetEnrollments(ctx context.Context, req *GetEnrollmentsRequest, res *GetEnrollmentsResponse) error {
	if err := GetEnrollmentsValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	if req.Pagination == nil {
		req.Pagination = new(repo.Pagination)
	}

	conditions := []*repo.Condition{
		{Field: "campaign_id", Op: repo.OpEq, Value: req.CampaignID},
		{Field: "prospect_id", Op: repo.OpEq, Value: req.ProspectID},
	}
	if req.Status != nil {
		conditions = append(conditions, &repo.Condition{
			Field: "status", Op: repo.OpEq,
			Value: uint32(entity.SupportedEnrollmentStatuses[*req.Status]),
		})
	}

	enrollments, pagination, err := h.enrollmentRepo.GetMany(ctx, &repo.Filter{
		Conditions: conditions,
		Pagination: req.Pagination,
	})
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get enrollments failed: %v", err)
		return err
	}

	res.Enrollments = enrollments
	res.Pagination = pagination

	return nil
}

type PauseEnrollmentRequest struct {
	EnrollmentID *uint64 `json:"enrollment_id,omitempty"`
}

func (r *PauseEnrollmentRequest) GetEnrollmentID() uint64 {
	if r != nil && r.EnrollmentID != nil {
		return *r.EnrollmentID
	}
	return 0
}

type PauseEnrollmentResponse struct {
	Enrollment *entity.Enrollment `json:"enrollment,omitempty"`
}

var PauseEnrollmentValidator = validator.MustForm(map[string]validator.Validator{
	"enrollment_id": &validator.UInt64{},
})

func (h *enrollmentHandler) PauseEnrollment(ctx context.Context, req *PauseEnrollmentRequest, res *PauseEnrollmentResponse) error {
	if err := PauseEnrollmentValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	enrollment, err := h.getEnrollment(ctx, req.GetEnrollmentID())
	if err != nil {
		return err
	}

	if enrollment.GetStatus().IsTerminal() {
		return errutil.ConflictError(
			fmt.Errorf("enrollment is %s, cannot pause", enrollment.GetStatus()))
	}

	if enrollment.GetStatus() != entity.EnrollmentStatusPaused {
		enrollment.Status = entity.EnrollmentStatusPaused
		if err := h.enrollmentRepo.UpdateState(ctx, enrollment); err != nil {
			log.Ctx(ctx).Error().Msgf("pause enrollment failed: %v", err)
			return err
		}
	}

	res.Enrollment = enrollment

	return nil
}

type ResumeEnrollmentRequest struct {
	EnrollmentID *uint64 `json:"enrollment_id,omitempty"`
}

func (r *ResumeEnrollmentRequest) GetEnrollmentID() uint64 {
	if r != nil && r.EnrollmentID != nil {
		return *r.EnrollmentID
	}
	return 0
}

type ResumeEnrollmentResponse struct {
	Enrollment *entity.Enrollment `json:"enrollment,omitempty"`
}

var ResumeEnrollmentValidator = validator.MustForm(map[string]validator.Validator{
	"enrollment_id": &validator.UInt64{},
})

// ResumeEnrollment is the only way back to ACTIVE, and only from PAUSED.
// Completed and unsubscribed enrollments never move again.
func (h *enrollmentHandler) ResumeEnrollment(ctx context.Context, req *ResumeEnrollmentRequest, res *ResumeEnrollmentResponse) error {
	if err := ResumeEnrollmentValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	enrollment, err := h.getEnrollment(ctx, req.GetEnrollmentID())
	if err != nil {
		return err
	}

	if enrollment.GetStatus() != entity.EnrollmentStatusPaused {
		return errutil.ConflictError(
			fmt.Errorf("enrollment is %s, only paused enrollments can resume", enrollment.GetStatus()))
	}

	enrollment.Status = entity.EnrollmentStatusActive
	if err := h.enrollmentRepo.UpdateState(ctx, enrollment); err != nil {
		log.Ctx(ctx).Error().Msgf("resume enrollment failed: %v", err)
		return err
	}

	res.Enrollment = enrollment

	return nil
}

func (h *enrollmentHandler) getEnrollment(ctx context.Context, id uint64) (*entity.Enrollment, error) {
	enrollment, err := h.enrollmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrEnrollmentNotFound) {
			return nil, errutil.NotFoundError(err)
		}
		log.Ctx(ctx).Error().Msgf("get enrollment failed: %v", err)
		return nil, err
	}
	return enrollment, nil
}
