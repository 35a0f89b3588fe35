package handler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"outreach/config"
	"outreach/entity"
	"outreach/pkg/errutil"
	"outreach/pkg/goutil"
	"outreach/pkg/validator"
	"outreach/repo"
)

const maxBulkIDs = 10000

type BulkHandler interface {
	BulkUpdateProspects(ctx context.Context, req *BulkUpdateProspectsRequest, res *BulkUpdateProspectsResponse) error
}

type bulkHandler struct {
	cfg          *config.Config
	prospectRepo repo.ProspectRepo
}

func NewBulkHandler(cfg *config.Config, prospectRepo repo.ProspectRepo) BulkHandler {
	return &bulkHandler{
		cfg:          cfg,
		prospectRepo: prospectRepo,
	}
}

type BulkUpdateProspectsRequest struct {
	Action      *string  `json:"action,omitempty"`
	ProspectIDs []uint64 `json:"prospect_ids,omitempty"`

	// action params
	Status     *string  `json:"status,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	FollowUpAt *uint64  `json:"follow_up_at,omitempty"`
}

func (r *BulkUpdateProspectsRequest) GetAction() entity.BulkAction {
	if r != nil && r.Action != nil {
		return entity.SupportedBulkActions[*r.Action]
	}
	return entity.BulkActionUnknown
}

type BulkUpdateProspectsResponse struct {
	Result *entity.BulkResult `json:"result,omitempty"`
}

var BulkUpdateProspectsValidator = validator.MustForm(map[string]validator.Validator{
	"action":       BulkActionValidator(),
	"prospect_ids": &validator.Slice{MinLen: 1, MaxLen: maxBulkIDs, Validator: &validator.UInt64{}},
	"status":       ProspectStatusValidator(true),
	"tags":         &validator.Slice{Optional: true, Validator: TagValidator()},
})

// BulkUpdateProspects applies one action to a set of prospects.
//
// The destructive action (delete) is all-or-nothing: over the safety cap the
// whole batch is rejected with zero mutations, under it the deletion runs in
// one transaction. Non-destructive actions run per item so one bad ID cannot
// sink the rest; failures are reported per item in the result.
func (h *bulkHandler) BulkUpdateProspects(ctx context.Context, req *BulkUpdateProspectsRequest, res *BulkUpdateProspectsResponse) error {
	if err := BulkUpdateProspectsValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	action := req.GetAction()

	switch action {
	case entity.BulkActionSetStatus:
		if req.Status == nil {
			return errutil.ValidationError(errors.New("status is required"))
		}
	case entity.BulkActionAddTags, entity.BulkActionRemoveTags:
		if len(req.Tags) == 0 {
			return errutil.ValidationError(errors.New("tags are required"))
		}
	case entity.BulkActionSetFollowUp:
		if req.FollowUpAt == nil {
			return errutil.ValidationError(errors.New("follow_up_at is required"))
		}
	}

	if action.IsDestructive() {
		res.Result = h.bulkDelete(ctx, req.ProspectIDs)
		return nil
	}

	switch action {
	case entity.BulkActionAddTags:
		res.Result = h.bulkTags(ctx, req.ProspectIDs, req.Tags, nil)
	case entity.BulkActionRemoveTags:
		res.Result = h.bulkTags(ctx, req.ProspectIDs, nil, req.Tags)
	default:
		res.Result = h.bulkUpdate(ctx, req.ProspectIDs, func() *entity.Prospect {
			update := new(entity.Prospect)
			switch action {
			case entity.BulkActionArchive:
				update.IsArchived = goutil.Bool(true)
				update.Status = entity.ProspectStatusArchived
			case entity.BulkActionSetStatus:
				update.Status = entity.SupportedProspectStatuses[*req.Status]
			case entity.BulkActionSetFollowUp:
				update.FollowUpAt = req.FollowUpAt
			}
			return update
		})
	}

	return nil
}

func (h *bulkHandler) bulkDelete(ctx context.Context, ids []uint64) *entity.BulkResult {
	deleteCap := h.cfg.Outreach.GetBulkDeleteCap()
	if len(ids) > deleteCap {
		log.Ctx(ctx).Warn().Msgf("bulk delete rejected, ids: %d, cap: %d", len(ids), deleteCap)
		// nothing was attempted, so nothing failed per-item
		return &entity.BulkResult{
			Success:   goutil.Bool(false),
			Processed: goutil.Uint32(0),
			Failed:    goutil.Uint32(0),
			Errors:    []string{fmt.Sprintf("%v: %d ids over cap of %d", entity.ErrSafetyLimitExceeded, len(ids), deleteCap)},
			Message:   goutil.String(entity.ErrSafetyLimitExceeded.Error()),
		}
	}

	if err := h.prospectRepo.BatchDelete(ctx, ids); err != nil {
		log.Ctx(ctx).Error().Msgf("bulk delete failed: %v", err)
		return &entity.BulkResult{
			Success:   goutil.Bool(false),
			Processed: goutil.Uint32(0),
			Failed:    goutil.Uint32(uint32(len(ids))),
			Errors:    []string{err.Error()},
			Message:   goutil.String("bulk delete failed"),
		}
	}

	return &entity.BulkResult{
		Success:   goutil.Bool(true),
		Processed: goutil.Uint32(uint32(len(ids))),
		Failed:    goutil.Uint32(0),
		Message:   goutil.String(fmt.Sprintf("%d prospects deleted", len(ids))),
	}
}

// bulkUpdate applies the same partial update to each prospect sequentially,
// isolating failures per item and stopping early only on context
// cancellation.
func (h *bulkHandler) bulkUpdate(ctx context.Context, ids []uint64, makeUpdate func() *entity.Prospect) *entity.BulkResult {
	var (
		processed uint32
		errs      = make([]string, 0)
	)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Sprintf("cancelled: %v", err))
			break
		}

		if err := h.updateOne(ctx, id, makeUpdate()); err != nil {
			errs = append(errs, fmt.Sprintf("prospect %d: %v", id, err))
			continue
		}
		processed++
	}

	return toBulkResult(uint32(len(ids)), processed, errs)
}

func (h *bulkHandler) updateOne(ctx context.Context, id uint64, update *entity.Prospect) error {
	if _, err := h.prospectRepo.GetByID(ctx, id); err != nil {
		return err
	}
	update.ID = goutil.Uint64(id)
	update.UpdateTime = goutil.Uint64(uint64(time.Now().Unix()))
	return h.prospectRepo.Update(ctx, update)
}

// bulkTags runs the per-row read-modify-write with bounded parallelism.
// Workers never fail the group; each failure is recorded against its own ID.
func (h *bulkHandler) bulkTags(ctx context.Context, ids []uint64, addTags, removeTags []string) *entity.BulkResult {
	var (
		mu        sync.Mutex
		processed uint32
		errs      = make([]string, 0)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.Outreach.GetBulkConcurrency())

	for _, id := range ids {
		if err := gctx.Err(); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Sprintf("cancelled: %v", err))
			mu.Unlock()
			break
		}

		id := id
		g.Go(func() error {
			err := h.prospectRepo.UpdateTags(gctx, id, addTags, removeTags)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Sprintf("prospect %d: %v", id, err))
				return nil
			}
			processed++
			return nil
		})
	}

	_ = g.Wait()

	return toBulkResult(uint32(len(ids)), processed, errs)
}

func toBulkResult(total, processed uint32, errs []string) *entity.BulkResult {
	failed := total - processed
	return &entity.BulkResult{
		Success:   goutil.Bool(failed == 0),
		Processed: goutil.Uint32(processed),
		Failed:    goutil.Uint32(failed),
		Errors:    errs,
		Message:   goutil.String(fmt.Sprintf("%d processed, %d failed", processed, failed)),
	}
}
