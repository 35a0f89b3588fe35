package entity

import "errors"

// ErrSafetyLimitExceeded rejects a destructive bulk operation whose ID set
// exceeds the configured cap. The whole batch fails, nothing is mutated.
var ErrSafetyLimitExceeded = errors.New("safety limit exceeded")

type BulkAction uint32

const (
	BulkActionUnknown BulkAction = iota
	BulkActionDelete
	BulkActionArchive
	BulkActionSetStatus
	BulkActionAddTags
	BulkActionRemoveTags
	BulkActionSetFollowUp
)

var SupportedBulkActions = map[string]BulkAction{
	"delete":        BulkActionDelete,
	"archive":       BulkActionArchive,
	"set_status":    BulkActionSetStatus,
	"add_tags":      BulkActionAddTags,
	"remove_tags":   BulkActionRemoveTags,
	"set_follow_up": BulkActionSetFollowUp,
}

// IsDestructive marks actions that fall under the safety cap.
func (a BulkAction) IsDestructive() bool {
	return a == BulkActionDelete
}

// BulkResult reports partial success explicitly: per-item failures are
// counted and described, never swallowed.
type BulkResult struct {
	Success   *bool    `json:"success,omitempty"`
	Processed *uint32  `json:"processed,omitempty"`
	Failed    *uint32  `json:"failed,omitempty"`
	Errors    []string `json:"errors,omitempty"`
	Message   *string  `json:"message,omitempty"`
}

func (e *BulkResult) GetSuccess() bool {
	if e != nil && e.Success != nil {
		return *e.Success
	}
	return false
}

func (e *BulkResult) GetProcessed() uint32 {
	if e != nil && e.Processed != nil {
		return *e.Processed
	}
	return 0
}

func (e *BulkResult) GetFailed() uint32 {
	if e != nil && e.Failed != nil {
		return *e.Failed
	}
	return 0
}
