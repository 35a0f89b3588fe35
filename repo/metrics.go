package repo

import (
	"context"
	"fmt"

	"outreach/config"
	"outreach/entity"
)

type Dimension string

const (
	DimensionBand     Dimension = "band"
	DimensionCategory Dimension = "category"
)

var SupportedDimensions = map[string]Dimension{
	"band":     DimensionBand,
	"category": DimensionCategory,
}

// bandExpr buckets the joined prospect's lead score: hot >= 80, warm 60-79,
// cold below. A NULL score falls through to cold.
const bandExpr = "CASE WHEN p.lead_score >= 80 THEN 'hot' WHEN p.lead_score >= 60 THEN 'warm' ELSE 'cold' END"

const categoryExpr = "COALESCE(p.category, '')"

// MetricsRepo aggregates engagement across campaigns, grouped by a prospect
// dimension. Sends come from the execution log, events from the engagement
// log, both joined back to the prospect row for the grouping key.
type MetricsRepo interface {
	SentCounts(ctx context.Context, dim Dimension) (map[string]uint64, error)
	EventCounts(ctx context.Context, dim Dimension, event entity.Event) (map[string]uint64, error)
	Close(ctx context.Context) error
}

type metricsRepo struct {
	baseRepo BaseRepo
}

func NewMetricsRepo(ctx context.Context, mysqlCfg config.MySQL) (MetricsRepo, error) {
	baseRepo, err := NewBaseRepo(ctx, mysqlCfg)
	if err != nil {
		return nil, err
	}
	return &metricsRepo{baseRepo: baseRepo}, nil
}

func NewMetricsRepoWithBase(baseRepo BaseRepo) MetricsRepo {
	return &metricsRepo{baseRepo: baseRepo}
}

func (r *metricsRepo) SentCounts(ctx context.Context, dim Dimension) (map[string]uint64, error) {
	expr, err := dimensionExpr(dim)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(
		"SELECT %s AS group_key, COUNT(*) AS total FROM step_execution_tab se JOIN prospect_tab p ON p.id = se.prospect_id GROUP BY group_key",
		expr,
	)

	return r.scanCounts(ctx, sql)
}

func (r *metricsRepo) EventCounts(ctx context.Context, dim Dimension, event entity.Event) (map[string]uint64, error) {
	expr, err := dimensionExpr(dim)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(
		"SELECT %s AS group_key, COUNT(*) AS total FROM engagement_log_tab el JOIN prospect_tab p ON p.id = el.prospect_id WHERE el.event = ? GROUP BY group_key",
		expr,
	)

	return r.scanCounts(ctx, sql, uint32(event))
}

func (r *metricsRepo) scanCounts(ctx context.Context, sql string, args ...interface{}) (map[string]uint64, error) {
	rows, err := r.baseRepo.DB(ctx).Raw(sql, args...).Rows()
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]uint64)
	for rows.Next() {
		var (
			groupKey string
			total    uint64
		)
		if err := rows.Scan(&groupKey, &total); err != nil {
			return nil, err
		}
		counts[groupKey] = total
	}

	return counts, rows.Err()
}

func (r *metricsRepo) Close(ctx context.Context) error {
	return r.baseRepo.Close(ctx)
}

func dimensionExpr(dim Dimension) (string, error) {
	switch dim {
	case DimensionBand:
		return bandExpr, nil
	case DimensionCategory:
		return categoryExpr, nil
	}
	return "", fmt.Errorf("unsupported dimension: %s", dim)
}
