package stats

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/wastecollect-backend/internal/domain/stats"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

type StatisticsRepo interface {
	Create(dbc dbctx.Context, rows []*stats.Statistics) ([]*stats.Statistics, error)
	List(dbc dbctx.Context, municipalityID uuid.UUID, period stats.PeriodType, limit int) ([]*stats.Statistics, error)
}

type statisticsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStatisticsRepo(db *gorm.DB, baseLog *logger.Logger) StatisticsRepo {
	return &statisticsRepo{db: db, log: baseLog.With("repo", "StatisticsRepo")}
}

func (r *statisticsRepo) Create(dbc dbctx.Context, rows []*stats.Statistics) ([]*stats.Statistics, error) {
	if len(rows) == 0 {
		return []*stats.Statistics{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *statisticsRepo) List(dbc dbctx.Context, municipalityID uuid.UUID, period stats.PeriodType, limit int) ([]*stats.Statistics, error) {
	q := dbc.DB(r.db).Where("municipality_id = ?", municipalityID)
	if period != "" {
		q = q.Where("period_type = ?", period)
	}
	q = q.Order("start_date DESC, created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*stats.Statistics
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
