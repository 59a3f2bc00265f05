package stats

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/stats"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

// HouseholdActivity is the per-household input to underserved detection.
type HouseholdActivity struct {
	HouseholdID    uuid.UUID
	Name           string
	Address        string
	LastCollection *time.Time
	OpenRequests   int64
}

type CollectorCompletion struct {
	CollectorID uuid.UUID
	Name        string
	Completed   int64
}

// AnalyticsRepo holds cross-table read queries. municipalityID == uuid.Nil means platform-wide.
type AnalyticsRepo interface {
	HouseholdActivity(dbc dbctx.Context, municipalityID uuid.UUID) ([]HouseholdActivity, error)
	CountHouseholds(dbc dbctx.Context, municipalityID uuid.UUID) (int64, error)
	CountActiveCollectors(dbc dbctx.Context, municipalityID uuid.UUID) (int64, error)
	CollectorCompletions(dbc dbctx.Context, municipalityID uuid.UUID, w stats.Window) ([]CollectorCompletion, error)
	RequestsPerMunicipality(dbc dbctx.Context, w stats.Window) ([]stats.MunicipalityRequestCount, error)
	RequestsByWasteType(dbc dbctx.Context, municipalityID uuid.UUID, w stats.Window) (map[string]int64, error)
	DailyRequestCounts(dbc dbctx.Context, municipalityID uuid.UUID, w stats.Window) ([]stats.DailyCount, error)
}

type analyticsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalyticsRepo(db *gorm.DB, baseLog *logger.Logger) AnalyticsRepo {
	return &analyticsRepo{db: db, log: baseLog.With("repo", "AnalyticsRepo")}
}

func openStatuses() []collection.Status {
	return []collection.Status{collection.StatusPending, collection.StatusAccepted, collection.StatusInProgress}
}

func (r *analyticsRepo) HouseholdActivity(dbc dbctx.Context, municipalityID uuid.UUID) ([]HouseholdActivity, error) {
	q := dbc.DB(r.db).
		Table(`"user" AS u`).
		Joins("JOIN household_profile hp ON hp.user_id = u.id").
		Select(`u.id AS household_id, u.name AS name, u.address AS address,
			(SELECT MAX(wc.collection_date) FROM waste_collection wc WHERE wc.household_id = u.id) AS last_collection,
			(SELECT COUNT(*) FROM service_request sr WHERE sr.household_id = u.id AND sr.status IN ?) AS open_requests`,
			openStatuses()).
		Where("u.role = ? AND u.deleted_at IS NULL", user.RoleHousehold)
	if municipalityID != uuid.Nil {
		q = q.Where("hp.municipality_id = ?", municipalityID)
	}
	var rows []struct {
		HouseholdID    uuid.UUID
		Name           string
		Address        string
		LastCollection sqlTime
		OpenRequests   int64
	}
	if err := q.Order("u.created_at ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]HouseholdActivity, 0, len(rows))
	for _, row := range rows {
		out = append(out, HouseholdActivity{
			HouseholdID:    row.HouseholdID,
			Name:           row.Name,
			Address:        row.Address,
			LastCollection: row.LastCollection.Ptr(),
			OpenRequests:   row.OpenRequests,
		})
	}
	return out, nil
}

func (r *analyticsRepo) CountHouseholds(dbc dbctx.Context, municipalityID uuid.UUID) (int64, error) {
	q := dbc.DB(r.db).
		Table(`"user" AS u`).
		Joins("JOIN household_profile hp ON hp.user_id = u.id").
		Where("u.role = ? AND u.deleted_at IS NULL", user.RoleHousehold)
	if municipalityID != uuid.Nil {
		q = q.Where("hp.municipality_id = ?", municipalityID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (r *analyticsRepo) CountActiveCollectors(dbc dbctx.Context, municipalityID uuid.UUID) (int64, error) {
	q := dbc.DB(r.db).
		Table(`"user" AS u`).
		Joins("JOIN collector_profile cp ON cp.user_id = u.id").
		Where("u.role = ? AND u.enabled = ? AND u.locked = ? AND u.deleted_at IS NULL AND cp.available = ?",
			user.RoleCollector, true, false, true)
	if municipalityID != uuid.Nil {
		q = q.Where("cp.municipality_id = ?", municipalityID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (r *analyticsRepo) CollectorCompletions(dbc dbctx.Context, municipalityID uuid.UUID, w stats.Window) ([]CollectorCompletion, error) {
	q := dbc.DB(r.db).
		Table("service_request AS sr").
		Joins(`JOIN "user" u ON u.id = sr.collector_id`).
		Select("sr.collector_id AS collector_id, u.name AS name, COUNT(*) AS completed").
		Where("sr.status = ?", collection.StatusCompleted).
		Where("sr.created_at >= ? AND sr.created_at < ?", w.Start, w.End)
	if municipalityID != uuid.Nil {
		q = q.Where("sr.municipality_id = ?", municipalityID)
	}
	var out []CollectorCompletion
	if err := q.Group("sr.collector_id, u.name").Order("completed DESC").Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *analyticsRepo) RequestsPerMunicipality(dbc dbctx.Context, w stats.Window) ([]stats.MunicipalityRequestCount, error) {
	var out []stats.MunicipalityRequestCount
	err := dbc.DB(r.db).
		Table("municipality AS m").
		Joins("LEFT JOIN service_request sr ON sr.municipality_id = m.id AND sr.created_at >= ? AND sr.created_at < ?", w.Start, w.End).
		Select("m.id AS municipality_id, m.name AS name, COUNT(sr.id) AS requests").
		Group("m.id, m.name").
		Order("requests DESC, m.name ASC").
		Scan(&out).Error
	return out, err
}

func (r *analyticsRepo) RequestsByWasteType(dbc dbctx.Context, municipalityID uuid.UUID, w stats.Window) (map[string]int64, error) {
	q := dbc.DB(r.db).
		Model(&collection.ServiceRequest{}).
		Select("waste_type, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", w.Start, w.End)
	if municipalityID != uuid.Nil {
		q = q.Where("municipality_id = ?", municipalityID)
	}
	var rows []struct {
		WasteType string
		Count     int64
	}
	if err := q.Group("waste_type").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.WasteType] = row.Count
	}
	return out, nil
}

func (r *analyticsRepo) DailyRequestCounts(dbc dbctx.Context, municipalityID uuid.UUID, w stats.Window) ([]stats.DailyCount, error) {
	q := dbc.DB(r.db).
		Model(&collection.ServiceRequest{}).
		Select("DATE(created_at) AS day, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", w.Start, w.End)
	if municipalityID != uuid.Nil {
		q = q.Where("municipality_id = ?", municipalityID)
	}
	var rows []struct {
		Day   sqlTime
		Count int64
	}
	if err := q.Group("DATE(created_at)").Order("DATE(created_at) ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]stats.DailyCount, 0, len(rows))
	for _, row := range rows {
		if !row.Day.Valid {
			continue
		}
		out = append(out, stats.DailyCount{Day: row.Day.Time.Format("2006-01-02"), Requests: row.Count})
	}
	return out, nil
}
