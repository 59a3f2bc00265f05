package stats

import (
	"time"

	"github.com/google/uuid"
)

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LastDays returns the window of n days ending at now.
func LastDays(now time.Time, n int) Window {
	return Window{Start: now.AddDate(0, 0, -n), End: now}
}

// StatusCounts holds request counts keyed by status name.
type StatusCounts map[string]int64

func (s StatusCounts) Total() int64 {
	var n int64
	for _, v := range s {
		n += v
	}
	return n
}

type CollectorDashboard struct {
	CollectorID    uuid.UUID    `json:"collector_id"`
	ByStatus       StatusCounts `json:"by_status"`
	CompletedToday int64        `json:"completed_today"`
	TotalRevenue   float64      `json:"total_revenue"`
	WeeklyRevenue  float64      `json:"weekly_revenue"`
	AverageRating  float64      `json:"average_rating"`
	TotalRatings   int64        `json:"total_ratings"`
	TotalWeightKg  float64      `json:"total_weight_kg"`
}

type MunicipalityDashboard struct {
	MunicipalityID   uuid.UUID    `json:"municipality_id"`
	Window           Window       `json:"window"`
	ByStatus         StatusCounts `json:"by_status"`
	CompletedToday   int64        `json:"completed_today"`
	TotalRevenue     float64      `json:"total_revenue"`
	WeeklyRevenue    float64      `json:"weekly_revenue"`
	AverageRating    float64      `json:"average_rating"`
	TotalRatings     int64        `json:"total_ratings"`
	ActiveCollectors int64        `json:"active_collectors"`
	Households       int64        `json:"households"`
}

type MunicipalityRequestCount struct {
	MunicipalityID uuid.UUID `json:"municipality_id"`
	Name           string    `json:"name"`
	Requests       int64     `json:"requests"`
}

type AdminDashboard struct {
	Window            Window                     `json:"window"`
	TotalUsers        int64                      `json:"total_users"`
	UsersByRole       map[string]int64           `json:"users_by_role"`
	Municipalities    int64                      `json:"municipalities"`
	ByStatus          StatusCounts               `json:"by_status"`
	TotalRevenue      float64                    `json:"total_revenue"`
	OpenDisputes      int64                      `json:"open_disputes"`
	PerMunicipality   []MunicipalityRequestCount `json:"per_municipality"`
	TotalWeightKg     float64                    `json:"total_weight_kg"`
	AverageRating     float64                    `json:"average_rating"`
	CompletedInWindow int64                      `json:"completed_in_window"`
}

// NoCollectionHistoryDays ranks households that were never served as maximally neglected.
const NoCollectionHistoryDays = 999

type UnderservedParams struct {
	DaysThreshold      int
	MinPendingRequests int
	Now                time.Time
}

type UnderservedHousehold struct {
	HouseholdID             uuid.UUID  `json:"household_id"`
	Name                    string     `json:"name"`
	Address                 string     `json:"address"`
	LastCollection          *time.Time `json:"last_collection,omitempty"`
	DaysSinceLastCollection int        `json:"days_since_last_collection"`
	PendingRequestCount     int64      `json:"pending_request_count"`
	Underserved             bool       `json:"underserved"`
}

// Flag applies the underserved rule: neglected by time OR overloaded by backlog.
func (p UnderservedParams) Flag(daysSince int, pending int64) bool {
	return daysSince > p.DaysThreshold || pending >= int64(p.MinPendingRequests)
}

// MunicipalityMetrics is the metric vector compared across municipalities.
type MunicipalityMetrics struct {
	TotalRequests        float64 `json:"total_requests"`
	CompletionRate       float64 `json:"completion_rate"`
	AverageResponseHours float64 `json:"average_response_hours"`
	TotalWeightKg        float64 `json:"total_weight_kg"`
	Revenue              float64 `json:"revenue"`
	AverageRating        float64 `json:"average_rating"`
}

// MetricRatios are current/average per metric; nil where the average is zero.
type MetricRatios struct {
	TotalRequests        *float64 `json:"total_requests"`
	CompletionRate       *float64 `json:"completion_rate"`
	AverageResponseHours *float64 `json:"average_response_hours"`
	TotalWeightKg        *float64 `json:"total_weight_kg"`
	Revenue              *float64 `json:"revenue"`
	AverageRating        *float64 `json:"average_rating"`
}

type ComparativeData struct {
	MunicipalityID uuid.UUID           `json:"municipality_id"`
	Window         Window              `json:"window"`
	Current        MunicipalityMetrics `json:"current"`
	Average        MunicipalityMetrics `json:"average"`
	Ratio          MetricRatios        `json:"ratio"`
	Compared       int                 `json:"compared_municipalities"`
}

// Ratio returns current/average, or nil when average is zero.
func Ratio(current, average float64) *float64 {
	if average == 0 {
		return nil
	}
	r := current / average
	return &r
}

func Ratios(current, average MunicipalityMetrics) MetricRatios {
	return MetricRatios{
		TotalRequests:        Ratio(current.TotalRequests, average.TotalRequests),
		CompletionRate:       Ratio(current.CompletionRate, average.CompletionRate),
		AverageResponseHours: Ratio(current.AverageResponseHours, average.AverageResponseHours),
		TotalWeightKg:        Ratio(current.TotalWeightKg, average.TotalWeightKg),
		Revenue:              Ratio(current.Revenue, average.Revenue),
		AverageRating:        Ratio(current.AverageRating, average.AverageRating),
	}
}

// Mean averages a set of metric vectors; the zero vector when empty.
func Mean(all []MunicipalityMetrics) MunicipalityMetrics {
	var sum MunicipalityMetrics
	if len(all) == 0 {
		return sum
	}
	for _, m := range all {
		sum.TotalRequests += m.TotalRequests
		sum.CompletionRate += m.CompletionRate
		sum.AverageResponseHours += m.AverageResponseHours
		sum.TotalWeightKg += m.TotalWeightKg
		sum.Revenue += m.Revenue
		sum.AverageRating += m.AverageRating
	}
	n := float64(len(all))
	return MunicipalityMetrics{
		TotalRequests:        sum.TotalRequests / n,
		CompletionRate:       sum.CompletionRate / n,
		AverageResponseHours: sum.AverageResponseHours / n,
		TotalWeightKg:        sum.TotalWeightKg / n,
		Revenue:              sum.Revenue / n,
		AverageRating:        sum.AverageRating / n,
	}
}

// CompletionRate is completed/total*100, 0 when total is 0.
func CompletionRate(completed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

type CollectorPerformance struct {
	CollectorID   uuid.UUID `json:"collector_id"`
	Name          string    `json:"name"`
	Completed     int64     `json:"completed"`
	AverageRating float64   `json:"average_rating"`
}

type PerformanceMetrics struct {
	MunicipalityID           *uuid.UUID             `json:"municipality_id,omitempty"`
	Window                   Window                 `json:"window"`
	TotalRequests            int64                  `json:"total_requests"`
	CompletedRequests        int64                  `json:"completed_requests"`
	CollectionEfficiency     float64                `json:"collection_efficiency"`
	AverageResponseTimeHours float64                `json:"average_response_time_hours"`
	Collectors               []CollectorPerformance `json:"collectors"`
}

type WasteTypeCount struct {
	WasteType string  `json:"waste_type"`
	Requests  int64   `json:"requests"`
	WeightKg  float64 `json:"weight_kg"`
}

type DailyCount struct {
	Day      string `json:"day"`
	Requests int64  `json:"requests"`
}
