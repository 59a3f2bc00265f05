package stats

import (
	"testing"
	"time"
)

func TestPeriodWindowWeekStartsMonday(t *testing.T) {
	// 2024-05-16 is a Thursday.
	anchor := time.Date(2024, 5, 16, 15, 30, 0, 0, time.UTC)
	w := PeriodWeek.Window(anchor)
	if w.Start.Weekday() != time.Monday {
		t.Fatalf("want Monday start, got %s", w.Start.Weekday())
	}
	if !w.Start.Equal(time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", w.Start)
	}
	if !w.End.Equal(time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %s", w.End)
	}
}

func TestPeriodWindowSundayBelongsToPreviousMonday(t *testing.T) {
	anchor := time.Date(2024, 5, 19, 8, 0, 0, 0, time.UTC)
	w := PeriodWeek.Window(anchor)
	if !w.Start.Equal(time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", w.Start)
	}
}

func TestPeriodWindowMonthAndYear(t *testing.T) {
	anchor := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	m := PeriodMonth.Window(anchor)
	if !m.Start.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) || !m.End.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected month window %+v", m)
	}
	y := PeriodYear.Window(anchor)
	if !y.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) || !y.End.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected year window %+v", y)
	}
}

func TestRatioZeroAverageIsNil(t *testing.T) {
	if r := Ratio(5, 0); r != nil {
		t.Fatalf("want nil ratio, got %v", *r)
	}
	r := Ratio(6, 3)
	if r == nil || *r != 2 {
		t.Fatalf("want 2, got %v", r)
	}
}

func TestRatiosAllZeroAverages(t *testing.T) {
	cur := MunicipalityMetrics{TotalRequests: 4, Revenue: 100}
	got := Ratios(cur, MunicipalityMetrics{})
	if got.TotalRequests != nil || got.Revenue != nil || got.AverageRating != nil {
		t.Fatalf("expected all nil ratios, got %+v", got)
	}
}

func TestMeanEmpty(t *testing.T) {
	if m := Mean(nil); m != (MunicipalityMetrics{}) {
		t.Fatalf("want zero metrics, got %+v", m)
	}
}

func TestCompletionRate(t *testing.T) {
	if CompletionRate(0, 0) != 0 {
		t.Fatalf("want 0 for empty total")
	}
	if got := CompletionRate(3, 4); got != 75 {
		t.Fatalf("want 75 got %v", got)
	}
}

func TestUnderservedFlagIsOr(t *testing.T) {
	p := UnderservedParams{DaysThreshold: 30, MinPendingRequests: 3}
	if !p.Flag(NoCollectionHistoryDays, 0) {
		t.Fatalf("no history should be flagged")
	}
	if !p.Flag(1, 3) {
		t.Fatalf("backlog alone should be flagged")
	}
	if p.Flag(30, 2) {
		t.Fatalf("days == threshold with small backlog should not be flagged")
	}
}

func TestUnderservedFlagMonotonic(t *testing.T) {
	for days := 0; days <= 60; days += 5 {
		for pending := int64(0); pending <= 6; pending++ {
			for th := 0; th < 60; th += 7 {
				lo := UnderservedParams{DaysThreshold: th, MinPendingRequests: 3}
				hi := UnderservedParams{DaysThreshold: th + 7, MinPendingRequests: 3}
				if hi.Flag(days, pending) && !lo.Flag(days, pending) {
					t.Fatalf("raising threshold added household days=%d pending=%d th=%d", days, pending, th)
				}
			}
			for minP := 1; minP < 6; minP++ {
				hi := UnderservedParams{DaysThreshold: 30, MinPendingRequests: minP + 1}
				lo := UnderservedParams{DaysThreshold: 30, MinPendingRequests: minP}
				if hi.Flag(days, pending) && !lo.Flag(days, pending) {
					t.Fatalf("lowering minPending removed household days=%d pending=%d", days, pending)
				}
			}
		}
	}
}
