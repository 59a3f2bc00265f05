package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestWindowParsesDatesAndTimestamps(t *testing.T) {
	c, _ := testContext("/x?start=2024-03-01&end=2024-03-31")
	w, ok := window(c)
	if !ok {
		t.Fatalf("window rejected valid dates")
	}
	if !w.Start.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", w.Start)
	}
	if want := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC); !w.End.Equal(want) {
		t.Fatalf("end = %v, want %v", w.End, want)
	}

	c, _ = testContext("/x?end=2024-03-31T10:00:00%2B02:00")
	w, ok = window(c)
	if !ok || !w.End.Equal(time.Date(2024, 3, 31, 8, 0, 0, 0, time.UTC)) || !w.Start.IsZero() {
		t.Fatalf("window = %+v ok=%v", w, ok)
	}
}

func TestWindowRejectsGarbage(t *testing.T) {
	c, rec := testContext("/x?start=last-week")
	if _, ok := window(c); ok {
		t.Fatalf("expected rejection")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPathIDAndQueryID(t *testing.T) {
	c, rec := testContext("/x")
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	if _, ok := pathID(c, "id"); ok || rec.Code != http.StatusBadRequest {
		t.Fatalf("bad path id accepted (status %d)", rec.Code)
	}

	c, _ = testContext("/x")
	if id, ok := queryID(c, "municipality_id"); !ok || id.String() != "00000000-0000-0000-0000-000000000000" {
		t.Fatalf("absent query id = %v ok=%v", id, ok)
	}
}

func TestListUsesNormalizedPage(t *testing.T) {
	c, rec := testContext("/x?limit=1000&offset=-5")
	list(c, []int{}, 0)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); body != `{"items":[],"total":0,"limit":100,"offset":0}` {
		t.Fatalf("body = %s", body)
	}
}
