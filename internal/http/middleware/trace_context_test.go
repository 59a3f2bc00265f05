package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/wastecollect-backend/internal/platform/ctxutil"
)

func traced(t *testing.T, reqID string) (*httptest.ResponseRecorder, *ctxutil.TraceData) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var seen *ctxutil.TraceData
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if reqID != "" {
		req.Header.Set(headerRequestID, reqID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, seen
}

func TestAttachTraceContextKeepsClientRequestID(t *testing.T) {
	w, td := traced(t, "req-42")
	if td == nil {
		t.Fatalf("trace data not attached")
	}
	if td.RequestID != "req-42" || w.Header().Get(headerRequestID) != "req-42" {
		t.Fatalf("request id = %q / header %q", td.RequestID, w.Header().Get(headerRequestID))
	}
	if td.TraceID == "" || w.Header().Get(headerTraceID) != td.TraceID {
		t.Fatalf("trace id = %q / header %q", td.TraceID, w.Header().Get(headerTraceID))
	}
}

func TestAttachTraceContextReplacesOversizedID(t *testing.T) {
	long := strings.Repeat("a", maxClientIDLen+1)
	_, td := traced(t, long)
	if td == nil || td.RequestID == "" || td.RequestID == long {
		t.Fatalf("oversized id should be replaced, got %+v", td)
	}
}
