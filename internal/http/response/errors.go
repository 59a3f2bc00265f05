package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/wastecollect-backend/internal/platform/apierr"
	"github.com/yungbote/wastecollect-backend/internal/platform/ctxutil"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

// RespondError writes the error envelope for err. Server-side failures are
// logged in full and reach the client only as a generic message.
func RespondError(c *gin.Context, log *logger.Logger, err error) {
	ae := apierr.From(err)
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, "internal", nil)
	}
	if ae.Status >= 500 && log != nil {
		fields := []interface{}{"path", c.FullPath(), "code", ae.Code, "error", err}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			fields = append(fields, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		log.Error("request failed", fields...)
	}
	c.AbortWithStatusJSON(ae.Status, ErrorEnvelope{Error: APIError{
		Message: ae.Message(),
		Code:    ae.Code,
		Fields:  ae.Fields,
	}})
}

// BadRequest is for malformed input caught before any service call.
func BadRequest(c *gin.Context, code string, err error) {
	msg := "invalid request"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}
