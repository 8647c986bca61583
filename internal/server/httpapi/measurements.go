package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Erikmmkarlsson/graphmaster/internal/server/models"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/tsdb"
)

// WriteMeasurements appends a batch of points to the caller's own namespace.
// The body is a JSON array of points; one malformed point rejects the whole
// batch.
func (h *Handler) WriteMeasurements(c *gin.Context) {
	var points []models.Point
	if err := c.ShouldBindJSON(&points); err != nil {
		abortWithError(c, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if len(points) == 0 {
		abortWithError(c, http.StatusUnprocessableEntity, CodeUnprocessableEntity, "no points in batch")
		return
	}

	handle, err := h.tenantHandle(c)
	if err != nil {
		abortServiceError(c, err)
		return
	}

	if err := handle.Write(points); err != nil {
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"written": len(points)})
}

// QueryMeasurements reads back one field from the caller's namespace.
// Query params: field (required), measurement (default "*"), start, end
// (RFC 3339 or unix seconds; absent means unbounded).
func (h *Handler) QueryMeasurements(c *gin.Context) {
	field := c.Query("field")
	if field == "" {
		abortWithError(c, http.StatusUnprocessableEntity, CodeUnprocessableEntity, "field parameter is required")
		return
	}

	measurement := c.DefaultQuery("measurement", tsdb.Wildcard)

	start, err := parseTimeParam(c.Query("start"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, CodeBadRequest, "invalid start: "+err.Error())
		return
	}
	end, err := parseTimeParam(c.Query("end"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, CodeBadRequest, "invalid end: "+err.Error())
		return
	}

	handle, err := h.tenantHandle(c)
	if err != nil {
		abortServiceError(c, err)
		return
	}

	result, err := handle.Query(measurement, field, start, end)
	if err != nil {
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// tenantHandle resolves the namespace of the authenticated caller. There is no
// way to address another user's namespace over HTTP.
func (h *Handler) tenantHandle(c *gin.Context) (tsdb.Handle, error) {
	user := CurrentUser(c)
	return h.tenants.Namespace(user.Username)
}

func parseTimeParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0), nil
}
