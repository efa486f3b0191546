package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"rwpay/internal/core/apperror"
	"rwpay/internal/domain/audit"
	"rwpay/internal/infrastructure/http/v1/dto"
)

// ActivityReader is implemented by postgres.ActivityLog.
type ActivityReader interface {
	History(ctx context.Context, tableName, recordID string, limit int) ([]audit.Entry, error)
}

// auditedTables are the tables whose changes are recorded.
var auditedTables = map[string]bool{
	"residents":      true,
	"payments":       true,
	"meter_readings": true,
	"settings":       true,
}

type ActivityHandler struct {
	*BaseHandler
	reader ActivityReader
}

func NewActivityHandler(base *BaseHandler, reader ActivityReader) *ActivityHandler {
	return &ActivityHandler{BaseHandler: base, reader: reader}
}

// History handles GET /activity/:table/*id, newest first.
// Meter readings are addressed as <residentId>/<YYYY-MM>.
func (h *ActivityHandler) History(c *gin.Context) {
	table := c.Param("table")
	if !auditedTables[table] {
		h.Error(c, apperror.NewInvalidArgument("table", "unknown table").WithDetail("table", table))
		return
	}
	recordID := strings.Trim(c.Param("id"), "/")
	if recordID == "" {
		h.Error(c, apperror.NewInvalidArgument("id", "record id is required"))
		return
	}

	var q dto.HistoryQuery
	if !h.BindQuery(c, &q) {
		return
	}

	entries, err := h.reader.History(c.Request.Context(), table, recordID, q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ItemsResponse[audit.Entry]{Items: entries})
}
