package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/knowd-io/knowd/internal/pkg/response"
	"github.com/knowd-io/knowd/internal/repo"
	"github.com/knowd-io/knowd/internal/service"
)

type AnalyticsHandler struct {
	svc *service.AnalyticsService
}

func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

func logFilterFromQuery(c *gin.Context) repo.QueryLogFilter {
	return repo.QueryLogFilter{
		Intent:  c.Query("intent"),
		Channel: c.Query("channel"),
		Status:  c.Query("status"),
		StartTS: queryInt64(c, "start_ts"),
		EndTS:   queryInt64(c, "end_ts"),
		Limit:   queryInt(c, "limit", 50),
		Offset:  queryInt(c, "offset", 0),
	}
}

func (h *AnalyticsHandler) Queries(c *gin.Context) {
	filter := logFilterFromQuery(c)
	logs, total, err := h.svc.ListQueries(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": logs, "total": total})
}

func (h *AnalyticsHandler) Stats(c *gin.Context) {
	days := queryInt(c, "days", 30)
	since := time.Now().AddDate(0, 0, -days)
	stats, err := h.svc.Stats(c.Request.Context(), since)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}

func (h *AnalyticsHandler) KBUsage(c *gin.Context) {
	usage, err := h.svc.KBUsage(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, usage)
}

func (h *AnalyticsHandler) Export(c *gin.Context) {
	filter := logFilterFromQuery(c)
	filename := fmt.Sprintf("query_logs_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := h.svc.ExportCSV(c.Request.Context(), filter, c.Writer); err != nil {
		handleError(c, err)
		return
	}
}
