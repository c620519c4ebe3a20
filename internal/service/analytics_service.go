package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/knowd-io/knowd/internal/model"
	"github.com/knowd-io/knowd/internal/repo"
)

type AnalyticsService struct {
	logs *repo.QueryLogRepo
	docs *repo.DocumentRepo
}

func NewAnalyticsService(logs *repo.QueryLogRepo, docs *repo.DocumentRepo) *AnalyticsService {
	return &AnalyticsService{logs: logs, docs: docs}
}

func (s *AnalyticsService) ListQueries(ctx context.Context, filter repo.QueryLogFilter) ([]model.QueryLog, int64, error) {
	return s.logs.List(ctx, filter)
}

func (s *AnalyticsService) Stats(ctx context.Context, since time.Time) (*model.QueryStats, error) {
	return s.logs.Stats(ctx, since.Unix())
}

func (s *AnalyticsService) KBUsage(ctx context.Context) ([]model.KBUsage, error) {
	return s.docs.KBUsage(ctx)
}

var exportHeader = []string{
	"id", "timestamp", "user_query", "agent_response", "detected_intent",
	"confidence_score", "source_documents", "response_status", "channel", "user_id", "response_time_ms",
}

// ExportCSV streams the filtered audit log as CSV. The filter's paging is
// ignored; an export always covers the full filtered range.
func (s *AnalyticsService) ExportCSV(ctx context.Context, filter repo.QueryLogFilter, w io.Writer) error {
	filter.Limit = 0
	filter.Offset = 0
	logs, _, err := s.logs.List(ctx, filter)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for i := range logs {
		log := &logs[i]
		record := []string{
			strconv.FormatInt(log.ID, 10),
			time.Unix(log.Timestamp, 0).UTC().Format(time.RFC3339),
			log.UserQuery,
			log.AgentResponse,
			log.DetectedIntent,
			strconv.FormatFloat(log.Confidence, 'f', 4, 64),
			strings.Join(repo.SourceDocNames(log), "; "),
			log.ResponseStatus,
			log.Channel,
			log.UserID,
			strconv.FormatInt(log.ResponseTimeMs, 10),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
