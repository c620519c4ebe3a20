package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/knowd-io/knowd/internal/model"
	"github.com/knowd-io/knowd/internal/pkg/dbutil"
	appErr "github.com/knowd-io/knowd/internal/pkg/errors"
)

var queryLogFields = []string{
	"id", "ts", "user_query", "agent_response", "detected_intent", "confidence_score",
	"source_documents", "response_status", "channel", "user_id", "response_time_ms",
}

// QueryLogFilter narrows List; zero values mean "no constraint".
type QueryLogFilter struct {
	Intent  string
	Channel string
	Status  string
	StartTS int64
	EndTS   int64
	Limit   int
	Offset  int
}

type QueryLogRepo struct {
	db *sql.DB
}

func NewQueryLogRepo(db *sql.DB) *QueryLogRepo {
	return &QueryLogRepo{db: db}
}

func (r *QueryLogRepo) Insert(ctx context.Context, log *model.QueryLog) error {
	data := map[string]interface{}{
		"ts":               log.Timestamp,
		"user_query":       log.UserQuery,
		"agent_response":   log.AgentResponse,
		"detected_intent":  log.DetectedIntent,
		"confidence_score": log.Confidence,
		"source_documents": log.SourceDocs,
		"response_status":  log.ResponseStatus,
		"channel":          log.Channel,
		"user_id":          log.UserID,
		"response_time_ms": log.ResponseTimeMs,
	}
	sqlStr, args, err := builder.BuildInsert("query_logs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" RETURNING id", args)
	return r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&log.ID)
}

func (r *QueryLogRepo) GetByID(ctx context.Context, id int64) (*model.QueryLog, error) {
	sqlStr, args, err := builder.BuildSelect("query_logs", map[string]interface{}{"id": id}, queryLogFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	log, err := scanQueryLog(r.db.QueryRowContext(ctx, sqlStr, args...))
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return log, nil
}

// RecentTurns returns the latest exchanges for a (user, channel) pair as
// conversation history, oldest first. Fallback exchanges count: a canned
// answer is still part of the conversation the next question refers to.
func (r *QueryLogRepo) RecentTurns(ctx context.Context, userID, channel string, limit int) ([]model.ConversationTurn, error) {
	if userID == "" || limit <= 0 {
		return nil, nil
	}
	where := map[string]interface{}{
		"user_id":  userID,
		"channel":  channel,
		"_orderby": "ts desc, id desc",
		"_limit":   []uint{0, uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("query_logs", where, []string{"user_query", "agent_response"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	turns := make([]model.ConversationTurn, 0, limit)
	for rows.Next() {
		var turn model.ConversationTurn
		if err := rows.Scan(&turn.Query, &turn.Answer); err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (r *QueryLogRepo) List(ctx context.Context, filter QueryLogFilter) ([]model.QueryLog, int64, error) {
	where := buildLogWhere(filter)
	countWhere := buildLogWhere(filter)
	delete(countWhere, "_orderby")

	countSQL, countArgs, err := builder.BuildSelect("query_logs", countWhere, []string{"COUNT(*)"})
	if err != nil {
		return nil, 0, err
	}
	countSQL, countArgs = dbutil.Finalize(countSQL, countArgs)
	var total int64
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		where["_limit"] = []uint{uint(offset), uint(filter.Limit)}
	}
	sqlStr, args, err := builder.BuildSelect("query_logs", where, queryLogFields)
	if err != nil {
		return nil, 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	logs := make([]model.QueryLog, 0)
	for rows.Next() {
		log, err := scanQueryLog(rows)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, *log)
	}
	return logs, total, rows.Err()
}

func buildLogWhere(filter QueryLogFilter) map[string]interface{} {
	where := map[string]interface{}{"_orderby": "ts desc, id desc"}
	if filter.Intent != "" {
		where["detected_intent"] = filter.Intent
	}
	if filter.Channel != "" {
		where["channel"] = filter.Channel
	}
	if filter.Status != "" {
		where["response_status"] = filter.Status
	}
	if filter.StartTS > 0 {
		where["ts >="] = filter.StartTS
	}
	if filter.EndTS > 0 {
		where["ts <="] = filter.EndTS
	}
	return where
}

func (r *QueryLogRepo) DeleteOlderThan(ctx context.Context, beforeTS int64) (int64, error) {
	sqlStr, args := dbutil.Finalize("DELETE FROM query_logs WHERE ts < ?", []interface{}{beforeTS})
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *QueryLogRepo) Stats(ctx context.Context, sinceTS int64) (*model.QueryStats, error) {
	stats := &model.QueryStats{
		ByIntent:  make(map[string]int64),
		ByChannel: make(map[string]int64),
	}
	sqlStr, args := dbutil.Finalize(
		"SELECT COUNT(*), COUNT(*) FILTER (WHERE response_status = ?), COALESCE(AVG(response_time_ms), 0) FROM query_logs WHERE ts >= ?",
		[]interface{}{model.QueryStatusFallback, sinceTS})
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&stats.Total, &stats.FallbackCount, &stats.AvgResponseMs); err != nil {
		return nil, err
	}
	if err := r.groupCount(ctx, "detected_intent", sinceTS, stats.ByIntent); err != nil {
		return nil, err
	}
	if err := r.groupCount(ctx, "channel", sinceTS, stats.ByChannel); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *QueryLogRepo) groupCount(ctx context.Context, column string, sinceTS int64, out map[string]int64) error {
	sqlStr, args := dbutil.Finalize(
		"SELECT "+column+", COUNT(*) FROM query_logs WHERE ts >= ? GROUP BY "+column,
		[]interface{}{sinceTS})
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		out[key] = count
	}
	return rows.Err()
}

func scanQueryLog(row rowScanner) (*model.QueryLog, error) {
	var log model.QueryLog
	if err := row.Scan(&log.ID, &log.Timestamp, &log.UserQuery, &log.AgentResponse, &log.DetectedIntent,
		&log.Confidence, &log.SourceDocs, &log.ResponseStatus, &log.Channel, &log.UserID, &log.ResponseTimeMs); err != nil {
		return nil, err
	}
	return &log, nil
}

// SourceDocNames decodes the stored JSON source list, tolerating legacy rows.
func SourceDocNames(log *model.QueryLog) []string {
	if log.SourceDocs == "" {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(log.SourceDocs), &names); err != nil {
		return nil
	}
	return names
}
