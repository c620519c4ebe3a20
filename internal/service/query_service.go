package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/knowd-io/knowd/internal/ai"
	"github.com/knowd-io/knowd/internal/channel"
	"github.com/knowd-io/knowd/internal/index"
	"github.com/knowd-io/knowd/internal/logutil"
	"github.com/knowd-io/knowd/internal/metrics"
	"github.com/knowd-io/knowd/internal/model"
	appErr "github.com/knowd-io/knowd/internal/pkg/errors"
	"github.com/knowd-io/knowd/internal/rag"
)

type intentClassifier interface {
	Classify(ctx context.Context, query string, spaces []model.Namespace) (string, float64)
}

type answerEngine interface {
	Answer(ctx context.Context, query string, hits []index.Hit, history []model.ConversationTurn, ch channel.Channel) (*rag.Result, error)
}

type namespaceLister interface {
	List(ctx context.Context) ([]model.Namespace, error)
}

type auditStore interface {
	Insert(ctx context.Context, log *model.QueryLog) error
	RecentTurns(ctx context.Context, userID, channel string, limit int) ([]model.ConversationTurn, error)
}

type accessCounter interface {
	IncrementAccess(ctx context.Context, nsID int64, filenames []string) error
}

type QueryRequest struct {
	Query   string          `json:"query"`
	Channel channel.Channel `json:"channel"`
	UserID  string          `json:"user_id"`
}

type QueryResult struct {
	QueryID          int64    `json:"query_id"`
	Answer           string   `json:"answer"`
	DetectedIntent   string   `json:"detected_intent"`
	Confidence       float64  `json:"confidence_score"`
	SourceDocuments  []string `json:"source_documents"`
	ChannelFormatted string   `json:"channel_formatted"`
	Fallback         bool     `json:"fallback"`
	ResponseTimeMs   int64    `json:"response_time_ms"`
}

// QueryService runs the classify, retrieve, generate, format pipeline for one
// query and audits the outcome.
type QueryService struct {
	spaces       namespaceLister
	classifier   intentClassifier
	embedder     ai.IEmbedder
	idx          index.Index
	engine       answerEngine
	logs         auditStore
	docs         accessCounter
	mtr          *metrics.Metrics
	historyLimit int
	topK         int
}

func NewQueryService(spaces namespaceLister, classifier intentClassifier, embedder ai.IEmbedder,
	idx index.Index, engine answerEngine, logs auditStore, docs accessCounter,
	mtr *metrics.Metrics, historyLimit, topK int) *QueryService {
	if historyLimit <= 0 {
		historyLimit = 5
	}
	if topK <= 0 {
		topK = 5
	}
	return &QueryService{
		spaces: spaces, classifier: classifier, embedder: embedder,
		idx: idx, engine: engine, logs: logs, docs: docs, mtr: mtr,
		historyLimit: historyLimit, topK: topK,
	}
}

func (s *QueryService) Process(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	logger := logutil.GetLogger(ctx)
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, appErr.ErrEmptyQuery
	}
	ch := req.Channel
	if !channel.Known(ch) {
		ch = channel.API
	}
	start := time.Now()

	spaces, err := s.spaces.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	intent, confidence := s.classifier.Classify(ctx, query, spaces)

	var nsID *int64
	if intent != model.GeneralIntent {
		for i := range spaces {
			if spaces[i].Name == intent {
				nsID = &spaces[i].ID
				break
			}
		}
	}

	// History failure degrades to a cold conversation rather than failing
	// the request.
	history, err := s.logs.RecentTurns(ctx, req.UserID, string(ch), s.historyLimit)
	if err != nil {
		logger.Warn("load conversation history failed", zap.Error(err))
		history = nil
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.idx.Search(ctx, nsID, vecs[0], s.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	res, err := s.engine.Answer(ctx, query, hits, history, ch)
	if err != nil {
		return nil, err
	}
	formatted := channel.Format(res.Answer, res.Sources, ch, res.Fallback)

	status := model.QueryStatusSuccess
	if res.Fallback {
		status = model.QueryStatusFallback
	}
	elapsed := time.Since(start)

	srcList := res.Sources
	if srcList == nil {
		srcList = []string{}
	}
	sources, _ := json.Marshal(srcList)
	log := &model.QueryLog{
		Timestamp:      time.Now().Unix(),
		UserQuery:      query,
		AgentResponse:  res.Answer,
		DetectedIntent: intent,
		Confidence:     confidence,
		SourceDocs:     string(sources),
		ResponseStatus: status,
		Channel:        string(ch),
		UserID:         req.UserID,
		ResponseTimeMs: elapsed.Milliseconds(),
	}
	if err := s.logs.Insert(ctx, log); err != nil {
		return nil, fmt.Errorf("audit query: %w", err)
	}

	if nsID != nil && len(res.Sources) > 0 {
		if err := s.docs.IncrementAccess(ctx, *nsID, res.Sources); err != nil {
			logger.Warn("bump document access counters failed", zap.Error(err))
		}
	}
	s.mtr.ObserveQuery(string(ch), intent, status, elapsed.Seconds())
	logger.Info("query answered",
		zap.String("intent", intent),
		zap.Float64("confidence", confidence),
		zap.String("channel", string(ch)),
		zap.String("status", status),
		zap.Int("sources", len(res.Sources)),
		zap.Int64("elapsed_ms", elapsed.Milliseconds()),
	)
	return &QueryResult{
		QueryID:          log.ID,
		Answer:           res.Answer,
		DetectedIntent:   intent,
		Confidence:       confidence,
		SourceDocuments:  srcList,
		ChannelFormatted: formatted,
		Fallback:         res.Fallback,
		ResponseTimeMs:   elapsed.Milliseconds(),
	}, nil
}
