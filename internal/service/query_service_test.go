package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowd-io/knowd/internal/channel"
	"github.com/knowd-io/knowd/internal/index"
	"github.com/knowd-io/knowd/internal/model"
	appErr "github.com/knowd-io/knowd/internal/pkg/errors"
	"github.com/knowd-io/knowd/internal/rag"
)

type fakeSpaces struct{ spaces []model.Namespace }

func (f *fakeSpaces) List(ctx context.Context) ([]model.Namespace, error) { return f.spaces, nil }

type fakeClassifier struct {
	intent string
	conf   float64
}

func (f *fakeClassifier) Classify(ctx context.Context, query string, spaces []model.Namespace) (string, float64) {
	return f.intent, f.conf
}

type fakeEmbedder struct{ calls int }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

type fakeIndex struct {
	hits   []index.Hit
	lastNS *int64
}

func (f *fakeIndex) Insert(ctx context.Context, nsID int64, docID int64, docName string, texts []string, embeddings [][]float32) (int, error) {
	return 0, nil
}
func (f *fakeIndex) RemoveDocument(ctx context.Context, nsID int64, docID int64) error { return nil }
func (f *fakeIndex) DropNamespace(ctx context.Context, nsID int64) error               { return nil }
func (f *fakeIndex) Search(ctx context.Context, nsID *int64, query []float32, k int) ([]index.Hit, error) {
	f.lastNS = nsID
	return f.hits, nil
}

type fakeEngine struct {
	res   *rag.Result
	err   error
	calls int
}

func (f *fakeEngine) Answer(ctx context.Context, query string, hits []index.Hit, history []model.ConversationTurn, ch channel.Channel) (*rag.Result, error) {
	f.calls++
	return f.res, f.err
}

type fakeAudit struct {
	inserted *model.QueryLog
	turns    []model.ConversationTurn
}

func (f *fakeAudit) Insert(ctx context.Context, log *model.QueryLog) error {
	log.ID = 42
	f.inserted = log
	return nil
}

func (f *fakeAudit) RecentTurns(ctx context.Context, userID, channel string, limit int) ([]model.ConversationTurn, error) {
	return f.turns, nil
}

type fakeCounter struct {
	lastNS    int64
	lastNames []string
	calls     int
}

func (f *fakeCounter) IncrementAccess(ctx context.Context, nsID int64, filenames []string) error {
	f.calls++
	f.lastNS = nsID
	f.lastNames = filenames
	return nil
}

var hrSpace = model.Namespace{ID: 7, Name: "hr_policies", Description: "HR"}

func newTestService(cls *fakeClassifier, idx *fakeIndex, eng *fakeEngine, audit *fakeAudit, counter *fakeCounter) *QueryService {
	return NewQueryService(
		&fakeSpaces{spaces: []model.Namespace{hrSpace}},
		cls, &fakeEmbedder{}, idx, eng, audit, counter, nil, 5, 5,
	)
}

func TestProcessEmptyQuery(t *testing.T) {
	svc := newTestService(&fakeClassifier{}, &fakeIndex{}, &fakeEngine{}, &fakeAudit{}, &fakeCounter{})
	_, err := svc.Process(context.Background(), QueryRequest{Query: "   "})
	assert.ErrorIs(t, err, appErr.ErrEmptyQuery)
}

func TestProcessSuccessAuditsAndCounts(t *testing.T) {
	idx := &fakeIndex{hits: []index.Hit{{Text: "chunk", DocumentName: "leave.md", Similarity: 0.9}}}
	eng := &fakeEngine{res: &rag.Result{Answer: "20 days.", Sources: []string{"leave.md"}}}
	audit := &fakeAudit{}
	counter := &fakeCounter{}
	svc := newTestService(&fakeClassifier{intent: "hr_policies", conf: 0.91}, idx, eng, audit, counter)

	res, err := svc.Process(context.Background(), QueryRequest{Query: "vacation days?", Channel: channel.API, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.QueryID)
	assert.Equal(t, "hr_policies", res.DetectedIntent)
	assert.False(t, res.Fallback)
	assert.Equal(t, []string{"leave.md"}, res.SourceDocuments)

	require.NotNil(t, idx.lastNS)
	assert.Equal(t, int64(7), *idx.lastNS)
	require.NotNil(t, audit.inserted)
	assert.Equal(t, model.QueryStatusSuccess, audit.inserted.ResponseStatus)
	assert.Equal(t, `["leave.md"]`, audit.inserted.SourceDocs)
	assert.Equal(t, 1, counter.calls)
	assert.Equal(t, int64(7), counter.lastNS)
}

func TestProcessGeneralIntentSearchesAllNamespaces(t *testing.T) {
	idx := &fakeIndex{}
	eng := &fakeEngine{res: &rag.Result{Answer: "not found", Fallback: true}}
	audit := &fakeAudit{}
	counter := &fakeCounter{}
	svc := newTestService(&fakeClassifier{intent: model.GeneralIntent, conf: 0.2}, idx, eng, audit, counter)

	res, err := svc.Process(context.Background(), QueryRequest{Query: "weather?", Channel: channel.API})
	require.NoError(t, err)
	assert.Nil(t, idx.lastNS)
	assert.True(t, res.Fallback)
	assert.Equal(t, model.QueryStatusFallback, audit.inserted.ResponseStatus)
	assert.Zero(t, counter.calls)
	assert.Equal(t, []string{}, res.SourceDocuments)
}

func TestProcessGenerationFailureSkipsAudit(t *testing.T) {
	idx := &fakeIndex{hits: []index.Hit{{Text: "chunk", DocumentName: "a.md", Similarity: 0.8}}}
	eng := &fakeEngine{err: errors.New("provider down")}
	audit := &fakeAudit{}
	counter := &fakeCounter{}
	svc := newTestService(&fakeClassifier{intent: "hr_policies", conf: 0.9}, idx, eng, audit, counter)

	_, err := svc.Process(context.Background(), QueryRequest{Query: "q", Channel: channel.API})
	require.Error(t, err)
	assert.Nil(t, audit.inserted)
	assert.Zero(t, counter.calls)
}

func TestProcessUnknownChannelDefaultsToAPI(t *testing.T) {
	eng := &fakeEngine{res: &rag.Result{Answer: "not found", Fallback: true}}
	audit := &fakeAudit{}
	svc := newTestService(&fakeClassifier{intent: model.GeneralIntent}, &fakeIndex{}, eng, audit, &fakeCounter{})

	_, err := svc.Process(context.Background(), QueryRequest{Query: "q", Channel: channel.Channel("slack")})
	require.NoError(t, err)
	assert.Equal(t, string(channel.API), audit.inserted.Channel)
}
