package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowd-io/knowd/internal/ai"
	"github.com/knowd-io/knowd/internal/channel"
	"github.com/knowd-io/knowd/internal/index"
	"github.com/knowd-io/knowd/internal/model"
)

type fakeCompleter struct {
	answer  string
	err     error
	calls   int
	lastReq ai.ChatRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req ai.ChatRequest) (string, error) {
	f.calls++
	f.lastReq = req
	return f.answer, f.err
}

func TestAnswerHardFallbackNoModelCall(t *testing.T) {
	chat := &fakeCompleter{answer: "should not be used"}
	res, err := NewEngine(chat).Answer(context.Background(), "anything?", nil, nil, channel.API)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, fallbackAnswer, res.Answer)
	assert.Empty(t, res.Sources)
	assert.Zero(t, chat.calls)
}

func TestAnswerBelowFloorHitsFallBack(t *testing.T) {
	chat := &fakeCompleter{answer: "should not be used"}
	hits := []index.Hit{
		{Text: "irrelevant", DocumentName: "a.md", Similarity: 0.1},
		{Text: "also irrelevant", DocumentName: "b.md", Similarity: 0.29},
	}
	res, err := NewEngine(chat).Answer(context.Background(), "anything?", hits, nil, channel.API)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Zero(t, chat.calls)
}

func TestAnswerHistoryOnlyStillGenerates(t *testing.T) {
	chat := &fakeCompleter{answer: "From earlier, you asked about leave."}
	history := []model.ConversationTurn{{Query: "leave policy?", Answer: "20 days."}}
	res, err := NewEngine(chat).Answer(context.Background(), "and carry-over?", nil, history, channel.API)
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Empty(t, res.Sources)
	assert.Equal(t, 1, chat.calls)
	// history precedes the current query in order
	require.Len(t, chat.lastReq.Messages, 3)
	assert.Equal(t, "leave policy?", chat.lastReq.Messages[0].Content)
	assert.Equal(t, ai.RoleAssistant, chat.lastReq.Messages[1].Role)
	assert.Equal(t, "and carry-over?", chat.lastReq.Messages[2].Content)
}

func TestAnswerGroundedSourcesUniqueOrdered(t *testing.T) {
	chat := &fakeCompleter{answer: "  Employees get 20 days.  "}
	hits := []index.Hit{
		{Text: "chunk one", DocumentName: "leave.md", Similarity: 0.9},
		{Text: "chunk two", DocumentName: "benefits.md", Similarity: 0.8},
		{Text: "chunk three", DocumentName: "leave.md", Similarity: 0.7},
	}
	res, err := NewEngine(chat).Answer(context.Background(), "vacation days?", hits, nil, channel.Web)
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, "Employees get 20 days.", res.Answer)
	assert.Equal(t, []string{"leave.md", "benefits.md"}, res.Sources)
	assert.Contains(t, chat.lastReq.System, "chunk one\n---\n")
	assert.Contains(t, chat.lastReq.System, "chunk two")
	// the length bound applies on every channel, not just chat ones
	assert.Contains(t, chat.lastReq.System, "concise (under 200 words)")
}

func TestAnswerDropsBelowFloorContext(t *testing.T) {
	chat := &fakeCompleter{answer: "ok"}
	hits := []index.Hit{
		{Text: "good chunk", DocumentName: "a.md", Similarity: 0.6},
		{Text: "noise chunk", DocumentName: "z.md", Similarity: 0.05},
	}
	res, err := NewEngine(chat).Answer(context.Background(), "q", hits, nil, channel.API)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, res.Sources)
	assert.NotContains(t, chat.lastReq.System, "noise chunk")
}

func TestAnswerGenerationErrorPropagates(t *testing.T) {
	chat := &fakeCompleter{err: errors.New("provider down")}
	hits := []index.Hit{{Text: "chunk", DocumentName: "a.md", Similarity: 0.9}}
	_, err := NewEngine(chat).Answer(context.Background(), "q", hits, nil, channel.API)
	require.Error(t, err)
	assert.Equal(t, 1, chat.calls)
}
