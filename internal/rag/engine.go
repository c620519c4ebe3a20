// Package rag assembles retrieved context and conversation history into a
// grounded answer generation call.
package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/knowd-io/knowd/internal/ai"
	"github.com/knowd-io/knowd/internal/channel"
	"github.com/knowd-io/knowd/internal/index"
	"github.com/knowd-io/knowd/internal/logutil"
	"github.com/knowd-io/knowd/internal/model"
)

const (
	// Hits scoring below this similarity are treated as noise and dropped
	// before prompt assembly.
	minSimilarity = 0.3

	answerMaxTokens   = 400
	answerTemperature = 0.1

	fallbackAnswer = "I couldn't find relevant information in the knowledge base."
)

// Result is the generation outcome. Fallback is true only when the engine
// answered from the canned text without calling the model.
type Result struct {
	Answer   string
	Sources  []string
	Fallback bool
}

type Engine struct {
	chat ai.ICompleter
}

func NewEngine(chat ai.ICompleter) *Engine {
	return &Engine{chat: chat}
}

// Answer produces a grounded answer for the query. Hits below the similarity
// floor are discarded; when nothing qualifies and there is no conversation
// history the canned fallback is returned without a model call. History alone
// is enough to attempt generation, with an empty source list.
func (e *Engine) Answer(ctx context.Context, query string, hits []index.Hit, history []model.ConversationTurn, ch channel.Channel) (*Result, error) {
	logger := logutil.GetLogger(ctx)

	qualified := make([]index.Hit, 0, len(hits))
	for _, h := range hits {
		if h.Similarity >= minSimilarity {
			qualified = append(qualified, h)
		}
	}
	if len(qualified) == 0 && len(history) == 0 {
		logger.Info("no qualifying context, returning fallback answer",
			zap.Int("raw_hits", len(hits)))
		return &Result{Answer: fallbackAnswer, Fallback: true}, nil
	}

	answer, err := e.chat.Complete(ctx, ai.ChatRequest{
		System:      buildAnswerPrompt(qualified, ch),
		Messages:    buildMessages(query, history),
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &Result{
		Answer:  strings.TrimSpace(answer),
		Sources: sourceNames(qualified),
	}, nil
}

func buildAnswerPrompt(hits []index.Hit, ch channel.Channel) string {
	var sb strings.Builder
	sb.WriteString("You are an enterprise knowledge base assistant. Answer the user's question using only the provided context. If the context does not contain the answer, say so plainly instead of guessing. Keep answers concise (under 200 words). Be factual and professional.\n")
	sb.WriteString(channelGuidance(ch))
	if len(hits) == 0 {
		sb.WriteString("\nNo documents matched this question. Answer from the conversation so far, and say when you do not know.")
		return sb.String()
	}
	sb.WriteString("\nContext:\n")
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, fmt.Sprintf("[%s]\n%s", h.DocumentName, h.Text))
	}
	sb.WriteString(strings.Join(parts, "\n---\n"))
	return sb.String()
}

func channelGuidance(ch channel.Channel) string {
	switch ch {
	case channel.Telegram:
		return "Keep the answer concise; it is delivered as a chat message.\n"
	case channel.Teams:
		return "The answer is rendered as a Teams card; short paragraphs and bold key points work well.\n"
	case channel.Web:
		return "The answer is rendered as markdown; use formatting where it helps.\n"
	default:
		return ""
	}
}

func buildMessages(query string, history []model.ConversationTurn) []ai.ChatMessage {
	msgs := make([]ai.ChatMessage, 0, len(history)*2+1)
	for _, turn := range history {
		msgs = append(msgs,
			ai.ChatMessage{Role: ai.RoleUser, Content: turn.Query},
			ai.ChatMessage{Role: ai.RoleAssistant, Content: turn.Answer},
		)
	}
	return append(msgs, ai.ChatMessage{Role: ai.RoleUser, Content: query})
}

// sourceNames keeps the first occurrence of each document name in hit order.
func sourceNames(hits []index.Hit) []string {
	seen := make(map[string]struct{}, len(hits))
	var names []string
	for _, h := range hits {
		if _, ok := seen[h.DocumentName]; ok {
			continue
		}
		seen[h.DocumentName] = struct{}{}
		names = append(names, h.DocumentName)
	}
	return names
}
