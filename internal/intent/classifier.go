// Package intent routes a free-text query to a configured namespace using a
// zero-shot classifier call, or to the catch-all "general" intent when
// classification is unavailable or uncertain.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/knowd-io/knowd/internal/ai"
	"github.com/knowd-io/knowd/internal/logutil"
	"github.com/knowd-io/knowd/internal/model"
)

const classifyMaxTokens = 100

type Classifier struct {
	chat      ai.ICompleter
	threshold float64
}

func NewClassifier(chat ai.ICompleter, threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = 0.7
	}
	return &Classifier{chat: chat, threshold: threshold}
}

// Classify maps the query to a namespace name and confidence. Failures of
// any kind degrade to ("general", 0.0); a parsed result below the confidence
// threshold is forced to "general" keeping the reported confidence. This
// never returns an error: misrouting into a wrong namespace is worse than
// the fallback path.
func (c *Classifier) Classify(ctx context.Context, query string, spaces []model.Namespace) (string, float64) {
	logger := logutil.GetLogger(ctx)
	answer, err := c.chat.Complete(ctx, ai.ChatRequest{
		System:      buildClassifyPrompt(spaces),
		Messages:    []ai.ChatMessage{{Role: ai.RoleUser, Content: query}},
		MaxTokens:   classifyMaxTokens,
		Temperature: 0,
	})
	if err != nil {
		logger.Warn("intent classification failed, falling back to general", zap.Error(err))
		return model.GeneralIntent, 0.0
	}

	name, confidence, err := parseClassification(answer)
	if err != nil {
		logger.Warn("unparseable classifier output, falling back to general",
			zap.String("raw", answer), zap.Error(err))
		return model.GeneralIntent, 0.0
	}
	if !knownSpace(name, spaces) {
		logger.Warn("classifier returned unknown namespace, falling back to general",
			zap.String("intent", name))
		return model.GeneralIntent, 0.0
	}
	if confidence < c.threshold {
		logger.Info("intent confidence below threshold",
			zap.String("intent", name),
			zap.Float64("confidence", confidence),
			zap.Float64("threshold", c.threshold),
		)
		return model.GeneralIntent, confidence
	}
	return name, confidence
}

func buildClassifyPrompt(spaces []model.Namespace) string {
	var sb strings.Builder
	for _, s := range spaces {
		fmt.Fprintf(&sb, "- %s: %s. Keywords: %s\n", s.Name, s.Description, strings.Join(s.Keywords, ", "))
	}
	return fmt.Sprintf(`You are an intent classifier for an enterprise knowledge base.
Classify the user query into exactly one of these intent spaces:

%s
Respond with valid JSON only (no markdown, no explanation):
{"intent": "<space_name>", "confidence": <0.0 to 1.0>}

Rules:
- confidence represents how certain you are (0.0 = no match, 1.0 = perfect match)
- If no intent clearly matches, still pick the closest one but set low confidence
- Use the exact name from the list above`, sb.String())
}

type classification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

func parseClassification(raw string) (string, float64, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}
	var result classification
	if err := json.Unmarshal([]byte(clean), &result); err != nil {
		return "", 0, fmt.Errorf("parse classification: %w", err)
	}
	if result.Intent == "" {
		return "", 0, fmt.Errorf("classification missing intent")
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return result.Intent, result.Confidence, nil
}

func knownSpace(name string, spaces []model.Namespace) bool {
	for _, s := range spaces {
		if s.Name == name {
			return true
		}
	}
	return false
}
