package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/knowd-io/knowd/internal/ai"
	"github.com/knowd-io/knowd/internal/model"
)

type fakeCompleter struct {
	answer string
	err    error
	calls  int
}

func (f *fakeCompleter) Complete(ctx context.Context, req ai.ChatRequest) (string, error) {
	f.calls++
	return f.answer, f.err
}

var testSpaces = []model.Namespace{
	{Name: "hr_policies", Description: "HR policies", Keywords: []string{"leave", "vacation"}},
	{Name: "legal_contracts", Description: "Legal contracts", Keywords: []string{"contract", "nda"}},
}

func TestClassifyPlainJSON(t *testing.T) {
	c := NewClassifier(&fakeCompleter{answer: `{"intent": "hr_policies", "confidence": 0.92}`}, 0.7)
	intent, conf := c.Classify(context.Background(), "how many vacation days do I get?", testSpaces)
	assert.Equal(t, "hr_policies", intent)
	assert.InDelta(t, 0.92, conf, 1e-9)
}

func TestClassifyFencedJSON(t *testing.T) {
	raw := "```json\n{\"intent\": \"legal_contracts\", \"confidence\": 0.81}\n```"
	c := NewClassifier(&fakeCompleter{answer: raw}, 0.7)
	intent, conf := c.Classify(context.Background(), "what is in our standard nda?", testSpaces)
	assert.Equal(t, "legal_contracts", intent)
	assert.InDelta(t, 0.81, conf, 1e-9)
}

func TestClassifyBelowThresholdKeepsConfidence(t *testing.T) {
	c := NewClassifier(&fakeCompleter{answer: `{"intent": "hr_policies", "confidence": 0.4}`}, 0.7)
	intent, conf := c.Classify(context.Background(), "what is the meaning of life?", testSpaces)
	assert.Equal(t, model.GeneralIntent, intent)
	assert.InDelta(t, 0.4, conf, 1e-9)
}

func TestClassifyUnknownSpace(t *testing.T) {
	c := NewClassifier(&fakeCompleter{answer: `{"intent": "finance_reports", "confidence": 0.99}`}, 0.7)
	intent, conf := c.Classify(context.Background(), "q3 revenue?", testSpaces)
	assert.Equal(t, model.GeneralIntent, intent)
	assert.Zero(t, conf)
}

func TestClassifyUnparseableOutput(t *testing.T) {
	c := NewClassifier(&fakeCompleter{answer: "I think this is about HR."}, 0.7)
	intent, conf := c.Classify(context.Background(), "leave policy?", testSpaces)
	assert.Equal(t, model.GeneralIntent, intent)
	assert.Zero(t, conf)
}

func TestClassifyProviderFailure(t *testing.T) {
	c := NewClassifier(&fakeCompleter{err: errors.New("upstream timeout")}, 0.7)
	intent, conf := c.Classify(context.Background(), "leave policy?", testSpaces)
	assert.Equal(t, model.GeneralIntent, intent)
	assert.Zero(t, conf)
}
