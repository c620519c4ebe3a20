package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	batches [][]string
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches = append(c.batches, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), float32(i)}
	}
	return out, nil
}

func (c *countingEmbedder) ModelName() string { return "test-model" }

func TestWrapLRUCachesRepeatTexts(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLRU(inner, 16, time.Hour)

	first, err := cached.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Len(t, inner.batches, 1)

	second, err := cached.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	// full hit, no second provider call
	assert.Len(t, inner.batches, 1)
}

func TestWrapLRUForwardsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLRU(inner, 16, time.Hour)

	_, err := cached.Embed(context.Background(), []string{"alpha"})
	require.NoError(t, err)

	out, err := cached.Embed(context.Background(), []string{"alpha", "gamma", "alpha"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, out[0], out[2])
	require.Len(t, inner.batches, 2)
	assert.Equal(t, []string{"gamma"}, inner.batches[1])
}

func TestWrapLRUReturnsCopies(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLRU(inner, 16, time.Hour)

	first, err := cached.Embed(context.Background(), []string{"alpha"})
	require.NoError(t, err)
	first[0][0] = -999

	second, err := cached.Embed(context.Background(), []string{"alpha"})
	require.NoError(t, err)
	assert.NotEqual(t, float32(-999), second[0][0])
}

func TestWrapLRUDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	assert.Equal(t, inner, WrapLRU(inner, 0, time.Hour))
	assert.Equal(t, inner, WrapLRU(inner, 16, 0))
}
