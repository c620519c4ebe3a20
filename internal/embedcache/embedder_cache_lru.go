package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/knowd-io/knowd/internal/ai"
	"github.com/knowd-io/knowd/internal/logutil"
)

// WrapLRU puts an in-memory expirable cache in front of an embedder. Only
// cache misses are sent to the provider; hit and miss results keep their
// input positions.
func WrapLRU(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.IEmbedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		key := cacheKey(l.next.ModelName(), text)
		if cached, ok := l.cache.Get(key); ok {
			out[i] = cloneEmbedding(cached)
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		logutil.GetLogger(ctx).Debug("embedding cache hit for full batch", zap.Int("count", len(texts)))
		return out, nil
	}
	fresh, err := l.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, emb := range fresh {
		i := missIdx[j]
		out[i] = emb
		l.cache.Add(cacheKey(l.next.ModelName(), texts[i]), cloneEmbedding(emb))
	}
	return out, nil
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}

func cacheKey(model, text string) string {
	hash := sha256.Sum256([]byte(text))
	return model + ":" + hex.EncodeToString(hash[:])
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
