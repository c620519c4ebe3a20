package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowd-io/knowd/internal/blobstore"
	appErr "github.com/knowd-io/knowd/internal/pkg/errors"
)

const testDim = 4

func newTestManager(t *testing.T) (*Manager, blobstore.Store) {
	t.Helper()
	store := blobstore.NewLocal(t.TempDir())
	return NewManager(store, testDim), store
}

func vec(values ...float32) []float32 {
	out := make([]float32, testDim)
	copy(out, values)
	return out
}

func TestInsertAssignsSequentialPositions(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	n, err := m.Insert(ctx, 1, 10, "a.md", []string{"c0", "c1"}, [][]float32{vec(1), vec(0, 1)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = m.Insert(ctx, 1, 11, "b.md", []string{"c2"}, [][]float32{vec(0, 0, 1)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := m.Search(ctx, ptr(1), vec(0, 0, 1), 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "c2", hits[0].Text)
	assert.Equal(t, 2, hits[0].Position)
}

func TestInsertValidation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Insert(ctx, 1, 10, "a.md", []string{"one", "two"}, [][]float32{vec(1)})
	assert.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = m.Insert(ctx, 1, 10, "a.md", []string{"one"}, [][]float32{{1, 2}})
	assert.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = m.Search(ctx, ptr(1), []float32{1}, 5)
	assert.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestRemoveDocumentKeepsSurvivors(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Insert(ctx, 1, 10, "a.md", []string{"a0", "a1"}, [][]float32{vec(1), vec(0.9)})
	require.NoError(t, err)
	_, err = m.Insert(ctx, 1, 11, "b.md", []string{"b0"}, [][]float32{vec(0, 1)})
	require.NoError(t, err)

	require.NoError(t, m.RemoveDocument(ctx, 1, 10))

	hits, err := m.Search(ctx, ptr(1), vec(0, 1), 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b0", hits[0].Text)
	assert.Equal(t, int64(11), hits[0].DocumentID)
	// positions are reassigned from zero after the rebuild
	assert.Equal(t, 0, hits[0].Position)

	// removing the same document again is a no-op
	require.NoError(t, m.RemoveDocument(ctx, 1, 10))
	hits, err = m.Search(ctx, ptr(1), vec(0, 1), 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearchOrdersByDistance(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	embeddings := [][]float32{vec(1), vec(0.5), vec(0.1)}
	_, err := m.Insert(ctx, 1, 10, "a.md", []string{"exact", "near", "far"}, embeddings)
	require.NoError(t, err)

	hits, err := m.Search(ctx, ptr(1), vec(1), 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "exact", hits[0].Text)
	assert.Equal(t, "near", hits[1].Text)
	assert.Equal(t, "far", hits[2].Text)
	assert.Equal(t, 1.0, hits[0].Similarity)
	assert.Greater(t, hits[1].Similarity, hits[2].Similarity)
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
}

func TestSearchUnderPopulatedK(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Insert(ctx, 1, 10, "a.md", []string{"only"}, [][]float32{vec(1)})
	require.NoError(t, err)

	hits, err := m.Search(ctx, ptr(1), vec(1), 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = m.Search(ctx, ptr(2), vec(1), 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchAcrossNamespaces(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Insert(ctx, 1, 10, "a.md", []string{"in-one"}, [][]float32{vec(1)})
	require.NoError(t, err)
	_, err = m.Insert(ctx, 2, 20, "b.md", []string{"in-two"}, [][]float32{vec(0.99)})
	require.NoError(t, err)

	hits, err := m.Search(ctx, nil, vec(1), 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "in-one", hits[0].Text)
	assert.Equal(t, "in-two", hits[1].Text)

	hits, err = m.Search(ctx, ptr(2), vec(1), 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "in-two", hits[0].Text)
}

func TestSnapshotSurvivesRestart(t *testing.T) {
	store := blobstore.NewLocal(t.TempDir())
	ctx := context.Background()

	m1 := NewManager(store, testDim)
	_, err := m1.Insert(ctx, 1, 10, "a.md", []string{"persisted"}, [][]float32{vec(0.25, 0.5)})
	require.NoError(t, err)

	m2 := NewManager(store, testDim)
	hits, err := m2.Search(ctx, ptr(1), vec(0.25, 0.5), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "persisted", hits[0].Text)
	assert.Equal(t, int64(10), hits[0].DocumentID)
	assert.Equal(t, 0.0, hits[0].Distance)
}

func TestDropNamespace(t *testing.T) {
	store := blobstore.NewLocal(t.TempDir())
	ctx := context.Background()

	m := NewManager(store, testDim)
	_, err := m.Insert(ctx, 1, 10, "a.md", []string{"gone"}, [][]float32{vec(1)})
	require.NoError(t, err)
	require.NoError(t, m.DropNamespace(ctx, 1))

	hits, err := m.Search(ctx, ptr(1), vec(1), 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	// durable state is gone too
	m2 := NewManager(store, testDim)
	hits, err = m2.Search(ctx, ptr(1), vec(1), 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func ptr(id int64) *int64 {
	return &id
}
