package index

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/knowd-io/knowd/internal/blobstore"
	"github.com/knowd-io/knowd/internal/logutil"
	"github.com/knowd-io/knowd/internal/model"
	appErr "github.com/knowd-io/knowd/internal/pkg/errors"
)

// Manager is the flat exhaustive-search backend. Each namespace holds an
// ordered chunk sequence whose embeddings are scanned at query time; delete
// is filter-then-rebuild from the stored embeddings. Mutations on a namespace
// are serialized by its RWMutex and the in-memory state is only swapped after
// the snapshot has been durably saved, so concurrent readers observe either
// the pre- or post-mutation sequence, never a torn one.
type Manager struct {
	dim   int
	store blobstore.Store

	mu     sync.Mutex
	spaces map[int64]*namespaceIndex
}

type namespaceIndex struct {
	mu     sync.RWMutex
	loaded bool
	chunks []model.Chunk
}

func NewManager(store blobstore.Store, dim int) *Manager {
	return &Manager{
		dim:    dim,
		store:  store,
		spaces: map[int64]*namespaceIndex{},
	}
}

func snapshotKey(namespaceID int64) string {
	return fmt.Sprintf("index/namespace_%d.snapshot", namespaceID)
}

func (m *Manager) space(namespaceID int64) *namespaceIndex {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spaces[namespaceID]
	if !ok {
		s = &namespaceIndex{}
		m.spaces[namespaceID] = s
	}
	return s
}

func (m *Manager) residentIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.spaces))
	for id := range m.spaces {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// load reads the namespace snapshot. Caller holds s.mu for writing.
func (m *Manager) load(ctx context.Context, namespaceID int64, s *namespaceIndex) error {
	r, err := m.store.Open(ctx, snapshotKey(namespaceID))
	if err == blobstore.ErrNotExist {
		s.chunks = nil
		s.loaded = true
		return nil
	}
	if err != nil {
		return err
	}
	defer r.Close()
	chunks, err := decodeSnapshot(r, m.dim)
	if err != nil {
		return err
	}
	s.chunks = chunks
	s.loaded = true
	logutil.GetLogger(ctx).Debug("namespace index loaded",
		zap.Int64("namespace_id", namespaceID),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}

func (m *Manager) loaded(ctx context.Context, namespaceID int64) (*namespaceIndex, error) {
	s := m.space(namespaceID)
	s.mu.RLock()
	if s.loaded {
		s.mu.RUnlock()
		return s, nil
	}
	s.mu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if err := m.load(ctx, namespaceID, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Preload warms the given namespaces so a nil-namespace search covers them.
func (m *Manager) Preload(ctx context.Context, namespaceIDs []int64) error {
	for _, id := range namespaceIDs {
		if _, err := m.loaded(ctx, id); err != nil {
			return fmt.Errorf("preload namespace %d: %w", id, err)
		}
	}
	return nil
}

func (m *Manager) persist(ctx context.Context, namespaceID int64, chunks []model.Chunk) error {
	data, err := encodeSnapshot(m.dim, chunks)
	if err != nil {
		return err
	}
	return m.store.Save(ctx, snapshotKey(namespaceID), bytes.NewReader(data), int64(len(data)))
}

func (m *Manager) Insert(ctx context.Context, namespaceID, documentID int64, documentName string, texts []string, embeddings [][]float32) (int, error) {
	if len(texts) != len(embeddings) {
		return 0, fmt.Errorf("%w: %d chunks but %d embeddings", appErr.ErrInvalid, len(texts), len(embeddings))
	}
	for i, emb := range embeddings {
		if len(emb) != m.dim {
			return 0, fmt.Errorf("%w: embedding %d has dimension %d, want %d", appErr.ErrInvalid, i, len(emb), m.dim)
		}
	}
	if len(texts) == 0 {
		return 0, nil
	}

	s := m.space(namespaceID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if err := m.load(ctx, namespaceID, s); err != nil {
			return 0, err
		}
	}

	next := make([]model.Chunk, len(s.chunks), len(s.chunks)+len(texts))
	copy(next, s.chunks)
	start := len(next)
	for i, text := range texts {
		emb := make([]float32, m.dim)
		copy(emb, embeddings[i])
		next = append(next, model.Chunk{
			Position:     start + i,
			DocumentID:   documentID,
			DocumentName: documentName,
			Text:         text,
			Embedding:    emb,
		})
	}
	if err := m.persist(ctx, namespaceID, next); err != nil {
		return 0, err
	}
	s.chunks = next
	logutil.GetLogger(ctx).Info("chunks inserted",
		zap.Int64("namespace_id", namespaceID),
		zap.Int64("document_id", documentID),
		zap.Int("count", len(texts)),
		zap.Int("total", len(next)),
	)
	return len(texts), nil
}

func (m *Manager) RemoveDocument(ctx context.Context, namespaceID, documentID int64) error {
	s := m.space(namespaceID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if err := m.load(ctx, namespaceID, s); err != nil {
			return err
		}
	}

	remaining := make([]model.Chunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		if chunk.DocumentID != documentID {
			remaining = append(remaining, chunk)
		}
	}
	if len(remaining) == len(s.chunks) {
		return nil
	}
	// Rebuild from the retained embeddings with fresh sequential positions.
	for i := range remaining {
		remaining[i].Position = i
	}
	if err := m.persist(ctx, namespaceID, remaining); err != nil {
		return err
	}
	removed := len(s.chunks) - len(remaining)
	s.chunks = remaining
	logutil.GetLogger(ctx).Info("document removed from index",
		zap.Int64("namespace_id", namespaceID),
		zap.Int64("document_id", documentID),
		zap.Int("removed", removed),
	)
	return nil
}

func (m *Manager) Search(ctx context.Context, namespaceID *int64, query []float32, k int) ([]Hit, error) {
	if len(query) != m.dim {
		return nil, fmt.Errorf("%w: query embedding has dimension %d, want %d", appErr.ErrInvalid, len(query), m.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	var ids []int64
	if namespaceID != nil {
		ids = []int64{*namespaceID}
	} else {
		ids = m.residentIDs()
	}

	var hits []Hit
	for _, id := range ids {
		s, err := m.loaded(ctx, id)
		if err != nil {
			return nil, err
		}
		s.mu.RLock()
		for _, chunk := range s.chunks {
			dist := squaredL2(query, chunk.Embedding)
			hits = append(hits, Hit{
				Text:         chunk.Text,
				DocumentID:   chunk.DocumentID,
				DocumentName: chunk.DocumentName,
				Position:     chunk.Position,
				Distance:     dist,
				Similarity:   similarity(dist),
			})
		}
		s.mu.RUnlock()
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *Manager) DropNamespace(ctx context.Context, namespaceID int64) error {
	s := m.space(namespaceID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := m.store.Delete(ctx, snapshotKey(namespaceID)); err != nil {
		return err
	}
	s.chunks = nil
	s.loaded = true
	m.mu.Lock()
	delete(m.spaces, namespaceID)
	m.mu.Unlock()
	return nil
}
