package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/knowd-io/knowd/internal/ai"
	"github.com/knowd-io/knowd/internal/blobstore"
	"github.com/knowd-io/knowd/internal/index"
	"github.com/knowd-io/knowd/internal/logutil"
	"github.com/knowd-io/knowd/internal/metrics"
	"github.com/knowd-io/knowd/internal/model"
	"github.com/knowd-io/knowd/internal/parser"
	appErr "github.com/knowd-io/knowd/internal/pkg/errors"
	"github.com/knowd-io/knowd/internal/repo"
)

// DocumentService owns the ingestion path: store the raw upload, extract and
// split text, embed, and index.
type DocumentService struct {
	docs     *repo.DocumentRepo
	spaces   *repo.NamespaceRepo
	blobs    blobstore.Store
	embedder ai.IEmbedder
	idx      index.Index
	splitter *parser.Splitter
	mtr      *metrics.Metrics
	maxSize  int64
}

func NewDocumentService(docs *repo.DocumentRepo, spaces *repo.NamespaceRepo, blobs blobstore.Store,
	embedder ai.IEmbedder, idx index.Index, splitter *parser.Splitter, mtr *metrics.Metrics, maxSize int64) *DocumentService {
	return &DocumentService{
		docs: docs, spaces: spaces, blobs: blobs,
		embedder: embedder, idx: idx, splitter: splitter, mtr: mtr, maxSize: maxSize,
	}
}

// Upload stores the raw file and registers a pending document. Processing is
// a separate step so an extraction or embedding failure never loses the
// upload.
func (s *DocumentService) Upload(ctx context.Context, nsID int64, filename string, size int64, r io.Reader) (*model.Document, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." {
		return nil, fmt.Errorf("%w: missing filename", appErr.ErrInvalid)
	}
	if !parser.SupportedExt(filename) {
		return nil, fmt.Errorf("%w: unsupported file type: %s", appErr.ErrInvalid, filepath.Ext(filename))
	}
	if s.maxSize > 0 && size > s.maxSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", appErr.ErrInvalid, s.maxSize)
	}
	if _, err := s.spaces.GetByID(ctx, nsID); err != nil {
		return nil, err
	}

	now := time.Now()
	doc := &model.Document{
		Filename:    filename,
		Format:      strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
		SizeBytes:   size,
		BlobKey:     fmt.Sprintf("uploads/%d/%d_%s", nsID, now.UnixNano(), filename),
		NamespaceID: nsID,
		Status:      model.DocumentStatusPending,
		UploadedAt:  now.Unix(),
	}
	if err := s.blobs.Save(ctx, doc.BlobKey, r, size); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("document uploaded",
		zap.Int64("doc_id", doc.ID),
		zap.Int64("namespace_id", nsID),
		zap.String("filename", filename),
		zap.Int64("size", size),
	)
	return doc, nil
}

// Process extracts, splits, embeds and indexes one pending document. On
// failure the document is marked errored with the cause; the raw blob is
// kept for a later reparse.
func (s *DocumentService) Process(ctx context.Context, docID int64) error {
	logger := logutil.GetLogger(ctx)
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if err := s.docs.UpdateStatus(ctx, doc.ID, model.DocumentStatusProcessing, ""); err != nil {
		return err
	}

	count, err := s.ingest(ctx, doc)
	if err != nil {
		logger.Error("document processing failed", zap.Int64("doc_id", doc.ID), zap.Error(err))
		if uerr := s.docs.UpdateStatus(ctx, doc.ID, model.DocumentStatusError, err.Error()); uerr != nil {
			logger.Error("mark document errored failed", zap.Int64("doc_id", doc.ID), zap.Error(uerr))
		}
		return err
	}
	if err := s.docs.MarkProcessed(ctx, doc.ID, count, time.Now().Unix()); err != nil {
		return err
	}
	s.mtr.AddChunksIndexed(count)
	logger.Info("document processed", zap.Int64("doc_id", doc.ID), zap.Int("chunks", count))
	return nil
}

func (s *DocumentService) ingest(ctx context.Context, doc *model.Document) (int, error) {
	rc, err := s.blobs.Open(ctx, doc.BlobKey)
	if err != nil {
		return 0, fmt.Errorf("open upload blob: %w", err)
	}
	defer rc.Close()
	var reader io.Reader = rc
	if s.maxSize > 0 {
		reader = io.LimitReader(rc, s.maxSize)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, fmt.Errorf("read upload blob: %w", err)
	}

	text, err := parser.ExtractText(doc.Filename, data)
	if err != nil {
		return 0, err
	}
	chunks := s.splitter.Split(text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document produced no text")
	}
	embeddings, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	return s.idx.Insert(ctx, doc.NamespaceID, doc.ID, doc.Filename, chunks, embeddings)
}

// Reparse drops the document's chunks and runs ingestion again from the
// stored blob.
func (s *DocumentService) Reparse(ctx context.Context, docID int64) error {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if err := s.idx.RemoveDocument(ctx, doc.NamespaceID, doc.ID); err != nil {
		return err
	}
	if err := s.docs.UpdateStatus(ctx, doc.ID, model.DocumentStatusPending, ""); err != nil {
		return err
	}
	return s.Process(ctx, doc.ID)
}

func (s *DocumentService) Delete(ctx context.Context, docID int64) error {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if err := s.idx.RemoveDocument(ctx, doc.NamespaceID, doc.ID); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, doc.BlobKey); err != nil {
		logutil.GetLogger(ctx).Warn("delete upload blob failed",
			zap.Int64("doc_id", doc.ID), zap.String("key", doc.BlobKey), zap.Error(err))
	}
	return s.docs.Delete(ctx, doc.ID)
}

func (s *DocumentService) Get(ctx context.Context, docID int64) (*model.Document, error) {
	return s.docs.GetByID(ctx, docID)
}

func (s *DocumentService) List(ctx context.Context, nsID int64, limit, offset int) ([]model.Document, error) {
	return s.docs.ListByNamespace(ctx, nsID, limit, offset)
}

// ProcessStuck retries documents sitting in pending or processing since
// before the cutoff. Per-document failures are logged and do not stop the
// sweep.
func (s *DocumentService) ProcessStuck(ctx context.Context, before time.Time) (int, error) {
	docs, err := s.docs.ListStuck(ctx, before.Unix())
	if err != nil {
		return 0, err
	}
	logger := logutil.GetLogger(ctx)
	processed := 0
	for _, doc := range docs {
		if err := s.Process(ctx, doc.ID); err != nil {
			logger.Warn("reprocess sweep failed for document", zap.Int64("doc_id", doc.ID), zap.Error(err))
			continue
		}
		processed++
	}
	return processed, nil
}
