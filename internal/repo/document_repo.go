package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/knowd-io/knowd/internal/model"
	"github.com/knowd-io/knowd/internal/pkg/dbutil"
	appErr "github.com/knowd-io/knowd/internal/pkg/errors"
)

var documentFields = []string{
	"id", "filename", "format", "size_bytes", "blob_key", "namespace_id",
	"status", "chunk_count", "access_count", "error_message", "uploaded_at", "processed_at",
}

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"filename":      doc.Filename,
		"format":        doc.Format,
		"size_bytes":    doc.SizeBytes,
		"blob_key":      doc.BlobKey,
		"namespace_id":  doc.NamespaceID,
		"status":        doc.Status,
		"chunk_count":   doc.ChunkCount,
		"access_count":  doc.AccessCount,
		"error_message": doc.ErrorMsg,
		"uploaded_at":   doc.UploadedAt,
		"processed_at":  doc.ProcessedAt,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" RETURNING id", args)
	return r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&doc.ID)
}

func (r *DocumentRepo) GetByID(ctx context.Context, id int64) (*model.Document, error) {
	sqlStr, args, err := builder.BuildSelect("documents", map[string]interface{}{"id": id}, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	doc, err := scanDocument(r.db.QueryRowContext(ctx, sqlStr, args...))
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListByNamespace pages documents for one namespace, newest upload first.
// nsID <= 0 lists across all namespaces.
func (r *DocumentRepo) ListByNamespace(ctx context.Context, nsID int64, limit, offset int) ([]model.Document, error) {
	where := map[string]interface{}{"_orderby": "uploaded_at desc, id desc"}
	if nsID > 0 {
		where["namespace_id"] = nsID
	}
	if limit > 0 {
		if offset < 0 {
			offset = 0
		}
		where["_limit"] = []uint{uint(offset), uint(limit)}
	}
	return r.listWhere(ctx, where)
}

func (r *DocumentRepo) ListByStatus(ctx context.Context, status string) ([]model.Document, error) {
	return r.listWhere(ctx, map[string]interface{}{"status": status, "_orderby": "uploaded_at asc"})
}

// ListStuck returns documents still pending or mid-processing whose upload is
// older than the cutoff, for the reprocess sweep.
func (r *DocumentRepo) ListStuck(ctx context.Context, beforeTS int64) ([]model.Document, error) {
	where := map[string]interface{}{
		"status in":      []string{model.DocumentStatusPending, model.DocumentStatusProcessing},
		"uploaded_at <=": beforeTS,
		"_orderby":       "uploaded_at asc",
	}
	return r.listWhere(ctx, where)
}

func (r *DocumentRepo) listWhere(ctx context.Context, where map[string]interface{}) ([]model.Document, error) {
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) CountByNamespace(ctx context.Context, nsID int64) (int64, error) {
	sqlStr, args := dbutil.Finalize("SELECT COUNT(*) FROM documents WHERE namespace_id = ?", []interface{}{nsID})
	var count int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DocumentRepo) UpdateStatus(ctx context.Context, id int64, status string, errMsg string) error {
	update := map[string]interface{}{
		"status":        status,
		"error_message": errMsg,
	}
	return r.updateByID(ctx, id, update)
}

func (r *DocumentRepo) MarkProcessed(ctx context.Context, id int64, chunkCount int, processedAt int64) error {
	update := map[string]interface{}{
		"status":        model.DocumentStatusProcessed,
		"chunk_count":   chunkCount,
		"processed_at":  processedAt,
		"error_message": "",
	}
	return r.updateByID(ctx, id, update)
}

func (r *DocumentRepo) updateByID(ctx context.Context, id int64, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("documents", map[string]interface{}{"id": id}, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// IncrementAccess bumps the access counter for the documents whose filenames
// were cited as sources. Missing filenames are ignored.
func (r *DocumentRepo) IncrementAccess(ctx context.Context, nsID int64, filenames []string) error {
	if len(filenames) == 0 {
		return nil
	}
	sqlStr := "UPDATE documents SET access_count = access_count + 1 WHERE namespace_id = ? AND filename IN (?"
	args := []interface{}{nsID, filenames[0]}
	for _, name := range filenames[1:] {
		sqlStr += ", ?"
		args = append(args, name)
	}
	sqlStr += ")"
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *DocumentRepo) Delete(ctx context.Context, id int64) error {
	sqlStr, args, err := builder.BuildDelete("documents", map[string]interface{}{"id": id})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// KBUsage aggregates per-namespace document, chunk, and access totals.
func (r *DocumentRepo) KBUsage(ctx context.Context) ([]model.KBUsage, error) {
	sqlStr := "SELECT n.id, n.name, COUNT(d.id), COALESCE(SUM(d.chunk_count), 0), COALESCE(SUM(d.access_count), 0) " +
		"FROM namespaces n LEFT JOIN documents d ON d.namespace_id = n.id " +
		"GROUP BY n.id, n.name ORDER BY n.id"
	rows, err := r.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.KBUsage, 0)
	for rows.Next() {
		var item model.KBUsage
		if err := rows.Scan(&item.NamespaceID, &item.NamespaceName, &item.DocumentCount, &item.ChunkCount, &item.AccessCount); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var doc model.Document
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.Format, &doc.SizeBytes, &doc.BlobKey, &doc.NamespaceID,
		&doc.Status, &doc.ChunkCount, &doc.AccessCount, &doc.ErrorMsg, &doc.UploadedAt, &doc.ProcessedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}
