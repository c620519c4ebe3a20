package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/knowd-io/knowd/internal/model"
	"github.com/knowd-io/knowd/internal/pkg/dbutil"
	appErr "github.com/knowd-io/knowd/internal/pkg/errors"
)

var namespaceFields = []string{"id", "name", "description", "keywords", "builtin", "ctime"}

type NamespaceRepo struct {
	db *sql.DB
}

func NewNamespaceRepo(db *sql.DB) *NamespaceRepo {
	return &NamespaceRepo{db: db}
}

func (r *NamespaceRepo) Create(ctx context.Context, ns *model.Namespace) error {
	keywords, err := json.Marshal(ns.Keywords)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"name":        ns.Name,
		"description": ns.Description,
		"keywords":    string(keywords),
		"builtin":     ns.Builtin,
		"ctime":       ns.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("namespaces", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" RETURNING id", args)
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&ns.ID); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *NamespaceRepo) GetByID(ctx context.Context, id int64) (*model.Namespace, error) {
	return r.getOne(ctx, map[string]interface{}{"id": id})
}

func (r *NamespaceRepo) GetByName(ctx context.Context, name string) (*model.Namespace, error) {
	return r.getOne(ctx, map[string]interface{}{"name": name})
}

func (r *NamespaceRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Namespace, error) {
	sqlStr, args, err := builder.BuildSelect("namespaces", where, namespaceFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	ns, err := scanNamespace(r.db.QueryRowContext(ctx, sqlStr, args...))
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ns, nil
}

func (r *NamespaceRepo) List(ctx context.Context) ([]model.Namespace, error) {
	where := map[string]interface{}{"_orderby": "id asc"}
	sqlStr, args, err := builder.BuildSelect("namespaces", where, namespaceFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	spaces := make([]model.Namespace, 0)
	for rows.Next() {
		ns, err := scanNamespace(rows)
		if err != nil {
			return nil, err
		}
		spaces = append(spaces, *ns)
	}
	return spaces, rows.Err()
}

func (r *NamespaceRepo) Update(ctx context.Context, id int64, description string, keywords []string) error {
	kw, err := json.Marshal(keywords)
	if err != nil {
		return err
	}
	update := map[string]interface{}{
		"description": description,
		"keywords":    string(kw),
	}
	sqlStr, args, err := builder.BuildUpdate("namespaces", map[string]interface{}{"id": id}, update)
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

func (r *NamespaceRepo) Delete(ctx context.Context, id int64) error {
	sqlStr, args, err := builder.BuildDelete("namespaces", map[string]interface{}{"id": id})
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNamespace(row rowScanner) (*model.Namespace, error) {
	var ns model.Namespace
	var keywords string
	if err := row.Scan(&ns.ID, &ns.Name, &ns.Description, &keywords, &ns.Builtin, &ns.Ctime); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(keywords), &ns.Keywords); err != nil {
		ns.Keywords = nil
	}
	return &ns, nil
}
