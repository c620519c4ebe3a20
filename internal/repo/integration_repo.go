package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/knowd-io/knowd/internal/model"
	"github.com/knowd-io/knowd/internal/pkg/dbutil"
	appErr "github.com/knowd-io/knowd/internal/pkg/errors"
)

var integrationFields = []string{
	"id", "channel", "name", "token_last4", "status", "last_active_at", "error_message", "updated_at",
}

type IntegrationRepo struct {
	db *sql.DB
}

func NewIntegrationRepo(db *sql.DB) *IntegrationRepo {
	return &IntegrationRepo{db: db}
}

// Upsert stores the channel configuration, replacing any previous record for
// the same channel.
func (r *IntegrationRepo) Upsert(ctx context.Context, integ *model.Integration) error {
	sqlStr := "INSERT INTO integrations (channel, name, token_last4, status, last_active_at, error_message, updated_at) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?) " +
		"ON CONFLICT (channel) DO UPDATE SET name = EXCLUDED.name, token_last4 = EXCLUDED.token_last4, " +
		"status = EXCLUDED.status, error_message = EXCLUDED.error_message, updated_at = EXCLUDED.updated_at " +
		"RETURNING id"
	args := []interface{}{
		integ.Channel, integ.Name, integ.TokenLast4, integ.Status,
		integ.LastActiveAt, integ.ErrorMsg, integ.UpdatedAt,
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&integ.ID)
}

func (r *IntegrationRepo) GetByChannel(ctx context.Context, channel string) (*model.Integration, error) {
	sqlStr, args, err := builder.BuildSelect("integrations", map[string]interface{}{"channel": channel}, integrationFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	integ, err := scanIntegration(r.db.QueryRowContext(ctx, sqlStr, args...))
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return integ, nil
}

func (r *IntegrationRepo) List(ctx context.Context) ([]model.Integration, error) {
	where := map[string]interface{}{"_orderby": "channel asc"}
	sqlStr, args, err := builder.BuildSelect("integrations", where, integrationFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Integration, 0)
	for rows.Next() {
		integ, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *integ)
	}
	return items, rows.Err()
}

func (r *IntegrationRepo) UpdateStatus(ctx context.Context, channel, status, errMsg string, updatedAt int64) error {
	update := map[string]interface{}{
		"status":        status,
		"error_message": errMsg,
		"updated_at":    updatedAt,
	}
	sqlStr, args, err := builder.BuildUpdate("integrations", map[string]interface{}{"channel": channel}, update)
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

// TouchLastActive records inbound traffic on the channel; missing rows are
// ignored so an unconfigured channel does not fail the request.
func (r *IntegrationRepo) TouchLastActive(ctx context.Context, channel string, ts int64) error {
	sqlStr, args := dbutil.Finalize(
		"UPDATE integrations SET last_active_at = ? WHERE channel = ?",
		[]interface{}{ts, channel})
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func scanIntegration(row rowScanner) (*model.Integration, error) {
	var integ model.Integration
	if err := row.Scan(&integ.ID, &integ.Channel, &integ.Name, &integ.TokenLast4, &integ.Status,
		&integ.LastActiveAt, &integ.ErrorMsg, &integ.UpdatedAt); err != nil {
		return nil, err
	}
	return &integ, nil
}
