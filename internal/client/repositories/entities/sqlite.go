package entities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `select id, owner_id, status, payload, created_offline, updated_at from timesheets`

func (r *SQLiteRepository) Put(ctx context.Context, items ...*models.CachedEntity) error {
	query := `INSERT INTO timesheets (id, owner_id, status, payload, created_offline, updated_at)
			values (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET owner_id = excluded.owner_id,
				status = excluded.status,
				payload = excluded.payload,
				created_offline = excluded.created_offline,
				updated_at = excluded.updated_at
	`
	for _, e := range items {
		payload := []byte(e.Payload)
		if payload == nil {
			payload = []byte("{}")
		}
		_, err := r.db.ExecContext(ctx, query,
			e.ID, e.OwnerID, string(e.Status), payload, e.CreatedOffline, e.UpdatedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("failed to upsert timesheet %s: %w", e.ID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.CachedEntity, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` where id = ?`, id)

	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timesheet %s: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.CachedEntity, error) {
	return r.query(ctx, selectColumns+` order by id`)
}

func (r *SQLiteRepository) GetByIndex(ctx context.Context, index Index, value string) ([]*models.CachedEntity, error) {
	switch index {
	case IndexOwner:
		return r.query(ctx, selectColumns+` where owner_id = ? order by id`, value)
	case IndexStatus:
		return r.query(ctx, selectColumns+` where status = ? order by id`, value)
	default:
		return nil, fmt.Errorf("%w: unknown timesheet index %q", common.ErrorInvalidArgument, index)
	}
}

func (r *SQLiteRepository) Remove(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `delete from timesheets where id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete timesheet %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*models.CachedEntity, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select timesheets: %w", err)
	}
	defer rows.Close()

	var result []*models.CachedEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timesheet: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(s scanner) (*models.CachedEntity, error) {
	var (
		e         models.CachedEntity
		status    string
		payload   []byte
		updatedAt int64
	)
	if err := s.Scan(&e.ID, &e.OwnerID, &status, &payload, &e.CreatedOffline, &updatedAt); err != nil {
		return nil, err
	}
	e.Status = models.TimesheetStatus(status)
	e.Payload = payload
	e.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &e, nil
}
