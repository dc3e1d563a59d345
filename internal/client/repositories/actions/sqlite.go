package actions

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

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `select id, kind, endpoint, payload, entity_id, depends_on, created_at, retries, last_error from pending_actions`

const fifo = ` order by created_at, id`

func (r *SQLiteRepository) Put(ctx context.Context, items ...*models.PendingAction) error {
	for _, a := range items {
		if err := r.put(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) put(ctx context.Context, a *models.PendingAction) error {
	payload := []byte(a.Payload)
	if payload == nil {
		payload = []byte("{}")
	}

	if a.ID == 0 {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO pending_actions (kind, endpoint, payload, entity_id, depends_on, created_at, retries, last_error)
			values (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(a.Kind), a.Endpoint, payload, a.EntityID, a.DependsOn, a.CreatedAt.UnixNano(), a.Retries, a.LastError)
		if err != nil {
			return fmt.Errorf("failed to insert action: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get action id: %w", err)
		}
		a.ID = id
		return nil
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_actions (id, kind, endpoint, payload, entity_id, depends_on, created_at, retries, last_error)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET kind = excluded.kind,
			endpoint = excluded.endpoint,
			payload = excluded.payload,
			entity_id = excluded.entity_id,
			depends_on = excluded.depends_on,
			created_at = excluded.created_at,
			retries = excluded.retries,
			last_error = excluded.last_error`,
		a.ID, string(a.Kind), a.Endpoint, payload, a.EntityID, a.DependsOn, a.CreatedAt.UnixNano(), a.Retries, a.LastError)
	if err != nil {
		return fmt.Errorf("failed to upsert action %d: %w", a.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*models.PendingAction, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` where id = ?`, id)

	a, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get action %d: %w", id, err)
	}
	return a, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.PendingAction, error) {
	return r.query(ctx, selectColumns+fifo)
}

func (r *SQLiteRepository) GetByIndex(ctx context.Context, index Index, value string) ([]*models.PendingAction, error) {
	switch index {
	case IndexKind:
		return r.query(ctx, selectColumns+` where kind = ?`+fifo, value)
	case IndexEntity:
		return r.query(ctx, selectColumns+` where entity_id = ?`+fifo, value)
	default:
		return nil, fmt.Errorf("%w: unknown action index %q", common.ErrorInvalidArgument, index)
	}
}

func (r *SQLiteRepository) Remove(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `delete from pending_actions where id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete action %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `select count(*) from pending_actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count actions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*models.PendingAction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select actions: %w", err)
	}
	defer rows.Close()

	var result []*models.PendingAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanAction rejects rows with a kind this build does not know, so replay
// never has to deal with an unknown variant.
func scanAction(s scanner) (*models.PendingAction, error) {
	var (
		a         models.PendingAction
		kind      string
		payload   []byte
		createdAt int64
	)
	err := s.Scan(&a.ID, &kind, &a.Endpoint, &payload, &a.EntityID, &a.DependsOn, &createdAt, &a.Retries, &a.LastError)
	if err != nil {
		return nil, err
	}
	a.Kind, err = models.ParseActionKind(kind)
	if err != nil {
		return nil, fmt.Errorf("action %d: %w", a.ID, err)
	}
	a.Payload = payload
	a.CreatedAt = time.Unix(0, createdAt).UTC()
	return &a, nil
}
