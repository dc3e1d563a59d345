package cache

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

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, items ...*models.CacheEntry) error {
	query := `INSERT INTO cache_entries (key, payload, inserted_at, ttl) values (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload,
			inserted_at = excluded.inserted_at,
			ttl = excluded.ttl`
	for _, c := range items {
		payload := []byte(c.Payload)
		if payload == nil {
			payload = []byte("null")
		}
		if _, err := r.db.ExecContext(ctx, query, c.Key, payload, c.InsertedAt.UnixNano(), int64(c.TTL)); err != nil {
			return fmt.Errorf("failed to upsert cache entry[%s]: %w", c.Key, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	row := r.db.QueryRowContext(ctx, `select key, payload, inserted_at, ttl from cache_entries where key = ?`, key)

	c, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry[%s]: %w", key, err)
	}
	return c, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.CacheEntry, error) {
	rows, err := r.db.QueryContext(ctx, `select key, payload, inserted_at, ttl from cache_entries order by key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	defer rows.Close()

	var result []*models.CacheEntry
	for rows.Next() {
		c, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `delete from cache_entries where key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry[%s]: %w", key, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.CacheEntry, error) {
	var (
		c          models.CacheEntry
		payload    []byte
		insertedAt int64
		ttl        int64
	)
	if err := s.Scan(&c.Key, &payload, &insertedAt, &ttl); err != nil {
		return nil, err
	}
	c.Payload = payload
	c.InsertedAt = time.Unix(0, insertedAt).UTC()
	c.TTL = time.Duration(ttl)
	return &c, nil
}
