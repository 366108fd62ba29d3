// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package category

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed category store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InsertMany(ctx context.Context, categories []Category) error {
	batch := &pgx.Batch{}
	for _, c := range categories {
		batch.Queue(
			`INSERT INTO categories (id, user_id, name, usage_type, is_system, sort_order)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.UserID, c.Name, c.UsageType, c.IsSystem, c.SortOrder,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range categories {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("category: failed to insert category: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Category, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, usage_type, is_system, sort_order, created_at
		 FROM categories
		 WHERE user_id = $1
		 ORDER BY usage_type, sort_order, name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("category: failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.UsageType, &c.IsSystem, &c.SortOrder, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("category: failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("category: failed to read categories: %w", err)
	}
	return categories, nil
}
