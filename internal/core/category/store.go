// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package category

import "context"

// Store persists categories.
type Store interface {
	// InsertMany inserts the given categories in one round trip.
	InsertMany(ctx context.Context, categories []Category) error

	// ListByUser returns a user's categories ordered by usage type and sort order.
	ListByUser(ctx context.Context, userID string) ([]Category, error)
}
