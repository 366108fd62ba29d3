// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

/*
Package category manages transaction, asset, and liability categories.

Every account starts with one system-owned "Uncategorized" category per
usage type; these are seeded at registration and cannot be deleted.
*/
package category

import "time"

// Usage types classify what a category applies to.
const (
	UsageTransaction = "transaction"
	UsageAsset       = "asset"
	UsageLiability   = "liability"
)

// DefaultCategoryName is the name of the seeded fallback categories.
const DefaultCategoryName = "Uncategorized"

// Category is a user-scoped classification bucket.
type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	UsageType string    `json:"usage_type"`
	IsSystem  bool      `json:"is_system"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}
