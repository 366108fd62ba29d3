// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package category

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/moneta-app/moneta/pkg/uuid"
)

// Service owns category business logic.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates the category service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// SeedSystemCategories provisions the fallback "Uncategorized" category for
// each usage type of a brand-new account. Called once per registration.
func (s *Service) SeedSystemCategories(ctx context.Context, userID string) error {
	usageTypes := []string{UsageTransaction, UsageAsset, UsageLiability}

	seeds := make([]Category, 0, len(usageTypes))
	for _, usageType := range usageTypes {
		seeds = append(seeds, Category{
			ID:        uuid.New(),
			UserID:    userID,
			Name:      DefaultCategoryName,
			UsageType: usageType,
			IsSystem:  true,
			SortOrder: 0,
		})
	}

	if err := s.store.InsertMany(ctx, seeds); err != nil {
		return fmt.Errorf("category: failed to seed system categories: %w", err)
	}

	s.logger.Info("system_categories_seeded", slog.String("user_id", userID))
	return nil
}

// ListByUser returns all categories belonging to a user.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Category, error) {
	return s.store.ListByUser(ctx, userID)
}
