package pricestore

import (
	"context"
	"fmt"
)

// CreateSchema drops and recreates the coins and prices tables. Destructive.
func (s *Store) CreateSchema(ctx context.Context) error {
	s.coins.Reset()
	if err := s.repo.CreateSchema(ctx); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	s.logger.Info("tables created")
	return nil
}

// DropSchema removes both tables if present and clears the coin id cache.
func (s *Store) DropSchema(ctx context.Context) error {
	if err := s.repo.DropSchema(ctx); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	s.coins.Reset()
	s.logger.Info("tables dropped")
	return nil
}
