package ports

import (
	"context"

	"tradejournal/internal/domain"
)

// TradeRepository stores journaled trades.
type TradeRepository interface {
	// Create saves a new trade. Returns ErrDuplicateEntry if the ID already exists.
	Create(ctx context.Context, trade *domain.TradeRecord) error
	// Update overwrites the mutable fields of an existing, non-deleted trade.
	// Returns ErrNotFound when no such trade exists.
	Update(ctx context.Context, trade *domain.TradeRecord) error
	// FindByID retrieves a trade by ID, including soft-deleted ones.
	// Returns nil, nil if not found.
	FindByID(ctx context.Context, id string) (*domain.TradeRecord, error)
	// FindByAccount retrieves the account's non-deleted trades ordered by date descending.
	FindByAccount(ctx context.Context, accountID string) ([]*domain.TradeRecord, error)
	// SoftDelete marks a trade deleted. Returns ErrNotFound if it does not exist or is already deleted.
	SoftDelete(ctx context.Context, id string) error
}
