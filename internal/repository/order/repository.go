package order

import (
	"context"

	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/events"
)

// Repository stores orders together with their outbox events.
type Repository interface {
	// Create inserts the order and the event built from it in one transaction.
	Create(ctx context.Context, o domain.Order, event func(domain.Order) (events.Event, error)) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Unpublished(ctx context.Context, limit int) ([]events.Event, error)
	MarkPublished(ctx context.Context, id int64) error
}
