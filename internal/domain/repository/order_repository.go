package repository

import (
	"context"

	"github.com/ignatzorin/freelance-client/internal/domain/entity"
	"github.com/ignatzorin/freelance-client/internal/domain/valueobject"
)

// OrderRepository — удалённый источник заказов (HTTP API).
type OrderRepository interface {
	ListByRole(ctx context.Context, role valueobject.Role, actorID string) ([]*entity.Order, error)
	UpdateStatus(ctx context.Context, orderID string, role valueobject.Role, status valueobject.OrderStatus) error
	SubmitReview(ctx context.Context, orderID string, review ReviewInput) error
}

type ReviewInput struct {
	Rating  int
	Comment string
}
