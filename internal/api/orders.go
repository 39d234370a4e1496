package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-client/internal/domain/entity"
	"github.com/ignatzorin/freelance-client/internal/domain/repository"
	"github.com/ignatzorin/freelance-client/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-client/internal/logger"
)

var _ repository.OrderRepository = (*Client)(nil)

// ListByRole обслуживает GET /api/orders/{role}/{actorId}.
// Заказы с неизвестным статусом пропускаются и логируются.
func (c *Client) ListByRole(ctx context.Context, role valueobject.Role, actorID string) ([]*entity.Order, error) {
	var dtos []orderDTO
	path := fmt.Sprintf("/api/orders/%s/%s", url.PathEscape(string(role)), url.PathEscape(actorID))
	if err := c.get(ctx, path, &dtos); err != nil {
		return nil, err
	}

	orders := make([]*entity.Order, 0, len(dtos))
	for _, d := range dtos {
		o, err := d.toEntity()
		if err != nil {
			logger.Log.WithFields(logrus.Fields{
				"order_id": firstNonEmpty(d.MongoID, d.ID),
				"status":   d.Status,
			}).WithError(err).Warn("api: заказ пропущен")
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// UpdateStatus обслуживает PUT /api/orders/{role}/{orderId}/status.
// Пустая роль даёт общий путь /api/orders/{orderId}/status.
func (c *Client) UpdateStatus(ctx context.Context, orderID string, role valueobject.Role, status valueobject.OrderStatus) error {
	path := "/api/orders/" + url.PathEscape(orderID) + "/status"
	if role != "" {
		path = fmt.Sprintf("/api/orders/%s/%s/status", url.PathEscape(string(role)), url.PathEscape(orderID))
	}
	return c.write(ctx, http.MethodPut, path, statusRequest{Status: status}, nil)
}

// SubmitReview обслуживает POST /api/orders/{orderId}/review.
func (c *Client) SubmitReview(ctx context.Context, orderID string, review repository.ReviewInput) error {
	path := "/api/orders/" + url.PathEscape(orderID) + "/review"
	return c.write(ctx, http.MethodPost, path, reviewRequest{Rating: review.Rating, Comment: review.Comment}, nil)
}
