package entity

import (
	"time"

	"github.com/ignatzorin/freelance-client/internal/domain/valueobject"
)

// UserSummary — развёрнутая сервером карточка участника заказа.
type UserSummary struct {
	ID       string
	Username string
	Avatar   string
}

// GigSummary — развёрнутая сервером карточка услуги.
type GigSummary struct {
	ID    string
	Title string
	Cover string
}

// Order — локальная копия заказа, принадлежащего серверу.
type Order struct {
	ID           string
	Status       valueobject.OrderStatus
	Price        valueobject.Money
	ClientID     string
	FreelancerID string
	GigID        string
	IsReviewed   bool
	CreatedAt    time.Time

	Client     *UserSummary
	Freelancer *UserSummary
	Gig        *GigSummary
}

// OwnerID возвращает идентификатор владельца заказа для роли.
func (o *Order) OwnerID(role valueobject.Role) string {
	switch role {
	case valueobject.RoleClient:
		return o.ClientID
	case valueobject.RoleFreelancer:
		return o.FreelancerID
	}
	return ""
}

// IsOwnedBy проверяет, что пользователь владеет заказом в указанной роли.
func (o *Order) IsOwnedBy(userID string, role valueobject.Role) bool {
	if userID == "" {
		return false
	}
	return o.OwnerID(role) == userID
}

// ActionsFor возвращает действия, которые можно предложить зрителю.
// Для не-владельца список пуст: заказ доступен только для просмотра.
func (o *Order) ActionsFor(viewerID string, role valueobject.Role) []valueobject.Action {
	if !o.IsOwnedBy(viewerID, role) {
		return []valueobject.Action{}
	}
	return valueobject.ActionsFor(role, o.Status, o.IsReviewed)
}

// CanReview сообщает, доступен ли отзыв зрителю.
func (o *Order) CanReview(viewerID string, role valueobject.Role) bool {
	for _, a := range o.ActionsFor(viewerID, role) {
		if a == valueobject.ActionReview {
			return true
		}
	}
	return false
}

// Clone возвращает копию, безопасную для отдачи наружу.
func (o *Order) Clone() Order {
	c := *o
	if o.Client != nil {
		client := *o.Client
		c.Client = &client
	}
	if o.Freelancer != nil {
		freelancer := *o.Freelancer
		c.Freelancer = &freelancer
	}
	if o.Gig != nil {
		gig := *o.Gig
		c.Gig = &gig
	}
	return c
}
