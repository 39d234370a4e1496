package valueobject

import "github.com/ignatzorin/freelance-client/internal/pkg/apperror"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusInProgress OrderStatus = "in progress"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusDisputed   OrderStatus = "disputed"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusInProgress, OrderStatusDelivered,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusDisputed:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	transitions := map[OrderStatus][]OrderStatus{
		OrderStatusPending:    {OrderStatusAccepted, OrderStatusCancelled},
		OrderStatusAccepted:   {OrderStatusInProgress},
		OrderStatusInProgress: {OrderStatusDelivered},
		OrderStatusDelivered:  {OrderStatusCompleted, OrderStatusDisputed},
		OrderStatusCompleted:  {},
		OrderStatusCancelled:  {},
		OrderStatusDisputed:   {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewOrderStatus(status string) (OrderStatus, error) {
	s := OrderStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа")
	}
	return s, nil
}

// Role определяет, с чьей стороны пользователь смотрит на заказ.
type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
)

func (r Role) IsValid() bool {
	return r == RoleClient || r == RoleFreelancer
}

func NewRole(role string) (Role, error) {
	r := Role(role)
	if !r.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректная роль")
	}
	return r, nil
}

// Action — кнопка, которую интерфейс показывает владельцу заказа.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionDecline  Action = "decline"
	ActionCancel   Action = "cancel"
	ActionStart    Action = "start"
	ActionDeliver  Action = "deliver"
	ActionComplete Action = "complete"
	ActionDispute  Action = "dispute"
	ActionReview   Action = "review"
)

// Transition связывает действие с целевым статусом.
type Transition struct {
	Action Action
	To     OrderStatus
}

var roleTransitions = map[Role]map[OrderStatus][]Transition{
	RoleFreelancer: {
		OrderStatusPending: {
			{Action: ActionAccept, To: OrderStatusAccepted},
			{Action: ActionDecline, To: OrderStatusCancelled},
		},
		OrderStatusAccepted:   {{Action: ActionStart, To: OrderStatusInProgress}},
		OrderStatusInProgress: {{Action: ActionDeliver, To: OrderStatusDelivered}},
	},
	RoleClient: {
		OrderStatusPending: {{Action: ActionCancel, To: OrderStatusCancelled}},
		OrderStatusDelivered: {
			{Action: ActionComplete, To: OrderStatusCompleted},
			{Action: ActionDispute, To: OrderStatusDisputed},
		},
	},
}

// TransitionsFor возвращает переходы статуса, доступные роли из текущего статуса.
func TransitionsFor(role Role, status OrderStatus) []Transition {
	src := roleTransitions[role][status]
	out := make([]Transition, len(src))
	copy(out, src)
	return out
}

// ActionsFor возвращает полный набор действий владельца с ролью role,
// включая отзыв, который не меняет статус.
func ActionsFor(role Role, status OrderStatus, isReviewed bool) []Action {
	transitions := roleTransitions[role][status]
	actions := make([]Action, 0, len(transitions)+1)
	for _, tr := range transitions {
		actions = append(actions, tr.Action)
	}
	if role == RoleClient && !isReviewed &&
		(status == OrderStatusDelivered || status == OrderStatusCompleted) {
		actions = append(actions, ActionReview)
	}
	return actions
}

// TargetOf возвращает статус, в который переводит действие, если оно доступно.
func TargetOf(role Role, status OrderStatus, action Action) (OrderStatus, bool) {
	for _, tr := range roleTransitions[role][status] {
		if tr.Action == action {
			return tr.To, true
		}
	}
	return "", false
}
