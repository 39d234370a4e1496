package order

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-client/internal/domain/entity"
	"github.com/ignatzorin/freelance-client/internal/domain/repository"
	"github.com/ignatzorin/freelance-client/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-client/internal/logger"
	"github.com/ignatzorin/freelance-client/internal/notify"
	"github.com/ignatzorin/freelance-client/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-client/internal/session"
	"github.com/ignatzorin/freelance-client/internal/validation"
)

// ReviewPrompter показывает пользователю предложение оставить отзыв.
type ReviewPrompter interface {
	PromptReview(order entity.Order)
}

// ReviewPrompterFunc позволяет передать функцию как ReviewPrompter.
type ReviewPrompterFunc func(order entity.Order)

func (f ReviewPrompterFunc) PromptReview(order entity.Order) { f(order) }

// Controls — набор кнопок для карточки заказа.
type Controls struct {
	Actions  []valueobject.Action
	ViewOnly bool
	// Busy: по заказу выполняется запрос, кнопки заблокированы.
	Busy bool
}

// ViewModel хранит заказы пользователя в одной роли и допустимые для них действия.
type ViewModel struct {
	mu       sync.Mutex
	session  *session.Session
	role     valueobject.Role
	repo     repository.OrderRepository
	notifier notify.Notifier
	prompter ReviewPrompter

	orders   []*entity.Order
	inFlight map[string]bool
}

// NewViewModel создаёт view-model заказов. prompter может быть nil.
func NewViewModel(sess *session.Session, role valueobject.Role, repo repository.OrderRepository, notifier notify.Notifier, prompter ReviewPrompter) *ViewModel {
	return &ViewModel{
		session:  sess,
		role:     role,
		repo:     repo,
		notifier: notifier,
		prompter: prompter,
		inFlight: make(map[string]bool),
	}
}

func (vm *ViewModel) Role() valueobject.Role {
	return vm.role
}

// Load загружает заказы пользователя. При ошибке прежний список сохраняется.
func (vm *ViewModel) Load(ctx context.Context) error {
	orders, err := vm.repo.ListByRole(ctx, vm.role, vm.session.ActorID)
	if err != nil {
		vm.notifier.Error("order.load", err)
		return err
	}

	vm.mu.Lock()
	vm.orders = orders
	vm.mu.Unlock()
	return nil
}

// Orders возвращает копию списка заказов.
func (vm *ViewModel) Orders() []entity.Order {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	out := make([]entity.Order, 0, len(vm.orders))
	for _, o := range vm.orders {
		out = append(out, o.Clone())
	}
	return out
}

// Order возвращает копию заказа по id.
func (vm *ViewModel) Order(orderID string) (entity.Order, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	o := vm.find(orderID)
	if o == nil {
		return entity.Order{}, false
	}
	return o.Clone(), true
}

// Controls возвращает кнопки, которые можно показать для заказа.
func (vm *ViewModel) Controls(orderID string) (Controls, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	o := vm.find(orderID)
	if o == nil {
		return Controls{}, apperror.ErrOrderNotFound
	}
	if !o.IsOwnedBy(vm.session.ActorID, vm.role) {
		return Controls{Actions: []valueobject.Action{}, ViewOnly: true}, nil
	}
	if vm.inFlight[orderID] {
		return Controls{Actions: []valueobject.Action{}, Busy: true}, nil
	}
	return Controls{Actions: o.ActionsFor(vm.session.ActorID, vm.role)}, nil
}

// Perform выполняет действие-кнопку. Отзыв оставляется через SubmitReview.
func (vm *ViewModel) Perform(ctx context.Context, orderID string, action valueobject.Action) error {
	vm.mu.Lock()
	o := vm.find(orderID)
	if o == nil {
		vm.mu.Unlock()
		return apperror.ErrOrderNotFound
	}
	target, ok := valueobject.TargetOf(vm.role, o.Status, action)
	vm.mu.Unlock()

	if !ok {
		return apperror.ErrActionNotAllowed
	}
	return vm.ChangeStatus(ctx, orderID, target)
}

// ChangeStatus отправляет смену статуса на сервер и после успеха обновляет статус локально.
// Завершение заказа клиентом без отзыва вызывает предложение оставить отзыв.
func (vm *ViewModel) ChangeStatus(ctx context.Context, orderID string, target valueobject.OrderStatus) error {
	log := logger.Log.WithFields(logrus.Fields{"order_id": orderID, "target": target, "role": vm.role})

	vm.mu.Lock()
	o := vm.find(orderID)
	if o == nil {
		vm.mu.Unlock()
		return apperror.ErrOrderNotFound
	}
	if vm.inFlight[orderID] {
		vm.mu.Unlock()
		log.Debug("order vm: запрос уже выполняется")
		return apperror.ErrOrderBusy
	}
	if !vm.permitted(o, target) {
		vm.mu.Unlock()
		return apperror.ErrActionNotAllowed
	}
	vm.inFlight[orderID] = true
	vm.mu.Unlock()

	err := vm.repo.UpdateStatus(ctx, orderID, vm.role, target)

	vm.mu.Lock()
	delete(vm.inFlight, orderID)
	if err != nil {
		vm.mu.Unlock()
		vm.notifier.Error("order.change_status", err)
		return err
	}

	var (
		prompt   bool
		snapshot entity.Order
	)
	// Список мог быть перезагружен, пока шёл запрос.
	if o = vm.find(orderID); o != nil {
		o.Status = target
		prompt = target == valueobject.OrderStatusCompleted && vm.role == valueobject.RoleClient && !o.IsReviewed
		snapshot = o.Clone()
	}
	vm.mu.Unlock()

	log.Info("order vm: статус изменён")
	if prompt && vm.prompter != nil {
		vm.prompter.PromptReview(snapshot)
	}
	return nil
}

// SubmitReview отправляет отзыв и отмечает заказ как оценённый.
func (vm *ViewModel) SubmitReview(ctx context.Context, orderID string, review repository.ReviewInput) error {
	if err := validation.ValidateReview(review.Rating, review.Comment); err != nil {
		return err
	}

	vm.mu.Lock()
	o := vm.find(orderID)
	if o == nil {
		vm.mu.Unlock()
		return apperror.ErrOrderNotFound
	}
	if vm.inFlight[orderID] {
		vm.mu.Unlock()
		return apperror.ErrOrderBusy
	}
	if !o.CanReview(vm.session.ActorID, vm.role) {
		vm.mu.Unlock()
		return apperror.ErrActionNotAllowed
	}
	vm.inFlight[orderID] = true
	vm.mu.Unlock()

	err := vm.repo.SubmitReview(ctx, orderID, review)

	vm.mu.Lock()
	delete(vm.inFlight, orderID)
	if err == nil {
		if o = vm.find(orderID); o != nil {
			o.IsReviewed = true
		}
	}
	vm.mu.Unlock()

	if err != nil {
		vm.notifier.Error("order.review", err)
		return err
	}
	vm.notifier.Info("order.review", "спасибо за отзыв")
	return nil
}

// Earnings суммирует цены заказов так, как их вернул сервер.
type Earnings struct {
	Completed      valueobject.Money
	CompletedCount int
	InWork         valueobject.Money
	InWorkCount    int
}

func (vm *ViewModel) Earnings() Earnings {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	var e Earnings
	for _, o := range vm.orders {
		switch o.Status {
		case valueobject.OrderStatusCompleted:
			e.Completed = e.Completed.Add(o.Price)
			e.CompletedCount++
		case valueobject.OrderStatusAccepted, valueobject.OrderStatusInProgress, valueobject.OrderStatusDelivered:
			e.InWork = e.InWork.Add(o.Price)
			e.InWorkCount++
		}
	}
	return e
}

func (vm *ViewModel) permitted(o *entity.Order, target valueobject.OrderStatus) bool {
	if !o.IsOwnedBy(vm.session.ActorID, vm.role) || !o.Status.CanTransitionTo(target) {
		return false
	}
	for _, tr := range valueobject.TransitionsFor(vm.role, o.Status) {
		if tr.To == target {
			return true
		}
	}
	return false
}

func (vm *ViewModel) find(orderID string) *entity.Order {
	for _, o := range vm.orders {
		if o.ID == orderID {
			return o
		}
	}
	return nil
}
