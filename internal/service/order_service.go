package service

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/producer"
	"storefront-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutState string

const (
	CheckoutIdle       CheckoutState = "IDLE"
	CheckoutValidating CheckoutState = "VALIDATING"
	CheckoutSubmitting CheckoutState = "SUBMITTING"
	CheckoutCleared    CheckoutState = "CLEARED"
	CheckoutFailed     CheckoutState = "FAILED"
)

// CheckoutResult — исход оформления. RedirectToLogin выставляется,
// когда заказ отклонён из-за отсутствия аутентификации.
type CheckoutResult struct {
	State           CheckoutState
	Order           *models.Order
	RedirectToLogin bool
	Err             error
}

// SessionAuth — то, что нужно оформлению от координатора сессии.
type SessionAuth interface {
	IsAuthenticated(ctx context.Context) (bool, error)
	Principal() *Principal
}

type OrderService struct {
	orders repository.OrderRepo
	carts  *CartService
	events OrderEventBus // может быть nil
	now    func() time.Time
	log    *zap.Logger
}

func NewOrderService(orders repository.OrderRepo, carts *CartService, events OrderEventBus, log *zap.Logger) *OrderService {
	return &OrderService{
		orders: orders,
		carts:  carts,
		events: events,
		now:    time.Now,
		log:    log,
	}
}

// Checkout проводит оформление: Validating → Submitting → Cleared/Failed.
// Валидация закрыта по умолчанию: без аутентификации или с пустой
// корзиной не выполняется ни одной записи. Шапка заказа и позиции
// пишутся в одной транзакции — заказ без позиций в БД не появляется.
func (s *OrderService) Checkout(ctx context.Context, auth SessionAuth, sessionKey string) CheckoutResult {
	res := CheckoutResult{State: CheckoutValidating}

	ok, err := auth.IsAuthenticated(ctx)
	if err != nil {
		res.State = CheckoutFailed
		res.Err = err
		return res
	}
	if !ok {
		res.State = CheckoutFailed
		res.RedirectToLogin = true
		res.Err = ErrUnauthorized
		return res
	}

	p := auth.Principal()
	if p == nil {
		res.State = CheckoutFailed
		res.RedirectToLogin = true
		res.Err = ErrUnauthorized
		return res
	}

	cart := s.carts.Cart(ctx, sessionKey)
	if cart.Empty() {
		res.State = CheckoutFailed
		res.Err = ErrEmptyCart
		return res
	}

	res.State = CheckoutSubmitting
	now := s.now()

	order := &models.Order{
		UserID:          p.ID,
		Status:          models.OrderStatusPending,
		TotalPriceCents: cart.TotalCents(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.orders.WithTx(ctx, func(txOrders repository.OrderRepo, txItems repository.OrderItemRepo) error {
		if err := txOrders.Create(ctx, order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(cart.Items))
		for _, it := range cart.Items {
			items = append(items, models.OrderItem{
				OrderID:        order.ID,
				ProductID:      it.ProductID,
				Quantity:       uint32(it.Quantity),
				UnitPriceCents: it.UnitPriceCents,
				Size:           it.Size,
				CreatedAt:      now,
			})
		}
		return txItems.BulkCreate(ctx, items)
	})
	if err != nil {
		// транзакция откатилась, корзина не тронута
		s.log.Error("order submission failed", zap.Error(err))
		res.State = CheckoutFailed
		res.Err = fmt.Errorf("%w: %v", ErrOrderFailed, err)
		return res
	}

	s.carts.Clear(ctx, sessionKey)

	if s.events != nil {
		msgItems := make([]producer.OrderItemMessage, 0, len(cart.Items))
		for _, it := range cart.Items {
			msgItems = append(msgItems, producer.OrderItemMessage{
				ProductID:  it.ProductID,
				Quantity:   uint32(it.Quantity),
				PriceCents: it.UnitPriceCents,
				Size:       it.Size,
			})
		}
		if err := s.events.PublishOrderCreated(ctx, producer.OrderCreatedMessage{
			OrderID:    order.ID,
			UserID:     order.UserID,
			Items:      msgItems,
			TotalCents: order.TotalPriceCents,
			CreatedAt:  order.CreatedAt,
		}); err != nil {
			s.log.Warn("failed to publish order created event", zap.Error(err))
		}
	}

	res.State = CheckoutCleared
	res.Order = order
	return res
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	var ord *models.Order
	if role == models.RoleAdmin {
		ord, err = s.orders.GetByID(ctx, id)
	} else {
		ord, err = s.orders.GetByIDForUser(ctx, id, userID)
	}
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

type OrderListFilter struct {
	UserID *uuid.UUID
	Status *models.OrderStatus
	Limit  int
	Offset int
}

func (s *OrderService) ListOrders(ctx context.Context, f OrderListFilter) ([]*models.Order, int64, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}
	if role != models.RoleAdmin {
		f.UserID = &userID
	}

	return s.orders.List(ctx, repository.OrderListFilter{
		UserID: f.UserID,
		Status: f.Status,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
}

// UpdateOrderStatus — админская смена статуса pending/shipped/delivered.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if !models.ValidOrderStatus(status) {
		return nil, ErrInvalidStatus
	}

	ok, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderNotFound
	}
	return s.orders.GetByID(ctx, id)
}
