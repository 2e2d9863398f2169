package service_test

import (
	"context"
	"errors"
	"testing"

	"storefront-service/internal/models"
	"storefront-service/internal/producer"
	"storefront-service/internal/repository"
	"storefront-service/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MockSessionAuth
type MockSessionAuth struct {
	IsAuthenticatedFunc func(ctx context.Context) (bool, error)
	PrincipalFunc       func() *service.Principal
}

func (m *MockSessionAuth) IsAuthenticated(ctx context.Context) (bool, error) {
	if m.IsAuthenticatedFunc != nil {
		return m.IsAuthenticatedFunc(ctx)
	}
	return false, nil
}

func (m *MockSessionAuth) Principal() *service.Principal {
	if m.PrincipalFunc != nil {
		return m.PrincipalFunc()
	}
	return nil
}

func authenticatedAs(userID uuid.UUID) *MockSessionAuth {
	return &MockSessionAuth{
		IsAuthenticatedFunc: func(ctx context.Context) (bool, error) { return true, nil },
		PrincipalFunc: func() *service.Principal {
			return &service.Principal{ID: userID, Email: "test@example.com", Role: models.RoleCustomer}
		},
	}
}

func newOrderService(orders *MockOrderRepo, events *MockOrderEventBus) (*service.OrderService, *service.CartService, *MockCartStore) {
	store := NewMockCartStore()
	carts := service.NewCartService(store, zap.NewNop())
	var bus service.OrderEventBus
	if events != nil {
		bus = events
	}
	return service.NewOrderService(orders, carts, bus, zap.NewNop()), carts, store
}

func fillCart(t *testing.T, carts *service.CartService, key string) {
	t.Helper()
	ctx := context.Background()
	if err := carts.AddToCart(ctx, key, service.CartProduct{ID: uuid.New(), Name: "Shirt", PriceCents: 1000}, 2, "M"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := carts.AddToCart(ctx, key, service.CartProduct{ID: uuid.New(), Name: "Cap", PriceCents: 500}, 1, ""); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

// Без аутентификации оформление не пишет в БД и не трогает корзину.
func TestOrderService_Checkout_Unauthenticated(t *testing.T) {
	orders := &MockOrderRepo{}
	orders.WithTxFunc = func(ctx context.Context, fn func(repository.OrderRepo, repository.OrderItemRepo) error) error {
		t.Error("Expected no transaction for unauthenticated checkout")
		return nil
	}

	svc, carts, _ := newOrderService(orders, nil)
	fillCart(t, carts, "s")

	res := svc.Checkout(context.Background(), &MockSessionAuth{}, "s")
	if res.State != service.CheckoutFailed {
		t.Errorf("Expected FAILED state, got %s", res.State)
	}
	if !res.RedirectToLogin {
		t.Error("Expected redirect to login")
	}
	if !errors.Is(res.Err, service.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", res.Err)
	}
	if got := carts.TotalCents(context.Background(), "s"); got != 2500 {
		t.Errorf("Expected cart untouched (2500), got %d", got)
	}
}

func TestOrderService_Checkout_EmptyCart(t *testing.T) {
	orders := &MockOrderRepo{}
	orders.WithTxFunc = func(ctx context.Context, fn func(repository.OrderRepo, repository.OrderItemRepo) error) error {
		t.Error("Expected no transaction for empty cart")
		return nil
	}

	svc, _, _ := newOrderService(orders, nil)

	res := svc.Checkout(context.Background(), authenticatedAs(uuid.New()), "s")
	if res.State != service.CheckoutFailed {
		t.Errorf("Expected FAILED state, got %s", res.State)
	}
	if !errors.Is(res.Err, service.ErrEmptyCart) {
		t.Errorf("Expected ErrEmptyCart, got %v", res.Err)
	}
}

func TestOrderService_Checkout_Success(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()

	var createdOrder *models.Order
	var createdItems []models.OrderItem
	txUsed := false

	orders := &MockOrderRepo{}
	orders.WithTxFunc = func(ctx context.Context, fn func(repository.OrderRepo, repository.OrderItemRepo) error) error {
		txUsed = true
		txOrders := &MockOrderRepo{
			CreateFunc: func(ctx context.Context, o *models.Order) error {
				o.ID = orderID
				createdOrder = o
				return nil
			},
		}
		txItems := &MockOrderItemRepo{
			BulkCreateFunc: func(ctx context.Context, items []models.OrderItem) error {
				createdItems = items
				return nil
			},
		}
		return fn(txOrders, txItems)
	}

	published := false
	events := &MockOrderEventBus{}
	events.PublishOrderCreatedFunc = func(ctx context.Context, msg producer.OrderCreatedMessage) error {
		if msg.OrderID != orderID {
			t.Errorf("Expected event for order %s, got %s", orderID, msg.OrderID)
		}
		if len(msg.Items) != 2 {
			t.Errorf("Expected 2 items in event, got %d", len(msg.Items))
		}
		published = true
		return nil
	}

	svc, carts, _ := newOrderService(orders, events)
	fillCart(t, carts, "s")

	res := svc.Checkout(context.Background(), authenticatedAs(userID), "s")
	if res.State != service.CheckoutCleared {
		t.Fatalf("Expected CLEARED state, got %s (err=%v)", res.State, res.Err)
	}
	if !txUsed {
		t.Error("Expected order written inside a transaction")
	}
	if createdOrder == nil || createdOrder.UserID != userID {
		t.Fatalf("Expected order for user %s, got %+v", userID, createdOrder)
	}
	if createdOrder.Status != models.OrderStatusPending {
		t.Errorf("Expected pending status, got %s", createdOrder.Status)
	}
	if createdOrder.TotalPriceCents != 2500 {
		t.Errorf("Expected total 2500, got %d", createdOrder.TotalPriceCents)
	}
	if len(createdItems) != 2 {
		t.Fatalf("Expected 2 item rows, got %d", len(createdItems))
	}
	for _, it := range createdItems {
		if it.OrderID != orderID {
			t.Errorf("Expected items linked to %s, got %s", orderID, it.OrderID)
		}
	}
	if !published {
		t.Error("Expected order created event")
	}
	if got := carts.Cart(context.Background(), "s"); !got.Empty() {
		t.Error("Expected cart cleared after successful checkout")
	}
}

// Сбой транзакции оставляет корзину на месте.
func TestOrderService_Checkout_TxFailureKeepsCart(t *testing.T) {
	orders := &MockOrderRepo{}
	orders.WithTxFunc = func(ctx context.Context, fn func(repository.OrderRepo, repository.OrderItemRepo) error) error {
		return errors.New("db down")
	}

	svc, carts, _ := newOrderService(orders, nil)
	fillCart(t, carts, "s")

	res := svc.Checkout(context.Background(), authenticatedAs(uuid.New()), "s")
	if res.State != service.CheckoutFailed {
		t.Errorf("Expected FAILED state, got %s", res.State)
	}
	if !errors.Is(res.Err, service.ErrOrderFailed) {
		t.Errorf("Expected ErrOrderFailed, got %v", res.Err)
	}
	if got := carts.TotalCents(context.Background(), "s"); got != 2500 {
		t.Errorf("Expected cart untouched after failure, got %d", got)
	}
}

func TestOrderService_GetOrder_CustomerScoped(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()

	orders := &MockOrderRepo{}
	orders.GetByIDForUserFunc = func(ctx context.Context, id, uid uuid.UUID) (*models.Order, error) {
		if uid != userID {
			t.Errorf("Expected scoped lookup for %s, got %s", userID, uid)
		}
		return &models.Order{ID: id, UserID: uid}, nil
	}
	orders.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		t.Error("Expected customer to use scoped lookup")
		return nil, nil
	}

	svc, _, _ := newOrderService(orders, nil)

	ctx := service.WithRole(service.WithUserID(context.Background(), userID), models.RoleCustomer)
	o, err := svc.GetOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if o.ID != orderID {
		t.Errorf("Expected order %s, got %s", orderID, o.ID)
	}
}

func TestOrderService_GetOrder_Unauthenticated(t *testing.T) {
	svc, _, _ := newOrderService(&MockOrderRepo{}, nil)

	_, err := svc.GetOrder(context.Background(), uuid.New())
	if err != service.ErrUnauthorized {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestOrderService_ListOrders_CustomerForcedToOwn(t *testing.T) {
	userID := uuid.New()

	orders := &MockOrderRepo{}
	orders.ListFunc = func(ctx context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error) {
		if f.UserID == nil || *f.UserID != userID {
			t.Errorf("Expected filter pinned to %s, got %v", userID, f.UserID)
		}
		return []*models.Order{}, 0, nil
	}

	svc, _, _ := newOrderService(orders, nil)

	ctx := service.WithRole(service.WithUserID(context.Background(), userID), models.RoleCustomer)
	other := uuid.New()
	// клиент не может подсмотреть чужие заказы через фильтр
	_, _, err := svc.ListOrders(ctx, service.OrderListFilter{UserID: &other})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestOrderService_UpdateOrderStatus_AdminOnly(t *testing.T) {
	svc, _, _ := newOrderService(&MockOrderRepo{}, nil)

	ctx := service.WithRole(service.WithUserID(context.Background(), uuid.New()), models.RoleCustomer)
	_, err := svc.UpdateOrderStatus(ctx, uuid.New(), models.OrderStatusShipped)
	if err != service.ErrForbidden {
		t.Errorf("Expected ErrForbidden for customer, got %v", err)
	}
}

func TestOrderService_UpdateOrderStatus_InvalidStatus(t *testing.T) {
	svc, _, _ := newOrderService(&MockOrderRepo{}, nil)

	ctx := service.WithRole(service.WithUserID(context.Background(), uuid.New()), models.RoleAdmin)
	_, err := svc.UpdateOrderStatus(ctx, uuid.New(), models.OrderStatus("cancelled"))
	if err != service.ErrInvalidStatus {
		t.Errorf("Expected ErrInvalidStatus, got %v", err)
	}
}

func TestOrderService_UpdateOrderStatus_Success(t *testing.T) {
	orderID := uuid.New()

	orders := &MockOrderRepo{}
	orders.UpdateStatusFunc = func(ctx context.Context, id uuid.UUID, status models.OrderStatus) (bool, error) {
		if status != models.OrderStatusShipped {
			t.Errorf("Expected shipped, got %s", status)
		}
		return true, nil
	}
	orders.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return &models.Order{ID: id, Status: models.OrderStatusShipped}, nil
	}

	svc, _, _ := newOrderService(orders, nil)

	ctx := service.WithRole(service.WithUserID(context.Background(), uuid.New()), models.RoleAdmin)
	o, err := svc.UpdateOrderStatus(ctx, orderID, models.OrderStatusShipped)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if o.Status != models.OrderStatusShipped {
		t.Errorf("Expected shipped, got %s", o.Status)
	}
}
