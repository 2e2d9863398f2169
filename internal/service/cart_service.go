package service

import (
	"context"
	"math"

	"storefront-service/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Правила оформления: бесплатная доставка от $50, иначе $9.99; налог 8.5%.
const (
	freeShippingFromCents = 5000
	shippingFlatCents     = 999
	taxRate               = 0.085
)

// CartProduct — срез товара, попадающий в корзину.
type CartProduct struct {
	ID         uuid.UUID
	Name       string
	PriceCents int64
	ImageURL   string
}

type Totals struct {
	SubtotalCents int64
	ShippingCents int64
	TaxCents      int64
	TotalCents    int64
}

// CartService управляет корзиной сессии поверх session.Store.
// Все операции читают блоб, меняют его и сохраняют целиком.
type CartService struct {
	store session.Store
	log   *zap.Logger
}

func NewCartService(store session.Store, log *zap.Logger) *CartService {
	return &CartService{store: store, log: log}
}

// AddToCart сливает количество в существующую позицию (productID, size)
// либо добавляет новую в конец.
func (s *CartService) AddToCart(ctx context.Context, key string, p CartProduct, quantity int, size string) error {
	if quantity <= 0 {
		return ErrQuantityInvalid
	}

	cart := s.store.Load(ctx, key)
	if i := cart.Find(p.ID, size); i >= 0 {
		cart.Items[i].Quantity += quantity
	} else {
		cart.Items = append(cart.Items, session.Item{
			ProductID:      p.ID,
			Name:           p.Name,
			UnitPriceCents: p.PriceCents,
			ImageURL:       p.ImageURL,
			Quantity:       quantity,
			Size:           size,
		})
	}

	s.store.Save(ctx, key, cart)
	return nil
}

// UpdateQuantity выставляет количество; ноль и меньше — удаление
// позиции, нулевых позиций в корзине не бывает.
func (s *CartService) UpdateQuantity(ctx context.Context, key string, productID uuid.UUID, quantity int, size string) {
	cart := s.store.Load(ctx, key)
	i := cart.Find(productID, size)
	if i < 0 {
		return
	}

	if quantity <= 0 {
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	} else {
		cart.Items[i].Quantity = quantity
	}

	s.store.Save(ctx, key, cart)
}

func (s *CartService) RemoveFromCart(ctx context.Context, key string, productID uuid.UUID, size string) {
	cart := s.store.Load(ctx, key)
	i := cart.Find(productID, size)
	if i < 0 {
		return
	}
	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	s.store.Save(ctx, key, cart)
}

func (s *CartService) Cart(ctx context.Context, key string) session.Cart {
	return s.store.Load(ctx, key)
}

func (s *CartService) Count(ctx context.Context, key string) int {
	return s.store.Load(ctx, key).Count()
}

func (s *CartService) TotalCents(ctx context.Context, key string) int64 {
	return s.store.Load(ctx, key).TotalCents()
}

func (s *CartService) Clear(ctx context.Context, key string) {
	s.store.Save(ctx, key, session.Cart{})
}

// Summary считает итог к оплате для страницы оформления.
func (s *CartService) Summary(ctx context.Context, key string) Totals {
	subtotal := s.store.Load(ctx, key).TotalCents()

	var shipping int64
	if subtotal > 0 && subtotal < freeShippingFromCents {
		shipping = shippingFlatCents
	}

	tax := int64(math.Round(float64(subtotal) * taxRate))

	return Totals{
		SubtotalCents: subtotal,
		ShippingCents: shipping,
		TaxCents:      tax,
		TotalCents:    subtotal + shipping + tax,
	}
}
