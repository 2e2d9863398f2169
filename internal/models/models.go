package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer Role = "ROLE_CUSTOMER"
	RoleAdmin    Role = "ROLE_ADMIN"
)

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email       string    `gorm:"not null"` // уникальность обеспечим функциональным индексом lower(email)
	Password    string    `gorm:"not null"` // bcrypt hash
	DisplayName string    `gorm:"type:text"`
	Role        Role      `gorm:"type:text;not null;default:'ROLE_CUSTOMER';index"`
	CreatedAt   time.Time `gorm:"not null;default:now()"`
	UpdatedAt   time.Time `gorm:"not null;default:now()"`
}

func (User) TableName() string { return "users" }

type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	TokenHash string    `gorm:"not null;index"` // хранить ХЭШ refresh (opaque)
	ExpiresAt time.Time `gorm:"not null;index"`
	Revoked   bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

type PasswordResetToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Email     string    `gorm:"not null"`
	CodeHash  string    `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	Consumed  bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (PasswordResetToken) TableName() string { return "password_reset_tokens" }

type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"type:text;not null"`
	Slug      string    `gorm:"type:text;not null;uniqueIndex"`
	ImageURL  string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (Category) TableName() string { return "categories" }

type Product struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID  *uuid.UUID `gorm:"type:uuid;index"`
	Name        string     `gorm:"type:text;not null"`
	Description string     `gorm:"type:text"`
	PriceCents  int64      `gorm:"not null;default:0"`
	ImageURL    string     `gorm:"type:text"`
	Sizes       string     `gorm:"type:text"` // CSV, например "S,M,L,XL"; пусто — товар без размеров
	IsActive    bool       `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Category *Category `gorm:"foreignKey:CategoryID"`
}

func (Product) TableName() string { return "products" }

// Collection — именованная подборка товаров для витрины
// ("Новинки", "Летний сезон"). Порядок показа задаётся DisplayOrder.
type Collection struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"type:text;not null"`
	Description  string    `gorm:"type:text"`
	ImageURL     string    `gorm:"type:text"`
	DisplayOrder int       `gorm:"not null;default:0;index"`
	IsActive     bool      `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Collection) TableName() string { return "collections" }

// CollectionProduct — членство товара в подборке; порядок внутри
// подборки фиксируется при сохранении состава.
type CollectionProduct struct {
	CollectionID uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	DisplayOrder int       `gorm:"not null;default:0"`
}

func (CollectionProduct) TableName() string { return "collection_products" }

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
)

func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

type Order struct {
	ID              uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID   `gorm:"type:uuid;not null;index"`
	Status          OrderStatus `gorm:"type:text;not null;default:'pending';index"`
	TotalPriceCents int64       `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"` // каскад на позиции
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity       uint32    `gorm:"type:int;not null"` // CHECK добавим в миграции
	UnitPriceCents int64     `gorm:"not null"`
	Size           string    `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (OrderItem) TableName() string { return "order_items" }

type SiteSetting struct {
	SettingKey   string    `gorm:"type:text;primaryKey"`
	SettingValue string    `gorm:"type:text;not null"`
	UpdatedAt    time.Time `gorm:"not null;default:now()"`
}

func (SiteSetting) TableName() string { return "site_settings" }
