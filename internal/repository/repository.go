package repository

import "gorm.io/gorm"

type Repository struct {
	DB *gorm.DB

	Users          UserRepo
	RefreshTokens  RefreshRepo
	PasswordResets PasswordResetRepo
	Categories     CategoryRepo
	Products       ProductRepo
	Collections    CollectionRepo
	Orders         OrderRepo
	OrderItems     OrderItemRepo
	Settings       SettingsRepo
}

func New(db *gorm.DB) *Repository {
	return &Repository{
		DB:             db,
		Users:          NewUserRepo(db),
		RefreshTokens:  NewRefreshRepo(db),
		PasswordResets: NewPasswordResetRepo(db),
		Categories:     NewCategoryRepo(db),
		Products:       NewProductRepo(db),
		Collections:    NewCollectionRepo(db),
		Orders:         NewOrderRepo(db),
		OrderItems:     NewOrderItemRepo(db),
		Settings:       NewSettingsRepo(db),
	}
}
