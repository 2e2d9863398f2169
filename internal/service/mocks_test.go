package service_test

import (
	"context"
	"io"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/producer"
	"storefront-service/internal/repository"
	"storefront-service/internal/service"

	"github.com/google/uuid"
)

// Моки зависимостей сервисов

// MockUserRepo
type MockUserRepo struct {
	CreateFunc            func(ctx context.Context, u *models.User) error
	GetByEmailFunc        func(ctx context.Context, email string) (*models.User, error)
	GetByIDFunc           func(ctx context.Context, id uuid.UUID) (*models.User, error)
	ExistsByEmailFunc     func(ctx context.Context, email string) (bool, error)
	UpdatePasswordFunc    func(ctx context.Context, user *models.User) error
	UpdateDisplayNameFunc func(ctx context.Context, id uuid.UUID, name string) error
}

func (m *MockUserRepo) Create(ctx context.Context, u *models.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, u)
	}
	return nil
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *MockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.ExistsByEmailFunc != nil {
		return m.ExistsByEmailFunc(ctx, email)
	}
	return false, nil
}

func (m *MockUserRepo) UpdatePassword(ctx context.Context, user *models.User) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, user)
	}
	return nil
}

func (m *MockUserRepo) UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error {
	if m.UpdateDisplayNameFunc != nil {
		return m.UpdateDisplayNameFunc(ctx, id, name)
	}
	return nil
}

// MockRefreshRepo
type MockRefreshRepo struct {
	CreateFunc         func(ctx context.Context, t *models.RefreshToken) error
	GetByHashFunc      func(ctx context.Context, hash string) (*models.RefreshToken, error)
	IsActiveByHashFunc func(ctx context.Context, hash string, now time.Time) (bool, error)
	RevokeByHashFunc   func(ctx context.Context, hash string) (bool, error)
	RevokeAllFunc      func(ctx context.Context, userID uuid.UUID) (int64, error)
}

func (m *MockRefreshRepo) Create(ctx context.Context, t *models.RefreshToken) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}
	return nil
}

func (m *MockRefreshRepo) GetByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	if m.GetByHashFunc != nil {
		return m.GetByHashFunc(ctx, hash)
	}
	return nil, nil
}

func (m *MockRefreshRepo) IsActiveByHash(ctx context.Context, hash string, now time.Time) (bool, error) {
	if m.IsActiveByHashFunc != nil {
		return m.IsActiveByHashFunc(ctx, hash, now)
	}
	return false, nil
}

func (m *MockRefreshRepo) RevokeByHash(ctx context.Context, hash string) (bool, error) {
	if m.RevokeByHashFunc != nil {
		return m.RevokeByHashFunc(ctx, hash)
	}
	return false, nil
}

func (m *MockRefreshRepo) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.RevokeAllFunc != nil {
		return m.RevokeAllFunc(ctx, userID)
	}
	return 0, nil
}

// MockPasswordResetRepo
type MockPasswordResetRepo struct {
	CreateFunc           func(ctx context.Context, t *models.PasswordResetToken) error
	GetValidByHashFunc   func(ctx context.Context, codeHash string, now time.Time) (*models.PasswordResetToken, error)
	ConsumeFunc          func(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteAllForUserFunc func(ctx context.Context, userID uuid.UUID) (int64, error)
	FindLatestByUserFunc func(ctx context.Context, userID uuid.UUID) (*models.PasswordResetToken, error)
}

func (m *MockPasswordResetRepo) Create(ctx context.Context, t *models.PasswordResetToken) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}
	return nil
}

func (m *MockPasswordResetRepo) GetValidByHash(ctx context.Context, codeHash string, now time.Time) (*models.PasswordResetToken, error) {
	if m.GetValidByHashFunc != nil {
		return m.GetValidByHashFunc(ctx, codeHash, now)
	}
	return nil, nil
}

func (m *MockPasswordResetRepo) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, id)
	}
	return true, nil
}

func (m *MockPasswordResetRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.DeleteAllForUserFunc != nil {
		return m.DeleteAllForUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *MockPasswordResetRepo) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.PasswordResetToken, error) {
	if m.FindLatestByUserFunc != nil {
		return m.FindLatestByUserFunc(ctx, userID)
	}
	return nil, nil
}

// MockPasswordHasher
type MockPasswordHasher struct {
	HashFunc    func(password string) (string, error)
	CompareFunc func(hash, password string) bool
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	if m.HashFunc != nil {
		return m.HashFunc(password)
	}
	return "hashed_" + password, nil
}

func (m *MockPasswordHasher) Compare(hash, password string) bool {
	if m.CompareFunc != nil {
		return m.CompareFunc(hash, password)
	}
	return hash == "hashed_"+password
}

// MockTokenProvider
type MockTokenProvider struct {
	SignAccessFunc             func(ctx context.Context, sub uuid.UUID, role, email string, ttl time.Duration) (string, time.Time, error)
	NewRefreshFunc             func(ctx context.Context, sub uuid.UUID, ttl time.Duration) (string, string, time.Time, error)
	ParseAndValidateAccessFunc func(ctx context.Context, token string) (*service.Claims, error)
}

func (m *MockTokenProvider) SignAccess(ctx context.Context, sub uuid.UUID, role, email string, ttl time.Duration) (string, time.Time, error) {
	if m.SignAccessFunc != nil {
		return m.SignAccessFunc(ctx, sub, role, email, ttl)
	}
	exp := time.Now().Add(ttl)
	return "access_token", exp, nil
}

func (m *MockTokenProvider) NewRefresh(ctx context.Context, sub uuid.UUID, ttl time.Duration) (string, string, time.Time, error) {
	if m.NewRefreshFunc != nil {
		return m.NewRefreshFunc(ctx, sub, ttl)
	}
	exp := time.Now().Add(ttl)
	return "refresh_opaque", "refresh_hash", exp, nil
}

func (m *MockTokenProvider) ParseAndValidateAccess(ctx context.Context, token string) (*service.Claims, error) {
	if m.ParseAndValidateAccessFunc != nil {
		return m.ParseAndValidateAccessFunc(ctx, token)
	}
	return &service.Claims{
		UserID: uuid.New(),
		Role:   "ROLE_CUSTOMER",
		Exp:    time.Now().Add(time.Hour),
	}, nil
}

// MockCacheClient
type MockCacheClient struct {
	SetRateLimitFunc   func(ctx context.Context, key string, ttl time.Duration) error
	CheckRateLimitFunc func(ctx context.Context, key string) (bool, error)
	SetFunc            func(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetFunc            func(ctx context.Context, key string) (string, error)
	DelFunc            func(ctx context.Context, keys ...string) error
}

func (m *MockCacheClient) SetRateLimit(ctx context.Context, key string, ttl time.Duration) error {
	if m.SetRateLimitFunc != nil {
		return m.SetRateLimitFunc(ctx, key, ttl)
	}
	return nil
}

func (m *MockCacheClient) CheckRateLimit(ctx context.Context, key string) (bool, error) {
	if m.CheckRateLimitFunc != nil {
		return m.CheckRateLimitFunc(ctx, key)
	}
	return false, nil
}

func (m *MockCacheClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	return nil
}

func (m *MockCacheClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return "", nil
}

func (m *MockCacheClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	return nil
}

// MockEmailProducer
type MockEmailProducer struct {
	SendEmailFunc func(ctx context.Context, key string, msg producer.EmailMessage) error
}

func (m *MockEmailProducer) SendEmail(ctx context.Context, key string, msg producer.EmailMessage) error {
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, key, msg)
	}
	return nil
}

// MockOrderEventBus
type MockOrderEventBus struct {
	PublishOrderCreatedFunc func(ctx context.Context, msg producer.OrderCreatedMessage) error
}

func (m *MockOrderEventBus) PublishOrderCreated(ctx context.Context, msg producer.OrderCreatedMessage) error {
	if m.PublishOrderCreatedFunc != nil {
		return m.PublishOrderCreatedFunc(ctx, msg)
	}
	return nil
}

// MockObjectStorage
type MockObjectStorage struct {
	UploadFunc    func(ctx context.Context, object, contentType string, r io.Reader) (string, error)
	PublicURLFunc func(object string) string
}

func (m *MockObjectStorage) Upload(ctx context.Context, object, contentType string, r io.Reader) (string, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, object, contentType, r)
	}
	return "https://cdn.example.com/" + object, nil
}

func (m *MockObjectStorage) PublicURL(object string) string {
	if m.PublicURLFunc != nil {
		return m.PublicURLFunc(object)
	}
	return "https://cdn.example.com/" + object
}

// MockCategoryRepo
type MockCategoryRepo struct {
	CreateFunc       func(ctx context.Context, c *models.Category) error
	GetByIDFunc      func(ctx context.Context, id uuid.UUID) (*models.Category, error)
	GetBySlugFunc    func(ctx context.Context, slug string) (*models.Category, error)
	ListFunc         func(ctx context.Context) ([]models.Category, error)
	UpdateFieldsFunc func(ctx context.Context, id uuid.UUID, fields map[string]any) error
	DeleteFunc       func(ctx context.Context, id uuid.UUID) (bool, error)
}

func (m *MockCategoryRepo) Create(ctx context.Context, c *models.Category) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	return nil
}

func (m *MockCategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockCategoryRepo) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	if m.GetBySlugFunc != nil {
		return m.GetBySlugFunc(ctx, slug)
	}
	return nil, nil
}

func (m *MockCategoryRepo) List(ctx context.Context) ([]models.Category, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []models.Category{}, nil
}

func (m *MockCategoryRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if m.UpdateFieldsFunc != nil {
		return m.UpdateFieldsFunc(ctx, id, fields)
	}
	return nil
}

func (m *MockCategoryRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return true, nil
}

// MockProductRepo
type MockProductRepo struct {
	CreateFunc       func(ctx context.Context, p *models.Product) error
	GetByIDFunc      func(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListFunc         func(ctx context.Context, f repository.ProductListFilter) ([]models.Product, int64, error)
	ListRelatedFunc  func(ctx context.Context, categoryID, excludeID uuid.UUID, limit int) ([]models.Product, error)
	UpdateFieldsFunc func(ctx context.Context, id uuid.UUID, fields map[string]any) error
	DeleteFunc       func(ctx context.Context, id uuid.UUID) (bool, error)
}

func (m *MockProductRepo) Create(ctx context.Context, p *models.Product) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	return nil
}

func (m *MockProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockProductRepo) List(ctx context.Context, f repository.ProductListFilter) ([]models.Product, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	return []models.Product{}, 0, nil
}

func (m *MockProductRepo) ListRelated(ctx context.Context, categoryID, excludeID uuid.UUID, limit int) ([]models.Product, error) {
	if m.ListRelatedFunc != nil {
		return m.ListRelatedFunc(ctx, categoryID, excludeID, limit)
	}
	return []models.Product{}, nil
}

func (m *MockProductRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if m.UpdateFieldsFunc != nil {
		return m.UpdateFieldsFunc(ctx, id, fields)
	}
	return nil
}

func (m *MockProductRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return true, nil
}

// MockCollectionRepo
type MockCollectionRepo struct {
	CreateFunc          func(ctx context.Context, c *models.Collection) error
	GetByIDFunc         func(ctx context.Context, id uuid.UUID) (*models.Collection, error)
	ListFunc            func(ctx context.Context, onlyActive bool) ([]models.Collection, error)
	UpdateFieldsFunc    func(ctx context.Context, id uuid.UUID, fields map[string]any) error
	DeleteFunc          func(ctx context.Context, id uuid.UUID) (bool, error)
	ReplaceProductsFunc func(ctx context.Context, collectionID uuid.UUID, productIDs []uuid.UUID) error
	ListProductsFunc    func(ctx context.Context, collectionID uuid.UUID, onlyActive bool) ([]models.Product, error)
}

func (m *MockCollectionRepo) Create(ctx context.Context, c *models.Collection) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	return nil
}

func (m *MockCollectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockCollectionRepo) List(ctx context.Context, onlyActive bool) ([]models.Collection, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, onlyActive)
	}
	return []models.Collection{}, nil
}

func (m *MockCollectionRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if m.UpdateFieldsFunc != nil {
		return m.UpdateFieldsFunc(ctx, id, fields)
	}
	return nil
}

func (m *MockCollectionRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return true, nil
}

func (m *MockCollectionRepo) ReplaceProducts(ctx context.Context, collectionID uuid.UUID, productIDs []uuid.UUID) error {
	if m.ReplaceProductsFunc != nil {
		return m.ReplaceProductsFunc(ctx, collectionID, productIDs)
	}
	return nil
}

func (m *MockCollectionRepo) ListProducts(ctx context.Context, collectionID uuid.UUID, onlyActive bool) ([]models.Product, error) {
	if m.ListProductsFunc != nil {
		return m.ListProductsFunc(ctx, collectionID, onlyActive)
	}
	return []models.Product{}, nil
}

// MockOrderRepo. WithTx по умолчанию выполняет fn на тех же моках —
// транзакционность проверяется через WithTxFunc.
type MockOrderRepo struct {
	CreateFunc         func(ctx context.Context, o *models.Order) error
	GetByIDFunc        func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByIDForUserFunc func(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	UpdateStatusFunc   func(ctx context.Context, id uuid.UUID, status models.OrderStatus) (bool, error)
	ListFunc           func(ctx context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error)
	WithTxFunc         func(ctx context.Context, fn func(txOrders repository.OrderRepo, txItems repository.OrderItemRepo) error) error

	Items *MockOrderItemRepo
}

func (m *MockOrderRepo) Create(ctx context.Context, o *models.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	return nil
}

func (m *MockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockOrderRepo) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	if m.GetByIDForUserFunc != nil {
		return m.GetByIDForUserFunc(ctx, id, userID)
	}
	return nil, nil
}

func (m *MockOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (bool, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return true, nil
}

func (m *MockOrderRepo) List(ctx context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	return []*models.Order{}, 0, nil
}

func (m *MockOrderRepo) WithTx(ctx context.Context, fn func(txOrders repository.OrderRepo, txItems repository.OrderItemRepo) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, fn)
	}
	items := m.Items
	if items == nil {
		items = &MockOrderItemRepo{}
	}
	return fn(m, items)
}

// MockOrderItemRepo
type MockOrderItemRepo struct {
	BulkCreateFunc  func(ctx context.Context, items []models.OrderItem) error
	ListByOrderFunc func(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
}

func (m *MockOrderItemRepo) BulkCreate(ctx context.Context, items []models.OrderItem) error {
	if m.BulkCreateFunc != nil {
		return m.BulkCreateFunc(ctx, items)
	}
	return nil
}

func (m *MockOrderItemRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	if m.ListByOrderFunc != nil {
		return m.ListByOrderFunc(ctx, orderID)
	}
	return []models.OrderItem{}, nil
}

// MockSettingsRepo
type MockSettingsRepo struct {
	GetAllFunc    func(ctx context.Context) ([]models.SiteSetting, error)
	UpsertFunc    func(ctx context.Context, key, value string) error
	UpsertAllFunc func(ctx context.Context, kv map[string]string) error
}

func (m *MockSettingsRepo) GetAll(ctx context.Context) ([]models.SiteSetting, error) {
	if m.GetAllFunc != nil {
		return m.GetAllFunc(ctx)
	}
	return []models.SiteSetting{}, nil
}

func (m *MockSettingsRepo) Upsert(ctx context.Context, key, value string) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, key, value)
	}
	return nil
}

func (m *MockSettingsRepo) UpsertAll(ctx context.Context, kv map[string]string) error {
	if m.UpsertAllFunc != nil {
		return m.UpsertAllFunc(ctx, kv)
	}
	return nil
}

// MockIdentityProvider
type MockIdentityProvider struct {
	RegisterFunc             func(ctx context.Context, email, password, displayName string) (*models.User, error)
	LoginFunc                func(ctx context.Context, email, password string) (*service.Principal, service.TokenPair, error)
	RestoreSessionFunc       func(ctx context.Context, refreshOpaque string) (*service.Principal, error)
	RefreshFunc              func(ctx context.Context, refreshOpaque string) (*service.Principal, service.TokenPair, error)
	LogoutFunc               func(ctx context.Context, refreshOpaque string) error
	RequestPasswordResetFunc func(ctx context.Context, email string) error
	UpdatePasswordFunc       func(ctx context.Context, p *service.Principal, newPassword string) error
	UpdateProfileFunc        func(ctx context.Context, p *service.Principal, displayName string) error
}

func (m *MockIdentityProvider) Register(ctx context.Context, email, password, displayName string) (*models.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, displayName)
	}
	return &models.User{ID: uuid.New(), Email: email, DisplayName: displayName, Role: models.RoleCustomer}, nil
}

func (m *MockIdentityProvider) Login(ctx context.Context, email, password string) (*service.Principal, service.TokenPair, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return &service.Principal{ID: uuid.New(), Email: email, Role: models.RoleCustomer},
		service.TokenPair{AccessToken: "access", RefreshOpaque: "refresh"}, nil
}

func (m *MockIdentityProvider) RestoreSession(ctx context.Context, refreshOpaque string) (*service.Principal, error) {
	if m.RestoreSessionFunc != nil {
		return m.RestoreSessionFunc(ctx, refreshOpaque)
	}
	return nil, service.ErrTokenNotFoundOrRevoked
}

func (m *MockIdentityProvider) Refresh(ctx context.Context, refreshOpaque string) (*service.Principal, service.TokenPair, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshOpaque)
	}
	return nil, service.TokenPair{}, service.ErrTokenExpired
}

func (m *MockIdentityProvider) Logout(ctx context.Context, refreshOpaque string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, refreshOpaque)
	}
	return nil
}

func (m *MockIdentityProvider) RequestPasswordReset(ctx context.Context, email string) error {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email)
	}
	return nil
}

func (m *MockIdentityProvider) UpdatePassword(ctx context.Context, p *service.Principal, newPassword string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, p, newPassword)
	}
	return nil
}

func (m *MockIdentityProvider) UpdateProfile(ctx context.Context, p *service.Principal, displayName string) error {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, p, displayName)
	}
	return nil
}
