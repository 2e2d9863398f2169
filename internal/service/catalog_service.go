package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
)

// Белый список сортировок каталога, всё прочее падает в created_at.
var productSortColumns = map[string]string{
	"name":       "name",
	"price":      "price_cents",
	"created_at": "created_at",
}

type ProductQuery struct {
	CategorySlug string
	Search       string
	Sort         string // name | price | created_at
	Desc         bool
	Page         int // с единицы
	PageSize     int
	IncludeAll   bool // для админки: показать и выключенные товары
}

type ProductPage struct {
	Products []models.Product
	Total    int64
	Page     int
	PageSize int
}

// CatalogService — доступ к категориям, товарам и подборкам плюс
// админский CRUD.
type CatalogService struct {
	categories  repository.CategoryRepo
	products    repository.ProductRepo
	collections repository.CollectionRepo
	storage     ObjectStorage // может быть nil, тогда загрузка картинок недоступна
	log         *zap.Logger
}

func NewCatalogService(
	categories repository.CategoryRepo,
	products repository.ProductRepo,
	collections repository.CollectionRepo,
	storage ObjectStorage,
	log *zap.Logger,
) *CatalogService {
	return &CatalogService{
		categories:  categories,
		products:    products,
		collections: collections,
		storage:     storage,
		log:         log,
	}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

func (s *CatalogService) GetCategory(ctx context.Context, slug string) (*models.Category, error) {
	c, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCategoryNotFound
	}
	return c, nil
}

// ListProducts листает каталог. Неизвестный slug категории — это не
// ошибка, а пустая страница: витрина на мёртвую ссылку показывает
// "ничего не найдено".
func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) (ProductPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	f := repository.ProductListFilter{
		Search:     q.Search,
		OnlyActive: !q.IncludeAll,
		Desc:       q.Desc,
		Limit:      size,
		Offset:     (page - 1) * size,
	}

	if col, ok := productSortColumns[q.Sort]; ok {
		f.OrderBy = col
	} else {
		f.OrderBy = "created_at"
		f.Desc = true
	}

	if slug := strings.TrimSpace(q.CategorySlug); slug != "" {
		c, err := s.categories.GetBySlug(ctx, slug)
		if err != nil {
			return ProductPage{}, err
		}
		if c == nil {
			return ProductPage{Page: page, PageSize: size}, nil
		}
		f.CategoryID = &c.ID
	}

	list, total, err := s.products.List(ctx, f)
	if err != nil {
		return ProductPage{}, err
	}

	return ProductPage{
		Products: list,
		Total:    total,
		Page:     page,
		PageSize: size,
	}, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// RelatedProducts — до четырёх активных товаров из той же категории.
// Для товара без категории возвращает пустой список.
func (s *CatalogService) RelatedProducts(ctx context.Context, productID uuid.UUID, limit int) ([]models.Product, error) {
	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.CategoryID == nil {
		return nil, nil
	}
	return s.products.ListRelated(ctx, *p.CategoryID, p.ID, limit)
}

type ProductInput struct {
	Name        string
	Description string
	PriceCents  int64
	ImageURL    string
	CategoryID  *uuid.UUID
	Sizes       []string
	IsActive    bool
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" || in.PriceCents <= 0 {
		return nil, ErrInvalidInput
	}

	if in.CategoryID != nil {
		c, err := s.categories.GetByID(ctx, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, ErrCategoryNotFound
		}
	}

	p := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		ImageURL:    in.ImageURL,
		CategoryID:  in.CategoryID,
		Sizes:       strings.Join(in.Sizes, ","),
		IsActive:    in.IsActive,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Product, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}

	if err := s.products.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.products.GetByID(ctx, id)
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	ok, err := s.products.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrProductNotFound
	}
	return nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, name, slug, imageURL string) (*models.Category, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	c := &models.Category{
		Name:     name,
		Slug:     strings.ToLower(strings.TrimSpace(slug)),
		ImageURL: imageURL,
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Category, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCategoryNotFound
	}

	if err := s.categories.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.categories.GetByID(ctx, id)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	ok, err := s.categories.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCategoryNotFound
	}
	return nil
}

// ListCollections возвращает подборки витрины в заданном порядке.
func (s *CatalogService) ListCollections(ctx context.Context, includeAll bool) ([]models.Collection, error) {
	return s.collections.List(ctx, !includeAll)
}

func (s *CatalogService) GetCollection(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	c, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCollectionNotFound
	}
	return c, nil
}

// CollectionProducts — товары подборки в сохранённом порядке.
// Выключенная подборка для витрины неотличима от несуществующей.
func (s *CatalogService) CollectionProducts(ctx context.Context, id uuid.UUID, includeAll bool) ([]models.Product, error) {
	c, err := s.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsActive && !includeAll {
		return nil, ErrCollectionNotFound
	}
	return s.collections.ListProducts(ctx, c.ID, !includeAll)
}

type CollectionInput struct {
	Name         string
	Description  string
	ImageURL     string
	DisplayOrder int
	IsActive     bool
}

func (s *CatalogService) CreateCollection(ctx context.Context, in CollectionInput) (*models.Collection, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrInvalidInput
	}

	c := &models.Collection{
		Name:         in.Name,
		Description:  in.Description,
		ImageURL:     in.ImageURL,
		DisplayOrder: in.DisplayOrder,
		IsActive:     in.IsActive,
	}
	if err := s.collections.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) UpdateCollection(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Collection, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	c, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCollectionNotFound
	}

	if err := s.collections.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.collections.GetByID(ctx, id)
}

func (s *CatalogService) DeleteCollection(ctx context.Context, id uuid.UUID) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	ok, err := s.collections.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCollectionNotFound
	}
	return nil
}

// SetCollectionProducts заменяет состав подборки целиком.
func (s *CatalogService) SetCollectionProducts(ctx context.Context, id uuid.UUID, productIDs []uuid.UUID) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	if _, err := s.GetCollection(ctx, id); err != nil {
		return err
	}
	return s.collections.ReplaceProducts(ctx, id, productIDs)
}

// UploadProductImage кладёт файл в хранилище под случайным именем,
// расширение берётся из исходного имени файла.
func (s *CatalogService) UploadProductImage(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return "", err
	}
	if s.storage == nil {
		return "", ErrForbidden
	}

	ext := strings.ToLower(path.Ext(filename))
	object := fmt.Sprintf("products/%s%s", uuid.NewString(), ext)

	url, err := s.storage.Upload(ctx, object, contentType, r)
	if err != nil {
		s.log.Error("product image upload failed", zap.Error(err))
		return "", err
	}
	return url, nil
}
