package repository

import (
	"context"
	"errors"
	"strings"

	"storefront-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductListFilter struct {
	CategoryID *uuid.UUID
	Search     string // частичное совпадение по name, без учёта регистра
	OnlyActive bool
	OrderBy    string // имя колонки, валидируется сервисом
	Desc       bool
	Limit      int
	Offset     int
}

type ProductRepo interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, f ProductListFilter) ([]models.Product, int64, error)
	ListRelated(ctx context.Context, categoryID, excludeID uuid.UUID, limit int) ([]models.Product, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type productRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) ProductRepo { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).Preload("Category").First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, f ProductListFilter) ([]models.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})

	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where("name ILIKE ?", "%"+s+"%")
	}
	if f.OnlyActive {
		q = q.Where("is_active = true")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 12
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}

	var list []models.Product
	err := q.Order(orderBy + " " + dir).
		Limit(f.Limit).Offset(f.Offset).
		Preload("Category").
		Find(&list).Error
	return list, total, err
}

func (r *productRepo) ListRelated(ctx context.Context, categoryID, excludeID uuid.UUID, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 4
	}
	var list []models.Product
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND id <> ? AND is_active = true", categoryID, excludeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *productRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields).Error
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	return tx.RowsAffected > 0, tx.Error
}
