package repository

import (
	"context"
	"errors"

	"storefront-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CollectionRepo interface {
	Create(ctx context.Context, c *models.Collection) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Collection, error)
	List(ctx context.Context, onlyActive bool) ([]models.Collection, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	ReplaceProducts(ctx context.Context, collectionID uuid.UUID, productIDs []uuid.UUID) error
	ListProducts(ctx context.Context, collectionID uuid.UUID, onlyActive bool) ([]models.Product, error)
}

type collectionRepo struct{ db *gorm.DB }

func NewCollectionRepo(db *gorm.DB) CollectionRepo { return &collectionRepo{db: db} }

func (r *collectionRepo) Create(ctx context.Context, c *models.Collection) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *collectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	var c models.Collection
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *collectionRepo) List(ctx context.Context, onlyActive bool) ([]models.Collection, error) {
	q := r.db.WithContext(ctx).Model(&models.Collection{})
	if onlyActive {
		q = q.Where("is_active = true")
	}
	var list []models.Collection
	err := q.Order("display_order ASC").Find(&list).Error
	return list, err
}

func (r *collectionRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Collection{}).Where("id = ?", id).Updates(fields).Error
}

// Delete удаляет подборку; членство чистится каскадным FK.
func (r *collectionRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Delete(&models.Collection{}, "id = ?", id)
	return tx.RowsAffected > 0, tx.Error
}

// ReplaceProducts атомарно заменяет состав подборки; порядок товаров —
// порядок идентификаторов на входе.
func (r *collectionRepo) ReplaceProducts(ctx context.Context, collectionID uuid.UUID, productIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection_id = ?", collectionID).Delete(&models.CollectionProduct{}).Error; err != nil {
			return err
		}
		if len(productIDs) == 0 {
			return nil
		}

		rows := make([]models.CollectionProduct, 0, len(productIDs))
		for i, pid := range productIDs {
			rows = append(rows, models.CollectionProduct{
				CollectionID: collectionID,
				ProductID:    pid,
				DisplayOrder: i,
			})
		}
		return tx.Create(&rows).Error
	})
}

func (r *collectionRepo) ListProducts(ctx context.Context, collectionID uuid.UUID, onlyActive bool) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{}).
		Joins("JOIN collection_products cp ON cp.product_id = products.id").
		Where("cp.collection_id = ?", collectionID)
	if onlyActive {
		q = q.Where("products.is_active = true")
	}

	var list []models.Product
	err := q.Order("cp.display_order ASC").Find(&list).Error
	return list, err
}
