package repository

import (
	"context"
	"time"

	"storefront-service/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepo interface {
	GetAll(ctx context.Context) ([]models.SiteSetting, error)
	Upsert(ctx context.Context, key, value string) error
	UpsertAll(ctx context.Context, kv map[string]string) error
}

type settingsRepo struct{ db *gorm.DB }

func NewSettingsRepo(db *gorm.DB) SettingsRepo { return &settingsRepo{db: db} }

func (r *settingsRepo) GetAll(ctx context.Context) ([]models.SiteSetting, error) {
	var list []models.SiteSetting
	err := r.db.WithContext(ctx).Order("setting_key ASC").Find(&list).Error
	return list, err
}

func (r *settingsRepo) Upsert(ctx context.Context, key, value string) error {
	s := models.SiteSetting{SettingKey: key, SettingValue: value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value", "updated_at"}),
	}).Create(&s).Error
}

func (r *settingsRepo) UpsertAll(ctx context.Context, kv map[string]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := &settingsRepo{db: tx}
		for k, v := range kv {
			if err := repo.Upsert(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}
