package migrate

import (
	"context"

	"storefront-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	WithPasswordReset   bool // password_reset_tokens
	WithSettings        bool // site_settings
	CreateFunctionalIdx bool // lower(email) уникальный индекс
	CreateFKsViaSQL     bool // создадим FK через Exec после AutoMigrate
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		WithPasswordReset:   true,
		WithSettings:        true,
		CreateFunctionalIdx: true,
		CreateFKsViaSQL:     true,
	}
}

func MigrateStorefrontDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы данных витрины")

	// Расширения (генераторы UUID, крипта, триграммы)
	log.Info("Создание расширений PostgreSQL")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		log.Error("Не удалось включить расширение pgcrypto", zap.Error(err))
		return err
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Error("Не удалось включить расширение uuid-ossp", zap.Error(err))
		return err
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`).Error; err != nil {
		log.Error("Не удалось включить расширение pg_trgm", zap.Error(err))
		return err
	}
	log.Info("Расширения PostgreSQL успешно созданы")

	// Базовые таблицы
	log.Info("Создание базовых таблиц")
	modelsAny := []any{
		&models.User{},
		&models.RefreshToken{},
		&models.Category{},
		&models.Product{},
		&models.Collection{},
		&models.CollectionProduct{},
		&models.Order{},
		&models.OrderItem{},
	}
	if err := db.AutoMigrate(modelsAny...); err != nil {
		log.Error("Не удалось создать базовые таблицы", zap.Error(err))
		return err
	}
	log.Info("Базовые таблицы успешно созданы")

	log.Info("Создание опциональных таблиц",
		zap.Bool("withPasswordReset", opt.WithPasswordReset),
		zap.Bool("withSettings", opt.WithSettings))

	if opt.WithPasswordReset {
		if err := db.AutoMigrate(&models.PasswordResetToken{}); err != nil {
			log.Error("Не удалось создать таблицу токенов сброса пароля", zap.Error(err))
			return err
		}
		log.Info("Таблица токенов сброса пароля создана")
	}
	if opt.WithSettings {
		if err := db.AutoMigrate(&models.SiteSetting{}); err != nil {
			log.Error("Не удалось создать таблицу настроек сайта", zap.Error(err))
			return err
		}
		log.Info("Таблица настроек сайта создана")
	}

	// Триггер updated_at
	log.Info("Создание триггера updated_at")
	if err := db.Exec(`
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;
DROP TRIGGER IF EXISTS trg_users_updated ON users;
CREATE TRIGGER trg_users_updated BEFORE UPDATE ON users
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
DROP TRIGGER IF EXISTS trg_orders_updated ON orders;
CREATE TRIGGER trg_orders_updated BEFORE UPDATE ON orders
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`).Error; err != nil {
		log.Error("Не удалось создать триггер updated_at", zap.Error(err))
		return err
	}
	log.Info("Триггер updated_at успешно создан")

	// Функциональный уникальный индекс на email (lower(email))
	if opt.CreateFunctionalIdx {
		log.Info("Создание уникального индекса на lower(email)")
		if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email ON users (lower(email))`).Error; err != nil {
			log.Error("Не удалось создать уникальный индекс на lower(email)", zap.Error(err))
			return err
		}
		log.Info("Уникальный индекс на lower(email) создан")
	}

	// Внешние ключи через SQL
	if opt.CreateFKsViaSQL {
		log.Info("Создание внешних ключей")
		if err := db.Exec(`
ALTER TABLE refresh_tokens
  DROP CONSTRAINT IF EXISTS fk_refresh_user,
  ADD CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE;
`).Error; err != nil {
			log.Error("Не удалось создать FK refresh_tokens.user_id -> users.id", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE products
  DROP CONSTRAINT IF EXISTS fk_products_category,
  ADD CONSTRAINT fk_products_category FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE SET NULL;
`).Error; err != nil {
			log.Error("Не удалось создать FK products.category_id -> categories.id", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE collection_products
  DROP CONSTRAINT IF EXISTS fk_cp_collection,
  ADD CONSTRAINT fk_cp_collection FOREIGN KEY (collection_id) REFERENCES collections(id) ON DELETE CASCADE;
ALTER TABLE collection_products
  DROP CONSTRAINT IF EXISTS fk_cp_product,
  ADD CONSTRAINT fk_cp_product FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE;
`).Error; err != nil {
			log.Error("Не удалось создать FK подборок", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS fk_orders_user,
  ADD CONSTRAINT fk_orders_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE;
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS fk_order_items_order,
  ADD CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;
`).Error; err != nil {
			log.Error("Не удалось создать FK заказов", zap.Error(err))
			return err
		}

		if opt.WithPasswordReset {
			if err := db.Exec(`
ALTER TABLE password_reset_tokens
  DROP CONSTRAINT IF EXISTS fk_pr_user,
  ADD CONSTRAINT fk_pr_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE;
`).Error; err != nil {
				log.Error("Не удалось создать FK password_reset_tokens.user_id -> users.id", zap.Error(err))
				return err
			}
		}
		log.Info("Внешние ключи успешно созданы")
	}

	log.Info("Миграция базы данных витрины успешно завершена")
	return nil
}
