package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"storefront-service/internal/repository"

	"go.uber.org/zap"
)

const settingsSnapshotKey = "site_settings"

// Дефолты витрины: используются, пока настройки ещё не сохранялись
// или БД недоступна.
var defaultSettings = map[string]string{
	"site_name":        "StyleHub",
	"business_address": "123 Fashion Street, New York, NY 10001",
	"business_phone":   "+1 (555) 123-4567",
	"business_email":   "info@stylehub.com",
	"facebook_url":     "",
	"instagram_url":    "",
	"twitter_url":      "",
}

type settingsSnapshot struct {
	Values  map[string]string `json:"values"`
	SavedAt time.Time         `json:"saved_at"`
}

// SettingsService отдаёт настройки сайта из памяти с TTL.
// Пока снимок свежий, ни БД, ни redis не трогаются. На холодном
// старте сначала показывается снимок из redis (если есть), а
// авторитетная загрузка из БД уходит в фон.
type SettingsService struct {
	repo  repository.SettingsRepo
	cache CacheClient // может быть nil
	ttl   time.Duration
	now   func() time.Time

	mu        sync.RWMutex
	values    map[string]string
	fetchedAt time.Time
	painted   bool // в памяти лежит снимок из redis, не из БД

	refreshing bool

	log *zap.Logger
}

func NewSettingsService(repo repository.SettingsRepo, cache CacheClient, ttl time.Duration, log *zap.Logger) *SettingsService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SettingsService{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
		log:   log,
	}
}

// Get возвращает полный набор настроек: значения из БД поверх дефолтов.
func (s *SettingsService) Get(ctx context.Context) map[string]string {
	s.mu.RLock()
	if s.values != nil && !s.painted && s.now().Sub(s.fetchedAt) < s.ttl {
		out := copySettings(s.values)
		s.mu.RUnlock()
		return out
	}
	s.mu.RUnlock()

	// холодный старт: нарисовать снимок из redis и уйти за БД в фон
	if s.tryPaintFromCache(ctx) {
		s.asyncRefresh()
		s.mu.RLock()
		out := copySettings(s.values)
		s.mu.RUnlock()
		return out
	}

	return s.fetch(ctx)
}

// GetValue — одна настройка с провалом в дефолт.
func (s *SettingsService) GetValue(ctx context.Context, key string) string {
	if v, ok := s.Get(ctx)[key]; ok {
		return v
	}
	return defaultSettings[key]
}

func (s *SettingsService) tryPaintFromCache(ctx context.Context) bool {
	if s.cache == nil {
		return false
	}

	s.mu.RLock()
	have := s.values != nil
	s.mu.RUnlock()
	if have {
		return false
	}

	raw, err := s.cache.Get(ctx, settingsSnapshotKey)
	if err != nil || raw == "" {
		return false
	}

	var snap settingsSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.log.Warn("malformed settings snapshot in cache", zap.Error(err))
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values != nil {
		return false
	}
	s.values = mergeDefaults(snap.Values)
	s.painted = true
	return true
}

// fetch — авторитетная загрузка из БД; при ошибке отдаются дефолты
// либо последний снимок, если он уже есть.
func (s *SettingsService) fetch(ctx context.Context) map[string]string {
	list, err := s.repo.GetAll(ctx)
	if err != nil {
		s.log.Error("failed to load site settings", zap.Error(err))
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.values != nil {
			return copySettings(s.values)
		}
		return copySettings(defaultSettings)
	}

	kv := make(map[string]string, len(list))
	for _, row := range list {
		kv[row.SettingKey] = row.SettingValue
	}
	merged := mergeDefaults(kv)

	s.mu.Lock()
	s.values = merged
	s.fetchedAt = s.now()
	s.painted = false
	s.mu.Unlock()

	s.saveSnapshot(ctx, merged)
	return copySettings(merged)
}

func (s *SettingsService) asyncRefresh() {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return
	}
	s.refreshing = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.refreshing = false
			s.mu.Unlock()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		s.fetch(ctx)
	}()
}

func (s *SettingsService) saveSnapshot(ctx context.Context, kv map[string]string) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(settingsSnapshot{Values: kv, SavedAt: s.now()})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, settingsSnapshotKey, string(raw), 0); err != nil {
		s.log.Warn("failed to persist settings snapshot", zap.Error(err))
	}
}

// Invalidate сбрасывает снимок в памяти; следующий Get пойдёт в БД.
func (s *SettingsService) Invalidate() {
	s.mu.Lock()
	s.values = nil
	s.fetchedAt = time.Time{}
	s.painted = false
	s.mu.Unlock()
}

// Update сохраняет настройки (только админ) и инвалидирует кэш.
func (s *SettingsService) Update(ctx context.Context, kv map[string]string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	if len(kv) == 0 {
		return ErrInvalidInput
	}

	if err := s.repo.UpsertAll(ctx, kv); err != nil {
		return err
	}

	s.Invalidate()
	if s.cache != nil {
		if err := s.cache.Del(ctx, settingsSnapshotKey); err != nil {
			s.log.Warn("failed to drop settings snapshot", zap.Error(err))
		}
	}
	return nil
}

func mergeDefaults(kv map[string]string) map[string]string {
	out := copySettings(defaultSettings)
	for k, v := range kv {
		out[k] = v
	}
	return out
}

func copySettings(kv map[string]string) map[string]string {
	out := make(map[string]string, len(kv))
	for k, v := range kv {
		out[k] = v
	}
	return out
}
