package profile

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции CRUD для отслеживаемых профилей.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// CRUD Operations
	// ─────────────────────────────────────────────────────────────────────────

	// Create создаёт новый профиль.
	// Возвращает ErrProfileAlreadyExists при конфликте email или handle.
	Create(ctx context.Context, p *TrackedProfile) error

	// GetByID возвращает профиль по внутреннему ID.
	// Возвращает ErrProfileNotFound, если профиль не найден.
	GetByID(ctx context.Context, id string) (*TrackedProfile, error)

	// GetByHandle возвращает профиль по хэндлу Codeforces.
	// Возвращает ErrProfileNotFound, если профиль не найден.
	GetByHandle(ctx context.Context, handle Handle) (*TrackedProfile, error)

	// GetByEmail возвращает профиль по адресу почты.
	// Возвращает ErrProfileNotFound, если профиль не найден.
	GetByEmail(ctx context.Context, email Email) (*TrackedProfile, error)

	// Update обновляет данные профиля.
	// Возвращает ErrProfileNotFound, если профиль не найден.
	Update(ctx context.Context, p *TrackedProfile) error

	// Delete удаляет профиль.
	// Возвращает ErrProfileNotFound, если профиль не найден.
	Delete(ctx context.Context, id string) error

	// ─────────────────────────────────────────────────────────────────────────
	// Bulk Operations
	// ─────────────────────────────────────────────────────────────────────────

	// GetAll возвращает все профили с пагинацией.
	GetAll(ctx context.Context, opts ListOptions) ([]*TrackedProfile, error)

	// GetActive возвращает активные профили.
	GetActive(ctx context.Context) ([]*TrackedProfile, error)

	// Count возвращает общее количество профилей.
	Count(ctx context.Context) (int, error)
}

// SettingsRepository определяет доступ к единственной записи настроек.
type SettingsRepository interface {
	// Get возвращает настройки синхронизации. Если запись отсутствует,
	// создаёт её со значениями по умолчанию.
	Get(ctx context.Context) (*SyncSettings, error)

	// Update сохраняет изменённые настройки.
	Update(ctx context.Context, s *SyncSettings) error

	// SetLastSyncTime фиксирует время завершения синхронизации,
	// не трогая остальные поля.
	SetLastSyncTime(ctx context.Context, t time.Time) error
}

// Cache определяет кэширование срезов профилей.
type Cache interface {
	// GetProfile возвращает закэшированный профиль по хэндлу.
	GetProfile(ctx context.Context, handle Handle) (*TrackedProfile, error)

	// SetProfile кэширует профиль.
	SetProfile(ctx context.Context, p *TrackedProfile) error

	// InvalidateProfile удаляет профиль из кэша.
	InvalidateProfile(ctx context.Context, handle Handle) error
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY OPTIONS
// ══════════════════════════════════════════════════════════════════════════════

// ListOptions задаёт параметры выборки списков.
type ListOptions struct {
	// Limit - максимальное количество записей (0 = без ограничения).
	Limit int

	// Offset - смещение для пагинации.
	Offset int

	// OrderBy - поле сортировки.
	OrderBy OrderField

	// Desc - сортировка по убыванию.
	Desc bool
}

// OrderField - допустимые поля сортировки.
type OrderField string

const (
	// OrderByName - сортировка по имени.
	OrderByName OrderField = "name"
	// OrderByHandle - сортировка по хэндлу.
	OrderByHandle OrderField = "handle"
	// OrderByRating - сортировка по текущему рейтингу.
	OrderByRating OrderField = "current_rating"
	// OrderByCreatedAt - сортировка по времени создания.
	OrderByCreatedAt OrderField = "created_at"
)

// DefaultListOptions возвращает параметры выборки по умолчанию.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:   0,
		Offset:  0,
		OrderBy: OrderByCreatedAt,
		Desc:    false,
	}
}

// WithLimit задаёт лимит выборки.
func (o ListOptions) WithLimit(limit int) ListOptions {
	o.Limit = limit
	return o
}

// WithOffset задаёт смещение выборки.
func (o ListOptions) WithOffset(offset int) ListOptions {
	o.Offset = offset
	return o
}

// WithOrder задаёт сортировку.
func (o ListOptions) WithOrder(field OrderField, desc bool) ListOptions {
	o.OrderBy = field
	o.Desc = desc
	return o
}
