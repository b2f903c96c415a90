// Package profile содержит доменную модель отслеживаемого профиля Codeforces.
// Это ядро бизнес-логики - без инфраструктурных зависимостей.
package profile

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Handle представляет хэндл пользователя на Codeforces.
type Handle string

// IsValid проверяет корректность хэндла.
func (h Handle) IsValid() bool {
	s := string(h)
	return len(s) >= 1 && len(s) <= 50 && !strings.ContainsAny(s, " \t\n\r")
}

// String возвращает строковое представление хэндла.
func (h Handle) String() string {
	return string(h)
}

// Email представляет адрес электронной почты студента.
type Email string

// IsValid проверяет минимальную корректность адреса.
func (e Email) IsValid() bool {
	s := string(e)
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t\n\r")
}

// String возвращает строковое представление адреса.
func (e Email) String() string {
	return string(e)
}

// Rating представляет рейтинг Codeforces.
type Rating int

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT TYPES
// ══════════════════════════════════════════════════════════════════════════════

// ContestResult - результат участия в одном рейтинговом контесте.
type ContestResult struct {
	// ContestID - идентификатор контеста на Codeforces.
	ContestID int

	// ContestName - название контеста.
	ContestName string

	// Handle - хэндл участника.
	Handle string

	// Rank - занятое место.
	Rank int

	// OldRating - рейтинг до контеста.
	OldRating Rating

	// NewRating - рейтинг после контеста.
	NewRating Rating

	// RatingUpdatedAt - время пересчёта рейтинга.
	RatingUpdatedAt time.Time
}

// Problem описывает задачу, к которой относится посылка.
type Problem struct {
	ContestID int
	Index     string
	Name      string
	Type      string
	Rating    Rating
	Tags      []string
}

// SubmissionRecord - одна посылка решения на Codeforces.
type SubmissionRecord struct {
	// ID - идентификатор посылки.
	ID int64

	// ContestID - контест, в рамках которого сделана посылка.
	ContestID int

	// CreatedAt - время создания посылки.
	CreatedAt time.Time

	// RelativeTimeSeconds - секунды с начала контеста (огромное значение
	// для посылок вне контеста).
	RelativeTimeSeconds int64

	// Problem - задача, к которой относится посылка.
	Problem Problem

	// Author - хэндл автора посылки.
	Author string

	// Language - язык программирования.
	Language string

	// Verdict - вердикт тестирования ("OK", "WRONG_ANSWER", ...).
	Verdict string

	// Testset - набор тестов ("TESTS", "PRETESTS", ...).
	Testset string

	// PassedTestCount - количество пройденных тестов.
	PassedTestCount int

	// TimeConsumedMillis - затраченное время в миллисекундах.
	TimeConsumedMillis int

	// MemoryConsumedBytes - затраченная память в байтах.
	MemoryConsumedBytes int64
}

// Snapshot - полный срез данных профиля, полученный от Codeforces за один
// цикл синхронизации. Заменяет сохранённые данные целиком.
type Snapshot struct {
	Handle        Handle
	CurrentRating Rating
	MaxRating     Rating
	Contests      []ContestResult
	Submissions   []SubmissionRecord
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: TRACKED PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// TrackedProfile - центральная сущность системы: студент, чей профиль
// Codeforces отслеживается и синхронизируется по расписанию.
type TrackedProfile struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// Name - имя студента.
	Name string

	// Email - адрес электронной почты (уникальный).
	Email Email

	// Phone - телефон (опционально).
	Phone string

	// Handle - хэндл на Codeforces (уникальный).
	Handle Handle

	// Active - участвует ли профиль в синхронизации и напоминаниях.
	Active bool

	// NotificationsEnabled - разрешены ли email-напоминания.
	NotificationsEnabled bool

	// CurrentRating - текущий рейтинг.
	CurrentRating Rating

	// MaxRating - максимальный рейтинг за всю историю.
	MaxRating Rating

	// LastUpdated - время последней успешной синхронизации профиля.
	LastUpdated *time.Time

	// Contests - полная история рейтинговых контестов.
	Contests []ContestResult

	// Submissions - последние посылки.
	Submissions []SubmissionRecord

	// ReminderCount - сколько напоминаний о неактивности отправлено.
	ReminderCount int

	// LastReminderAt - время последнего отправленного напоминания.
	LastReminderAt *time.Time

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления записи.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidHandle - невалидный хэндл Codeforces.
	ErrInvalidHandle = errors.New("invalid handle: must be 1-50 chars without whitespace")

	// ErrInvalidEmail - невалидный адрес почты.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidName - невалидное имя.
	ErrInvalidName = errors.New("invalid name: must be 1-100 chars")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewProfileParams содержит параметры для создания нового профиля.
type NewProfileParams struct {
	// ID - опционально; пустое значение заменяется новым UUID.
	ID     string
	Name   string
	Email  Email
	Phone  string
	Handle Handle
}

// NewTrackedProfile создаёт новый профиль с валидацией всех полей.
func NewTrackedProfile(params NewProfileParams) (*TrackedProfile, error) {
	if params.ID == "" {
		params.ID = uuid.NewString()
	}

	name := strings.TrimSpace(params.Name)
	if len(name) == 0 || len(name) > 100 {
		return nil, ErrInvalidName
	}

	if !params.Email.IsValid() {
		return nil, ErrInvalidEmail
	}

	if !params.Handle.IsValid() {
		return nil, ErrInvalidHandle
	}

	now := time.Now().UTC()

	return &TrackedProfile{
		ID:                   params.ID,
		Name:                 name,
		Email:                params.Email,
		Phone:                strings.TrimSpace(params.Phone),
		Handle:               params.Handle,
		Active:               true,
		NotificationsEnabled: true,
		CurrentRating:        0,
		MaxRating:            0,
		Contests:             nil,
		Submissions:          nil,
		ReminderCount:        0,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// ApplySnapshot полностью заменяет сохранённые данные профиля свежим срезом.
// Контесты и посылки не объединяются с предыдущими - semantics полной замены.
// MaxRating не опускается ниже максимума из истории контестов.
func (p *TrackedProfile) ApplySnapshot(snap Snapshot, now time.Time) {
	p.CurrentRating = snap.CurrentRating
	p.MaxRating = snap.MaxRating

	for _, c := range snap.Contests {
		if c.NewRating > p.MaxRating {
			p.MaxRating = c.NewRating
		}
	}

	p.Contests = snap.Contests
	p.Submissions = snap.Submissions

	t := now.UTC()
	p.LastUpdated = &t
	p.UpdatedAt = t
}

// LastSubmissionTime возвращает время самой свежей посылки.
// Второе значение false, если посылок нет вовсе.
func (p *TrackedProfile) LastSubmissionTime() (time.Time, bool) {
	if len(p.Submissions) == 0 {
		return time.Time{}, false
	}

	latest := p.Submissions[0].CreatedAt
	for _, s := range p.Submissions[1:] {
		if s.CreatedAt.After(latest) {
			latest = s.CreatedAt
		}
	}
	return latest, true
}

// DaysSinceLastSubmission возвращает число полных дней с момента последней
// посылки. Второе значение false, если посылок нет вовсе.
func (p *TrackedProfile) DaysSinceLastSubmission(now time.Time) (int, bool) {
	last, ok := p.LastSubmissionTime()
	if !ok {
		return 0, false
	}
	return int(now.Sub(last).Hours() / 24), true
}

// IsInactiveSince возвращает true, если у профиля нет посылок не раньше cutoff.
// Посылка ровно в момент cutoff считается активностью.
func (p *TrackedProfile) IsInactiveSince(cutoff time.Time) bool {
	last, ok := p.LastSubmissionTime()
	if !ok {
		return true
	}
	return last.Before(cutoff)
}

// EligibleForReminder возвращает true, если профилю можно отправить
// напоминание: он активен и уведомления включены.
func (p *TrackedProfile) EligibleForReminder() bool {
	return p.Active && p.NotificationsEnabled
}

// InReminderCooldown возвращает true, если с момента последнего напоминания
// прошло меньше cooldown.
func (p *TrackedProfile) InReminderCooldown(now time.Time, cooldown time.Duration) bool {
	if p.LastReminderAt == nil {
		return false
	}
	return now.Sub(*p.LastReminderAt) < cooldown
}

// RecordReminder фиксирует подтверждённую отправку напоминания.
// Вызывается только после успешной доставки письма.
func (p *TrackedProfile) RecordReminder(now time.Time) {
	t := now.UTC()
	p.ReminderCount++
	p.LastReminderAt = &t
	p.UpdatedAt = t
}

// Deactivate исключает профиль из синхронизации и напоминаний.
func (p *TrackedProfile) Deactivate() {
	p.Active = false
	p.UpdatedAt = time.Now().UTC()
}

// Clone возвращает глубокую копию профиля.
func (p *TrackedProfile) Clone() *TrackedProfile {
	clone := *p

	if p.LastUpdated != nil {
		t := *p.LastUpdated
		clone.LastUpdated = &t
	}
	if p.LastReminderAt != nil {
		t := *p.LastReminderAt
		clone.LastReminderAt = &t
	}

	if p.Contests != nil {
		clone.Contests = make([]ContestResult, len(p.Contests))
		copy(clone.Contests, p.Contests)
	}
	if p.Submissions != nil {
		clone.Submissions = make([]SubmissionRecord, len(p.Submissions))
		for i, s := range p.Submissions {
			clone.Submissions[i] = s
			if s.Problem.Tags != nil {
				tags := make([]string, len(s.Problem.Tags))
				copy(tags, s.Problem.Tags)
				clone.Submissions[i].Problem.Tags = tags
			}
		}
	}

	return &clone
}
