package profile

import (
	"errors"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC SETTINGS (SINGLETON)
// ══════════════════════════════════════════════════════════════════════════════

// Значения по умолчанию для настроек синхронизации.
const (
	DefaultCronSchedule            = "0 2 * * *" // ежедневно в 02:00
	DefaultTimezone                = "UTC"
	DefaultSMTPHost                = "smtp.gmail.com"
	DefaultSMTPPort                = 587
	DefaultEmailFromName           = "SPMS"
	DefaultInactivityThresholdDays = 7
)

// SyncSettings - единственная запись с настройками синхронизации и почты.
// Перечитывается при каждом срабатывании планировщика и перед каждой
// рассылкой напоминаний; никогда не кэшируется между тиками.
type SyncSettings struct {
	// CronSchedule - пятипольное cron-выражение расписания синхронизации.
	CronSchedule string

	// Timezone - IANA-имя зоны, в которой интерпретируется расписание.
	Timezone string

	// SMTPHost - адрес SMTP-сервера.
	SMTPHost string

	// SMTPPort - порт SMTP-сервера. 465 означает implicit TLS.
	SMTPPort int

	// SMTPUser - имя пользователя SMTP. Пустое значение отключает рассылку.
	SMTPUser string

	// SMTPPassword - пароль SMTP. Хранится зашифрованным, здесь - открытый текст.
	SMTPPassword string

	// EmailFrom - адрес отправителя. Пустое значение - использовать SMTPUser.
	EmailFrom string

	// EmailFromName - отображаемое имя отправителя.
	EmailFromName string

	// InactivityThresholdDays - порог неактивности в днях.
	InactivityThresholdDays int

	// LastSyncTime - время завершения последней полной синхронизации.
	LastSyncTime *time.Time

	// UpdatedAt - время последнего изменения настроек.
	UpdatedAt time.Time
}

// DefaultSyncSettings возвращает настройки по умолчанию.
func DefaultSyncSettings() *SyncSettings {
	return &SyncSettings{
		CronSchedule:            DefaultCronSchedule,
		Timezone:                DefaultTimezone,
		SMTPHost:                DefaultSMTPHost,
		SMTPPort:                DefaultSMTPPort,
		EmailFromName:           DefaultEmailFromName,
		InactivityThresholdDays: DefaultInactivityThresholdDays,
		UpdatedAt:               time.Now().UTC(),
	}
}

// Ошибки валидации настроек.
var (
	// ErrInvalidTimezone - зона не распознана.
	ErrInvalidTimezone = errors.New("invalid timezone: unknown IANA name")

	// ErrInvalidThreshold - порог неактивности меньше одного дня.
	ErrInvalidThreshold = errors.New("invalid inactivity threshold: must be at least 1 day")

	// ErrInvalidSMTPPort - порт вне диапазона 1-65535.
	ErrInvalidSMTPPort = errors.New("invalid smtp port: must be in 1-65535")

	// ErrEmptyCronSchedule - пустое расписание.
	ErrEmptyCronSchedule = errors.New("cron schedule must not be empty")
)

// Validate проверяет поля настроек. Корректность самого cron-выражения
// проверяет планировщик при постановке расписания.
func (s *SyncSettings) Validate() error {
	if s.CronSchedule == "" {
		return ErrEmptyCronSchedule
	}

	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return ErrInvalidTimezone
	}

	if s.InactivityThresholdDays < 1 {
		return ErrInvalidThreshold
	}

	if s.SMTPPort < 1 || s.SMTPPort > 65535 {
		return ErrInvalidSMTPPort
	}

	return nil
}

// Location возвращает загруженную зону расписания.
func (s *SyncSettings) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// SenderAddress возвращает адрес отправителя писем.
func (s *SyncSettings) SenderAddress() string {
	if s.EmailFrom != "" {
		return s.EmailFrom
	}
	return s.SMTPUser
}

// HasSMTPCredentials возвращает true, если заданы логин и пароль SMTP.
func (s *SyncSettings) HasSMTPCredentials() bool {
	return s.SMTPUser != "" && s.SMTPPassword != ""
}

// InactivityCutoff возвращает момент отсечки: посылки не новее него
// означают неактивность.
func (s *SyncSettings) InactivityCutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(s.InactivityThresholdDays) * 24 * time.Hour)
}

// MarkSynced фиксирует завершение полного цикла синхронизации.
func (s *SyncSettings) MarkSynced(now time.Time) {
	t := now.UTC()
	s.LastSyncTime = &t
	s.UpdatedAt = t
}
