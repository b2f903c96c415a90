package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSyncSettings(t *testing.T) {
	s := DefaultSyncSettings()

	assert.Equal(t, "0 2 * * *", s.CronSchedule)
	assert.Equal(t, "UTC", s.Timezone)
	assert.Equal(t, "smtp.gmail.com", s.SMTPHost)
	assert.Equal(t, 587, s.SMTPPort)
	assert.Equal(t, "SPMS", s.EmailFromName)
	assert.Equal(t, 7, s.InactivityThresholdDays)
	assert.Nil(t, s.LastSyncTime)
}

func TestSyncSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SyncSettings)
		wantErr error
	}{
		{name: "defaults are valid", mutate: func(*SyncSettings) {}, wantErr: nil},
		{name: "empty cron", mutate: func(s *SyncSettings) { s.CronSchedule = "" }, wantErr: ErrEmptyCronSchedule},
		{name: "bad timezone", mutate: func(s *SyncSettings) { s.Timezone = "Mars/Olympus" }, wantErr: ErrInvalidTimezone},
		{name: "zero threshold", mutate: func(s *SyncSettings) { s.InactivityThresholdDays = 0 }, wantErr: ErrInvalidThreshold},
		{name: "port too high", mutate: func(s *SyncSettings) { s.SMTPPort = 70000 }, wantErr: ErrInvalidSMTPPort},
		{name: "port zero", mutate: func(s *SyncSettings) { s.SMTPPort = 0 }, wantErr: ErrInvalidSMTPPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSyncSettings()
			tt.mutate(s)

			err := s.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSyncSettings_InactivityCutoff(t *testing.T) {
	s := DefaultSyncSettings()
	s.InactivityThresholdDays = 7

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cutoff := s.InactivityCutoff(now)

	assert.Equal(t, time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC), cutoff)
}

func TestSyncSettings_SenderAddress(t *testing.T) {
	s := DefaultSyncSettings()
	s.SMTPUser = "bot@example.com"
	assert.Equal(t, "bot@example.com", s.SenderAddress())

	s.EmailFrom = "noreply@example.com"
	assert.Equal(t, "noreply@example.com", s.SenderAddress())
}

func TestSyncSettings_HasSMTPCredentials(t *testing.T) {
	s := DefaultSyncSettings()
	assert.False(t, s.HasSMTPCredentials())

	s.SMTPUser = "bot@example.com"
	assert.False(t, s.HasSMTPCredentials())

	s.SMTPPassword = "secret"
	assert.True(t, s.HasSMTPCredentials())
}

func TestSyncSettings_MarkSynced(t *testing.T) {
	s := DefaultSyncSettings()
	now := time.Date(2026, 3, 1, 2, 5, 0, 0, time.UTC)

	s.MarkSynced(now)

	require.NotNil(t, s.LastSyncTime)
	assert.Equal(t, now, *s.LastSyncTime)
}
