// Package email delivers inactivity reminder emails over SMTP.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/spms-hub/student-progress-hub/internal/domain/profile"
	"github.com/spms-hub/student-progress-hub/internal/domain/shared"
)

// reminderSubject is the subject line of the inactivity reminder.
const reminderSubject = "\U0001F514 Time to get back to coding!"

// reminderTemplate is the HTML body of the inactivity reminder.
var reminderTemplate = template.Must(template.New("reminder").Parse(`
      <h2>Hey {{.Name}}! &#128075;</h2>
      <p>We noticed you haven't been active on Codeforces for the past {{.ThresholdDays}} days.</p>
      {{if .HasSubmitted}}<p>Your last submission was {{.DaysSinceLast}} days ago.</p>{{end}}
      <p>Don't let your coding skills get rusty! Here are some suggestions to get back on track:</p>
      <ul>
        <li>&#127919; Try solving problems at your current rating level ({{.CurrentRating}})</li>
        <li>&#128218; Review algorithms you've learned recently</li>
        <li>&#127942; Participate in upcoming contests</li>
        <li>&#128170; Set a goal to solve at least one problem daily</li>
      </ul>
      <p>Remember, consistency is key to improvement in competitive programming!</p>
      <p>Happy coding! &#128640;</p>
      <br>
      <p><em>This is an automated reminder. You can disable these notifications in your profile settings.</em></p>
`))

// reminderData feeds the reminder template.
type reminderData struct {
	Name          string
	CurrentRating profile.Rating
	ThresholdDays int
	DaysSinceLast int
	HasSubmitted  bool
}

// Mailer sends reminder emails. The SMTP client is built from the settings
// passed to each send, never cached: a settings change is picked up by the
// very next delivery.
type Mailer struct {
	logger *slog.Logger
	now    func() time.Time

	// dial is swapped out in tests to avoid a real SMTP session.
	dial func(ctx context.Context, settings *profile.SyncSettings, msg *mail.Msg) error
}

// NewMailer creates a mailer.
func NewMailer(logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mailer{logger: logger, now: time.Now}
	m.dial = m.dialAndSend
	return m
}

// SendInactivityReminder emails one profile. Missing SMTP credentials make
// this a no-op that returns (false, nil); the sweep treats that as a skip,
// not a failure.
func (m *Mailer) SendInactivityReminder(ctx context.Context, p *profile.TrackedProfile, settings *profile.SyncSettings) (bool, error) {
	if !settings.HasSMTPCredentials() {
		m.logger.Warn("smtp credentials not configured, reminder skipped", "handle", p.Handle)
		return false, nil
	}

	msg, err := m.buildReminder(p, settings)
	if err != nil {
		return false, err
	}

	if err := m.dial(ctx, settings, msg); err != nil {
		return false, shared.WrapError("email", "Send", shared.ErrTransport, "deliver reminder to "+p.Email.String(), err)
	}

	m.logger.Info("reminder email sent", "handle", p.Handle, "email", p.Email)
	return true, nil
}

// buildReminder renders the message for one profile.
func (m *Mailer) buildReminder(p *profile.TrackedProfile, settings *profile.SyncSettings) (*mail.Msg, error) {
	days, hasSubmitted := p.DaysSinceLastSubmission(m.now())

	var body bytes.Buffer
	err := reminderTemplate.Execute(&body, reminderData{
		Name:          p.Name,
		CurrentRating: p.CurrentRating,
		ThresholdDays: settings.InactivityThresholdDays,
		DaysSinceLast: days,
		HasSubmitted:  hasSubmitted,
	})
	if err != nil {
		return nil, fmt.Errorf("render reminder: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(settings.EmailFromName, settings.SenderAddress()); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(p.Email.String()); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(reminderSubject)
	msg.SetBodyString(mail.TypeTextHTML, body.String())

	return msg, nil
}

// dialAndSend opens an SMTP session per delivery using the current settings.
func (m *Mailer) dialAndSend(ctx context.Context, settings *profile.SyncSettings, msg *mail.Msg) error {
	client, err := clientFromSettings(settings)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// clientFromSettings builds the SMTP client. Port 465 selects implicit TLS
// explicitly; every other port negotiates STARTTLS when the server offers it.
func clientFromSettings(settings *profile.SyncSettings) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(settings.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(settings.SMTPUser),
		mail.WithPassword(settings.SMTPPassword),
	}

	if settings.SMTPPort == 465 {
		opts = append(opts, mail.WithSSLPort(false))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(settings.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("build smtp client: %w", err)
	}
	return client, nil
}
