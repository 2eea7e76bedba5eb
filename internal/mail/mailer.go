// Package mail sends transactional email for buildledger.
//
// The only mail today is the partner invite. The mailer subscribes to
// invite events on the bus; when SMTP is not configured it logs the invite
// link instead of sending, which keeps local development working without a
// mail server.
package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/buildledger/internal/events"
	"github.com/fyrsmithlabs/buildledger/internal/logging"
)

// Config holds SMTP settings. An empty Host disables sending.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether the mailer will actually send.
func (c Config) Enabled() bool { return c.Host != "" }

// Mailer sends invite emails. Safe for concurrent use; go-mail clients
// dial per send.
type Mailer struct {
	cfg     Config
	baseURL string
	logger  *logging.Logger
	client  *gomail.Client
}

// NewMailer creates a mailer. baseURL is the externally reachable server
// URL used to build accept links.
func NewMailer(cfg Config, baseURL string, logger *logging.Logger) (*Mailer, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Mailer{cfg: cfg, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}

	if !cfg.Enabled() {
		logger.Info(context.Background(), "smtp not configured, invite emails will be logged only")
		return m, nil
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTimeout(15 * time.Second),
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	m.client = client
	return m, nil
}

// SubscribeInvites wires the mailer to invite events on the bus.
func (m *Mailer) SubscribeInvites(bus *events.Bus) error {
	_, err := bus.Subscribe(events.SubjectInviteCreated, func(data []byte) {
		var event events.InviteCreated
		if err := json.Unmarshal(data, &event); err != nil {
			m.logger.Error(context.Background(), "decode invite event", zap.Error(err))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.SendInvite(ctx, event); err != nil {
			m.logger.Error(ctx, "send invite email",
				zap.String("invite_id", event.InviteID), zap.Error(err))
		}
	})
	return err
}

// SendInvite sends (or logs) one invite email.
func (m *Mailer) SendInvite(ctx context.Context, event events.InviteCreated) error {
	link := m.AcceptLink(event.Token)

	if !m.cfg.Enabled() {
		m.logger.Info(ctx, "invite email (smtp disabled)",
			zap.String("to", event.Email),
			zap.String("project", event.ProjectName),
			zap.String("link", link))
		return nil
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(event.Email); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	msg.Subject(fmt.Sprintf("You have been invited to %q on buildledger", event.ProjectName))
	msg.SetBodyString(gomail.TypeTextPlain, inviteBody(event, link))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	m.logger.Info(ctx, "invite email sent",
		zap.String("to", event.Email), zap.String("invite_id", event.InviteID))
	return nil
}

// AcceptLink builds the invite accept URL for a cleartext token.
func (m *Mailer) AcceptLink(token string) string {
	return m.baseURL + "/api/v1/invites/accept?token=" + url.QueryEscape(token)
}

func inviteBody(event events.InviteCreated, link string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\n")
	fmt.Fprintf(&b, "%s invited you to the project %q on buildledger as %s.\n\n",
		event.InvitedBy, event.ProjectName, event.Role)
	fmt.Fprintf(&b, "Accept the invitation:\n\n    %s\n\n", link)
	fmt.Fprintf(&b, "Sign in to buildledger with this email address first; the link is accepted through your signed-in session.\n\n")
	if !event.ExpiresAt.IsZero() {
		fmt.Fprintf(&b, "The invitation expires on %s.\n\n", event.ExpiresAt.Format("2 January 2006"))
	}
	fmt.Fprintf(&b, "If you did not expect this email you can ignore it.\n")
	return b.String()
}
