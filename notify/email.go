package notify

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"os"
	"strings"

	"grabbi-loyalty/models"

	"github.com/google/uuid"
)

type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func GetEmailConfig() *EmailConfig {
	return &EmailConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
}

func (c *EmailConfig) Configured() bool {
	return c.Host != "" && c.Port != "" && c.From != ""
}

// UserDirectory resolves a recipient id to a mailbox.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailChannel mails customer notifications over SMTP.
type EmailChannel struct {
	config   *EmailConfig
	users    UserDirectory
	sendMail sendMailFunc
}

func NewEmailChannel(config *EmailConfig, users UserDirectory) *EmailChannel {
	return &EmailChannel{config: config, users: users, sendMail: smtp.SendMail}
}

func (c *EmailChannel) Name() string { return "email" }

// Deliver mails n to its recipient. Global notices are in-app only.
func (c *EmailChannel) Deliver(ctx context.Context, n models.Notification) error {
	if n.RecipientID == nil || n.IsGlobal {
		return nil
	}
	if !c.config.Configured() {
		return fmt.Errorf("SMTP not configured")
	}
	user, err := c.users.GetUser(ctx, *n.RecipientID)
	if err != nil {
		return fmt.Errorf("look up recipient %s: %w", n.RecipientID, err)
	}
	if user.Email == "" {
		return fmt.Errorf("recipient %s has no email address", user.ID)
	}
	return c.send(user.Email, n.Title+" - Grabbi", renderNotification(user.Name, n))
}

func (c *EmailChannel) send(to, subject, htmlBody string) error {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n",
		c.config.From, to, subject)
	msg := []byte(headers + htmlBody)

	var auth smtp.Auth
	if c.config.Username != "" && c.config.Password != "" {
		auth = smtp.PlainAuth("", c.config.Username, c.config.Password, c.config.Host)
	}

	addr := c.config.Host + ":" + c.config.Port
	return c.sendMail(addr, auth, c.config.From, []string{to}, msg)
}

func renderNotification(name string, n models.Notification) string {
	first := "there"
	if fields := strings.Fields(name); len(fields) > 0 {
		first = fields[0]
	}
	return fmt.Sprintf(`<h2>%s</h2>
<p>Hi %s,</p>
<p>%s</p>
<p>The Grabbi Team</p>`, html.EscapeString(n.Title), html.EscapeString(first), html.EscapeString(n.Body))
}
