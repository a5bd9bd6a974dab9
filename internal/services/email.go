package services

import (
	"crypto/tls"
	"fmt"
	"html"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/onboardhub/backend/internal/config"
	"github.com/onboardhub/backend/pkg/logger"
)

// InvitationMail carries what an invitee needs to accept.
type InvitationMail struct {
	To          string
	ProjectName string
	InviterName string
	Role        string
	Token       string
	ExpiresAt   time.Time
}

// InvitationMailer delivers invitation emails.
type InvitationMailer interface {
	SendInvitation(mail *InvitationMail) error
}

type SMTPMailer struct {
	cfg config.MailConfig
}

func NewSMTPMailer(cfg *config.MailConfig) *SMTPMailer {
	c := *cfg
	if c.Port == 0 {
		c.Port = 587
	}
	return &SMTPMailer{cfg: c}
}

func (m *SMTPMailer) SendInvitation(mail *InvitationMail) error {
	if !m.cfg.Enabled || m.cfg.Host == "" {
		return nil
	}

	subject := fmt.Sprintf("[Onboardhub] You're invited to %s", mail.ProjectName)
	body := m.buildInvitationBody(mail)
	return m.send([]string{mail.To}, subject, body)
}

// AcceptURL is the link the invitee follows to accept.
func (m *SMTPMailer) AcceptURL(token string) string {
	base := strings.TrimRight(m.cfg.AppURL, "/")
	return base + "/invitations/accept?token=" + url.QueryEscape(token)
}

func (m *SMTPMailer) buildInvitationBody(mail *InvitationMail) string {
	var sb strings.Builder

	sb.WriteString("<html><body style=\"font-family: Arial, sans-serif;\">")
	sb.WriteString(fmt.Sprintf("<h2>Join %s</h2>", html.EscapeString(mail.ProjectName)))

	inviter := mail.InviterName
	if inviter == "" {
		inviter = "A project admin"
	}
	sb.WriteString(fmt.Sprintf("<p>%s invited you to join <strong>%s</strong> as <strong>%s</strong>.</p>",
		html.EscapeString(inviter), html.EscapeString(mail.ProjectName), html.EscapeString(mail.Role)))

	link := html.EscapeString(m.AcceptURL(mail.Token))
	sb.WriteString(fmt.Sprintf("<p><a href=\"%s\">Accept invitation</a></p>", link))
	sb.WriteString(fmt.Sprintf("<p style=\"color: #888; font-size: 12px;\">This invitation expires on %s.</p>",
		mail.ExpiresAt.UTC().Format("2006-01-02 15:04 MST")))
	sb.WriteString("</body></html>")

	return sb.String()
}

func (m *SMTPMailer) buildMessage(from string, to []string, subject, body string) string {
	headers := [][2]string{
		{"From", from},
		{"To", strings.Join(to, ",")},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var message strings.Builder
	for _, h := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	message.WriteString("\r\n")
	message.WriteString(body)
	return message.String()
}

func (m *SMTPMailer) send(to []string, subject, body string) error {
	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}
	message := m.buildMessage(from, to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	var err error
	if m.cfg.UseTLS {
		err = m.sendTLS(addr, auth, from, to, message)
	} else {
		err = smtp.SendMail(addr, auth, from, to, []byte(message))
	}
	if err != nil {
		logger.Warnf("[Mail] Failed to send to %v: %v", to, err)
		return err
	}

	logger.Infof("[Mail] Sent invitation to %v", to)
	return nil
}

func (m *SMTPMailer) sendTLS(addr string, auth smtp.Auth, from string, to []string, message string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(message)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
