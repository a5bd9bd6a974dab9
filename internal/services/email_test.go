package services

import (
	"strings"
	"testing"
	"time"

	"github.com/onboardhub/backend/internal/config"
)

func TestSMTPMailer_DisabledIsNoop(t *testing.T) {
	m := NewSMTPMailer(&config.MailConfig{Enabled: false, Host: "smtp.invalid"})
	if err := m.SendInvitation(&InvitationMail{To: "bob@example.com"}); err != nil {
		t.Errorf("disabled mailer should not fail, got %v", err)
	}
}

func TestSMTPMailer_AcceptURL(t *testing.T) {
	m := NewSMTPMailer(&config.MailConfig{AppURL: "https://app.example.com/"})
	got := m.AcceptURL("abc def")
	want := "https://app.example.com/invitations/accept?token=abc+def"
	if got != want {
		t.Errorf("AcceptURL() = %q, expected %q", got, want)
	}
}

func TestSMTPMailer_InvitationBodyEscapes(t *testing.T) {
	m := NewSMTPMailer(&config.MailConfig{AppURL: "https://app.example.com"})
	body := m.buildInvitationBody(&InvitationMail{
		To:          "bob@example.com",
		ProjectName: "<script>alert(1)</script>",
		InviterName: "Ada",
		Role:        "member",
		Token:       "tok-123",
		ExpiresAt:   time.Date(2030, 1, 2, 3, 4, 0, 0, time.UTC),
	})

	if strings.Contains(body, "<script>") {
		t.Error("project name should be escaped")
	}
	if !strings.Contains(body, "https://app.example.com/invitations/accept?token=tok-123") {
		t.Error("body should contain accept link")
	}
	if !strings.Contains(body, "2030-01-02 03:04 UTC") {
		t.Error("body should contain expiry")
	}
}

func TestSMTPMailer_BuildMessageHeaders(t *testing.T) {
	m := NewSMTPMailer(&config.MailConfig{})
	msg := m.buildMessage("noreply@example.com", []string{"a@example.com", "b@example.com"}, "Hi", "<p>x</p>")

	for _, want := range []string{
		"From: noreply@example.com\r\n",
		"To: a@example.com,b@example.com\r\n",
		"Subject: Hi\r\n",
		"Content-Type: text/html; charset=UTF-8\r\n",
		"\r\n\r\n<p>x</p>",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
	if !strings.HasPrefix(msg, "From:") {
		t.Error("headers should be written in a stable order")
	}
}

func TestNewSMTPMailer_DefaultPort(t *testing.T) {
	m := NewSMTPMailer(&config.MailConfig{})
	if m.cfg.Port != 587 {
		t.Errorf("Port = %d, expected 587", m.cfg.Port)
	}
}
