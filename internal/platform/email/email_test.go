package email

import (
	"context"
	"strings"
	"testing"
	"time"

	"selfeval/internal/platform/config"
)

func TestBuildMessage(t *testing.T) {
	sent := time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC)
	msg := string(buildMessage("no-reply@uni.edu", "jan@uni.edu", "Decision\r\nBcc: x@y", "line one\nline two", sent))

	if !strings.HasPrefix(msg, "From: no-reply@uni.edu\r\nTo: jan@uni.edu\r\n") {
		t.Fatalf("unexpected headers: %q", msg)
	}
	if !strings.Contains(msg, "Subject: Decision  Bcc: x@y\r\n") {
		t.Fatalf("expected header injection to be flattened: %q", msg)
	}
	if !strings.Contains(msg, "Date: Mon, 06 May 2024 09:30:00 +0000\r\n") || !strings.Contains(msg, "@uni.edu>\r\n") {
		t.Fatalf("expected date and message id: %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nline one\r\nline two") {
		t.Fatalf("unexpected body: %q", msg)
	}
}

func TestBuildMessageEncodesPolishSubject(t *testing.T) {
	msg := string(buildMessage("a@uni.edu", "b@uni.edu", "Odpowiedź zatwierdzona", "treść", time.Now()))
	if !strings.Contains(msg, "Subject: =?utf-8?q?") {
		t.Fatalf("expected encoded subject: %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\ntreść") {
		t.Fatalf("body must stay raw utf-8: %q", msg)
	}
}

func TestNewReturnsNoopWhenDisabled(t *testing.T) {
	m := New(config.Config{EmailEnabled: false, SMTPHost: "smtp.uni.edu"})
	if _, ok := m.(noopMailer); !ok {
		t.Fatalf("expected noop mailer, got %T", m)
	}
	if err := m.Send(context.Background(), "a", "b", "c", "d"); err != nil {
		t.Fatalf("noop send failed: %v", err)
	}
}
