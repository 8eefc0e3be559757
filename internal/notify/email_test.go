package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wneessen/go-mail"
)

func testMailer(t *testing.T) (*Mailer, *[]*mail.Msg) {
	t.Helper()
	m := NewMailer(MailSettings{
		Username: "probe@example.com",
		Password: "secret",
		To:       []string{"ops@example.com"},
	}, nil)
	var sent []*mail.Msg
	m.deliver = func(_ context.Context, _ MailSettings, msg *mail.Msg) error {
		sent = append(sent, msg)
		return nil
	}
	return m, &sent
}

func TestNewMailer_Defaults(t *testing.T) {
	m := NewMailer(MailSettings{Username: "me@example.com"}, nil)
	if m.settings.Host != "smtp.gmail.com" {
		t.Errorf("host = %q", m.settings.Host)
	}
	if m.settings.Port != 587 {
		t.Errorf("port = %d", m.settings.Port)
	}
	if m.settings.From != "me@example.com" {
		t.Errorf("from = %q", m.settings.From)
	}
}

func TestMailer_SendSkipsMissingAttachments(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "ookla_result.json")
	if err := os.WriteFile(present, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "result.json")

	m, sent := testMailer(t)
	err := m.Send(context.Background(), "subject", "body", []string{present, missing, dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(*sent))
	}
	if n := len((*sent)[0].GetAttachments()); n != 1 {
		t.Errorf("attachments = %d, want 1", n)
	}
}

func TestMailer_MissingCredentials(t *testing.T) {
	m := NewMailer(MailSettings{Username: "me@example.com"}, nil)
	m.deliver = func(context.Context, MailSettings, *mail.Msg) error {
		t.Fatal("deliver should not be called")
		return nil
	}
	err := m.Send(context.Background(), "s", "b", nil)
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}
}

func TestMailer_DeliverError(t *testing.T) {
	m, _ := testMailer(t)
	m.deliver = func(context.Context, MailSettings, *mail.Msg) error {
		return errors.New("connection refused")
	}
	if err := m.Send(context.Background(), "s", "b", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestExistingFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	if err := os.WriteFile(a, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got := existingFiles([]string{filepath.Join(dir, "nope"), a, dir})
	if len(got) != 1 || got[0] != a {
		t.Errorf("got %v, want [%s]", got, a)
	}
}
