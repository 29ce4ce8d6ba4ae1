package mailer

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []Email
	err   error
	delay time.Duration
	gate  chan struct{}
}

func (s *recordingSender) Send(email Email) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, email)
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestNewMailer_Validation(t *testing.T) {
	_, err := NewMailer(Config{})
	assert.Error(t, err)

	_, err = NewMailer(Config{Host: "smtp.example.com", Port: 587})
	assert.Error(t, err)

	m, err := NewMailer(Config{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"})
	require.NoError(t, err)
	assert.ErrorIs(t, m.Send(Email{Subject: "x"}), ErrNoRecipients)
}

func TestMailer_SetEmailMessage(t *testing.T) {
	m, err := NewMailer(Config{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"})
	require.NoError(t, err)

	msg := gomail.NewMessage()
	m.setEmailMessage(msg, Email{
		To:       []string{"a@x.com"},
		Subject:  "Reset your password",
		Body:     "plain body",
		HTMLBody: "<p>html body</p>",
	})

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "From: noreply@example.com")
	assert.Contains(t, raw, "To: a@x.com")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "plain body")
	assert.Contains(t, raw, "<p>html body</p>")
}

func TestMailer_SetEmailMessage_PlainOnly(t *testing.T) {
	m, err := NewMailer(Config{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"})
	require.NoError(t, err)

	msg := gomail.NewMessage()
	m.setEmailMessage(msg, Email{To: []string{"a@x.com"}, Subject: "s", Body: "plain body"})

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	assert.NotContains(t, buf.String(), "text/html")
	assert.Contains(t, buf.String(), "plain body")
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "noreply@example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Enabled())
	assert.Equal(t, 587, cfg.Port)
}

func TestNewSender_FallsBackToLog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	sender, err := NewSender(Config{}, &logger)
	require.NoError(t, err)
	require.IsType(t, &LogSender{}, sender)

	require.NoError(t, sender.Send(Email{To: []string{"a@x.com"}, Subject: "Hi", Body: "secret-token"}))
	assert.Contains(t, buf.String(), "a@x.com")
	assert.NotContains(t, buf.String(), "secret-token")
}

func TestDispatcher_DeliversAndDrains(t *testing.T) {
	logger := zerolog.Nop()
	sender := &recordingSender{delay: 10 * time.Millisecond}
	d := NewDispatcher(sender, &logger, 2)

	for i := 0; i < 5; i++ {
		assert.True(t, d.Dispatch(Email{To: []string{"a@x.com"}, Subject: "s"}))
	}

	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 5, sender.count())
	assert.False(t, d.Dispatch(Email{To: []string{"a@x.com"}}))
}

func TestDispatcher_SwallowsSendErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	sender := &recordingSender{err: errors.New("smtp down")}
	d := NewDispatcher(sender, &logger, 1)

	d.Dispatch(Email{To: []string{"a@x.com"}, Subject: "s"})
	require.NoError(t, d.Close(context.Background()))
	assert.Contains(t, buf.String(), "smtp down")
}

func TestDispatcher_CloseHonoursContext(t *testing.T) {
	logger := zerolog.Nop()
	sender := &recordingSender{delay: 200 * time.Millisecond}
	d := NewDispatcher(sender, &logger, 1)
	d.Dispatch(Email{To: []string{"a@x.com"}})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
}

func TestDispatcher_DropsWhenBacklogFull(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	sender := &recordingSender{gate: make(chan struct{})}
	d := NewDispatcher(sender, &logger, 1)

	for i := 0; i < backlogPerWorker; i++ {
		require.True(t, d.Dispatch(Email{To: []string{"a@x.com"}, Subject: "s"}))
	}
	assert.False(t, d.Dispatch(Email{To: []string{"a@x.com"}, Subject: "s"}))
	assert.Contains(t, buf.String(), "mail backlog full")

	close(sender.gate)
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, backlogPerWorker, sender.count())
}
