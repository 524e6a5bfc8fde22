package mailer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Rrens/flora-expert/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, isLog := New(config.MailConfig{}, 2*time.Minute).(LogSender)
	assert.True(t, isLog)

	_, isSMTP := New(config.MailConfig{Host: "smtp.example.com", Port: 587, Username: "bot"}, 2*time.Minute).(*SMTPSender)
	assert.True(t, isSMTP)
}

func TestSMTPSender_Message(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{Host: "smtp.example.com", Port: 587, Username: "bot@example.com", FromName: "FLORA"}, 2*time.Minute)

	m, err := s.message("ana@example.com", "Ana", "123456")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "To: ana@example.com")
	assert.Contains(t, raw, "Secure Access Code")
	assert.True(t, strings.Contains(raw, "123456"))
	assert.Contains(t, raw, "expires in 2 minutes")
}

func TestLogSender(t *testing.T) {
	assert.True(t, LogSender{}.SendCode(context.Background(), "a@x.com", "Ana", "123456"))
}
