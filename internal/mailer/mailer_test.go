package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMTPMailer_RejectsBadAddresses(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 2525, From: "not an address"})
	err := m.Send(context.Background(), "someone@example.com", "hi", "body")
	assert.ErrorContains(t, err, "invalid sender")

	m = NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 2525, From: "noel@example.com"})
	err = m.Send(context.Background(), "bad recipient", "hi", "body")
	assert.ErrorContains(t, err, "invalid recipient")
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, LogMailer{}.Send(context.Background(), "a@example.com", "subject", "body"))
}
