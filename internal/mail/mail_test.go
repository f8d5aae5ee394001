package mail

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	msg := newMessage("no-reply@finance.local", "alice@example.com", "Reset your password", "open the link")

	assert.Equal(t, []string{"no-reply@finance.local"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"alice@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Reset your password"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "open the link")
}

func TestNew_FromDefaultsToUsername(t *testing.T) {
	s := New("localhost", 1025, "mailer@finance.local", "", "")
	assert.Equal(t, "mailer@finance.local", s.from)
}

func TestSend_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New("localhost", 1025, "", "", "a@b.c").Send(ctx, "x@y.z", "s", "b")
	require.ErrorIs(t, err, context.Canceled)
}
