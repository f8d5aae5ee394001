package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	sl "finance_api/internal/lib/logger"
	"finance_api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess(t *testing.T) {
	valid, err := json.Marshal(models.Message{To: "alice@example.com", Subject: "Reset your password", Body: "link"})
	require.NoError(t, err)

	noRecipient, err := json.Marshal(models.Message{Subject: "x"})
	require.NoError(t, err)

	ok := func(context.Context, models.Message) error { return nil }
	failing := func(context.Context, models.Message) error { return errors.New("smtp down") }

	tests := []struct {
		name        string
		body        []byte
		redelivered bool
		handler     Handler
		wantAck     bool
		wantRequeue bool
	}{
		{name: "delivered", body: valid, handler: ok, wantAck: true},
		{name: "malformed dropped", body: []byte("{"), handler: ok},
		{name: "no recipient dropped", body: noRecipient, handler: ok},
		{name: "first failure requeued", body: valid, handler: failing, wantRequeue: true},
		{name: "second failure dropped", body: valid, redelivered: true, handler: failing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack, requeue := process(context.Background(), sl.NewDiscard(), tt.body, tt.redelivered, tt.handler)
			assert.Equal(t, tt.wantAck, ack)
			assert.Equal(t, tt.wantRequeue, requeue)
		})
	}
}

func TestProcess_PassesDecodedMessage(t *testing.T) {
	want := models.Message{To: "bob@example.com", Subject: "Reset your password", Body: "https://app/reset-password?token=abc"}
	body, err := json.Marshal(want)
	require.NoError(t, err)

	var got models.Message
	ack, _ := process(context.Background(), sl.NewDiscard(), body, false, func(_ context.Context, msg models.Message) error {
		got = msg
		return nil
	})

	assert.True(t, ack)
	assert.Equal(t, want, got)
}
