package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	sl "finance_api/internal/lib/logger"
	"finance_api/internal/models"
)

// Handler processes one decoded mail job.
type Handler func(ctx context.Context, msg models.Message) error

var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Consume reads the queue until ctx is done. Each job is acked after handler
// succeeds; a failed job is requeued once, then dropped.
func (c *Client) Consume(ctx context.Context, log *slog.Logger, handler Handler) error {
	const op = "rabbitmq.Consume"

	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%s: %w", op, ErrDeliveriesClosed)
			}

			ack, requeue := process(ctx, log, d.Body, d.Redelivered, handler)
			if ack {
				err = d.Ack(false)
			} else {
				err = d.Nack(false, requeue)
			}
			if err != nil {
				log.Error("failed to settle delivery", sl.Err(err))
			}
		}
	}
}

func process(
	ctx context.Context,
	log *slog.Logger,
	body []byte,
	redelivered bool,
	handler Handler,
) (ack bool, requeue bool) {
	var msg models.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Error("failed to unmarshal message", sl.Err(err))
		return false, false
	}

	if msg.To == "" {
		log.Error("message has no recipient")
		return false, false
	}

	if err := handler(ctx, msg); err != nil {
		log.Error("failed to handle message", sl.Err(err), slog.Bool("redelivered", redelivered))
		return false, !redelivered
	}

	return true, false
}
