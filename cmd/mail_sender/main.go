package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"finance_api/internal/config"
	sl "finance_api/internal/lib/logger"
	"finance_api/internal/mail"
	"finance_api/internal/models"
	"finance_api/internal/rabbitmq"
)

func main() {
	cfg := config.MustLoad("")

	log := sl.New(cfg.Env, os.Stdout)

	log.Info("starting mail sender", slog.String("env", cfg.Env), slog.String("queue", cfg.RabbitMQ.QueueName))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer client.Close()

	sender := mail.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)

	err = client.Consume(ctx, log, func(ctx context.Context, msg models.Message) error {
		return sender.Send(ctx, msg.To, msg.Subject, msg.Body)
	})
	if err != nil && ctx.Err() == nil {
		log.Error("consumer stopped", sl.Err(err))
		os.Exit(1)
	}

	log.Info("mail sender stopped")
}
