package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/DesCaldnd/Crypota/internal/config"
	"github.com/DesCaldnd/Crypota/internal/infrastructure/kafka"
	natsrpc "github.com/DesCaldnd/Crypota/internal/infrastructure/nats"
	"github.com/DesCaldnd/Crypota/internal/service"
)

func init() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("Error loading .env file", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func main() {
	if err := run(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.MustLoadConfig()
	if err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if !cfg.NATS.Enabled && !cfg.Kafka.Enabled {
		return fmt.Errorf("no transport enabled: set nats.enabled or kafka.enabled")
	}

	cipherContext, err := service.NewCipherContext(cfg.Cipher, logger)
	if err != nil {
		return err
	}
	cipherService := service.NewService(cipherContext, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.NATS.Enabled {
		conn, err := natsrpc.Connect(cfg.NATS.URL, logger)
		if err != nil {
			return err
		}
		defer conn.Close()

		server := natsrpc.NewServer(conn, cipherService, cfg.NATS.SubjectPrefix, cfg.NATS.QueueGroup, cfg.NATS.RequestTimeout, logger)
		if err := server.Start(); err != nil {
			return err
		}
		defer func() {
			if err := server.Stop(); err != nil {
				logger.Error("failed to drain NATS subscriptions", slog.String("error", err.Error()))
			}
		}()
	}

	var consumerDone <-chan struct{}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ReplyTopic)
		defer producer.Close()

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.RequestTopic, cfg.Kafka.GroupID, cipherService, producer, logger)
		consumerDone = consumer.Start(ctx)
		logger.Info("consuming cipher requests",
			slog.String("topic", cfg.Kafka.RequestTopic),
			slog.String("reply_topic", cfg.Kafka.ReplyTopic))
	}

	logger.Info("cipher server started",
		slog.String("algorithm", cfg.Cipher.Algorithm),
		slog.String("mode", cipherContext.Mode().String()),
		slog.String("padding", cipherContext.Padding().String()))

	<-ctx.Done()
	logger.Info("shutting down")

	if consumerDone != nil {
		<-consumerDone
	}
	return nil
}
