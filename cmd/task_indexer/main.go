package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/oksasatya/go-task-manager/config"
	"github.com/oksasatya/go-task-manager/internal/infrastructure/messaging"
	"github.com/oksasatya/go-task-manager/internal/infrastructure/search"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

// task_indexer keeps the Elasticsearch task index in step with the task
// event queue.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-indexer", cfg.Env)

	if !cfg.RabbitMQEnabled || !cfg.ElasticsearchEnabled {
		logger.Info("RABBITMQ_ENABLED and ELASTICSEARCH_ENABLED must both be true; indexer disabled")
		return
	}

	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		logger.Fatalf("elasticsearch client: %v", err)
	}
	index := search.NewTaskIndex(es, cfg.ESTasksIndex)
	ctx := context.Background()
	if err := index.EnsureIndex(ctx); err != nil {
		logger.Fatalf("ensure index: %v", err)
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch
	if err := ch.Qos(16, 0, false); err != nil {
		logger.Fatalf("qos: %v", err)
	}
	if err := helpers.DeclareQueue(ch, cfg.RabbitMQTaskEventsQueue); err != nil {
		logger.Fatalf("queue declare: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitMQTaskEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatalf("consume: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			c, cancel := context.WithTimeout(ctx, 15*time.Second)
			ev, err := messaging.ApplyEvent(c, index, msg.Body)
			cancel()

			entry := logger.WithField("event", ev.Type).WithField("task_id", ev.TaskID)
			switch {
			case errors.Is(err, messaging.ErrMalformedEvent):
				entry.WithError(err).Warn("dropping task event")
				_ = msg.Nack(false, false)
			case err != nil:
				entry.WithError(err).Error("index task failed")
				_ = msg.Nack(false, !msg.Redelivered)
			default:
				entry.Debug("task event applied")
				_ = msg.Ack(false)
			}
		}
		close(done)
	}()

	logger.Infof("task indexer listening on queue=%s index=%s", cfg.RabbitMQTaskEventsQueue, cfg.ESTasksIndex)
	<-stop
	logger.Info("shutting down...")
	_ = ch.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
