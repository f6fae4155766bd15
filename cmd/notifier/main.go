package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/example/maintdesk/backend/internal/config"
	"github.com/example/maintdesk/backend/internal/mq"
	"github.com/example/maintdesk/backend/internal/worker"
)

func main() {
	cfg := config.Load()

	consumer, err := mq.NewRabbitConsumer(cfg.MQURL, cfg.MQEventExchange, cfg.MQNotifierQueue, "complaint.*", "job.*")
	if err != nil {
		log.Fatalf("connect rabbitmq: %v", err)
	}
	defer consumer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	notifier := worker.NewNotifier(consumer, worker.LogSink{})
	log.Printf("notifier consuming %s", cfg.MQNotifierQueue)
	if err := notifier.Run(ctx); err != nil {
		log.Fatalf("notifier: %v", err)
	}
	log.Println("bye")
}
