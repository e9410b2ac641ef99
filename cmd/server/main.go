package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/resto-qr/api/internal/config"
	"github.com/resto-qr/api/internal/database"
	"github.com/resto-qr/api/internal/events"
	"github.com/resto-qr/api/internal/postgres"
	"github.com/resto-qr/api/internal/router"
	"github.com/resto-qr/api/internal/ws"
)

const kafkaBuffer = 1024

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Printf("migrations applied")
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	hub := ws.NewHub()
	go hub.Run(ctx)

	publisher := events.NewFanout()

	// With Redis configured, local websocket clients are fed from the
	// channel so they also see changes made by other instances.
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		relay := events.NewRedisRelay(rdb, cfg.RedisChannel)
		publisher.Add("redis", relay)
		go func() {
			if err := relay.Run(ctx, hub); err != nil {
				log.Printf("ERROR: redis relay stopped: %v", err)
			}
		}()
		log.Printf("redis relay on %s channel %s", cfg.RedisAddr, cfg.RedisChannel)
	} else {
		publisher.Add("ws", hub)
	}

	if len(cfg.KafkaBrokers) > 0 {
		sink := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, kafkaBuffer)
		sink.Start()
		defer sink.Close()
		publisher.Add("kafka", sink)
		log.Printf("kafka sink on topic %s", cfg.KafkaTopic)
	}

	if cfg.AMQPURL != "" {
		sink, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("WARN: amqp sink disabled: %v", err)
		} else {
			defer sink.Close()
			publisher.Add("amqp", sink)
			log.Printf("amqp sink on exchange %s", cfg.AMQPExchange)
		}
	}

	r := router.New(cfg, database.New(pool), pool, hub, publisher)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s (%d event sinks)", cfg.Port, publisher.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}
