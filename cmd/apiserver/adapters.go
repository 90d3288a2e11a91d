package main

import (
	"context"
	"fmt"

	appmigration "github.com/turtacn/datamigrate/internal/application/migration"
	"github.com/turtacn/datamigrate/internal/infrastructure/database/postgres"
	"github.com/turtacn/datamigrate/internal/infrastructure/database/redis"
	"github.com/turtacn/datamigrate/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/datamigrate/internal/infrastructure/storage/minio"
	"github.com/turtacn/datamigrate/internal/interfaces/http/handlers"
)

// Adapters for HealthHandler.

type postgresHealthAdapter struct {
	conn *postgres.Connection
}

func (a *postgresHealthAdapter) Name() string {
	return "postgres"
}

func (a *postgresHealthAdapter) Check(ctx context.Context) error {
	return a.conn.HealthCheck(ctx)
}

type redisHealthAdapter struct {
	client *redis.Client
}

func (a *redisHealthAdapter) Name() string {
	return "redis"
}

func (a *redisHealthAdapter) Check(ctx context.Context) error {
	return a.client.Ping(ctx)
}

type minioHealthAdapter struct {
	client *minio.Client
}

func (a *minioHealthAdapter) Name() string {
	return "minio"
}

func (a *minioHealthAdapter) Check(ctx context.Context) error {
	status := a.client.HealthCheck(ctx)
	if !status.Healthy {
		return fmt.Errorf("minio unhealthy: %s", status.Error)
	}
	return nil
}

// fanoutPublisher delivers each run event to kafka and to the in-process
// SSE hub, so API clients see events from locally executed runs without a
// broker round trip.
type fanoutPublisher struct {
	producer *kafka.Producer
	hub      *handlers.EventHub
}

func newFanoutPublisher(producer *kafka.Producer, hub *handlers.EventHub) appmigration.EventPublisher {
	return &fanoutPublisher{producer: producer, hub: hub}
}

func (p *fanoutPublisher) PublishEnvelope(ctx context.Context, topic, key string, envelope *kafka.EventEnvelope) error {
	_ = p.hub.PublishEnvelope(ctx, topic, key, envelope)
	return p.producer.PublishEnvelope(ctx, topic, key, envelope)
}

// forwardToHub relays worker-published run events into the SSE hub.
func forwardToHub(hub *handlers.EventHub) kafka.Handler {
	return func(ctx context.Context, msg *kafka.ConsumedMessage) error {
		envelope, err := kafka.DecodeEnvelope(msg.Value)
		if err != nil {
			return err
		}
		return hub.PublishEnvelope(ctx, msg.Topic, string(msg.Key), envelope)
	}
}
