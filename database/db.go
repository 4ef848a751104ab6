package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"lab-equipment-api/config"
)

// Connect opens the MongoDB client and checks it with a ping.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.Timeout)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return client, nil
}

// Disconnect closes the client, logging instead of failing.
func Disconnect(client *mongo.Client, logger *zap.Logger) {
	if client == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		logger.Warn("failed to disconnect mongodb", zap.Error(err))
		return
	}
	logger.Info("disconnected from mongodb")
}

// Pinger reports whether the database answers. It backs the health endpoint.
type Pinger struct {
	client  *mongo.Client
	timeout time.Duration
}

func NewPinger(client *mongo.Client, timeout time.Duration) *Pinger {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Pinger{client: client, timeout: timeout}
}

func (p *Pinger) Ping(ctx context.Context) error {
	if p == nil || p.client == nil {
		return mongo.ErrClientDisconnected
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.client.Ping(ctx, readpref.Primary())
}
