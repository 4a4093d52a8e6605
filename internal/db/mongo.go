package db

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	connectTimeout  = 10 * time.Second
	pingTimeout     = 3 * time.Second
	startupPings    = 4
	maxPoolSize     = 100
	serverSelection = 5 * time.Second
)

// ConnectDB opens the client and waits for the primary to answer. The
// ping is retried so the API can start alongside a MongoDB container.
func ConnectDB(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(maxPoolSize).
		SetServerSelectionTimeout(serverSelection)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	err = WithRetries(func(attempt int) error {
		if attempt > 0 {
			log.WithField("attempt", attempt+1).Warn("MongoDB not reachable yet, retrying ping")
		}
		pingCtx, cancelPing := context.WithTimeout(context.Background(), pingTimeout)
		defer cancelPing()
		return client.Ping(pingCtx, readpref.Primary())
	}, startupPings-1, func(error) bool { return true })
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.WithField("database", dbName).Info("Connected to MongoDB")
	return client, client.Database(dbName), nil
}

// DisconnectDB closes the client; nil is a no-op.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	log.Info("MongoDB connection closed")
	return nil
}
