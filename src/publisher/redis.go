package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"portfolio-dashboard/src/helpers"
	"portfolio-dashboard/src/logger"
	"portfolio-dashboard/src/models"

	"github.com/redis/go-redis/v9"
)

// -----------------------------------------------------------------------------

// RedisPublisher publishes every archived payload on a pub/sub channel so other
// services can follow the dashboard without polling the API themselves.
type RedisPublisher struct {
	RDB     *redis.Client
	Channel string
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRedisPublisher(cfg *models.MConfig, log *logger.Logger) *RedisPublisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Publish.RedisAddr,
		Password: cfg.Publish.RedisPassword,
		DB:       cfg.Publish.RedisDB,
	})
	return &RedisPublisher{
		RDB:     rdb,
		Channel: cfg.Publish.Channel,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

// Ping checks the connection once at startup.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.RDB.Ping(ctx).Err(); err != nil {
		return helpers.NewArchiveError(fmt.Sprintf("redis ping %s", p.RDB.Options().Addr), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (p *RedisPublisher) Archive(ctx context.Context, payload models.MArchivedPayload) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return helpers.NewArchiveError("encode payload", err)
	}

	receivers, err := p.RDB.Publish(ctx, p.Channel, encoded).Result()
	if err != nil {
		return helpers.NewArchiveError(fmt.Sprintf("publish on %s", p.Channel), err)
	}
	p.Logger.Debug("Published %s (%d bytes) to %d subscribers", payload.Operation, len(encoded), receivers)
	return nil
}

// -----------------------------------------------------------------------------

func (p *RedisPublisher) Close() error {
	return p.RDB.Close()
}
