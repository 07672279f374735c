package publisher

import (
	"context"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"sjsage522/retroconsolas/logger"
	"sjsage522/retroconsolas/pkg/errors"
)

const (
	// FieldKey holds the snapshot date of a stream entry
	FieldKey = "date"
	// FieldPayload holds the snapshot JSON of a stream entry
	FieldPayload = "snapshot"
)

// RedisPublisher implements Publisher using Redis streams
type RedisPublisher struct {
	client          *redis.Client
	ctx             context.Context
	streamPrefix    string
	streamCount     int
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, streamPrefix string, streamCount int, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if streamCount < 1 {
		streamCount = 1
	}

	return &RedisPublisher{
		client:          client,
		ctx:             ctx,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
	}
}

// Ping checks that Redis is reachable
func (p *RedisPublisher) Ping() error {
	if err := p.client.Ping(p.ctx).Err(); err != nil {
		return errors.NewPublisher("redis", "ping failed", err)
	}
	return nil
}

// StreamFor returns the stream a key is published to. The same key always
// lands on the same stream so that re-runs of a day stay ordered.
func (p *RedisPublisher) StreamFor(key string) string {
	if p.streamCount == 1 {
		return p.streamPrefix
	}
	shard := xxhash.Sum64String(key) % uint64(p.streamCount)
	return p.streamPrefix + ":" + strconv.FormatUint(shard, 10)
}

// Publish appends the message to the key's stream, capped at the maximum
// stream length
func (p *RedisPublisher) Publish(key string, message []byte) error {
	args := &redis.XAddArgs{
		Stream: p.StreamFor(key),
		Values: map[string]interface{}{
			FieldKey:     key,
			FieldPayload: string(message),
		},
	}
	if p.streamMaxLength > 0 {
		args.MaxLen = int64(p.streamMaxLength)
		args.Approx = true
	}

	id, err := p.client.XAdd(p.ctx, args).Result()
	if err != nil {
		return errors.NewPublisher("redis", "failed to publish snapshot", err)
	}

	logger.ForPublisher().Info().
		Str("stream", args.Stream).
		Str("key", key).
		Str("id", id).
		Int("bytes", len(message)).
		Msg("Published")
	return nil
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams() error {
	if p.streamMaxLength <= 0 {
		return nil
	}

	streams := []string{p.streamPrefix}
	if p.streamCount > 1 {
		streams = streams[:0]
		for i := 0; i < p.streamCount; i++ {
			streams = append(streams, p.streamPrefix+":"+strconv.Itoa(i))
		}
	}

	for _, stream := range streams {
		trimmed, err := p.client.XTrimMaxLen(p.ctx, stream, int64(p.streamMaxLength)).Result()
		if err != nil {
			return errors.NewPublisher("redis", "failed to trim "+stream, err)
		}
		if trimmed > 0 {
			logger.ForPublisher().Debug().Str("stream", stream).Int64("trimmed", trimmed).Msg("Trimmed")
		}
	}

	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
