// Package redis publishes completion events to a redis stream.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/qnalytics/qna-crawler/internal/crawler"
)

// Publisher appends one stream entry per settled task.
type Publisher struct {
	client    *redis.Client
	stream    string
	maxLength int64
}

// New connects to addr/db and targets the given stream. maxLength bounds
// the stream via approximate trimming; zero disables trimming.
func New(addr string, db int, stream string, maxLength int64) *Publisher {
	return &Publisher{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		stream:    stream,
		maxLength: maxLength,
	}
}

// Publish XADDs the JSON-encoded event.
func (p *Publisher) Publish(ctx context.Context, event crawler.CompletionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode completion event: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{"event": payload},
	}
	if p.maxLength > 0 {
		args.MaxLen = p.maxLength
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd completion event: %w", err)
	}
	return nil
}

// Close releases the client connection.
func (p *Publisher) Close() error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
