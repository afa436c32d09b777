package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type Redis struct {
	rdb     redisPublisher
	channel string
	close   func() error
}

func NewRedis(addr, channel string) *Redis {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &Redis{rdb: rdb, channel: channel, close: rdb.Close}
}

func (p *Redis) Publish(ctx context.Context, ev Event) error {
	body, err := ev.encode()
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("redis publish to %s: %w", p.channel, err)
	}
	return nil
}

func (p *Redis) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}
