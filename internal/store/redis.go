// SPDX-License-Identifier: AGPL-3.0-or-later
// turnqueue - a fair, FIFO, mutually exclusive distributed lock service
// Copyright (C) 2026 The turnqueue Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package store

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/fieldnotes-dev/turnqueue/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	connsPerCPU = 10
	maxIdleTime = 10 * time.Minute
)

// redisStore is a Store backed by a real redis/go-redis/v9 client.
type redisStore struct {
	client *redis.Client
}

// NewRedis dials Redis using the given connection parameters and verifies
// connectivity with a Ping, matching internal/pubsub/redis.go's client
// construction.
func NewRedis(ctx context.Context, cfg config.Redis) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolFIFO:        true,
		PoolSize:        runtime.GOMAXPROCS(0) * connsPerCPU,
		MinIdleConns:    runtime.GOMAXPROCS(0),
		ConnMaxIdleTime: maxIdleTime,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &redisStore{client: client}, nil
}

func (s *redisStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return n, nil
}

func (s *redisStore) MSetNX(ctx context.Context, values map[string]string) (bool, error) {
	args := make([]interface{}, 0, len(values)*2)
	for k, v := range values {
		args = append(args, k, v)
	}
	ok, err := s.client.MSetNX(ctx, args...).Result()
	if err != nil {
		return false, fmt.Errorf("msetnx: %w", err)
	}
	return ok, nil
}

func (s *redisStore) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget: %w", err)
	}
	out := make([]*string, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		out[i] = &s
	}
	return out, nil
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

func (s *redisStore) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}

func (s *redisStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 0).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", pattern, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func (s *redisStore) Publish(ctx context.Context, channel, payload string) error {
	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

func (s *redisStore) Subscribe(ctx context.Context, channels ...string) Subscription {
	sub := s.client.Subscribe(ctx, channels...)
	return &redisSubscription{sub: sub, ch: sub.Channel()}
}

// WatchDelete grounded on turn/tools.py's reset(): pipe.watch(dispenser);
// pipe.multi(); pipe.delete(dispenser, indicator); pipe.execute(), catching
// redis.WatchError.
func (s *redisStore) WatchDelete(ctx context.Context, watch string, targets ...string) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, targets...)
			return nil
		})
		return err
	}, watch)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrWatchConflict
	}
	if err != nil {
		return fmt.Errorf("watch-delete %s: %w", watch, err)
	}
	return nil
}

func (s *redisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

type redisSubscription struct {
	sub *redis.PubSub
	ch  <-chan *redis.Message
}

func (s *redisSubscription) Receive(ctx context.Context, timeout time.Duration) (*Message, error) {
	if timeout <= 0 {
		select {
		case msg, ok := <-s.ch:
			if !ok {
				return nil, nil
			}
			return &Message{Kind: KindMessage, Channel: msg.Channel, Payload: msg.Payload}, nil
		case <-ctx.Done():
			return nil, fmt.Errorf("receive: %w", ctx.Err())
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg, ok := <-s.ch:
		if !ok {
			return nil, nil
		}
		return &Message{Kind: KindMessage, Channel: msg.Channel, Payload: msg.Payload}, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("receive: %w", ctx.Err())
	}
}

func (s *redisSubscription) Close() error {
	if err := s.sub.Close(); err != nil {
		return fmt.Errorf("close subscription: %w", err)
	}
	return nil
}
