package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisQueue is a redis list: LPUSH at the head, BRPOP from the tail,
// so ids come out in submission order across all API nodes.
type redisQueue struct {
	rdb  *redis.Client
	name string
}

func NewRedisQueue(rdb *redis.Client, name string) Queue {
	return &redisQueue{rdb: rdb, name: name}
}

func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (q *redisQueue) Push(ctx context.Context, submissionID string) error {
	if err := q.rdb.LPush(ctx, q.name, submissionID).Err(); err != nil {
		return fmt.Errorf("redis LPUSH %s: %w", q.name, err)
	}
	return nil
}

func (q *redisQueue) Pop(ctx context.Context) (string, error) {
	for {
		// Bounded block so worker shutdown is not stuck behind an idle
		// connection.
		res, err := q.rdb.BRPop(ctx, 5*time.Second, q.name).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				continue
			}
			return "", fmt.Errorf("redis BRPOP %s: %w", q.name, err)
		}
		// res is [queueName, value].
		if len(res) < 2 || res[1] == "" {
			continue
		}
		return res[1], nil
	}
}

func (q *redisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.rdb.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("redis LLEN %s: %w", q.name, err)
	}
	return int(n), nil
}
