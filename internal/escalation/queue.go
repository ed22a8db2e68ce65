package escalation

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue is the scheduling substrate: it holds ticket ids with a due time and
// hands each due entry to exactly one poller across all service instances.
type Queue interface {
	Add(ctx context.Context, ticketID int64, due time.Time) error
	PopDue(ctx context.Context, now time.Time, limit int) ([]int64, error)
}

const defaultKey = "support:escalations"

// redisQueue stores due checks in a sorted set scored by due unix time.
type redisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds the Redis-backed delay queue.
func NewRedisQueue(client *redis.Client) Queue {
	return &redisQueue{client: client, key: defaultKey}
}

func (q *redisQueue) Add(ctx context.Context, ticketID int64, due time.Time) error {
	member := strconv.FormatInt(ticketID, 10)
	return q.client.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(due.Unix()),
		Member: member,
	}).Err()
}

func (q *redisQueue) PopDue(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	members, err := q.client.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	var due []int64
	for _, member := range members {
		// ZRem returning 1 means this instance owns the entry; another
		// poller got there first otherwise.
		removed, err := q.client.ZRem(ctx, q.key, member).Result()
		if err != nil {
			return due, err
		}
		if removed == 0 {
			continue
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		due = append(due, id)
	}
	return due, nil
}
