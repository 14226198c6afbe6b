package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/pkg/errors"
)

// budgetScript prunes the rolling window, then admits the call only when the
// window still has room.  Runs atomically so workers on different hosts share
// one budget.
//
// KEYS[1] window sorted set
// ARGV[1] cutoff (ms): entries at or below are expired
// ARGV[2] max calls in window
// ARGV[3] score for the new entry (now, ms)
// ARGV[4] unique member for the new entry
// ARGV[5] key ttl (ms)
var budgetScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, ARGV[1])
local used = redis.call('ZCARD', KEYS[1])
if used < tonumber(ARGV[2]) then
	redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
	redis.call('PEXPIRE', KEYS[1], ARGV[5])
	return 1
end
return 0
`)

// BudgetGuard is the Redis-backed LLM budget: at most maxCalls admissions per
// rolling window, shared across every worker process.  It implements
// extraction.BudgetGuard.
type BudgetGuard struct {
	client   *Client
	key      string
	window   time.Duration
	maxCalls int
	logger   logging.Logger
}

// NewBudgetGuard constructs the shared budget guard.  A maxCalls of zero
// rejects every call.
func NewBudgetGuard(client *Client, window time.Duration, maxCalls int, logger logging.Logger) *BudgetGuard {
	return &BudgetGuard{
		client:   client,
		key:      client.Key("llm", "budget"),
		window:   window,
		maxCalls: maxCalls,
		logger:   logger,
	}
}

// Allow consumes one budget slot if the rolling window has room.  The slot is
// consumed before the LLM call is made, so calls that later time out still
// count against the budget.
func (g *BudgetGuard) Allow(ctx context.Context) (bool, error) {
	now := time.Now()
	member := fmt.Sprintf("%d", now.UnixNano())

	res, err := budgetScript.Run(ctx, g.client.Underlying(), []string{g.key},
		now.Add(-g.window).UnixMilli(),
		g.maxCalls,
		now.UnixMilli(),
		member,
		g.window.Milliseconds(),
	).Int()
	if err != nil {
		g.logger.Error("llm budget check failed", logging.Err(err))
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "llm budget check failed")
	}
	return res == 1, nil
}
