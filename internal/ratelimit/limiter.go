package ratelimit

import "context"

// RateLimiter throttles request throughput per scope (e.g. a webhook
// source or route).
type RateLimiter interface {
	Allow(ctx context.Context, scope string) (bool, error)
}
