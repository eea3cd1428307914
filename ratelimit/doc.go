// Package ratelimit implements two-tier admission control keyed by caller
// identity: a sliding window bounds the sustained request rate while a
// one-second burst guard catches rapid-fire abuse that stays under the
// sustained quota. Violating either tier places the identity under a
// temporary lockout that dominates normal window accounting until it
// expires.
//
// Per-identity state is sharded so checks for different identities do not
// contend on a single lock, and bounded by per-shard LRU capacity eviction
// plus an idle sweep, so identity cardinality cannot grow memory without
// limit.
//
//	limiter := ratelimit.New(ratelimit.Config{
//		MaxRequests: 100,
//		Window:      time.Minute,
//		BurstLimit:  10,
//	})
//	defer limiter.Stop()
//
//	if res := limiter.Check(clientID); !res.Allowed {
//		// res.RetryAfter says when to try again
//	}
package ratelimit
