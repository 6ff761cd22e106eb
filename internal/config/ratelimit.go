package config

import "time"

// RateLimitConfig sizes the Redis token bucket in front of the API.  The
// defaults let a client burst through a booking, a payment and a few QR
// fetches, then settle at one request every two seconds.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int           // tokens in a full bucket
    RefillTokens   int           // tokens added per RefillInterval
    RefillInterval time.Duration
    TTL            time.Duration // idle bucket lifetime in Redis
    KeyStrategy    string        // "ip", "user", "ip_route" or "ip_user_route"
    Prefix         string
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.
func LoadRateLimitConfig() RateLimitConfig {
    rl := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 30),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 2*time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "parking:rl"),
    }
    return rl.normalized()
}

// normalized clamps nonsensical values and stretches TTL so a bucket
// cannot expire before it would have refilled completely.
func (rl RateLimitConfig) normalized() RateLimitConfig {
    rl.Capacity = max(rl.Capacity, 1)
    rl.RefillTokens = max(rl.RefillTokens, 1)
    if rl.RefillInterval <= 0 {
        rl.RefillInterval = time.Second
    }
    refill := time.Duration(rl.Capacity/rl.RefillTokens+1) * rl.RefillInterval
    rl.TTL = max(rl.TTL, refill)
    return rl
}
