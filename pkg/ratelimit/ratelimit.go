/*
 * Copyright 2026 Lumenwall Systems, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package ratelimit bounds inbound message rates per client. A client that
// exceeds its bucket gets envelopes dropped, never its connection closed.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config sets the steady rate and burst per client bucket.
type Config struct {
	PerSecond float64 `json:"per_second"`
	Burst     int     `json:"burst"`
}

// DefaultConfig allows 5 envelopes per second with a burst of 5, matching
// the expected status-report cadence with headroom for reconnect chatter.
func DefaultConfig() Config {
	return Config{PerSecond: 5, Burst: 5}
}

// Limiter keeps one token bucket per key (client id, or client id plus
// origin address when the caller chooses to key that way).
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	cfg     Config
}

// New creates a Limiter with the given per-bucket configuration.
func New(cfg Config) *Limiter {
	if cfg.PerSecond <= 0 {
		cfg = DefaultConfig()
	}

	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.PerSecond)
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}

	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		cfg:     cfg,
	}
}

// Allow reports whether one more envelope from key fits in its bucket.
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// Forget drops the bucket for key, called when a client is removed.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.buckets, key)
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.cfg.PerSecond), l.cfg.Burst)
		l.buckets[key] = b
	}

	return b
}
