// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cache

import (
	"context"
	"time"
)

// CacheInterface is the key-value contract the session store needs. Keys
// carry both an absolute deadline and a sliding idle window; whichever
// fires first evicts the entry.
type CacheInterface interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, absolute time.Time, sliding time.Duration) error
	Touch(ctx context.Context, key string, sliding time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
