// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package refresh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/tracing"
	"github.com/canonical/session-gateway/internal/types"
)

const backoffUnit = 500 * time.Millisecond

var _ RefresherInterface = (*Refresher)(nil)

// Refresher retries a token refresh a bounded number of times. Only
// transport-level failures are retried; anything the provider actually
// answered with (an error status, invalid_grant, ...) aborts immediately.
// Backoff is linear: 500ms before the 2nd attempt, 1s before the 3rd.
type Refresher struct {
	client   TokenClientInterface
	attempts int

	// sleep is overridable in tests
	sleep func(time.Duration)

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewRefresher(
	client TokenClientInterface,
	attempts int,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Refresher {
	if attempts < 1 {
		attempts = 1
	}

	return &Refresher{
		client:   client,
		attempts: attempts,
		sleep:    time.Sleep,
		tracer:   tracer,
		monitor:  monitor,
		logger:   logger,
	}
}

func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (*types.TokenBundle, error) {
	ctx, span := r.tracer.Start(ctx, "refresh.Refresher.Refresh")
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if attempt > 1 {
			r.sleep(backoffUnit * time.Duration(attempt-1))
		}

		bundle, err := r.client.RefreshGrant(ctx, refreshToken)
		if err == nil {
			return bundle, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return nil, fmt.Errorf("token refresh failed: %w", err)
		}

		r.logger.Warnf("transient token refresh failure on attempt %d/%d: %v", attempt, r.attempts, err)
	}

	return nil, fmt.Errorf("token refresh failed after %d attempts: %w", r.attempts, lastErr)
}

// isRetryable classifies an error as a transport-level failure. A
// *oauth2.RetrieveError means the provider responded, so retrying with the
// same request cannot help.
func isRetryable(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
