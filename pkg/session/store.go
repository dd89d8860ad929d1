// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/canonical/session-gateway/internal/cache"
	"github.com/canonical/session-gateway/internal/crypto"
	"github.com/canonical/session-gateway/internal/logging"
	"github.com/canonical/session-gateway/internal/monitoring"
	"github.com/canonical/session-gateway/internal/tracing"
	"github.com/canonical/session-gateway/internal/types"
)

const (
	tokenKeyPrefix = "session:tokens:"
	dataKeyPrefix  = "session:data:"

	// slidingWindow bounds idle eviction between touches.
	slidingWindow = 30 * time.Minute
)

var _ StoreInterface = (*Store)(nil)

type Store struct {
	cache     cache.CacheInterface
	protector *crypto.Protector

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewStore(
	c cache.CacheInterface,
	protector *crypto.Protector,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Store {
	s := new(Store)

	s.cache = c
	s.protector = protector

	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s
}

// NewSessionID returns a 256-bit random opaque identifier.
func NewSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func tokenKey(sessionID string) string { return tokenKeyPrefix + sessionID }
func dataKey(sessionID string) string  { return dataKeyPrefix + sessionID }

// touch re-bases the idle window on both session keys after a successful
// read, capped so neither key outlives the absolute expiry. The keys are
// a unit: letting one idle out while the other is read would leave a
// half-expired session. Failure to bump is logged and swallowed; the
// read already succeeded and the next write re-establishes the TTL.
func (s *Store) touch(ctx context.Context, sessionID string, expiresAt time.Time) {
	window := slidingWindow
	if remaining := time.Until(expiresAt); remaining < window {
		window = remaining
	}
	if window <= 0 {
		return
	}

	for _, key := range []string{tokenKey(sessionID), dataKey(sessionID)} {
		if err := s.cache.Touch(ctx, key, window); err != nil {
			s.logger.Warnf("failed to bump idle window for session %s: %v", sessionID, err)
		}
	}
}

// StoreTokens seals and persists the bundle. Any failure propagates:
// silently losing tokens would strand the session in an unrefreshable
// state without anyone noticing.
func (s *Store) StoreTokens(ctx context.Context, sessionID string, bundle *types.TokenBundle) error {
	ctx, span := s.tracer.Start(ctx, "session.Store.StoreTokens")
	defer span.End()

	payload, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to serialize token bundle: %w", err)
	}

	sealed, err := s.protector.Seal(payload)
	if err != nil {
		return fmt.Errorf("failed to encrypt token bundle: %w", err)
	}

	if err := s.cache.Set(ctx, tokenKey(sessionID), sealed, bundle.ExpiresAt, slidingWindow); err != nil {
		return fmt.Errorf("failed to store token bundle: %w", err)
	}

	return nil
}

func (s *Store) GetTokens(ctx context.Context, sessionID string) (*types.TokenBundle, error) {
	ctx, span := s.tracer.Start(ctx, "session.Store.GetTokens")
	defer span.End()

	sealed, found, err := s.cache.Get(ctx, tokenKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to read token bundle: %w", err)
	}
	if !found || len(sealed) == 0 {
		return nil, nil
	}

	payload, err := s.protector.Open(sealed)
	if err != nil {
		// A corrupt or stale-keyed blob must not crash the request
		// pipeline; the user just re-authenticates.
		s.logger.Warnf("failed to decrypt token bundle for session %s, treating as absent: %v", sessionID, err)
		return nil, nil
	}

	var bundle types.TokenBundle
	if err := json.Unmarshal(payload, &bundle); err != nil {
		s.logger.Warnf("failed to decode token bundle for session %s, treating as absent: %v", sessionID, err)
		return nil, nil
	}

	s.touch(ctx, sessionID, bundle.ExpiresAt)

	return &bundle, nil
}

func (s *Store) StoreSessionData(ctx context.Context, sessionID string, data *types.SessionData) error {
	ctx, span := s.tracer.Start(ctx, "session.Store.StoreSessionData")
	defer span.End()

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize session data: %w", err)
	}

	if err := s.cache.Set(ctx, dataKey(sessionID), payload, data.ExpiresAt, slidingWindow); err != nil {
		return fmt.Errorf("failed to store session data: %w", err)
	}

	return nil
}

func (s *Store) GetSessionData(ctx context.Context, sessionID string) (*types.SessionData, error) {
	ctx, span := s.tracer.Start(ctx, "session.Store.GetSessionData")
	defer span.End()

	payload, found, err := s.cache.Get(ctx, dataKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to read session data: %w", err)
	}
	if !found || len(payload) == 0 {
		return nil, nil
	}

	var data types.SessionData
	if err := json.Unmarshal(payload, &data); err != nil {
		s.logger.Warnf("failed to decode session data for session %s, treating as absent: %v", sessionID, err)
		return nil, nil
	}

	s.touch(ctx, sessionID, data.ExpiresAt)

	return &data, nil
}

// IsSessionValid is a strict conjunction: tokens present and unexpired,
// metadata present and unexpired. Any missing or expired piece, or any
// cache failure, invalidates the whole session.
func (s *Store) IsSessionValid(ctx context.Context, sessionID string) bool {
	ctx, span := s.tracer.Start(ctx, "session.Store.IsSessionValid")
	defer span.End()

	now := time.Now()

	bundle, err := s.GetTokens(ctx, sessionID)
	if err != nil || bundle == nil || !bundle.ExpiresAt.After(now) {
		return false
	}

	data, err := s.GetSessionData(ctx, sessionID)
	if err != nil || data == nil || !data.ExpiresAt.After(now) {
		return false
	}

	return true
}

// ExtendSession re-bases both expiries to now+extension and bumps the
// last-accessed timestamp. After a refresh the caller passes the new
// token's remaining lifetime, which leaves token and session expiring
// together and the stored expiry matching the token actually held.
func (s *Store) ExtendSession(ctx context.Context, sessionID string, extension time.Duration) error {
	ctx, span := s.tracer.Start(ctx, "session.Store.ExtendSession")
	defer span.End()

	bundle, err := s.GetTokens(ctx, sessionID)
	if err != nil {
		return err
	}
	if bundle == nil {
		return fmt.Errorf("cannot extend session %s: no token bundle", sessionID)
	}

	data, err := s.GetSessionData(ctx, sessionID)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("cannot extend session %s: no session data", sessionID)
	}

	now := time.Now().UTC()
	bundle.ExpiresAt = now.Add(extension)
	data.ExpiresAt = now.Add(extension)
	data.LastAccessedAt = now

	if err := s.StoreTokens(ctx, sessionID, bundle); err != nil {
		return err
	}

	return s.StoreSessionData(ctx, sessionID, data)
}

func (s *Store) RemoveSession(ctx context.Context, sessionID string) error {
	ctx, span := s.tracer.Start(ctx, "session.Store.RemoveSession")
	defer span.End()

	if err := s.cache.Delete(ctx, tokenKey(sessionID), dataKey(sessionID)); err != nil {
		return fmt.Errorf("failed to remove session %s: %w", sessionID, err)
	}

	s.logger.Security().SessionDestroyed(sessionID)
	return nil
}
