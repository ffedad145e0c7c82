package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/port"
)

const (
	profileKeyPrefix  = "userdata:"
	profileMaxRetries = 10
)

// RedisProfileStore keeps one JSON document per user under "userdata:<id>".
// Writes use WATCH/MULTI so concurrent saves for the same user never lose
// each other's keys.
type RedisProfileStore struct {
	client *redis.Client
	ttl    time.Duration // 0 = no expiry
	now    func() time.Time
}

// NewRedisProfileStore creates a profile store. Documents expire ttl after
// their last write when ttl > 0.
func NewRedisProfileStore(client *redis.Client, ttl time.Duration) *RedisProfileStore {
	return &RedisProfileStore{client: client, ttl: ttl, now: time.Now}
}

func profileKey(userID string) string {
	return profileKeyPrefix + userID
}

// Get returns the stored document or nil.
func (s *RedisProfileStore) Get(ctx context.Context, userID string) (domain.Document, error) {
	raw, err := s.client.Get(ctx, profileKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return decodeDocument(raw)
}

// Set merges partial into the stored document and writes it back.
func (s *RedisProfileStore) Set(ctx context.Context, userID string, partial domain.Document) (domain.Document, error) {
	return s.Update(ctx, userID, func(domain.Document) domain.Document { return partial })
}

// Update reads the document, asks fn for a partial and writes the merge,
// retrying when another writer touched the key in between.
func (s *RedisProfileStore) Update(ctx context.Context, userID string, fn func(existing domain.Document) domain.Document) (domain.Document, error) {
	key := profileKey(userID)
	var merged domain.Document

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		var existing domain.Document
		if err == nil {
			if existing, err = decodeDocument(raw); err != nil {
				return err
			}
		}

		merged = domain.ApplyPartial(existing, fn(existing.Clone()), userID, s.now())
	
		body, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, body, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < profileMaxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return merged, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, fmt.Errorf("set profile: %w", err)
	}
	return nil, port.ErrProfileConflict
}

// Delete removes the document.
func (s *RedisProfileStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, profileKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func decodeDocument(raw []byte) (domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return doc, nil
}
