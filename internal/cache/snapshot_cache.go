package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"peerprep/interview/internal/models"
)

const (
	keyPrefix        = "interview:snapshot:"
	CompletedChannel = "interview_completed"
)

var ErrMiss = errors.New("snapshot not cached")

// CompletedEvent is published once per stored session.
type CompletedEvent struct {
	SessionID     string   `json:"sessionId"`
	UserID        string   `json:"userId"`
	DocumentID    string   `json:"documentId"`
	OverallScore  *float64 `json:"overallScore,omitempty"`
	QuestionCount int      `json:"questionCount"`
	EndedEarly    bool     `json:"endedEarly"`
	CompletedAt   string   `json:"completedAt"`
}

// SnapshotCache keeps the latest snapshot of live sessions in redis so any
// instance can answer reads.
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSnapshotCache(rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

func key(sessionID string) string { return keyPrefix + sessionID }

func (c *SnapshotCache) Put(ctx context.Context, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return c.rdb.Set(ctx, key(snap.ID), data, c.ttl).Err()
}

func (c *SnapshotCache) Get(ctx context.Context, sessionID string) (*models.Snapshot, error) {
	data, err := c.rdb.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (c *SnapshotCache) Delete(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, key(sessionID)).Err()
}

func (c *SnapshotCache) PublishCompleted(ctx context.Context, event CompletedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, CompletedChannel, data).Err()
}

func (c *SnapshotCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
