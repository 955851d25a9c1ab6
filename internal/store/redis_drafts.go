package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"radiology-worklist/internal/models"

	"github.com/redis/go-redis/v9"
)

const draftPrefix = "worklist:draft:"

func draftKey(sessionID, studyUID string) string {
	return draftPrefix + sessionID + ":" + studyUID
}

// RedisDraftStore keeps report drafts in Redis with a sliding expiry.
type RedisDraftStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDraftStore(rdb *redis.Client, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{rdb: rdb, ttl: ttl}
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (s *RedisDraftStore) GetDraft(ctx context.Context, sessionID, studyUID string) (*models.ReportDraft, error) {
	raw, err := s.rdb.Get(ctx, draftKey(sessionID, studyUID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	var d models.ReportDraft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}

func (s *RedisDraftStore) SaveDraft(ctx context.Context, d *models.ReportDraft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, draftKey(d.SessionID, d.StudyInstanceUID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *RedisDraftStore) DeleteDraft(ctx context.Context, sessionID, studyUID string) error {
	if err := s.rdb.Del(ctx, draftKey(sessionID, studyUID)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
