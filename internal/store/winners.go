// Package store persists round outcomes: a bounded recent-winner list in
// Redis for cheap reads, and a durable round archive in sqlite.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// WinnerRecord is one settled round as kept in the recent-winner list.
type WinnerRecord struct {
	Round     uint64    `json:"round"`
	Winner    string    `json:"winner"`
	Pot       uint64    `json:"pot"`
	SettledAt time.Time `json:"settled_at"`
}

// WinnerStore keeps the most recent winners in a Redis list, newest first,
// trimmed to a fixed length.
type WinnerStore struct {
	client *redis.Client
	key    string
	keep   int64
}

func NewWinnerStore(client *redis.Client, key string, keep int64) *WinnerStore {
	if keep <= 0 {
		keep = 10
	}
	return &WinnerStore{client: client, key: key, keep: keep}
}

// Record prepends the winner and trims the list to the configured length.
func (s *WinnerStore) Record(ctx context.Context, rec WinnerRecord) error {
	if s.key == "" {
		return fmt.Errorf("winner list key is not configured")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal winner record: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, string(data))
	pipe.LTrim(ctx, s.key, 0, s.keep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis winner pipeline %s: %w", s.key, err)
	}
	return nil
}

// Recent returns the retained winners, newest first.
func (s *WinnerStore) Recent(ctx context.Context) ([]WinnerRecord, error) {
	if s.key == "" {
		return nil, fmt.Errorf("winner list key is not configured")
	}
	members, err := s.client.LRange(ctx, s.key, 0, s.keep-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE %s: %w", s.key, err)
	}

	res := make([]WinnerRecord, 0, len(members))
	for _, m := range members {
		var rec WinnerRecord
		if err := json.Unmarshal([]byte(m), &rec); err != nil {
			// Skip malformed entries but continue.
			continue
		}
		res = append(res, rec)
	}
	return res, nil
}
