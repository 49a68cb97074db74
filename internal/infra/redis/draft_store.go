package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DraftStore persists in-progress answer snapshots as a hash per attempt:
// HSET attempt:{attemptID}:answers {questionID} {answer}. The TTL bounds
// how long an abandoned attempt keeps its draft around.
type DraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDraftStore(client *redis.Client, ttl time.Duration) *DraftStore {
	return &DraftStore{client: client, ttl: ttl}
}

func (s *DraftStore) SaveDraft(ctx context.Context, attemptID string, answers map[string]string) error {
	key := s.key(attemptID)
	pipe := s.client.Pipeline()
	// Delete first so removed answers do not linger in the hash.
	pipe.Del(ctx, key)
	if len(answers) > 0 {
		fields := make(map[string]interface{}, len(answers))
		for questionID, answer := range answers {
			fields[questionID] = answer
		}
		pipe.HSet(ctx, key, fields)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *DraftStore) LoadDraft(ctx context.Context, attemptID string) (map[string]string, error) {
	return s.client.HGetAll(ctx, s.key(attemptID)).Result()
}

func (s *DraftStore) ClearDraft(ctx context.Context, attemptID string) error {
	return s.client.Del(ctx, s.key(attemptID)).Err()
}

func (s *DraftStore) key(attemptID string) string {
	return "attempt:" + attemptID + ":answers"
}
