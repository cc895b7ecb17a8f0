// internal/intake/store.go
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Norbert250/ORION-2-sub000/internal/models"

	"github.com/redis/go-redis/v9"
)

// DraftStore keeps in-flight application drafts and their staged file bytes
// in Redis. Drafts expire with the TTL; a submitted draft is deleted
// explicitly.
type DraftStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDraftStore(rdb *redis.Client, ttl time.Duration) *DraftStore {
	return &DraftStore{rdb: rdb, ttl: ttl}
}

func draftKey(sessionID string) string {
	return "draft:" + sessionID
}

func fileKey(sessionID, role string, seq int64) string {
	return fmt.Sprintf("draft:%s:file:%s:%d", sessionID, role, seq)
}

// Save writes the draft, refreshing its TTL.
func (s *DraftStore) Save(ctx context.Context, draft *models.ApplicationDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	return s.rdb.Set(ctx, draftKey(draft.SessionID), data, s.ttl).Err()
}

// Get loads one draft; redis.Nil maps to a nil draft.
func (s *DraftStore) Get(ctx context.Context, sessionID string) (*models.ApplicationDraft, error) {
	data, err := s.rdb.Get(ctx, draftKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}

	var draft models.ApplicationDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	return &draft, nil
}

// StageFile stores raw uploaded bytes next to the draft and returns the
// reference to record on it.
func (s *DraftStore) StageFile(ctx context.Context, sessionID, role, name, contentType string, data []byte) (models.StoredFile, error) {
	key := fileKey(sessionID, role, time.Now().UnixNano())
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return models.StoredFile{}, fmt.Errorf("stage file: %w", err)
	}
	return models.StoredFile{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Key:         key,
		Role:        role,
	}, nil
}

// FileBytes loads staged file content for the submission fan-out.
func (s *DraftStore) FileBytes(ctx context.Context, file models.StoredFile) ([]byte, error) {
	data, err := s.rdb.Get(ctx, file.Key).Bytes()
	if err != nil {
		return nil, fmt.Errorf("read staged file %s: %w", file.Key, err)
	}
	return data, nil
}

// Delete removes the draft and all of its staged files.
func (s *DraftStore) Delete(ctx context.Context, draft *models.ApplicationDraft) error {
	keys := []string{draftKey(draft.SessionID)}
	for _, f := range draft.Files() {
		keys = append(keys, f.Key)
	}
	return s.rdb.Del(ctx, keys...).Err()
}
