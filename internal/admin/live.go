// internal/admin/live.go
package admin

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
	"github.com/Norbert250/ORION-2-sub000/internal/models"
	"github.com/Norbert250/ORION-2-sub000/internal/session"
)

// LiveBoard is the merged view of tracked sessions fed by two sources: push
// events from the session channel and a periodic poll of the session table.
// Both go through Upsert, which keeps whichever observation has the fresher
// last-activity timestamp, so a slow poll can never roll back a push.
type LiveBoard struct {
	mu       sync.RWMutex
	sessions map[string]models.UserSession
}

func NewLiveBoard() *LiveBoard {
	return &LiveBoard{sessions: make(map[string]models.UserSession)}
}

// Upsert merges one observation, keyed by phone number. Stale observations
// are dropped. Returns whether the board changed.
func (b *LiveBoard) Upsert(sess models.UserSession) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, ok := b.sessions[sess.PhoneNumber]
	if ok && !sess.LastActivity.After(existing.LastActivity) {
		return false
	}
	// Terminal push events carry only phone, status and timestamp; keep the
	// richer fields from the previous observation.
	if ok {
		if sess.ID == "" {
			sess.ID = existing.ID
		}
		if sess.CurrentStep == 0 {
			sess.CurrentStep = existing.CurrentStep
		}
		if sess.CurrentField == "" {
			sess.CurrentField = existing.CurrentField
		}
		if sess.CreatedAt.IsZero() {
			sess.CreatedAt = existing.CreatedAt
		}
	}
	b.sessions[sess.PhoneNumber] = sess
	return true
}

// Snapshot returns the current board contents, newest activity first.
func (b *LiveBoard) Snapshot() []models.UserSession {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.UserSession, 0, len(b.sessions))
	for _, sess := range b.sessions {
		out = append(out, sess)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].LastActivity.After(out[j-1].LastActivity); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// SessionSource is the poll leg of the live board.
type SessionSource interface {
	ListActiveSessions(ctx context.Context) ([]models.UserSession, error)
}

// Watcher keeps a LiveBoard current by subscribing to session events and
// polling the session table on a fixed tick.
type Watcher struct {
	board  *LiveBoard
	rdb    *redis.Client
	source SessionSource
	tick   time.Duration
	logger logger.Logger
}

func NewWatcher(board *LiveBoard, rdb *redis.Client, source SessionSource, tick time.Duration, log logger.Logger) *Watcher {
	return &Watcher{
		board:  board,
		rdb:    rdb,
		source: source,
		tick:   tick,
		logger: log.WithFields(map[string]interface{}{"component": "admin.watcher"}),
	}
}

// Run blocks until the context is cancelled, merging both legs into the
// board.
func (w *Watcher) Run(ctx context.Context) {
	sub := w.rdb.Subscribe(ctx, session.EventsChannel)
	defer sub.Close()

	events := sub.Channel()
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			w.handleEvent(msg.Payload)
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) handleEvent(payload string) {
	var event session.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		w.logger.Warn("malformed session event", map[string]interface{}{"error": err.Error()})
		return
	}
	w.board.Upsert(event.Session)
}

func (w *Watcher) poll(ctx context.Context) {
	sessions, err := w.source.ListActiveSessions(ctx)
	if err != nil {
		w.logger.Warn("session poll failed", map[string]interface{}{"error": err.Error()})
		return
	}
	for _, sess := range sessions {
		w.board.Upsert(sess)
	}
}
