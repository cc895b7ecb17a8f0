// internal/session/tracker.go

// Package session mirrors intake activity into the user_sessions table and a
// Redis pub/sub channel so the ops dashboard can watch form fills live.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	stderrors "github.com/Norbert250/ORION-2-sub000/internal/common/errors"
	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
	"github.com/Norbert250/ORION-2-sub000/internal/common/metrics"
	"github.com/Norbert250/ORION-2-sub000/internal/models"
)

// EventsChannel carries session change events for dashboard push updates.
const EventsChannel = "sessions.events"

// guardTTL bounds the create-once window: the same phone number starts at
// most one tracked session within it.
const guardTTL = 24 * time.Hour

// Event is one session change published on EventsChannel.
type Event struct {
	Type    string             `json:"type"`
	Session models.UserSession `json:"session"`
}

type Tracker struct {
	db     *sql.DB
	rdb    *redis.Client
	logger logger.Logger
}

func NewTracker(db *sql.DB, rdb *redis.Client, log logger.Logger) *Tracker {
	return &Tracker{
		db:     db,
		rdb:    rdb,
		logger: log.WithFields(map[string]interface{}{"component": "session"}),
	}
}

func guardKey(phoneNumber string) string {
	return fmt.Sprintf("session:guard:%s", phoneNumber)
}

// EnsureSession creates the tracked session for a phone number exactly once.
// Repeated calls within the guard window are no-ops, including concurrent
// ones: the Redis SETNX guard decides a single winner.
func (t *Tracker) EnsureSession(ctx context.Context, phoneNumber string) error {
	now := time.Now().UTC()
	sessionID := fmt.Sprintf("%s-%d", phoneNumber, now.UnixMilli())

	created, err := t.rdb.SetNX(ctx, guardKey(phoneNumber), sessionID, guardTTL).Result()
	if err != nil {
		return stderrors.NewSessionCreateFailedError(err)
	}
	if !created {
		return nil
	}

	sess := models.UserSession{
		ID:           sessionID,
		PhoneNumber:  phoneNumber,
		CurrentStep:  1,
		Status:       models.SessionInProgress,
		CreatedAt:    now,
		LastActivity: now,
	}

	query := `INSERT INTO user_sessions
		(id, phone_number, current_step, current_field, status, created_at, last_activity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := t.db.ExecContext(ctx, query,
		sess.ID, sess.PhoneNumber, sess.CurrentStep, sess.CurrentField,
		sess.Status, sess.CreatedAt, sess.LastActivity); err != nil {
		// Release the guard so a retry can create the row.
		t.rdb.Del(ctx, guardKey(phoneNumber))
		return stderrors.NewSessionCreateFailedError(err)
	}

	metrics.LiveSessionsActive.Inc()
	t.publish(ctx, Event{Type: "created", Session: sess})
	t.logger.Info("session created", map[string]interface{}{
		"sessionId":   sess.ID,
		"phoneNumber": phoneNumber,
	})
	return nil
}

// RecordField notes which field the applicant is focused on. Terminal
// sessions ignore the update.
func (t *Tracker) RecordField(ctx context.Context, phoneNumber, field string) error {
	return t.update(ctx, phoneNumber, "field", `
		UPDATE user_sessions SET current_field = $1, last_activity = $2
		WHERE phone_number = $3 AND status = $4`,
		field, time.Now().UTC(), phoneNumber, models.SessionInProgress)
}

// RecordStep notes a step transition. Terminal sessions ignore the update.
func (t *Tracker) RecordStep(ctx context.Context, phoneNumber string, step int) error {
	return t.update(ctx, phoneNumber, "step", `
		UPDATE user_sessions SET current_step = $1, last_activity = $2
		WHERE phone_number = $3 AND status = $4`,
		step, time.Now().UTC(), phoneNumber, models.SessionInProgress)
}

// MarkLeft records abandonment. It loses against an earlier terminal state.
func (t *Tracker) MarkLeft(ctx context.Context, phoneNumber string) error {
	return t.finish(ctx, phoneNumber, models.SessionLeft)
}

// MarkSubmitted records the successful submit, the winning terminal state.
func (t *Tracker) MarkSubmitted(ctx context.Context, phoneNumber string) error {
	return t.finish(ctx, phoneNumber, models.SessionSubmitted)
}

func (t *Tracker) finish(ctx context.Context, phoneNumber, status string) error {
	now := time.Now().UTC()
	res, err := t.db.ExecContext(ctx, `
		UPDATE user_sessions SET status = $1, last_activity = $2
		WHERE phone_number = $3 AND status = $4`,
		status, now, phoneNumber, models.SessionInProgress)
	if err != nil {
		return stderrors.NewSessionUpdateFailedError(err)
	}

	if rows, err := res.RowsAffected(); err == nil && rows > 0 {
		metrics.LiveSessionsActive.Dec()
		t.publish(ctx, Event{Type: status, Session: models.UserSession{
			PhoneNumber:  phoneNumber,
			Status:       status,
			LastActivity: now,
		}})
	}
	return nil
}

func (t *Tracker) update(ctx context.Context, phoneNumber, eventType, query string, args ...interface{}) error {
	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return stderrors.NewSessionUpdateFailedError(err)
	}

	if rows, err := res.RowsAffected(); err == nil && rows > 0 {
		sess, err := t.load(ctx, phoneNumber)
		if err == nil && sess != nil {
			t.publish(ctx, Event{Type: eventType, Session: *sess})
		}
	}
	return nil
}

func (t *Tracker) load(ctx context.Context, phoneNumber string) (*models.UserSession, error) {
	row := t.db.QueryRowContext(ctx, `
		SELECT id, phone_number, current_step, current_field, status, created_at, last_activity
		FROM user_sessions WHERE phone_number = $1
		ORDER BY created_at DESC LIMIT 1`, phoneNumber)

	var sess models.UserSession
	err := row.Scan(&sess.ID, &sess.PhoneNumber, &sess.CurrentStep, &sess.CurrentField,
		&sess.Status, &sess.CreatedAt, &sess.LastActivity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// publish is best-effort: a dropped event only delays the dashboard until
// its next poll.
func (t *Tracker) publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := t.rdb.Publish(ctx, EventsChannel, payload).Err(); err != nil {
		t.logger.Warn("session event publish failed", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
	}
}
