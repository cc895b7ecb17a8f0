// internal/admin/views.go

// Package admin backs the ops dashboard: application listings, detail views
// with raw analysis payloads, status changes, and the live session board.
package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	stderrors "github.com/Norbert250/ORION-2-sub000/internal/common/errors"
	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
	"github.com/Norbert250/ORION-2-sub000/internal/models"
)

// Searcher runs full-text queries against the application index.
type Searcher interface {
	Search(ctx context.Context, index string, query []byte) ([]byte, error)
}

// Notifier is told about status changes so it can inform the applicant.
type Notifier interface {
	StatusChanged(ctx context.Context, app models.Application) error
}

// analysisTables are read in this order when assembling a detail view.
var analysisTables = []models.AnalysisCategory{
	models.CategoryID,
	models.CategoryGPS,
	models.CategoryMedical,
	models.CategoryAsset,
	models.CategoryBank,
	models.CategoryMpesa,
	models.CategoryCallLogs,
	models.CategoryCreditEval,
}

type Views struct {
	db       *sql.DB
	searcher Searcher
	notifier Notifier
	esIndex  string
	logger   logger.Logger
}

func NewViews(db *sql.DB, searcher Searcher, notifier Notifier, esIndex string, log logger.Logger) *Views {
	return &Views{
		db:       db,
		searcher: searcher,
		notifier: notifier,
		esIndex:  esIndex,
		logger:   log.WithFields(map[string]interface{}{"component": "admin"}),
	}
}

// ListApplications returns applications newest first, optionally filtered by
// status.
func (v *Views) ListApplications(ctx context.Context, status string) ([]models.Application, error) {
	query := `SELECT id, user_id, loan_id, phone_number, full_name,
		medical_score, asset_score, behavior_score, composite_score,
		status, created_at, updated_at
		FROM applications`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := v.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		var app models.Application
		if err := rows.Scan(&app.ID, &app.UserID, &app.LoanID, &app.PhoneNumber, &app.FullName,
			&app.MedicalScore, &app.AssetScore, &app.BehaviorScore, &app.CompositeScore,
			&app.Status, &app.CreatedAt, &app.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// GetApplication returns one application with every analysis row attached.
func (v *Views) GetApplication(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	row := v.db.QueryRowContext(ctx, `SELECT id, user_id, loan_id, phone_number, full_name,
		medical_score, asset_score, behavior_score, composite_score,
		status, created_at, updated_at
		FROM applications WHERE id = $1`, id)

	var app models.Application
	err := row.Scan(&app.ID, &app.UserID, &app.LoanID, &app.PhoneNumber, &app.FullName,
		&app.MedicalScore, &app.AssetScore, &app.BehaviorScore, &app.CompositeScore,
		&app.Status, &app.CreatedAt, &app.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	detail := &models.ApplicationDetail{Application: app}
	for _, category := range analysisTables {
		records, err := v.analysisRows(ctx, category, id)
		if err != nil {
			return nil, err
		}
		detail.Analyses = append(detail.Analyses, records...)
	}
	return detail, nil
}

func (v *Views) analysisRows(ctx context.Context, category models.AnalysisCategory, appID string) ([]models.AnalysisRecord, error) {
	query := fmt.Sprintf(`SELECT payload, created_at FROM %s WHERE application_id = $1`, category)
	rows, err := v.db.QueryContext(ctx, query, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s rows: %w", category, err)
	}
	defer rows.Close()

	var records []models.AnalysisRecord
	for rows.Next() {
		rec := models.AnalysisRecord{ApplicationID: appID, Category: category}
		var payload []byte
		if err := rows.Scan(&payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", category, err)
		}
		rec.Payload = json.RawMessage(payload)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpdateStatus sets a new status on an application and notifies the
// applicant. Notification failures are logged, not returned.
func (v *Views) UpdateStatus(ctx context.Context, id, status string) (*models.Application, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	row := v.db.QueryRowContext(ctx, `UPDATE applications
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, user_id, loan_id, phone_number, full_name,
			medical_score, asset_score, behavior_score, composite_score,
			status, created_at, updated_at`,
		status, now, id)

	var app models.Application
	err := row.Scan(&app.ID, &app.UserID, &app.LoanID, &app.PhoneNumber, &app.FullName,
		&app.MedicalScore, &app.AssetScore, &app.BehaviorScore, &app.CompositeScore,
		&app.Status, &app.CreatedAt, &app.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, stderrors.NewDatabaseInsertFailedError(err)
	}

	if v.notifier != nil {
		if err := v.notifier.StatusChanged(ctx, app); err != nil {
			v.logger.Warn("status notification failed", map[string]interface{}{
				"applicationId": id,
				"status":        status,
				"error":         err.Error(),
			})
		}
	}
	return &app, nil
}

// SearchApplications runs a free-text match over the application index and
// returns the raw search response for the dashboard to render.
func (v *Views) SearchApplications(ctx context.Context, text string) (json.RawMessage, error) {
	if v.searcher == nil {
		return nil, fmt.Errorf("search is not configured")
	}

	query, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"fullName", "phoneNumber", "status"},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	body, err := v.searcher.Search(ctx, v.esIndex, query)
	if err != nil {
		return nil, fmt.Errorf("application search failed: %w", err)
	}
	return json.RawMessage(body), nil
}

// ListActiveSessions returns every non-terminal tracked session, for the
// live board's poll leg.
func (v *Views) ListActiveSessions(ctx context.Context) ([]models.UserSession, error) {
	rows, err := v.db.QueryContext(ctx, `
		SELECT id, phone_number, current_step, current_field, status, created_at, last_activity
		FROM user_sessions WHERE status = $1
		ORDER BY last_activity DESC`, models.SessionInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.UserSession
	for rows.Next() {
		var sess models.UserSession
		if err := rows.Scan(&sess.ID, &sess.PhoneNumber, &sess.CurrentStep, &sess.CurrentField,
			&sess.Status, &sess.CreatedAt, &sess.LastActivity); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
