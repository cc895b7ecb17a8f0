// internal/persistence/gateway.go

// Package persistence turns a completed draft into durable state: the
// application row, one analysis row per present category, and every staged
// document uploaded to object storage.
package persistence

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Norbert250/ORION-2-sub000/internal/common/config"
	stderrors "github.com/Norbert250/ORION-2-sub000/internal/common/errors"
	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
	"github.com/Norbert250/ORION-2-sub000/internal/common/metrics"
	"github.com/Norbert250/ORION-2-sub000/internal/common/storage"
	"github.com/Norbert250/ORION-2-sub000/internal/models"
	"github.com/Norbert250/ORION-2-sub000/internal/scoring"
)

// FileSource resolves staged file bytes by key. Implemented by the intake
// draft store.
type FileSource interface {
	FileBytes(ctx context.Context, file models.StoredFile) ([]byte, error)
}

// Indexer mirrors submitted applications into the search index. Best-effort;
// implemented by the Elasticsearch client. Nil disables indexing.
type Indexer interface {
	Index(ctx context.Context, index, documentID string, body []byte) error
}

type Gateway struct {
	db      *sql.DB
	store   storage.ObjectStore
	files   FileSource
	indexer Indexer
	buckets config.BucketConfig
	esIndex string
	logger  logger.Logger
}

func NewGateway(db *sql.DB, store storage.ObjectStore, files FileSource, indexer Indexer, buckets config.BucketConfig, esIndex string, log logger.Logger) *Gateway {
	return &Gateway{
		db:      db,
		store:   store,
		files:   files,
		indexer: indexer,
		buckets: buckets,
		esIndex: esIndex,
		logger:  log.WithFields(map[string]interface{}{"component": "persistence"}),
	}
}

// Submit persists the draft. The application row is created first and is not
// rolled back on later failures; every remaining insert and upload then runs
// concurrently and any single failure fails the whole submission.
func (g *Gateway) Submit(ctx context.Context, draft *models.ApplicationDraft, scores scoring.Breakdown) (string, error) {
	appID := uuid.New().String()
	loanID := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)

	app := models.Application{
		ID:             appID,
		UserID:         draft.UserID,
		LoanID:         loanID,
		PhoneNumber:    draft.PhoneNumber,
		FullName:       draft.FullName,
		MedicalScore:   scores.Medical,
		AssetScore:     scores.Asset,
		BehaviorScore:  scores.Behavior,
		CompositeScore: scores.Composite,
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := g.insertApplication(ctx, app); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("failure").Inc()
		return "", stderrors.NewDatabaseInsertFailedError(err)
	}

	records := g.analysisRecords(appID, draft, now)
	files := draft.Files()

	var wg sync.WaitGroup
	errCh := make(chan error, len(records)+len(files))

	for _, rec := range records {
		wg.Add(1)
		go func(rec models.AnalysisRecord) {
			defer wg.Done()
			if err := g.insertAnalysis(ctx, rec); err != nil {
				errCh <- err
			}
		}(rec)
	}

	for _, file := range files {
		wg.Add(1)
		go func(file models.StoredFile) {
			defer wg.Done()
			if err := g.uploadFile(ctx, appID, file); err != nil {
				errCh <- err
			}
		}(file)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		metrics.SubmissionsTotal.WithLabelValues("failure").Inc()
		g.logger.Error("submission fan-out failed", map[string]interface{}{
			"applicationId": appID,
			"error":         err.Error(),
		})
		return "", err
	}

	metrics.SubmissionsTotal.WithLabelValues("success").Inc()
	g.indexApplication(ctx, app)

	g.logger.Info("application persisted", map[string]interface{}{
		"applicationId": appID,
		"files":         len(files),
		"analyses":      len(records),
	})
	return appID, nil
}

func (g *Gateway) insertApplication(ctx context.Context, app models.Application) error {
	query := `INSERT INTO applications
		(id, user_id, loan_id, phone_number, full_name,
		 medical_score, asset_score, behavior_score, composite_score,
		 status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := g.db.ExecContext(ctx, query,
		app.ID, app.UserID, app.LoanID, app.PhoneNumber, app.FullName,
		app.MedicalScore, app.AssetScore, app.BehaviorScore, app.CompositeScore,
		app.Status, app.CreatedAt, app.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

// analysisRecords builds one row per present analysis, carrying the raw
// upstream payload. Device location becomes a gps_analysis row.
func (g *Gateway) analysisRecords(appID string, draft *models.ApplicationDraft, now string) []models.AnalysisRecord {
	var records []models.AnalysisRecord
	add := func(category models.AnalysisCategory, payload json.RawMessage) {
		if len(payload) == 0 {
			payload = json.RawMessage(`{}`)
		}
		records = append(records, models.AnalysisRecord{
			ApplicationID: appID,
			Category:      category,
			Payload:       payload,
			CreatedAt:     now,
		})
	}

	a := draft.Analyses
	if a.ID != nil {
		add(models.CategoryID, a.ID.Raw)
	}
	if a.Guarantor1ID != nil {
		add(models.CategoryID, a.Guarantor1ID.Raw)
	}
	if a.Guarantor2ID != nil {
		add(models.CategoryID, a.Guarantor2ID.Raw)
	}
	if a.Medical != nil {
		add(models.CategoryMedical, a.Medical.Raw)
	}
	if a.Asset != nil {
		add(models.CategoryAsset, a.Asset.Raw)
	}
	if a.Bank != nil {
		add(models.CategoryBank, a.Bank.Raw)
	}
	if a.Mpesa != nil {
		add(models.CategoryMpesa, a.Mpesa.Raw)
	}
	if a.CallLogs != nil {
		add(models.CategoryCallLogs, a.CallLogs.Raw)
	}
	if a.CreditEval != nil {
		add(models.CategoryCreditEval, a.CreditEval.Raw)
	}
	if draft.Latitude != nil && draft.Longitude != nil {
		gps, _ := json.Marshal(map[string]float64{
			"latitude":  *draft.Latitude,
			"longitude": *draft.Longitude,
		})
		add(models.CategoryGPS, gps)
	}
	return records
}

func (g *Gateway) insertAnalysis(ctx context.Context, rec models.AnalysisRecord) error {
	// Category comes from the fixed constant set, never from input.
	query := fmt.Sprintf(
		`INSERT INTO %s (id, application_id, payload, created_at) VALUES ($1, $2, $3, $4)`,
		rec.Category)

	_, err := g.db.ExecContext(ctx, query, uuid.New().String(), rec.ApplicationID, []byte(rec.Payload), rec.CreatedAt)
	if err != nil {
		return stderrors.NewDatabaseInsertFailedError(
			fmt.Errorf("failed to insert %s row: %w", rec.Category, err))
	}
	return nil
}

func (g *Gateway) uploadFile(ctx context.Context, appID string, file models.StoredFile) error {
	data, err := g.files.FileBytes(ctx, file)
	if err != nil {
		return stderrors.NewFileUploadFailedError("", file.Name, err)
	}

	bucket := g.bucketFor(file.Role)
	objectName := fmt.Sprintf("%s/%s/%s", appID, file.Role, file.Name)
	if err := g.store.Upload(ctx, bucket, objectName, bytes.NewReader(data), int64(len(data)), file.ContentType); err != nil {
		return stderrors.NewFileUploadFailedError(bucket, objectName, err)
	}
	return nil
}

func (g *Gateway) bucketFor(role string) string {
	switch role {
	case models.RoleAssetPhoto, models.RoleHomePhoto, models.RoleBusinessPhoto:
		return g.buckets.AssetPhotos
	case models.RoleBankStatement:
		return g.buckets.BankStatements
	case models.RoleMpesaStatement, models.RoleCallLogExport:
		return g.buckets.MpesaDocuments
	default:
		return g.buckets.IDDocuments
	}
}

// indexApplication mirrors the row into the search index. Indexing failures
// are logged, never surfaced to the applicant.
func (g *Gateway) indexApplication(ctx context.Context, app models.Application) {
	if g.indexer == nil {
		return
	}
	body, err := json.Marshal(app)
	if err != nil {
		return
	}
	if err := g.indexer.Index(ctx, g.esIndex, app.ID, body); err != nil {
		g.logger.Warn("search indexing failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
	}
}
