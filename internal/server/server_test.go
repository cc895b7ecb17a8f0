// internal/server/server_test.go
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norbert250/ORION-2-sub000/internal/admin"
	"github.com/Norbert250/ORION-2-sub000/internal/analysis"
	"github.com/Norbert250/ORION-2-sub000/internal/common/httpclient"
	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
	"github.com/Norbert250/ORION-2-sub000/internal/intake"
	"github.com/Norbert250/ORION-2-sub000/internal/models"
	"github.com/Norbert250/ORION-2-sub000/internal/scoring"
)

// --- stubs ---

type nopAnalyzer struct{}

func (nopAnalyzer) AnalyzeIDDocument(ctx context.Context, file analysis.FilePart) (*models.IDAnalysis, error) {
	return &models.IDAnalysis{FullName: "Jane Wambui", Gender: "F", DateOfBirth: "1990-04-12"}, nil
}
func (nopAnalyzer) AnalyzeGuarantorID(ctx context.Context, file analysis.FilePart) (*models.IDAnalysis, error) {
	return &models.IDAnalysis{}, nil
}
func (nopAnalyzer) AnalyzeAssetPhotos(ctx context.Context, files []analysis.FilePart) (*models.AssetAnalysis, error) {
	return nil, nil
}
func (nopAnalyzer) AnalyzeBankStatement(ctx context.Context, file analysis.FilePart, password string) (*models.BankAnalysis, error) {
	return nil, nil
}
func (nopAnalyzer) AnalyzeMpesaStatement(ctx context.Context, file analysis.FilePart, code string) (*models.MpesaAnalysis, error) {
	return nil, nil
}
func (nopAnalyzer) AnalyzeCallLogs(ctx context.Context, file analysis.FilePart) (*models.CallLogsAnalysis, error) {
	return nil, nil
}
func (nopAnalyzer) AnalyzeDrugImages(ctx context.Context, files []analysis.FilePart) (*models.DrugAnalysis, error) {
	return nil, nil
}
func (nopAnalyzer) AnalyzePrescription(ctx context.Context, file analysis.FilePart) (*models.PrescriptionAnalysis, error) {
	return nil, nil
}
func (nopAnalyzer) AnalyzeMedicalInfo(ctx context.Context, payload map[string]interface{}) (*models.MedicalAnalysis, error) {
	return nil, nil
}
func (nopAnalyzer) AnalyzeCreditEvaluation(ctx context.Context, payload map[string]interface{}) (*models.CreditEvaluation, error) {
	return nil, nil
}

type nopSubmitter struct{}

func (nopSubmitter) Submit(ctx context.Context, draft *models.ApplicationDraft, scores scoring.Breakdown) (string, error) {
	return "app-1", nil
}

type nopNotifier struct{}

func (nopNotifier) Submitted(ctx context.Context, app models.Application) error { return nil }

type nopIntakeTracker struct{}

func (nopIntakeTracker) EnsureSession(ctx context.Context, phoneNumber string) error { return nil }
func (nopIntakeTracker) RecordStep(ctx context.Context, phoneNumber string, step int) error {
	return nil
}
func (nopIntakeTracker) MarkSubmitted(ctx context.Context, phoneNumber string) error { return nil }

type recordingTracker struct {
	fields []string
	left   []string
}

func (r *recordingTracker) RecordField(ctx context.Context, phoneNumber, field string) error {
	r.fields = append(r.fields, field)
	return nil
}
func (r *recordingTracker) MarkLeft(ctx context.Context, phoneNumber string) error {
	r.left = append(r.left, phoneNumber)
	return nil
}

type testEnv struct {
	router  *gin.Engine
	tracker *recordingTracker
	board   *admin.LiveBoard
	mock    sqlmock.Sqlmock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewTestLogger(t)
	store := intake.NewDraftStore(rdb, time.Hour)
	orchestrator := intake.NewOrchestrator(store, nopAnalyzer{}, nopSubmitter{}, nopIntakeTracker{}, nopNotifier{}, log)
	views := admin.NewViews(db, nil, nil, "applications", log)
	board := admin.NewLiveBoard()
	tracker := &recordingTracker{}

	handler, err := NewHandler(orchestrator, views, board, tracker, log)
	require.NoError(t, err)

	proxy := NewProxy("http://127.0.0.1:0/image", "http://127.0.0.1:0/pass", httpclient.NewClient(time.Second), log)
	return &testEnv{
		router:  NewRouter(handler, proxy, nil, log),
		tracker: tracker,
		board:   board,
		mock:    mock,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func startSession(t *testing.T, e *testEnv, phone string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/intake/sessions", gin.H{"phoneNumber": phone})
	require.Equal(t, http.StatusCreated, rec.Code)
	var draft models.ApplicationDraft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &draft))
	return draft.SessionID
}

// --- tests ---

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStartSessionRequiresPhoneNumber(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/intake/sessions", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntakeFlowGuardAndAdvance(t *testing.T) {
	e := newTestEnv(t)
	id := startSession(t, e, "254700000001")

	// Advance with missing fields is blocked with a 422 and a message.
	rec := e.do(t, http.MethodPost, "/api/intake/sessions/"+id+"/advance", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please fill in")

	rec = e.do(t, http.MethodPatch, "/api/intake/sessions/"+id+"/fields", gin.H{
		"employmentSector": "informal",
		"workType":         "shopkeeper",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/intake/sessions/"+id+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var draft models.ApplicationDraft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &draft))
	assert.Equal(t, 2, draft.Step)
}

func TestAttachDocumentMultipart(t *testing.T) {
	e := newTestEnv(t)
	id := startSession(t, e, "254700000002")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("role", models.RoleIDDocument))
	part, err := writer.CreateFormFile("file", "id.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpegbytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/intake/sessions/"+id+"/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var draft models.ApplicationDraft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &draft))
	assert.Equal(t, "Jane Wambui", draft.FullName)
}

func TestUnknownSessionIs404(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/intake/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrackEventOfflineFieldSkipped(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/tracking/events", gin.H{
		"phoneNumber": "254700000003",
		"type":        "field",
		"field":       "email",
		"offline":     true,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"skipped":true`)
	assert.Empty(t, e.tracker.fields)

	rec = e.do(t, http.MethodPost, "/api/tracking/events", gin.H{
		"phoneNumber": "254700000003",
		"type":        "field",
		"field":       "email",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"email"}, e.tracker.fields)
}

func TestTrackEventLeft(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/tracking/events", gin.H{
		"phoneNumber": "254700000004",
		"type":        "left",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"254700000004"}, e.tracker.left)
}

func TestLiveSessionsSnapshot(t *testing.T) {
	e := newTestEnv(t)
	e.board.Upsert(models.UserSession{
		PhoneNumber:  "254700000005",
		CurrentStep:  2,
		Status:       models.SessionInProgress,
		LastActivity: time.Now().UTC(),
	})

	rec := e.do(t, http.MethodGet, "/api/admin/sessions/live", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "254700000005")
}

func TestEchoRequiresPost(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/proxy/echo", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "Method not allowed")

	rec = e.do(t, http.MethodPost, "/proxy/echo", gin.H{"ping": 1})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitValidatesDraft(t *testing.T) {
	e := newTestEnv(t)
	id := startSession(t, e, "254700000006")

	// Still on step one: schema validation rejects the submit.
	rec := e.do(t, http.MethodPost, "/api/intake/sessions/"+id+"/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
