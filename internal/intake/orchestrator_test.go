// internal/intake/orchestrator_test.go
package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norbert250/ORION-2-sub000/internal/analysis"
	stderrors "github.com/Norbert250/ORION-2-sub000/internal/common/errors"
	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
	"github.com/Norbert250/ORION-2-sub000/internal/models"
	"github.com/Norbert250/ORION-2-sub000/internal/scoring"
)

func fp(v float64) *float64 { return &v }

// stubAnalyzer returns canned results per document type.
type stubAnalyzer struct {
	id       *models.IDAnalysis
	idErr    error
	asset    *models.AssetAnalysis
	bank     *models.BankAnalysis
	mpesa    *models.MpesaAnalysis
	callLogs *models.CallLogsAnalysis
	medical  *models.MedicalAnalysis
	rx       *models.PrescriptionAnalysis
}

func (s *stubAnalyzer) AnalyzeIDDocument(ctx context.Context, file analysis.FilePart) (*models.IDAnalysis, error) {
	return s.id, s.idErr
}
func (s *stubAnalyzer) AnalyzeGuarantorID(ctx context.Context, file analysis.FilePart) (*models.IDAnalysis, error) {
	return s.id, nil
}
func (s *stubAnalyzer) AnalyzeAssetPhotos(ctx context.Context, files []analysis.FilePart) (*models.AssetAnalysis, error) {
	return s.asset, nil
}
func (s *stubAnalyzer) AnalyzeBankStatement(ctx context.Context, file analysis.FilePart, password string) (*models.BankAnalysis, error) {
	return s.bank, nil
}
func (s *stubAnalyzer) AnalyzeMpesaStatement(ctx context.Context, file analysis.FilePart, code string) (*models.MpesaAnalysis, error) {
	return s.mpesa, nil
}
func (s *stubAnalyzer) AnalyzeCallLogs(ctx context.Context, file analysis.FilePart) (*models.CallLogsAnalysis, error) {
	return s.callLogs, nil
}
func (s *stubAnalyzer) AnalyzeDrugImages(ctx context.Context, files []analysis.FilePart) (*models.DrugAnalysis, error) {
	return nil, nil
}
func (s *stubAnalyzer) AnalyzePrescription(ctx context.Context, file analysis.FilePart) (*models.PrescriptionAnalysis, error) {
	return s.rx, nil
}
func (s *stubAnalyzer) AnalyzeMedicalInfo(ctx context.Context, payload map[string]interface{}) (*models.MedicalAnalysis, error) {
	return s.medical, nil
}
func (s *stubAnalyzer) AnalyzeCreditEvaluation(ctx context.Context, payload map[string]interface{}) (*models.CreditEvaluation, error) {
	return nil, nil
}

type stubSubmitter struct {
	appID string
	err   error
	calls int
}

func (s *stubSubmitter) Submit(ctx context.Context, draft *models.ApplicationDraft, scores scoring.Breakdown) (string, error) {
	s.calls++
	return s.appID, s.err
}

type stubTracker struct {
	ensured   []string
	steps     []int
	submitted []string
}

func (s *stubTracker) EnsureSession(ctx context.Context, phoneNumber string) error {
	s.ensured = append(s.ensured, phoneNumber)
	return nil
}
func (s *stubTracker) RecordStep(ctx context.Context, phoneNumber string, step int) error {
	s.steps = append(s.steps, step)
	return nil
}
func (s *stubTracker) MarkSubmitted(ctx context.Context, phoneNumber string) error {
	s.submitted = append(s.submitted, phoneNumber)
	return nil
}

type stubNotifier struct {
	apps []models.Application
	err  error
}

func (s *stubNotifier) Submitted(ctx context.Context, app models.Application) error {
	s.apps = append(s.apps, app)
	return s.err
}

func newTestOrchestrator(t *testing.T, an Analyzer, sub Submitter) (*Orchestrator, *stubTracker, *stubNotifier) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := NewDraftStore(rdb, 2*time.Hour)
	tracker := &stubTracker{}
	notifier := &stubNotifier{}
	return NewOrchestrator(store, an, sub, tracker, notifier, logger.NewTestLogger(t)), tracker, notifier
}

func TestStartSessionCreatesDraftAtStepOne(t *testing.T) {
	o, tracker, _ := newTestOrchestrator(t, &stubAnalyzer{}, &stubSubmitter{})

	draft, err := o.StartSession(context.Background(), "254700000001", "user-1")
	require.NoError(t, err)

	assert.Equal(t, StepContact, draft.Step)
	assert.Equal(t, "254700000001", draft.PhoneNumber)
	assert.Contains(t, draft.SessionID, "254700000001-")
	assert.Equal(t, []string{"254700000001"}, tracker.ensured)

	loaded, err := o.Get(context.Background(), draft.SessionID)
	require.NoError(t, err)
	assert.Equal(t, draft.SessionID, loaded.SessionID)
}

func TestAdvanceBlockedByEmptyWorkType(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &stubAnalyzer{}, &stubSubmitter{})
	ctx := context.Background()

	draft, err := o.StartSession(ctx, "254700000002", "user-2")
	require.NoError(t, err)

	// Everything filled except workType.
	sector := "informal"
	income := "25000"
	_, err = o.UpdateFields(ctx, draft.SessionID, FieldPatch{
		EmploymentSector: &sector,
		MonthlyIncome:    &income,
	})
	require.NoError(t, err)

	updated, blocked, err := o.Advance(ctx, draft.SessionID)
	require.NoError(t, err)
	assert.NotEmpty(t, blocked)
	assert.Equal(t, StepContact, updated.Step)

	workType := "shopkeeper"
	_, err = o.UpdateFields(ctx, draft.SessionID, FieldPatch{WorkType: &workType})
	require.NoError(t, err)

	updated, blocked, err = o.Advance(ctx, draft.SessionID)
	require.NoError(t, err)
	assert.Empty(t, blocked)
	assert.Equal(t, StepPersonal, updated.Step)
}

func TestBackIsUnconditional(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &stubAnalyzer{}, &stubSubmitter{})
	ctx := context.Background()

	draft, err := o.StartSession(ctx, "254700000003", "user-3")
	require.NoError(t, err)

	// Back from step one stays at step one.
	updated, err := o.Back(ctx, draft.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StepContact, updated.Step)
}

func TestAttachIDDocumentFillsPersonalFields(t *testing.T) {
	an := &stubAnalyzer{id: &models.IDAnalysis{
		FullName:    "Jane Wambui",
		Gender:      "F",
		DateOfBirth: "1990-04-12",
		IDNumber:    "12345678",
	}}
	o, _, _ := newTestOrchestrator(t, an, &stubSubmitter{})
	ctx := context.Background()

	draft, err := o.StartSession(ctx, "254700000004", "user-4")
	require.NoError(t, err)

	updated, err := o.AttachDocument(ctx, draft.SessionID, models.RoleIDDocument,
		"id.jpg", "image/jpeg", []byte("jpegbytes"), DocumentExtras{})
	require.NoError(t, err)

	assert.Equal(t, "Jane Wambui", updated.FullName)
	assert.Equal(t, "F", updated.Gender)
	assert.Equal(t, "1990-04-12", updated.DateOfBirth)
	require.NotNil(t, updated.IDDocument)
	assert.Equal(t, models.RoleIDDocument, updated.IDDocument.Role)
	require.NotNil(t, updated.Analyses.ID)
}

func TestAttachIDDocumentFailurePropagates(t *testing.T) {
	an := &stubAnalyzer{idErr: stderrors.NewAnalysisCallFailedError("id-document", errors.New("boom"))}
	o, _, _ := newTestOrchestrator(t, an, &stubSubmitter{})
	ctx := context.Background()

	draft, err := o.StartSession(ctx, "254700000005", "user-5")
	require.NoError(t, err)

	_, err = o.AttachDocument(ctx, draft.SessionID, models.RoleIDDocument,
		"id.jpg", "image/jpeg", []byte("jpegbytes"), DocumentExtras{})
	require.Error(t, err)

	// The failed upload must not leave a partial ID on the draft.
	loaded, err := o.Get(ctx, draft.SessionID)
	require.NoError(t, err)
	assert.Nil(t, loaded.IDDocument)
	assert.Nil(t, loaded.Analyses.ID)
}

func TestOptionalAnalysisNilResultDoesNotOverwrite(t *testing.T) {
	an := &stubAnalyzer{asset: &models.AssetAnalysis{CreditScore: fp(80)}}
	o, _, _ := newTestOrchestrator(t, an, &stubSubmitter{})
	ctx := context.Background()

	draft, err := o.StartSession(ctx, "254700000006", "user-6")
	require.NoError(t, err)

	_, err = o.AttachDocument(ctx, draft.SessionID, models.RoleAssetPhoto,
		"tv.jpg", "image/jpeg", []byte("a"), DocumentExtras{})
	require.NoError(t, err)

	// Second photo fails analysis (optional, client returns nil, nil).
	an.asset = nil
	updated, err := o.AttachDocument(ctx, draft.SessionID, models.RoleAssetPhoto,
		"fridge.jpg", "image/jpeg", []byte("b"), DocumentExtras{})
	require.NoError(t, err)

	assert.Len(t, updated.AssetPictures, 2)
	require.NotNil(t, updated.Analyses.Asset)
	assert.Equal(t, 80.0, *updated.Analyses.Asset.CreditScore)
}

func TestScoresUseImageOnlyAssetBeforeGuarantorStep(t *testing.T) {
	an := &stubAnalyzer{
		asset: &models.AssetAnalysis{CreditScore: fp(80)},
		bank:  &models.BankAnalysis{CreditScore: fp(60)},
	}
	o, _, _ := newTestOrchestrator(t, an, &stubSubmitter{})
	ctx := context.Background()

	draft, err := o.StartSession(ctx, "254700000007", "user-7")
	require.NoError(t, err)

	_, err = o.AttachDocument(ctx, draft.SessionID, models.RoleAssetPhoto,
		"tv.jpg", "image/jpeg", []byte("a"), DocumentExtras{})
	require.NoError(t, err)
	_, err = o.AttachDocument(ctx, draft.SessionID, models.RoleBankStatement,
		"stmt.pdf", "application/pdf", []byte("b"), DocumentExtras{StatementPassword: "pw"})
	require.NoError(t, err)

	// Still on step one: image-only asset score, bank ignored.
	scores, err := o.Scores(ctx, draft.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 80.0, scores.Asset)

	forceStep(t, o, ctx, draft.SessionID, StepGuarantors)

	scores, err = o.Scores(ctx, draft.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, scores.Asset)
}

func TestSubmitOnlyFromReviewStep(t *testing.T) {
	sub := &stubSubmitter{appID: "app-1"}
	o, _, notifier := newTestOrchestrator(t, &stubAnalyzer{}, sub)
	ctx := context.Background()

	draft, err := o.StartSession(ctx, "254700000008", "user-8")
	require.NoError(t, err)

	_, err = o.Submit(ctx, draft.SessionID)
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeStepValidationFailed, stdErr.Code)
	assert.Zero(t, sub.calls)
	assert.Empty(t, notifier.apps)
}

func TestSubmitClosesAndDeletesDraft(t *testing.T) {
	sub := &stubSubmitter{appID: "app-2"}
	o, tracker, notifier := newTestOrchestrator(t, &stubAnalyzer{}, sub)
	ctx := context.Background()

	draft, err := o.StartSession(ctx, "254700000009", "user-9")
	require.NoError(t, err)
	forceStep(t, o, ctx, draft.SessionID, StepReview)

	appID, err := o.Submit(ctx, draft.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "app-2", appID)
	assert.Equal(t, 1, sub.calls)
	assert.Equal(t, []string{"254700000009"}, tracker.submitted)

	// The applicant gets a confirmation with the new application id.
	require.Len(t, notifier.apps, 1)
	assert.Equal(t, "app-2", notifier.apps[0].ID)
	assert.Equal(t, "254700000009", notifier.apps[0].PhoneNumber)

	// Draft is gone; further edits report not-found.
	_, err = o.Get(ctx, draft.SessionID)
	require.Error(t, err)
	require.ErrorAs(t, err, new(*stderrors.StandardError))
}

func TestSubmitFailureKeepsDraftOpen(t *testing.T) {
	sub := &stubSubmitter{err: errors.New("insert failed")}
	o, _, notifier := newTestOrchestrator(t, &stubAnalyzer{}, sub)
	ctx := context.Background()

	draft, err := o.StartSession(ctx, "254700000010", "user-10")
	require.NoError(t, err)
	forceStep(t, o, ctx, draft.SessionID, StepReview)

	_, err = o.Submit(ctx, draft.SessionID)
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeSubmissionFailed, stdErr.Code)
	assert.Empty(t, notifier.apps)

	// Resubmission is possible.
	loaded, err := o.Get(ctx, draft.SessionID)
	require.NoError(t, err)
	assert.False(t, loaded.Submitted)
	assert.Equal(t, StepReview, loaded.Step)
}

func TestSubmitSucceedsWhenConfirmationFails(t *testing.T) {
	sub := &stubSubmitter{appID: "app-3"}
	o, _, notifier := newTestOrchestrator(t, &stubAnalyzer{}, sub)
	notifier.err = errors.New("sms gateway down")
	ctx := context.Background()

	draft, err := o.StartSession(ctx, "254700000012", "user-12")
	require.NoError(t, err)
	forceStep(t, o, ctx, draft.SessionID, StepReview)

	appID, err := o.Submit(ctx, draft.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "app-3", appID)
	require.Len(t, notifier.apps, 1)
}

func TestMedicalInfoRecordedOnDraft(t *testing.T) {
	an := &stubAnalyzer{medical: &models.MedicalAnalysis{TotalScore: fp(70)}}
	o, _, _ := newTestOrchestrator(t, an, &stubSubmitter{})
	ctx := context.Background()

	draft, err := o.StartSession(ctx, "254700000011", "user-11")
	require.NoError(t, err)

	updated, err := o.SubmitMedicalInfo(ctx, draft.SessionID, map[string]interface{}{
		"chronic_condition": "asthma",
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Analyses.Medical)
	assert.Equal(t, 70.0, *updated.Analyses.Medical.TotalScore)
}

// forceStep drives the draft to a target step bypassing guards, for tests
// that exercise behavior at later steps.
func forceStep(t *testing.T, o *Orchestrator, ctx context.Context, sessionID string, step int) {
	t.Helper()
	draft, err := o.store.Get(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, draft)
	draft.Step = step
	require.NoError(t, o.store.Save(ctx, draft))
}
