// internal/intake/orchestrator.go

// Package intake owns the multi-step application draft: five fixed steps,
// linear navigation with per-step guards, and the per-document analysis side
// effects that grow the draft as uploads complete.
package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/Norbert250/ORION-2-sub000/internal/analysis"
	stderrors "github.com/Norbert250/ORION-2-sub000/internal/common/errors"
	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
	"github.com/Norbert250/ORION-2-sub000/internal/models"
	"github.com/Norbert250/ORION-2-sub000/internal/scoring"
)

// Analyzer is the subset of the analysis client the orchestrator invokes on
// document changes.
type Analyzer interface {
	AnalyzeIDDocument(ctx context.Context, file analysis.FilePart) (*models.IDAnalysis, error)
	AnalyzeGuarantorID(ctx context.Context, file analysis.FilePart) (*models.IDAnalysis, error)
	AnalyzeAssetPhotos(ctx context.Context, files []analysis.FilePart) (*models.AssetAnalysis, error)
	AnalyzeBankStatement(ctx context.Context, file analysis.FilePart, password string) (*models.BankAnalysis, error)
	AnalyzeMpesaStatement(ctx context.Context, file analysis.FilePart, code string) (*models.MpesaAnalysis, error)
	AnalyzeCallLogs(ctx context.Context, file analysis.FilePart) (*models.CallLogsAnalysis, error)
	AnalyzeDrugImages(ctx context.Context, files []analysis.FilePart) (*models.DrugAnalysis, error)
	AnalyzePrescription(ctx context.Context, file analysis.FilePart) (*models.PrescriptionAnalysis, error)
	AnalyzeMedicalInfo(ctx context.Context, payload map[string]interface{}) (*models.MedicalAnalysis, error)
	AnalyzeCreditEvaluation(ctx context.Context, payload map[string]interface{}) (*models.CreditEvaluation, error)
}

// Submitter persists a completed draft. Implemented by the persistence
// gateway.
type Submitter interface {
	Submit(ctx context.Context, draft *models.ApplicationDraft, scores scoring.Breakdown) (string, error)
}

// Tracker mirrors intake progress into the live session table.
type Tracker interface {
	EnsureSession(ctx context.Context, phoneNumber string) error
	RecordStep(ctx context.Context, phoneNumber string, step int) error
	MarkSubmitted(ctx context.Context, phoneNumber string) error
}

// Notifier confirms a successful submission to the applicant. Failures are
// logged, never surfaced.
type Notifier interface {
	Submitted(ctx context.Context, app models.Application) error
}

type Orchestrator struct {
	store     *DraftStore
	analyzer  Analyzer
	submitter Submitter
	tracker   Tracker
	notifier  Notifier
	logger    logger.Logger
}

func NewOrchestrator(store *DraftStore, analyzer Analyzer, submitter Submitter, tracker Tracker, notifier Notifier, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		analyzer:  analyzer,
		submitter: submitter,
		tracker:   tracker,
		notifier:  notifier,
		logger:    log.WithFields(map[string]interface{}{"component": "intake"}),
	}
}

// StartSession creates a fresh draft for a phone number and registers the
// live tracking session. The session id is the phone number plus the
// creation timestamp.
func (o *Orchestrator) StartSession(ctx context.Context, phoneNumber, userID string) (*models.ApplicationDraft, error) {
	now := time.Now().UTC()
	draft := &models.ApplicationDraft{
		SessionID:   fmt.Sprintf("%s-%d", phoneNumber, now.UnixMilli()),
		UserID:      userID,
		PhoneNumber: phoneNumber,
		Step:        StepContact,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := o.store.Save(ctx, draft); err != nil {
		return nil, err
	}

	if err := o.tracker.EnsureSession(ctx, phoneNumber); err != nil {
		// Tracking is operational telemetry; its failure never blocks intake.
		o.logger.Warn("session tracking unavailable", map[string]interface{}{
			"phoneNumber": phoneNumber,
			"error":       err.Error(),
		})
	}

	o.logger.Info("intake session started", map[string]interface{}{
		"sessionId": draft.SessionID,
	})
	return draft, nil
}

// Get loads an open draft or fails with a not-found error.
func (o *Orchestrator) Get(ctx context.Context, sessionID string) (*models.ApplicationDraft, error) {
	draft, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, stderrors.NewDraftNotFoundError(sessionID)
	}
	return draft, nil
}

// FieldPatch updates draft fields. Nil pointers leave the field untouched;
// merges are last-write-wins per field.
type FieldPatch struct {
	Email            *string  `json:"email,omitempty"`
	EmploymentSector *string  `json:"employmentSector,omitempty"`
	WorkType         *string  `json:"workType,omitempty"`
	MonthlyIncome    *string  `json:"monthlyIncome,omitempty"`
	ChronicCondition *string  `json:"chronicCondition,omitempty"`
	Guarantor1Phone  *string  `json:"guarantor1Phone,omitempty"`
	Guarantor2Phone  *string  `json:"guarantor2Phone,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
}

// UpdateFields merges a patch into the draft.
func (o *Orchestrator) UpdateFields(ctx context.Context, sessionID string, patch FieldPatch) (*models.ApplicationDraft, error) {
	draft, err := o.editable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		draft.Email = *patch.Email
	}
	if patch.EmploymentSector != nil {
		draft.EmploymentSector = *patch.EmploymentSector
	}
	if patch.WorkType != nil {
		draft.WorkType = *patch.WorkType
	}
	if patch.MonthlyIncome != nil {
		draft.MonthlyIncome = *patch.MonthlyIncome
	}
	if patch.ChronicCondition != nil {
		draft.ChronicCondition = *patch.ChronicCondition
	}
	if patch.Guarantor1Phone != nil {
		draft.Guarantor1Phone = *patch.Guarantor1Phone
	}
	if patch.Guarantor2Phone != nil {
		draft.Guarantor2Phone = *patch.Guarantor2Phone
	}
	if patch.Latitude != nil {
		draft.Latitude = patch.Latitude
	}
	if patch.Longitude != nil {
		draft.Longitude = patch.Longitude
	}

	draft.UpdatedAt = time.Now().UTC()
	if err := o.store.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Advance moves the draft forward one step if the current step's guard
// passes. A non-empty blocked message means the transition did not happen.
func (o *Orchestrator) Advance(ctx context.Context, sessionID string) (*models.ApplicationDraft, string, error) {
	draft, err := o.editable(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	if draft.Step >= StepReview {
		return draft, "", nil
	}

	if g, ok := stepGuards[draft.Step]; ok {
		if msg := g(draft); msg != "" {
			return draft, msg, nil
		}
	}

	draft.Step++
	draft.UpdatedAt = time.Now().UTC()
	if err := o.store.Save(ctx, draft); err != nil {
		return nil, "", err
	}

	if err := o.tracker.RecordStep(ctx, draft.PhoneNumber, draft.Step); err != nil {
		o.logger.Warn("step tracking failed", map[string]interface{}{"error": err.Error()})
	}

	return draft, "", nil
}

// Back moves the draft back one step, unconditionally.
func (o *Orchestrator) Back(ctx context.Context, sessionID string) (*models.ApplicationDraft, error) {
	draft, err := o.editable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Step > StepContact {
		draft.Step--
		draft.UpdatedAt = time.Now().UTC()
		if err := o.store.Save(ctx, draft); err != nil {
			return nil, err
		}
		if err := o.tracker.RecordStep(ctx, draft.PhoneNumber, draft.Step); err != nil {
			o.logger.Warn("step tracking failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return draft, nil
}

// DocumentExtras carries the occasional side fields an analyzer needs.
type DocumentExtras struct {
	StatementPassword string
	StatementCode     string
}

// AttachDocument stages an uploaded file on the draft and immediately runs
// the analysis for its document type, merging the result. Whether an
// analysis failure propagates depends on the document's policy. Unrelated
// fields and other in-flight uploads are unaffected.
func (o *Orchestrator) AttachDocument(ctx context.Context, sessionID, role, name, contentType string, data []byte, extras DocumentExtras) (*models.ApplicationDraft, error) {
	draft, err := o.editable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	file, err := o.store.StageFile(ctx, sessionID, role, name, contentType, data)
	if err != nil {
		return nil, err
	}
	part := analysis.FilePart{Field: "file", Name: name, ContentType: contentType, Data: data}

	switch role {
	case models.RoleIDDocument:
		result, err := o.analyzer.AnalyzeIDDocument(ctx, part)
		if err != nil {
			return nil, err
		}
		draft.IDDocument = &file
		draft.Analyses.ID = result
		draft.FullName = result.FullName
		draft.Gender = result.Gender
		draft.DateOfBirth = result.DateOfBirth
		draft.IDNumber = result.IDNumber

	case models.RoleGuarantor1ID:
		result, err := o.analyzer.AnalyzeGuarantorID(ctx, part)
		if err != nil {
			return nil, err
		}
		draft.Guarantor1ID = &file
		draft.Analyses.Guarantor1ID = result

	case models.RoleGuarantor2ID:
		result, err := o.analyzer.AnalyzeGuarantorID(ctx, part)
		if err != nil {
			return nil, err
		}
		draft.Guarantor2ID = &file
		draft.Analyses.Guarantor2ID = result

	case models.RoleAssetPhoto:
		result, err := o.analyzer.AnalyzeAssetPhotos(ctx, []analysis.FilePart{part})
		if err != nil {
			return nil, err
		}
		draft.AssetPictures = append(draft.AssetPictures, file)
		if result != nil {
			draft.Analyses.Asset = result
		}

	case models.RoleHomePhoto:
		draft.HomePhoto = &file

	case models.RoleBusinessPhoto:
		draft.BusinessPhoto = &file

	case models.RoleBankStatement:
		result, err := o.analyzer.AnalyzeBankStatement(ctx, part, extras.StatementPassword)
		if err != nil {
			return nil, err
		}
		draft.BankStatement = &file
		draft.Analyses.Bank = result

	case models.RoleMpesaStatement:
		result, err := o.analyzer.AnalyzeMpesaStatement(ctx, part, extras.StatementCode)
		if err != nil {
			return nil, err
		}
		draft.MpesaStatement = &file
		draft.Analyses.Mpesa = result

	case models.RoleCallLogExport:
		result, err := o.analyzer.AnalyzeCallLogs(ctx, part)
		if err != nil {
			return nil, err
		}
		draft.CallLogExport = &file
		draft.Analyses.CallLogs = result

	case models.RolePrescription:
		result, err := o.analyzer.AnalyzePrescription(ctx, part)
		if err != nil {
			return nil, err
		}
		draft.Prescriptions = append(draft.Prescriptions, file)
		if result != nil {
			draft.Analyses.Prescription = result
		}

	case models.RoleDrugImage:
		result, err := o.analyzer.AnalyzeDrugImages(ctx, []analysis.FilePart{part})
		if err != nil {
			return nil, err
		}
		draft.DrugImages = append(draft.DrugImages, file)
		if result != nil {
			draft.Analyses.Drugs = result
		}

	default:
		return nil, fmt.Errorf("unknown document role: %s", role)
	}

	draft.UpdatedAt = time.Now().UTC()
	if err := o.store.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// SubmitMedicalInfo sends the declared medical details for scoring and
// records the result on the draft.
func (o *Orchestrator) SubmitMedicalInfo(ctx context.Context, sessionID string, payload map[string]interface{}) (*models.ApplicationDraft, error) {
	draft, err := o.editable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result, err := o.analyzer.AnalyzeMedicalInfo(ctx, payload)
	if err != nil {
		return nil, err
	}
	draft.Analyses.Medical = result
	draft.UpdatedAt = time.Now().UTC()
	if err := o.store.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// EvaluateCredit runs the consolidated credit evaluation over the draft.
func (o *Orchestrator) EvaluateCredit(ctx context.Context, sessionID string) (*models.ApplicationDraft, error) {
	draft, err := o.editable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"phone_number":      draft.PhoneNumber,
		"employment_sector": draft.EmploymentSector,
		"work_type":         draft.WorkType,
		"monthly_income":    draft.MonthlyIncome,
	}
	if draft.Analyses.Bank != nil && draft.Analyses.Bank.CreditScore != nil {
		payload["bank_score"] = *draft.Analyses.Bank.CreditScore
	}
	if draft.Analyses.Asset != nil && draft.Analyses.Asset.CreditScore != nil {
		payload["asset_score"] = *draft.Analyses.Asset.CreditScore
	}

	result, err := o.analyzer.AnalyzeCreditEvaluation(ctx, payload)
	if err != nil {
		return nil, err
	}
	draft.Analyses.CreditEval = result
	draft.UpdatedAt = time.Now().UTC()
	if err := o.store.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Scores recomputes the full breakdown from whatever analyses are present.
func (o *Orchestrator) Scores(ctx context.Context, sessionID string) (scoring.Breakdown, error) {
	draft, err := o.Get(ctx, sessionID)
	if err != nil {
		return scoring.Breakdown{}, err
	}
	return o.breakdown(draft), nil
}

// breakdown keeps the staged asset formula: before the review step the asset
// category shows the image-based score alone, even if a bank score exists.
func (o *Orchestrator) breakdown(draft *models.ApplicationDraft) scoring.Breakdown {
	in := scoring.InputsFromAnalyses(draft.Analyses)
	if draft.Step < StepGuarantors {
		in.BankCreditScore = nil
		medical := scoring.MedicalScore(in.MedicalBase, in.PrescriptionPresent)
		asset := scoring.AssetScoreImageOnly(in.AssetCreditScore)
		behavior := scoring.BehaviorScore(in.MpesaBehaviorScore, in.CallLogsScore, in.Guarantor1Present, in.Guarantor2Present)
		return scoring.Breakdown{
			Medical:   medical,
			Asset:     asset,
			Behavior:  behavior,
			Composite: scoring.CompositeScore(medical, asset, behavior),
		}
	}
	return scoring.Compute(in)
}

// Submit performs the terminal action from the review step. On success the
// draft is closed and removed; on failure the user sees one generic message
// and must resubmit.
func (o *Orchestrator) Submit(ctx context.Context, sessionID string) (string, error) {
	draft, err := o.editable(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if draft.Step != StepReview {
		return "", stderrors.NewStepValidationFailedError("Please complete all steps before submitting")
	}

	appID, err := o.submitter.Submit(ctx, draft, o.breakdown(draft))
	if err != nil {
		o.logger.Error("submission failed", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
		return "", stderrors.NewSubmissionFailedError(err)
	}

	draft.Submitted = true
	if err := o.tracker.MarkSubmitted(ctx, draft.PhoneNumber); err != nil {
		o.logger.Warn("submit tracking failed", map[string]interface{}{"error": err.Error()})
	}
	if err := o.store.Delete(ctx, draft); err != nil {
		o.logger.Warn("draft cleanup failed", map[string]interface{}{"error": err.Error()})
	}
	if err := o.notifier.Submitted(ctx, models.Application{
		ID:          appID,
		PhoneNumber: draft.PhoneNumber,
		FullName:    draft.FullName,
	}); err != nil {
		o.logger.Warn("submit confirmation failed", map[string]interface{}{"error": err.Error()})
	}

	o.logger.Info("application submitted", map[string]interface{}{
		"sessionId":     sessionID,
		"applicationId": appID,
	})
	return appID, nil
}

func (o *Orchestrator) editable(ctx context.Context, sessionID string) (*models.ApplicationDraft, error) {
	draft, err := o.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Submitted {
		return nil, stderrors.NewDraftClosedError(sessionID)
	}
	return draft, nil
}
