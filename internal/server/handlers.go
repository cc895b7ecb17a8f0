// internal/server/handlers.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Norbert250/ORION-2-sub000/internal/admin"
	stderrors "github.com/Norbert250/ORION-2-sub000/internal/common/errors"
	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
	"github.com/Norbert250/ORION-2-sub000/internal/intake"
	"github.com/Norbert250/ORION-2-sub000/internal/models"
)

// submitSchema is checked against the draft before the final hand-off.
// Submission is only valid from the review step.
const submitSchema = `{
	"type": "object",
	"required": ["sessionId", "phoneNumber", "step"],
	"properties": {
		"sessionId":   {"type": "string", "minLength": 1},
		"phoneNumber": {"type": "string", "minLength": 7},
		"step":        {"type": "integer", "minimum": 5}
	}
}`

// SessionTracker is the subset of tracking operations driven by client
// events rather than intake actions.
type SessionTracker interface {
	RecordField(ctx context.Context, phoneNumber, field string) error
	MarkLeft(ctx context.Context, phoneNumber string) error
}

type Handler struct {
	orchestrator *intake.Orchestrator
	views        *admin.Views
	board        *admin.LiveBoard
	tracker      SessionTracker
	schema       *gojsonschema.Schema
	logger       logger.Logger
}

func NewHandler(orchestrator *intake.Orchestrator, views *admin.Views, board *admin.LiveBoard, tracker SessionTracker, log logger.Logger) (*Handler, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(submitSchema))
	if err != nil {
		return nil, err
	}
	return &Handler{
		orchestrator: orchestrator,
		views:        views,
		board:        board,
		tracker:      tracker,
		schema:       schema,
		logger:       log,
	}, nil
}

// --- intake ---

type startSessionRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	UserID      string `json:"userId"`
}

func (h *Handler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phoneNumber is required"})
		return
	}

	draft, err := h.orchestrator.StartSession(c.Request.Context(), req.PhoneNumber, req.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, draft)
}

func (h *Handler) GetDraft(c *gin.Context) {
	draft, err := h.orchestrator.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handler) UpdateFields(c *gin.Context) {
	var patch intake.FieldPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid field patch"})
		return
	}

	draft, err := h.orchestrator.UpdateFields(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handler) Advance(c *gin.Context) {
	draft, blocked, err := h.orchestrator.Advance(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if blocked != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": blocked,
			"step":  draft.Step,
		})
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handler) Back(c *gin.Context) {
	draft, err := h.orchestrator.Back(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handler) AttachDocument(c *gin.Context) {
	role := c.PostForm("role")
	if role == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role is required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	extras := intake.DocumentExtras{
		StatementPassword: c.PostForm("password"),
		StatementCode:     c.PostForm("code"),
	}

	draft, err := h.orchestrator.AttachDocument(c.Request.Context(), c.Param("id"),
		role, fileHeader.Filename, contentType, data, extras)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handler) SubmitMedicalInfo(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid medical payload"})
		return
	}

	draft, err := h.orchestrator.SubmitMedicalInfo(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handler) EvaluateCredit(c *gin.Context) {
	draft, err := h.orchestrator.EvaluateCredit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handler) Scores(c *gin.Context) {
	scores, err := h.orchestrator.Scores(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, scores)
}

func (h *Handler) Submit(c *gin.Context) {
	sessionID := c.Param("id")

	draft, err := h.orchestrator.Get(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.validateSubmit(draft); err != nil {
		h.fail(c, err)
		return
	}

	appID, err := h.orchestrator.Submit(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applicationId": appID})
}

func (h *Handler) validateSubmit(draft *models.ApplicationDraft) error {
	doc, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	result, err := h.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return err
	}
	if !result.Valid() {
		var reasons []string
		for _, e := range result.Errors() {
			reasons = append(reasons, e.String())
		}
		return stderrors.NewStepValidationFailedError(strings.Join(reasons, "; "))
	}
	return nil
}

// --- tracking events ---

type trackingEventRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Type        string `json:"type" binding:"required"`
	Field       string `json:"field"`
	Offline     bool   `json:"offline"`
}

// TrackEvent ingests focus and abandonment signals from the client. Field
// events reported while the client was offline are dropped; their timestamps
// are no longer meaningful.
func (h *Handler) TrackEvent(c *gin.Context) {
	var req trackingEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phoneNumber and type are required"})
		return
	}

	switch req.Type {
	case "field":
		if req.Offline {
			c.JSON(http.StatusAccepted, gin.H{"skipped": true})
			return
		}
		if err := h.tracker.RecordField(c.Request.Context(), req.PhoneNumber, req.Field); err != nil {
			h.fail(c, err)
			return
		}
	case "left":
		if err := h.tracker.MarkLeft(c.Request.Context(), req.PhoneNumber); err != nil {
			h.fail(c, err)
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"skipped": false})
}

// --- admin ---

func (h *Handler) ListApplications(c *gin.Context) {
	apps, err := h.views.ListApplications(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func (h *Handler) GetApplication(c *gin.Context) {
	detail, err := h.views.GetApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	app, err := h.views.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	if app == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *Handler) SearchApplications(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	body, err := h.views.SearchApplications(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func (h *Handler) LiveSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.board.Snapshot()})
}

// --- error mapping ---

func (h *Handler) fail(c *gin.Context, err error) {
	var stdErr *stderrors.StandardError
	if errors.As(err, &stdErr) {
		c.JSON(statusFor(stdErr.Code), gin.H{
			"error":   stdErr.Message,
			"code":    stdErr.Code,
			"details": stdErr.Details,
		})
		return
	}
	h.logger.Error("unhandled error", map[string]interface{}{"error": err.Error()})
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func statusFor(code stderrors.ErrorCode) int {
	switch code {
	case stderrors.ErrCodeDraftNotFound:
		return http.StatusNotFound
	case stderrors.ErrCodeDraftClosed:
		return http.StatusConflict
	case stderrors.ErrCodeStepValidationFailed:
		return http.StatusUnprocessableEntity
	case stderrors.ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case stderrors.ErrCodeAnalysisCallFailed,
		stderrors.ErrCodeAnalysisTimeout,
		stderrors.ErrCodeAnalysisBadResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
