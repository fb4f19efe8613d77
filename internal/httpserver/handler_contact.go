package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"contactrelay/internal/contact"
	"contactrelay/internal/session"
	"contactrelay/pkg/logger"
)

type ContactHandler struct {
	issuer   *session.Issuer
	registry *session.Registry
	locker   session.Locker
	logger   *zap.Logger
}

func NewContactHandler(issuer *session.Issuer, registry *session.Registry, locker session.Locker, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{
		issuer:   issuer,
		registry: registry,
		locker:   locker,
		logger:   logger,
	}
}

// NewSession handles POST /api/contact/session
func (h *ContactHandler) NewSession(c *gin.Context) {
	formID := uuid.NewString()
	token, err := h.issuer.Issue(formID)
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to issue form token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open form"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"form_id": formID,
		"token":   token,
	})
}

// Submit handles POST /api/contact. Accepts JSON or form-encoded bodies.
func (h *ContactHandler) Submit(c *gin.Context) {
	var form contact.Form
	if err := bindBody(c, &form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	formID := c.GetString(formIDKey)

	lockToken, ok := h.locker.Acquire(ctx, formID)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": contact.ErrSubmissionInFlight.Error()})
		return
	}
	defer h.locker.Release(context.WithoutCancel(ctx), formID, lockToken)

	res, err := h.registry.Get(formID).Submit(ctx, form)
	switch {
	case errors.Is(err, contact.ErrSubmissionInFlight), errors.Is(err, contact.ErrClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		logger.WithTrace(ctx, h.logger).Error("Submission crashed", zap.String("form_id", formID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit"})
		return
	}

	c.JSON(statusFor(res), res)
}

// bindBody binds JSON through the body cache, since FormTokenMiddleware may
// already have read the token from it.
func bindBody(c *gin.Context, obj any) error {
	if c.ContentType() == gin.MIMEJSON {
		return c.ShouldBindBodyWith(obj, binding.JSON)
	}
	return c.ShouldBind(obj)
}

func statusFor(res *contact.Result) int {
	switch res.Outcome {
	case contact.OutcomeInvalid:
		return http.StatusUnprocessableEntity
	case contact.OutcomeFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

type fieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
	// Event is "blur" (validate) or "input" (clear the error while typing).
	Event string `json:"event"`
}

// Field handles POST /api/contact/field
func (h *ContactHandler) Field(c *gin.Context) {
	var req fieldRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	role := contact.Role(req.Field)
	d := h.registry.Get(c.GetString(formIDKey))

	resp := gin.H{"valid": true, "error": ""}
	switch req.Event {
	case "", "blur":
		msg := contact.ValidateField(role, req.Value)
		resp["valid"] = msg == ""
		resp["error"] = msg
		resp["effects"] = d.Blur(role, req.Value)
	case "input":
		resp["effects"] = d.Edit(role)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "event must be blur or input"})
		return
	}

	if role == contact.RoleMessage {
		resp["counter"] = contact.CountCharacters(req.Value)
	}
	c.JSON(http.StatusOK, resp)
}

// Status handles GET /api/contact/status
func (h *ContactHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Get(c.GetString(formIDKey)).Snapshot())
}
