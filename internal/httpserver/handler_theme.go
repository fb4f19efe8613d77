package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"contactrelay/internal/theme"
	"contactrelay/pkg/logger"
)

const visitorCookie = "visitor_id"

type ThemeHandler struct {
	store  theme.Store
	logger *zap.Logger
}

func NewThemeHandler(store theme.Store, logger *zap.Logger) *ThemeHandler {
	return &ThemeHandler{store: store, logger: logger}
}

// visitorID returns the visitor cookie, issuing one when absent or malformed.
func visitorID(c *gin.Context) string {
	if id, err := c.Cookie(visitorCookie); err == nil {
		if _, parseErr := uuid.Parse(id); parseErr == nil {
			return id
		}
	}
	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(visitorCookie, id, 365*24*3600, "/", "", false, true)
	return id
}

// Get handles GET /api/theme
func (h *ThemeHandler) Get(c *gin.Context) {
	t, err := h.store.Get(c.Request.Context(), visitorID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": t})
}

// Put handles PUT /api/theme
func (h *ThemeHandler) Put(c *gin.Context) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	t, err := theme.Parse(req.Theme)
	if errors.Is(err, theme.ErrInvalidTheme) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.Set(c.Request.Context(), visitorID(c), t); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": t})
}

// Toggle handles POST /api/theme/toggle
func (h *ThemeHandler) Toggle(c *gin.Context) {
	ctx := c.Request.Context()
	id := visitorID(c)

	current, err := h.store.Get(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	next := current.Toggle()
	if err := h.store.Set(ctx, id, next); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": next})
}

func (h *ThemeHandler) fail(c *gin.Context, err error) {
	logger.WithTrace(c.Request.Context(), h.logger).Error("Theme store failed", zap.Error(err))
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "theme store unavailable"})
}
