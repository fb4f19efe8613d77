package httpserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"contactrelay/internal/session"
	"contactrelay/pkg/metrics"
	"contactrelay/pkg/trace"
)

const (
	formIDKey      = "form_id"
	formTokenField = "form_token"
	formTokenHdr   = "X-Form-Token"
)

// TraceMiddleware 为每个请求确定 trace_id，写入 context 与响应头
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := trace.FromHeader(c.GetHeader(trace.HeaderName), c.GetHeader("X-Request-ID"))
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName, traceID)
		c.Next()
	}
}

// MetricsMiddleware 记录请求耗时，path 使用路由模板避免标签爆炸
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// LoggerMiddleware writes one structured line per request.
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request",
			zap.String("trace_id", trace.FromContext(c.Request.Context())),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// FormTokenMiddleware resolves the form token to a form id. The token may come
// in the X-Form-Token header, as a bearer token, or as the form_token field of
// a form-encoded or JSON body.
func FormTokenMiddleware(issuer *session.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractFormToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing form token"})
			c.Abort()
			return
		}

		formID, err := issuer.Parse(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid form token"})
			c.Abort()
			return
		}

		c.Set(formIDKey, formID)
		c.Next()
	}
}

func extractFormToken(c *gin.Context) string {
	if token := c.GetHeader(formTokenHdr); token != "" {
		return token
	}

	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}

	switch c.ContentType() {
	case gin.MIMEPOSTForm, gin.MIMEMultipartPOSTForm:
		return c.PostForm(formTokenField)
	case gin.MIMEJSON:
		var body struct {
			FormToken string `json:"form_token"`
		}
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err == nil {
			return body.FormToken
		}
	}
	return ""
}
