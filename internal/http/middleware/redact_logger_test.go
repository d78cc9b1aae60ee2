package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestRedactingLogger_ScrubsQueryAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/capsules", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/capsules?email=ada@example.com", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set("X-Api-Key", "super-secret")
	req.Header.Set("X-Contact", "ada@example.com")
	r.ServeHTTP(w, req)

	out := buf.String()
	if strings.Contains(out, "ada@example.com") {
		t.Fatalf("email leaked to logs: %s", out)
	}
	if strings.Contains(out, "secret-token") || strings.Contains(out, "super-secret") {
		t.Fatalf("masked header leaked: %s", out)
	}
	if !strings.Contains(out, "[REDACTED:email]") {
		t.Fatalf("expected email redaction marker: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Fatalf("expected full header mask: %s", out)
	}
}

func TestRedactingLogger_UUIDBeforePhone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/capsules", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/capsules?id=141add05-4415-4938-b5a1-17e0d3171aff", nil)
	r.ServeHTTP(w, req)

	out := buf.String()
	if !strings.Contains(out, "[REDACTED:id]") {
		t.Fatalf("uuid not redacted as id: %s", out)
	}
	if strings.Contains(out, "[REDACTED:phone]") {
		t.Fatalf("uuid fragments misread as phone: %s", out)
	}
}

func TestRedactingLogger_SeverityByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Fatalf("4xx should log at warn: %s", buf.String())
	}
}
