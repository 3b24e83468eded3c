package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/database"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/repository"
)

func TestExtractSessionMetadataNestedSession(t *testing.T) {
	body := []byte(`{"session": {"session_id": "S-1", "site_id": "SITE-A", "subject_id": "SUBJ-1", "operator_id": "OP-1"}}`)
	meta := extractSessionMetadata(body)
	assert.Equal(t, "S-1", meta.SessionID)
	assert.Equal(t, "SITE-A", meta.SiteID)
	assert.Equal(t, "SUBJ-1", meta.SubjectID)
	assert.Equal(t, "OP-1", meta.OperatorID)
}

func TestExtractSessionMetadataTopLevelFallback(t *testing.T) {
	body := []byte(`{"site_id": "SITE-B", "session_id": "S-2"}`)
	meta := extractSessionMetadata(body)
	assert.Equal(t, "S-2", meta.SessionID)
	assert.Equal(t, "SITE-B", meta.SiteID)
	assert.Empty(t, meta.SubjectID)
}

func TestExtractSessionMetadataIgnoresGarbage(t *testing.T) {
	assert.Equal(t, sessionMetadata{}, extractSessionMetadata(nil))
	assert.Equal(t, sessionMetadata{}, extractSessionMetadata([]byte("not json")))
	assert.Equal(t, sessionMetadata{}, extractSessionMetadata([]byte(`[1, 2, 3]`)))
	// Non-string identifiers are dropped rather than coerced.
	meta := extractSessionMetadata([]byte(`{"session_id": 42}`))
	assert.Empty(t, meta.SessionID)
}

func auditTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.Open(filepath.Join(t.TempDir(), "hub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := gin.New()
	r.Use(Audit(repository.NewAuditRepository(db)))
	r.GET("/api/v1/audit-events", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})
	return r
}

func TestAuditEchoesClientRequestID(t *testing.T) {
	r := auditTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-events", nil)
	req.Header.Set("X-Request-ID", "req-abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-abc-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-abc-123", w.Body.String())
}

func TestAuditMintsRequestIDWhenMissing(t *testing.T) {
	r := auditTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-events", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	minted := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, minted)
	assert.Equal(t, minted, w.Body.String())
}
