package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/config"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/database"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/middleware"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/models"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/pkg/response"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.Open(filepath.Join(t.TempDir(), "hub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cfg := &config.Config{Port: ":0", JWTSecret: testSecret}
	return SetupRouter(cfg, db)
}

func mintToken(t *testing.T, claims middleware.ActorClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var envelope response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func measurementBody(sessionID, siteID string, appQmax float64) map[string]interface{} {
	return map[string]interface{}{
		"session": map[string]interface{}{
			"session_id":     sessionID,
			"site_id":        siteID,
			"subject_id":     "SUBJ-001",
			"operator_id":    "OP-01",
			"attempt_number": 1,
			"measured_at":    time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC).Format(time.RFC3339),
			"platform":       "ios",
			"capture_mode":   "water_impact",
		},
		"app": map[string]interface{}{
			"metrics":        map[string]interface{}{"qmax_ml_s": appQmax, "qavg_ml_s": 9.0, "vvoid_ml": 300.0},
			"quality_status": "valid",
		},
		"reference": map[string]interface{}{
			"metrics": map[string]interface{}{"qmax_ml_s": 17.5, "qavg_ml_s": 8.8, "vvoid_ml": 295.0},
		},
	}
}

func TestHealthNeedsNoToken(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPairedMeasurementLifecycle(t *testing.T) {
	r := newTestRouter(t)
	operator := mintToken(t, middleware.ActorClaims{Role: middleware.RoleOperator, SiteID: "SITE-A", OperatorID: "OP-01"})

	// First submission creates, identical resend is idempotent, a changed
	// payload with the same identity conflicts.
	w := doJSON(t, r, http.MethodPost, "/api/v1/paired-measurements", operator, measurementBody("S-001", "SITE-A", 18.0))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/v1/paired-measurements", operator, measurementBody("S-001", "SITE-A", 18.0))
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/paired-measurements", operator, measurementBody("S-001", "SITE-A", 21.0))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/paired-measurements", operator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	items, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var list []models.PairedMeasurementListItem
	require.NoError(t, json.Unmarshal(items, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "S-001", list[0].SessionID)

	w = doJSON(t, r, http.MethodGet, "/api/v1/paired-measurements/summary?quality_status=all", operator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "qmax_ml_s")
}

func TestSiteScopeIsEnforced(t *testing.T) {
	r := newTestRouter(t)
	operatorA := mintToken(t, middleware.ActorClaims{Role: middleware.RoleOperator, SiteID: "SITE-A"})
	admin := mintToken(t, middleware.ActorClaims{Role: middleware.RoleAdmin})

	// A site-bound operator cannot write another site's data, an admin can.
	w := doJSON(t, r, http.MethodPost, "/api/v1/paired-measurements", operatorA, measurementBody("S-002", "SITE-B", 18.0))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/paired-measurements", admin, measurementBody("S-002", "SITE-B", 18.0))
	require.Equal(t, http.StatusCreated, w.Code)

	// Reading the foreign record is forbidden for the operator.
	w = doJSON(t, r, http.MethodGet, "/api/v1/paired-measurements/1", operatorA, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/paired-measurements/1", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestsWithoutTokenAreRejectedAndAudited(t *testing.T) {
	r := newTestRouter(t)
	admin := mintToken(t, middleware.ActorClaims{Role: middleware.RoleAdmin})

	w := doJSON(t, r, http.MethodPost, "/api/v1/paired-measurements", "", measurementBody("S-003", "SITE-A", 18.0))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/audit-events", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	encoded, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var events []models.AuditEvent
	require.NoError(t, json.Unmarshal(encoded, &events))
	require.NotEmpty(t, events)

	var sawRejected bool
	for _, event := range events {
		if event.StatusCode == http.StatusUnauthorized && event.Path == "/api/v1/paired-measurements" {
			sawRejected = true
			assert.Equal(t, "invalid", event.AuthResult)
			require.NotNil(t, event.SiteID)
			assert.Equal(t, "SITE-A", *event.SiteID)
		}
	}
	assert.True(t, sawRejected, "expected the rejected POST to be audited")
}

func TestCapturePackageEndpointValidatesPairedLink(t *testing.T) {
	r := newTestRouter(t)
	operator := mintToken(t, middleware.ActorClaims{Role: middleware.RoleOperator, SiteID: "SITE-A"})

	body := map[string]interface{}{
		"session":               measurementBody("S-004", "SITE-A", 18.0)["session"],
		"capture_payload":       map[string]interface{}{"schema_version": "ios_capture_v1"},
		"paired_measurement_id": 999,
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/capture-packages", operator, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	delete(body, "paired_measurement_id")
	w = doJSON(t, r, http.MethodPost, "/api/v1/capture-packages", operator, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestPilotReportEndpoints(t *testing.T) {
	r := newTestRouter(t)
	dataManager := mintToken(t, middleware.ActorClaims{Role: middleware.RoleDataManager})

	body := map[string]interface{}{
		"site_id":     "SITE-A",
		"report_date": "2025-06-12",
		"report_type": "tfl_summary",
		"payload":     map[string]interface{}{"overall": map[string]interface{}{"Qmax_mae": 1.2}},
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/pilot-reports", dataManager, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/v1/pilot-reports?report_type=tfl_summary", dataManager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2025-06-12")

	body["report_type"] = "novel_report"
	w = doJSON(t, r, http.MethodPost, "/api/v1/pilot-reports", dataManager, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGateEvaluateEndpoint(t *testing.T) {
	r := newTestRouter(t)
	admin := mintToken(t, middleware.ActorClaims{Role: middleware.RoleAdmin})

	body := map[string]interface{}{
		"metrics": map[string]interface{}{
			"qa_checklist_pass_rate":    1.0,
			"contract_error_rate":       0.0,
			"capture_completion_rate":   0.97,
			"median_analysis_latency_s": 4.0,
		},
		"gates": []string{"G0"},
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/gates/evaluate", admin, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "overall_passed")

	body["gates"] = []string{"G9"}
	w = doJSON(t, r, http.MethodPost, "/api/v1/gates/evaluate", admin, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionAnalyzeEndpoint(t *testing.T) {
	r := newTestRouter(t)
	operator := mintToken(t, middleware.ActorClaims{Role: middleware.RoleOperator, SiteID: "SITE-A"})

	samples := make([]map[string]interface{}, 0, 9)
	depths := []float64{0, 0, 0, 5, 10, 15, 20, 20, 20}
	for i, depth := range depths {
		samples = append(samples, map[string]interface{}{
			"t_s":              float64(i),
			"depth_level_mm":   depth,
			"depth_confidence": 0.95,
			"audio_rms_dbfs":   -50.0,
			"roi_valid":        true,
		})
	}
	body := map[string]interface{}{
		"schema_version": "ios_capture_v1",
		"session": map[string]interface{}{
			"session_id": "S-100",
			"started_at": "2025-06-12T09:30:00Z",
			"mode":       "water_impact",
			"calibration": map[string]interface{}{
				"ml_per_mm": 8.0,
			},
		},
		"samples": samples,
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions/analyze", operator, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "\"quality\"")
	assert.Contains(t, w.Body.String(), "\"status\"")

	body["schema_version"] = "android_capture_v9"
	w = doJSON(t, r, http.MethodPost, "/api/v1/sessions/analyze", operator, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
