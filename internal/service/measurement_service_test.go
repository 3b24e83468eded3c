package service

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/database"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/models"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/repository"
)

func newTestService(t *testing.T) *MeasurementService {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "hub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMeasurementService(repository.NewMeasurementRepository(db))
}

func testPayload(sessionID string, appQmax, refQmax float64) *models.PairedMeasurementCreate {
	return &models.PairedMeasurementCreate{
		Session: models.SessionMeta{
			SessionID:     sessionID,
			SiteID:        "SITE-A",
			SubjectID:     "SUBJ-001",
			OperatorID:    "OP-01",
			AttemptNumber: 1,
			MeasuredAt:    time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC),
			Platform:      "ios",
			CaptureMode:   models.CaptureModeWaterImpact,
		},
		App: models.AppMeasurement{
			Metrics:       models.FlowMetrics{QmaxMlS: appQmax, QavgMlS: 9.0, VvoidMl: 300.0},
			QualityStatus: models.QualityValid,
		},
		Reference: models.ReferenceMeasurement{
			Metrics: models.FlowMetrics{QmaxMlS: refQmax, QavgMlS: 8.8, VvoidMl: 295.0},
		},
	}
}

func TestCreateIsIdempotentForIdenticalPayload(t *testing.T) {
	svc := newTestService(t)
	payload := testPayload("S-001", 18.0, 17.5)

	first, created, err := svc.Create(payload)
	require.NoError(t, err)
	assert.True(t, created)

	resend := testPayload("S-001", 18.0, 17.5)
	second, created, err := svc.Create(resend)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateConflictsOnSameIdentityDifferentPayload(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.Create(testPayload("S-001", 18.0, 17.5))
	require.NoError(t, err)

	_, _, err = svc.Create(testPayload("S-001", 21.0, 17.5))
	require.ErrorIs(t, err, ErrPayloadConflict)
}

func TestCreateRejectsInvalidPayload(t *testing.T) {
	svc := newTestService(t)
	payload := testPayload("S-001", 18.0, 17.5)
	payload.Session.Platform = "windows"
	_, _, err := svc.Create(payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platform")
}

func TestSummaryComputesAgreementStatistics(t *testing.T) {
	svc := newTestService(t)

	// Two valid pairs: qmax errors +1 and -1.
	a := testPayload("S-001", 10.0, 9.0)
	b := testPayload("S-002", 12.0, 13.0)
	b.Session.SubjectID = "SUBJ-002"
	// A rejected record must be excluded from the default summary.
	c := testPayload("S-003", 50.0, 10.0)
	c.Session.SubjectID = "SUBJ-003"
	c.App.QualityStatus = models.QualityReject
	for _, payload := range []*models.PairedMeasurementCreate{a, b, c} {
		_, _, err := svc.Create(payload)
		require.NoError(t, err)
	}

	summary, err := svc.Summary(models.SummaryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.RecordsMatched)
	assert.Equal(t, 2, summary.RecordsConsidered)
	assert.Equal(t, 2, summary.QualityDistribution[models.QualityValid])
	assert.Equal(t, 1, summary.QualityDistribution[models.QualityReject])
	require.NotNil(t, summary.Filters.QualityStatus)
	assert.Equal(t, models.QualityValid, *summary.Filters.QualityStatus)

	require.Len(t, summary.Metrics, 5)
	qmax := summary.Metrics[0]
	assert.Equal(t, "qmax_ml_s", qmax.Metric)
	assert.Equal(t, 2, qmax.PairedSamples)
	require.NotNil(t, qmax.MeanError)
	assert.InDelta(t, 0.0, *qmax.MeanError, 1e-9)
	require.NotNil(t, qmax.MeanAbsoluteError)
	assert.InDelta(t, 1.0, *qmax.MeanAbsoluteError, 1e-9)
	require.NotNil(t, qmax.RMSE)
	assert.InDelta(t, 1.0, *qmax.RMSE, 1e-9)
	require.NotNil(t, qmax.MAPEPct)
	assert.InDelta(t, (100.0/9.0+100.0/13.0)/2.0, *qmax.MAPEPct, 1e-9)
	require.NotNil(t, qmax.PearsonR)
	assert.InDelta(t, 1.0, *qmax.PearsonR, 1e-9)
	// Sample std of {+1, -1} is sqrt(2).
	std := math.Sqrt(2.0)
	require.NotNil(t, qmax.BlandAltmanLoALower)
	assert.InDelta(t, -1.96*std, *qmax.BlandAltmanLoALower, 1e-9)
	require.NotNil(t, qmax.BlandAltmanLoAUpper)
	assert.InDelta(t, 1.96*std, *qmax.BlandAltmanLoAUpper, 1e-9)

	// flow_time_s has no values on either side.
	flowTime := summary.Metrics[3]
	assert.Equal(t, "flow_time_s", flowTime.Metric)
	assert.Equal(t, 0, flowTime.PairedSamples)
	assert.Nil(t, flowTime.MeanError)
}

func TestSummaryQualityStatusAllConsidersEverything(t *testing.T) {
	svc := newTestService(t)
	reject := testPayload("S-001", 50.0, 10.0)
	reject.App.QualityStatus = models.QualityReject
	_, _, err := svc.Create(reject)
	require.NoError(t, err)

	summary, err := svc.Summary(models.SummaryFilter{QualityStatus: "all"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RecordsConsidered)
	assert.Nil(t, summary.Filters.QualityStatus)
}

func TestSummaryRejectsUnknownQualityStatus(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Summary(models.SummaryFilter{QualityStatus: "pristine"})
	require.Error(t, err)
}

func TestMetricSummarySingleSampleHasNoLoA(t *testing.T) {
	summary := metricSummary("qmax_ml_s", []float64{10.0}, []float64{9.0})
	assert.Equal(t, 1, summary.PairedSamples)
	require.NotNil(t, summary.MeanError)
	assert.InDelta(t, 1.0, *summary.MeanError, 1e-9)
	assert.Nil(t, summary.BlandAltmanLoALower)
	assert.Nil(t, summary.BlandAltmanLoAUpper)
	assert.Nil(t, summary.PearsonR)
}

func TestSafePearsonDegenerateCases(t *testing.T) {
	assert.Nil(t, safePearson([]float64{1.0}, []float64{2.0}))
	assert.Nil(t, safePearson([]float64{3.0, 3.0}, []float64{1.0, 2.0}))
	r := safePearson([]float64{1.0, 2.0, 3.0}, []float64{6.0, 4.0, 2.0})
	require.NotNil(t, r)
	assert.InDelta(t, -1.0, *r, 1e-9)
}
