package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/database"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/models"
)

func openTestDB(t *testing.T) *MeasurementRepository {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "hub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMeasurementRepository(db)
}

func strPtr(s string) *string { return &s }

func f64Ptr(v float64) *float64 { return &v }

func pairedPayload(sessionID, siteID string, measuredAt time.Time) *models.PairedMeasurementCreate {
	return &models.PairedMeasurementCreate{
		Session: models.SessionMeta{
			SessionID:     sessionID,
			SiteID:        siteID,
			SubjectID:     "SUBJ-001",
			OperatorID:    "OP-01",
			AttemptNumber: 1,
			MeasuredAt:    measuredAt,
			Platform:      "ios",
			DeviceModel:   strPtr("iPhone15,2"),
			CaptureMode:   models.CaptureModeWaterImpact,
		},
		App: models.AppMeasurement{
			Metrics: models.FlowMetrics{
				QmaxMlS:   18.4,
				QavgMlS:   9.1,
				VvoidMl:   310.0,
				FlowTimeS: f64Ptr(34.0),
				TqmaxS:    f64Ptr(11.5),
			},
			QualityStatus: models.QualityValid,
			QualityScore:  f64Ptr(88.0),
			ModelID:       strPtr("tfl-2025.3"),
		},
		Reference: models.ReferenceMeasurement{
			Metrics: models.FlowMetrics{
				QmaxMlS:   17.8,
				QavgMlS:   8.9,
				VvoidMl:   305.0,
				FlowTimeS: f64Ptr(34.5),
			},
			DeviceModel:  strPtr("Flowtaker FT-2"),
			DeviceSerial: strPtr("FT2-0042"),
		},
		Notes: strPtr("first attempt"),
	}
}

func TestMeasurementInsertAndGetByIDRoundTrip(t *testing.T) {
	repo := openTestDB(t)
	measuredAt := time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC)
	payload := pairedPayload("S-001", "SITE-A", measuredAt)

	id, err := repo.Insert(payload)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	record, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, id, record.ID)
	assert.Equal(t, "S-001", record.Session.SessionID)
	assert.Equal(t, "SITE-A", record.Session.SiteID)
	assert.True(t, measuredAt.Equal(record.Session.MeasuredAt))
	assert.Equal(t, models.QualityValid, record.App.QualityStatus)
	assert.InDelta(t, 18.4, record.App.Metrics.QmaxMlS, 1e-9)
	require.NotNil(t, record.Reference.DeviceSerial)
	assert.Equal(t, "FT2-0042", *record.Reference.DeviceSerial)
	require.NotNil(t, record.Notes)
	assert.Equal(t, "first attempt", *record.Notes)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestMeasurementGetByIDMissingReturnsNil(t *testing.T) {
	repo := openTestDB(t)
	record, err := repo.GetByID(999)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestMeasurementFindByIdentity(t *testing.T) {
	repo := openTestDB(t)
	measuredAt := time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC)
	payload := pairedPayload("S-002", "SITE-A", measuredAt)
	_, err := repo.Insert(payload)
	require.NoError(t, err)

	record, payloadJSON, err := repo.FindByIdentity("SITE-A", "SUBJ-001", "S-002", 1)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.NotEmpty(t, payloadJSON)
	assert.Equal(t, "S-002", record.Session.SessionID)

	missing, _, err := repo.FindByIdentity("SITE-A", "SUBJ-001", "S-002", 2)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMeasurementListFiltersAndOrders(t *testing.T) {
	repo := openTestDB(t)
	base := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	first := pairedPayload("S-A", "SITE-A", base)
	second := pairedPayload("S-B", "SITE-A", base.Add(24*time.Hour))
	third := pairedPayload("S-C", "SITE-B", base.Add(48*time.Hour))
	for _, payload := range []*models.PairedMeasurementCreate{first, second, third} {
		_, err := repo.Insert(payload)
		require.NoError(t, err)
	}

	all, err := repo.List(models.MeasurementFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest measured_at first.
	assert.Equal(t, "S-C", all[0].SessionID)
	assert.Equal(t, "S-A", all[2].SessionID)

	siteA, err := repo.List(models.MeasurementFilter{SiteID: "SITE-A"})
	require.NoError(t, err)
	require.Len(t, siteA, 2)
	for _, item := range siteA {
		assert.Equal(t, "SITE-A", item.SiteID)
	}
}

func TestMethodComparisonRowsAreChronological(t *testing.T) {
	repo := openTestDB(t)
	base := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	late := pairedPayload("S-LATE", "SITE-A", base.Add(time.Hour))
	late.App.Metrics.QmaxMlS = 20.0
	early := pairedPayload("S-EARLY", "SITE-A", base)
	early.App.Metrics.QmaxMlS = 10.0
	_, err := repo.Insert(late)
	require.NoError(t, err)
	_, err = repo.Insert(early)
	require.NoError(t, err)

	rows, err := repo.MethodComparisonRows("SITE-A", "", "", "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].AppQmaxMlS)
	assert.InDelta(t, 10.0, *rows[0].AppQmaxMlS, 1e-9)
	assert.InDelta(t, 20.0, *rows[1].AppQmaxMlS, 1e-9)
}
