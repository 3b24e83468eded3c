package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/models"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/repository"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/stats"
)

// ErrPayloadConflict is returned when a measurement with the same
// site/subject/session/attempt identity already exists with different content.
var ErrPayloadConflict = errors.New(
	"paired measurement already exists with the same site/subject/session/attempt but different payload")

// metricColumn pairs one uroflow metric with accessors for both arms.
// Order matters: summaries report metrics in this order.
type metricColumn struct {
	name string
	app  func(models.MethodComparisonRow) *float64
	ref  func(models.MethodComparisonRow) *float64
}

var metricColumns = []metricColumn{
	{"qmax_ml_s",
		func(r models.MethodComparisonRow) *float64 { return r.AppQmaxMlS },
		func(r models.MethodComparisonRow) *float64 { return r.RefQmaxMlS }},
	{"qavg_ml_s",
		func(r models.MethodComparisonRow) *float64 { return r.AppQavgMlS },
		func(r models.MethodComparisonRow) *float64 { return r.RefQavgMlS }},
	{"vvoid_ml",
		func(r models.MethodComparisonRow) *float64 { return r.AppVvoidMl },
		func(r models.MethodComparisonRow) *float64 { return r.RefVvoidMl }},
	{"flow_time_s",
		func(r models.MethodComparisonRow) *float64 { return r.AppFlowTimeS },
		func(r models.MethodComparisonRow) *float64 { return r.RefFlowTimeS }},
	{"tqmax_s",
		func(r models.MethodComparisonRow) *float64 { return r.AppTqmaxS },
		func(r models.MethodComparisonRow) *float64 { return r.RefTqmaxS }},
}

// MeasurementService handles business logic for paired measurements
type MeasurementService struct {
	repo *repository.MeasurementRepository
}

// NewMeasurementService creates a new measurement service
func NewMeasurementService(repo *repository.MeasurementRepository) *MeasurementService {
	return &MeasurementService{repo: repo}
}

// Create registers a paired measurement. Re-sending an identical payload is
// idempotent and returns the existing record with created=false; the same
// identity with different content fails with ErrPayloadConflict.
func (s *MeasurementService) Create(payload *models.PairedMeasurementCreate) (*models.PairedMeasurementRecord, bool, error) {
	if err := payload.Validate(); err != nil {
		return nil, false, err
	}

	existing, existingJSON, err := s.repo.FindByIdentity(
		payload.Session.SiteID,
		payload.Session.SubjectID,
		payload.Session.SessionID,
		payload.Session.AttemptNumber,
	)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		incomingJSON, err := json.Marshal(payload)
		if err != nil {
			return nil, false, fmt.Errorf("failed to encode measurement payload: %w", err)
		}
		if string(incomingJSON) != existingJSON {
			return nil, false, ErrPayloadConflict
		}
		return existing, false, nil
	}

	id, err := s.repo.Insert(payload)
	if err != nil {
		return nil, false, err
	}
	record, err := s.repo.GetByID(id)
	if err != nil {
		return nil, false, err
	}
	if record == nil {
		return nil, false, fmt.Errorf("paired measurement %d was not persisted", id)
	}
	return record, true, nil
}

// List retrieves paired measurement list items
func (s *MeasurementService) List(filter models.MeasurementFilter) ([]models.PairedMeasurementListItem, error) {
	return s.repo.List(filter)
}

// GetByID retrieves a single paired measurement
func (s *MeasurementService) GetByID(id int64) (*models.PairedMeasurementRecord, error) {
	return s.repo.GetByID(id)
}

// Summary computes the app-vs-reference method comparison summary.
// QualityStatus defaults to "valid"; "all" considers every record.
func (s *MeasurementService) Summary(filter models.SummaryFilter) (*models.MethodComparisonSummary, error) {
	qualityStatus := filter.QualityStatus
	if qualityStatus == "" {
		qualityStatus = models.QualityValid
	}
	if qualityStatus != "all" && !models.ValidQualityStatus(qualityStatus) {
		return nil, fmt.Errorf("unknown quality_status %q", qualityStatus)
	}

	rows, err := s.repo.MethodComparisonRows(filter.SiteID, filter.SubjectID, filter.Platform, filter.CaptureMode)
	if err != nil {
		return nil, err
	}
	return buildComparisonSummary(rows, filter, qualityStatus), nil
}

func buildComparisonSummary(rows []models.MethodComparisonRow, filter models.SummaryFilter, qualityStatus string) *models.MethodComparisonSummary {
	distribution := map[string]int{
		models.QualityValid:  0,
		models.QualityRepeat: 0,
		models.QualityReject: 0,
	}
	for _, row := range rows {
		distribution[row.AppQualityStatus]++
	}

	considered := rows
	if qualityStatus != "all" {
		considered = nil
		for _, row := range rows {
			if row.AppQualityStatus == qualityStatus {
				considered = append(considered, row)
			}
		}
	}

	metrics := make([]models.MetricComparisonSummary, 0, len(metricColumns))
	for _, column := range metricColumns {
		var appValues, refValues []float64
		for _, row := range considered {
			appValue := column.app(row)
			refValue := column.ref(row)
			if appValue == nil || refValue == nil {
				continue
			}
			appValues = append(appValues, *appValue)
			refValues = append(refValues, *refValue)
		}
		metrics = append(metrics, metricSummary(column.name, appValues, refValues))
	}

	return &models.MethodComparisonSummary{
		GeneratedAt:         time.Now().UTC(),
		Filters:             summaryFilters(filter, qualityStatus),
		RecordsMatched:      len(rows),
		RecordsConsidered:   len(considered),
		QualityDistribution: distribution,
		Metrics:             metrics,
	}
}

func summaryFilters(filter models.SummaryFilter, qualityStatus string) models.MethodComparisonFilters {
	filters := models.MethodComparisonFilters{
		SiteID:      optionalString(filter.SiteID),
		SubjectID:   optionalString(filter.SubjectID),
		Platform:    optionalString(filter.Platform),
		CaptureMode: optionalString(filter.CaptureMode),
	}
	if qualityStatus != "all" {
		filters.QualityStatus = &qualityStatus
	}
	return filters
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func floatPtr(v float64) *float64 {
	return &v
}

// metricSummary computes agreement statistics for one metric over paired
// values. Bland-Altman limits use the sample standard deviation and need
// more than one pair.
func metricSummary(name string, appValues, refValues []float64) models.MetricComparisonSummary {
	n := len(appValues)
	summary := models.MetricComparisonSummary{Metric: name, PairedSamples: n}
	if n == 0 {
		return summary
	}

	errs := make([]float64, n)
	absErrs := make([]float64, n)
	var sqErrSum float64
	var mapeTerms []float64
	for i := range appValues {
		errs[i] = appValues[i] - refValues[i]
		absErrs[i] = math.Abs(errs[i])
		sqErrSum += errs[i] * errs[i]
		if refValues[i] != 0 {
			mapeTerms = append(mapeTerms, math.Abs(errs[i]/refValues[i])*100.0)
		}
	}

	bias := stats.Mean(errs)
	summary.MeanApp = floatPtr(stats.Mean(appValues))
	summary.MeanReference = floatPtr(stats.Mean(refValues))
	summary.MeanError = floatPtr(bias)
	summary.MeanAbsoluteError = floatPtr(stats.Mean(absErrs))
	summary.RMSE = floatPtr(math.Sqrt(sqErrSum / float64(n)))
	if len(mapeTerms) > 0 {
		summary.MAPEPct = floatPtr(stats.Mean(mapeTerms))
	}
	summary.PearsonR = safePearson(appValues, refValues)
	summary.BlandAltmanBias = floatPtr(bias)
	if n > 1 {
		std := stats.StdDev(errs)
		summary.BlandAltmanLoALower = floatPtr(bias - 1.96*std)
		summary.BlandAltmanLoAUpper = floatPtr(bias + 1.96*std)
	}
	return summary
}

// safePearson returns nil rather than a misleading zero when the correlation
// is undefined (fewer than two pairs or a zero-variance arm).
func safePearson(x, y []float64) *float64 {
	if len(x) < 2 || len(x) != len(y) {
		return nil
	}
	if stats.Variance(x) <= 0 || stats.Variance(y) <= 0 {
		return nil
	}
	return floatPtr(stats.PearsonCorrelation(x, y))
}
