package gatemetrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// MinMatchScore is the cutoff below which a header/alias match is ignored
const MinMatchScore = 0.84

// FieldAliases binds one canonical column to the export headers it may
// appear under. Order matters: earlier fields claim matching headers first.
type FieldAliases struct {
	Field   string
	Aliases []string
}

// ClinicalFieldAliases lists the canonical clinical-export columns
var ClinicalFieldAliases = []FieldAliases{
	{"app_qmax_ml_s", []string{"qmax_app", "app_qmax", "pred_qmax_ml_s", "estimated_qmax_ml_s"}},
	{"ref_qmax_ml_s", []string{"qmax_ref", "reference_qmax_ml_s", "ref_qmax"}},
	{"app_qavg_ml_s", []string{"qavg_app", "app_qavg", "pred_qavg_ml_s"}},
	{"ref_qavg_ml_s", []string{"qavg_ref", "reference_qavg_ml_s", "ref_qavg"}},
	{"app_vvoid_ml", []string{"vvoid_app", "pred_vvoid_ml", "estimated_vvoid_ml", "app_vvoid"}},
	{"ref_vvoid_ml", []string{"vvoid_ref", "reference_vvoid_ml", "ref_vvoid"}},
	{"app_t_start_s", []string{"flow_start_time_s", "app_start_time_s", "start_app_s"}},
	{"ref_t_start_s", []string{"ref_flow_start_time_s", "ref_start_time_s", "start_ref_s"}},
	{"app_t_end_s", []string{"flow_end_time_s", "app_end_time_s", "end_app_s"}},
	{"ref_t_end_s", []string{"ref_flow_end_time_s", "ref_end_time_s", "end_ref_s"}},
	{"quality_status", []string{"quality_status_code", "signal_quality_status", "quality_label"}},
	{"cohort", []string{"cohort_label", "cohort_name", "setting", "setting_label"}},
	{"subgroup", []string{"sex", "sex_at_birth", "group"}},
	{"flush_pred", []string{"flush_detected", "artifact_flush_pred"}},
	{"flush_truth", []string{"artifact_flush_truth", "flush_gt"}},
	{"full_frame_stored", []string{"privacy_full_frame_stored", "store_full_frame"}},
}

// BenchFieldAliases lists the canonical bench-export columns
var BenchFieldAliases = []FieldAliases{
	{"scenario", []string{"test_scenario", "condition", "scenario_name"}},
	{"app_qmax_ml_s", []string{"qmax_app", "app_qmax", "pred_qmax_ml_s"}},
	{"ref_qmax_ml_s", []string{"qmax_ref", "reference_qmax_ml_s"}},
	{"not_in_water_truth", []string{"artifact_not_in_water_truth", "not_in_water_gt"}},
	{"not_in_water_pred", []string{"artifact_not_in_water_pred", "not_in_water_detected"}},
	{"is_valid_truth", []string{"valid_truth", "truth_valid"}},
	{"is_valid_pred", []string{"valid_pred", "pred_valid"}},
	{"quality_status", []string{"signal_quality_status", "quality_status_code"}},
}

func defaultQualityValueMap() map[string]any {
	return map[string]any{
		"quality_status": map[string]any{
			"1": "valid",
			"2": "repeat",
			"3": "reject",
		},
	}
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeHeader(text string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "")
}

// bestAliasScore scores a header against a candidate list: 1.0 on exact
// normalized match, 0.95 on containment of a reasonably long alias
func bestAliasScore(header string, candidates []string) float64 {
	headerNorm := normalizeHeader(header)
	bestScore := 0.0

	for _, alias := range candidates {
		aliasNorm := normalizeHeader(alias)
		if aliasNorm == "" {
			continue
		}
		if headerNorm == aliasNorm {
			return 1.0
		}
		if len(aliasNorm) >= 4 && (strings.Contains(headerNorm, aliasNorm) || strings.Contains(aliasNorm, headerNorm)) {
			bestScore = max(bestScore, 0.95)
		}
	}
	return bestScore
}

// LoadCSVHeaders reads the header row of a CSV export
func LoadCSVHeaders(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	record, err := reader.Read()
	if err != nil {
		return nil, nil
	}

	headers := make([]string, 0, len(record))
	for _, name := range record {
		if strings.TrimSpace(name) != "" {
			headers = append(headers, name)
		}
	}
	return headers, nil
}

// SuggestColumnMap greedily assigns each canonical field the best unclaimed
// header, skipping headers that already match the canonical name
func SuggestColumnMap(headers []string, canonicalAliases []FieldAliases, minScore float64) map[string]string {
	usedHeaders := make(map[string]struct{})
	result := make(map[string]string)

	for _, entry := range canonicalAliases {
		candidates := append([]string{entry.Field}, entry.Aliases...)
		bestHeader := ""
		bestScore := 0.0
		for _, header := range headers {
			if _, used := usedHeaders[header]; used {
				continue
			}
			score := bestAliasScore(header, candidates)
			if score > bestScore {
				bestScore = score
				bestHeader = header
			}
		}

		if bestHeader == "" || bestScore < minScore {
			continue
		}
		usedHeaders[bestHeader] = struct{}{}
		if bestHeader != entry.Field {
			result[bestHeader] = entry.Field
		}
	}
	return result
}

// SortedColumnMapKeys returns the map's source columns in case-insensitive order
func SortedColumnMapKeys(columnMap map[string]string) []string {
	keys := make([]string, 0, len(columnMap))
	for key := range columnMap {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})
	return keys
}

// BuildProfileTemplate generates a starter mapping profile document from the
// observed CSV headers
func BuildProfileTemplate(profileName string, clinicalHeaders, benchHeaders []string) map[string]any {
	clinicalMap := SuggestColumnMap(clinicalHeaders, ClinicalFieldAliases, MinMatchScore)
	benchMap := SuggestColumnMap(benchHeaders, BenchFieldAliases, MinMatchScore)

	if clinicalHeaders == nil {
		clinicalHeaders = []string{}
	}
	if benchHeaders == nil {
		benchHeaders = []string{}
	}

	columnMapPayload := func(columnMap map[string]string) map[string]any {
		payload := make(map[string]any, len(columnMap))
		for source, target := range columnMap {
			payload[source] = target
		}
		return payload
	}

	return map[string]any{
		"version": 1,
		"profiles": map[string]any{
			profileName: map[string]any{
				"meta": map[string]any{
					"generated_from": map[string]any{
						"clinical_headers": clinicalHeaders,
						"bench_headers":    benchHeaders,
					},
				},
				"clinical": map[string]any{
					"column_map": columnMapPayload(clinicalMap),
					"value_map":  defaultQualityValueMap(),
				},
				"bench": map[string]any{
					"column_map": columnMapPayload(benchMap),
					"value_map":  defaultQualityValueMap(),
				},
			},
		},
	}
}
