// Package gatemetrics aggregates clinical and bench validation exports into
// the metric map the release gates consume.
package gatemetrics

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Row is one record from a validation export. Values are strings when read
// from CSV but may be any scalar after profile value mapping.
type Row map[string]any

var trueValues = map[string]struct{}{
	"1": {}, "true": {}, "yes": {}, "y": {}, "on": {},
	"pass": {}, "passed": {}, "valid": {},
}

var falseValues = map[string]struct{}{
	"0": {}, "false": {}, "no": {}, "n": {}, "off": {},
	"fail": {}, "failed": {}, "invalid": {}, "reject": {},
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// keyLookup maps normalized column names back to the row's actual keys
func keyLookup(row Row) map[string]string {
	lookup := make(map[string]string, len(row))
	for key := range row {
		lookup[normalizeKey(key)] = key
	}
	return lookup
}

// pickValue returns the first alias present in the row, matching column names
// case-insensitively
func pickValue(row Row, aliases []string) any {
	lookup := keyLookup(row)
	for _, alias := range aliases {
		rowKey, present := lookup[normalizeKey(alias)]
		if !present {
			continue
		}
		return row[rowKey]
	}
	return nil
}

// parseFloat returns a finite float or false. Booleans are never numbers here.
func parseFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case bool:
		return 0, false
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case float32:
		return parseFloat(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		text := strings.TrimSpace(fmt.Sprintf("%v", value))
		if text == "" {
			return 0, false
		}
		number, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(number) || math.IsInf(number, 0) {
			return 0, false
		}
		return number, true
	}
}

func parseBool(value any) (bool, bool) {
	switch v := value.(type) {
	case nil:
		return false, false
	case bool:
		return v, true
	default:
		text := normalizeKey(fmt.Sprintf("%v", value))
		if text == "" {
			return false, false
		}
		if _, present := trueValues[text]; present {
			return true, true
		}
		if _, present := falseValues[text]; present {
			return false, true
		}
		return false, false
	}
}

// parseQualityIsValid interprets session quality labels as pass/fail
func parseQualityIsValid(value any) (bool, bool) {
	if value == nil {
		return false, false
	}
	text := normalizeKey(fmt.Sprintf("%v", value))
	if text == "" {
		return false, false
	}
	switch text {
	case "valid", "pass", "ok":
		return true, true
	case "repeat", "reject", "invalid", "fail":
		return false, true
	}
	return parseBool(value)
}

// coerceScalar converts a raw table cell into bool, float or trimmed string
func coerceScalar(value any) any {
	if boolValue, ok := parseBool(value); ok {
		return boolValue
	}
	if floatValue, ok := parseFloat(value); ok {
		return floatValue
	}
	return strings.TrimSpace(fmt.Sprintf("%v", value))
}

// LoadCSVRows reads a CSV export into header-keyed rows
func LoadCSVRows(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(header))
		for index, column := range header {
			if index < len(record) {
				row[column] = record[index]
			} else {
				row[column] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// detectMetricValueTable reports whether rows are already a metric/value table
func detectMetricValueTable(rows []Row) bool {
	if len(rows) == 0 {
		return false
	}
	lookup := keyLookup(rows[0])
	_, hasMetric := lookup["metric"]
	_, hasValue := lookup["value"]
	return hasMetric && hasValue
}

func extractMetricValueRows(rows []Row) map[string]any {
	metrics := make(map[string]any)
	for _, row := range rows {
		metricName := pickValue(row, []string{"metric", "metric_name", "name"})
		metricValue := pickValue(row, []string{"value", "metric_value"})
		if metricName == nil || metricValue == nil {
			continue
		}
		key := strings.TrimSpace(fmt.Sprintf("%v", metricName))
		if key == "" {
			continue
		}
		metrics[key] = coerceScalar(metricValue)
	}
	return metrics
}
