package handlers

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/tenaplex/tenaplex/internal/models"
)

// detectColumnType classifies a column as categorical or continuous.
//
// Rules:
//   - fewer than 90% numeric values -> categorical
//   - integers in the 1900-2100 range -> categorical (years group, not average)
//   - high-uniqueness small integers -> categorical (likely IDs)
//   - otherwise -> continuous
func detectColumnType(values []string) string {
	var nonNull []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			nonNull = append(nonNull, strings.TrimSpace(v))
		}
	}

	if len(nonNull) == 0 {
		return models.ColumnCategorical
	}

	var numeric []float64
	for _, v := range nonNull {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			numeric = append(numeric, f)
		}
	}

	if float64(len(numeric))/float64(len(nonNull)) < 0.9 {
		return models.ColumnCategorical
	}

	unique := make(map[float64]struct{}, len(numeric))
	allIntegers := true
	minValue, maxValue := numeric[0], numeric[0]
	for _, f := range numeric {
		unique[f] = struct{}{}
		if f != float64(int64(f)) {
			allIntegers = false
		}
		if f < minValue {
			minValue = f
		}
		if f > maxValue {
			maxValue = f
		}
	}

	if allIntegers && minValue >= 1900 && maxValue <= 2100 {
		return models.ColumnCategorical
	}

	uniqueRatio := float64(len(unique)) / float64(len(numeric))
	if uniqueRatio > 0.9 && allIntegers && maxValue < 10000 {
		return models.ColumnCategorical
	}

	return models.ColumnContinuous
}

// parseCSVValue converts a raw CSV cell according to the column type.
// Continuous columns become float64 or nil; categorical stay strings.
func parseCSVValue(value, colType string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if colType == models.ColumnContinuous {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil
		}
		return f
	}

	return value
}

// parseCSV validates and parses CSV content into typed rows.
func parseCSV(content string) ([]map[string]any, []models.Column, error) {
	reader := csv.NewReader(strings.NewReader(content))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("CSV parsing error: %w", err)
	}

	if len(records) < 2 {
		return nil, nil, fmt.Errorf("CSV file is empty or has no data rows")
	}

	header := records[0]
	if len(header) == 0 {
		return nil, nil, fmt.Errorf("CSV file has no headers")
	}

	seen := make(map[string]struct{}, len(header))
	for _, name := range header {
		if _, dup := seen[name]; dup {
			return nil, nil, fmt.Errorf("duplicate column name: %q", name)
		}
		seen[name] = struct{}{}
	}

	dataRecords := records[1:]

	columns := make([]models.Column, len(header))
	for i, name := range header {
		values := make([]string, 0, len(dataRecords))
		for _, rec := range dataRecords {
			if i < len(rec) {
				values = append(values, rec[i])
			}
		}
		columns[i] = models.Column{Name: name, Type: detectColumnType(values)}
	}

	rows := make([]map[string]any, 0, len(dataRecords))
	for _, rec := range dataRecords {
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			raw := ""
			if i < len(rec) {
				raw = rec[i]
			}
			row[col.Name] = parseCSVValue(raw, col.Type)
		}
		rows = append(rows, row)
	}

	return rows, columns, nil
}
