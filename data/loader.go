// Package data loads the tabular training dataset.
package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"pcodrisk/ml"
	"pcodrisk/schema"
)

// LoadCSV reads a training CSV with a header row into feature rows and
// binary labels. Empty, NA, and NaN cells become explicit missing values and
// are later filled by the fitted imputation statistics. Every declared
// feature column and the target column must be present in the header.
func LoadCSV(path string, groups ml.ColumnGroups, target string) ([]schema.Row, []int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("dataset %s has no data rows", path)
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range append(groups.FeatureOrder(), target) {
		if _, ok := index[name]; !ok {
			return nil, nil, fmt.Errorf("dataset %s is missing column %q", path, name)
		}
	}

	rows := make([]schema.Row, 0, len(records)-1)
	labels := make([]int, 0, len(records)-1)
	for lineNo, record := range records[1:] {
		row := make(schema.Row, len(groups.FeatureOrder()))

		for _, name := range groups.Numeric {
			cell := record[index[name]]
			if isMissing(cell) {
				row[name] = nil
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: column %q: %v", lineNo+2, name, err)
			}
			row[name] = v
		}
		for _, name := range groups.Binary {
			cell := record[index[name]]
			if isMissing(cell) {
				row[name] = nil
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: column %q: %v", lineNo+2, name, err)
			}
			row[name] = v
		}
		for _, name := range groups.Categorical {
			cell := record[index[name]]
			if isMissing(cell) {
				row[name] = nil
				continue
			}
			row[name] = schema.Canonical(cell)
		}

		label, err := strconv.Atoi(strings.TrimSpace(record[index[target]]))
		if err != nil || (label != 0 && label != 1) {
			return nil, nil, fmt.Errorf("row %d: target %q must be 0 or 1", lineNo+2, record[index[target]])
		}

		rows = append(rows, row)
		labels = append(labels, label)
	}
	return rows, labels, nil
}

func isMissing(cell string) bool {
	s := strings.TrimSpace(cell)
	return s == "" || s == "NA" || s == "NaN"
}
