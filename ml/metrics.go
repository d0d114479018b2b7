package ml

import (
	"encoding/json"
	"errors"
	"os"
	"sort"
)

// Metrics holds the evaluation statistics computed against a held-out split.
// All non-AUC metrics use a fixed 0.5 decision threshold; zero-division cases
// report 0 rather than failing.
type Metrics struct {
	AUC       float64 `json:"AUC"`
	Accuracy  float64 `json:"Accuracy"`
	Precision float64 `json:"Precision"`
	Recall    float64 `json:"Recall"`
	F1        float64 `json:"F1"`
}

// Evaluate scores a fitted classifier against held-out vectors and labels.
func Evaluate(model Classifier, features [][]float64, labels []int) (Metrics, error) {
	if len(features) == 0 || len(features) != len(labels) {
		return Metrics{}, errors.New("held-out features and labels must be non-empty and aligned")
	}

	probas := make([]float64, len(features))
	for i, row := range features {
		p, err := model.PredictProba(row)
		if err != nil {
			return Metrics{}, err
		}
		probas[i] = p
	}

	tp, fp, fn, correct := 0, 0, 0, 0
	for i, p := range probas {
		pred := 0
		if p >= 0.5 {
			pred = 1
		}
		if pred == labels[i] {
			correct++
		}
		switch {
		case pred == 1 && labels[i] == 1:
			tp++
		case pred == 1 && labels[i] == 0:
			fp++
		case pred == 0 && labels[i] == 1:
			fn++
		}
	}

	m := Metrics{
		AUC:      rocAUC(probas, labels),
		Accuracy: float64(correct) / float64(len(labels)),
	}
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m, nil
}

// rocAUC computes the threshold-free area under the ROC curve by the
// rank-sum formulation, with average ranks for tied scores. A single-class
// split reports 0.
func rocAUC(probas []float64, labels []int) float64 {
	type scored struct {
		p float64
		y int
	}
	items := make([]scored, len(probas))
	nPos := 0
	for i, p := range probas {
		items[i] = scored{p: p, y: labels[i]}
		if labels[i] == 1 {
			nPos++
		}
	}
	nNeg := len(labels) - nPos
	if nPos == 0 || nNeg == 0 {
		return 0
	}

	sort.Slice(items, func(i, j int) bool { return items[i].p < items[j].p })

	sumRanksPos := 0.0
	i := 0
	for i < len(items) {
		j := i
		for j < len(items) && items[j].p == items[i].p {
			j++
		}
		// ranks are 1-based; ties share the average rank of the run
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if items[k].y == 1 {
				sumRanksPos += avgRank
			}
		}
		i = j
	}

	return (sumRanksPos - float64(nPos)*float64(nPos+1)/2) / (float64(nPos) * float64(nNeg))
}

// Save persists the metrics document for the serving shell to publish.
func (m Metrics) Save(path string) error {
	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}
