// Command train_model fits the preprocessor and classifier from a tabular
// CSV dataset and writes the four serving artifacts: preprocessor.json,
// model.json, schema.json, and metrics.json.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"pcodrisk/data"
	"pcodrisk/db"
	"pcodrisk/ml"
	"pcodrisk/schema"
)

var defaultGroups = ml.ColumnGroups{
	Numeric:     []string{"Age", "BMI", "Sleep_Hours"},
	Binary:      []string{"Acne", "Hair_Loss", "Weight_Gain"},
	Categorical: []string{"Cycle_Regularity", "Stress_Level", "Physical_Activity", "Diet"},
}

const defaultTarget = "PCOD_Diagnosed"

func main() {
	dataPath := flag.String("data", "./data/pcod.csv", "training CSV path")
	outDir := flag.String("out", "./models", "artifact output directory")
	family := flag.String("model_family", "logistic", "classifier family: logistic or mlp")
	testRatio := flag.Float64("test_ratio", 0.2, "held-out evaluation ratio")
	seed := flag.Int64("seed", 42, "split and training seed")
	dbPath := flag.String("db", "", "optional SQLite path for the training log")
	flag.Parse()

	rows, labels, err := data.LoadCSV(*dataPath, defaultGroups, defaultTarget)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}

	preprocessor, err := ml.FitPreprocessor(rows, defaultGroups)
	if err != nil {
		log.Fatalf("failed to fit preprocessor: %v", err)
	}

	vectors := make([][]float64, len(rows))
	for i, row := range rows {
		vector, err := preprocessor.Transform(row)
		if err != nil {
			log.Fatalf("failed to transform row %d: %v", i+1, err)
		}
		vectors[i] = vector
	}

	trainX, trainY, testX, testY := ml.TrainTestSplit(vectors, labels, *testRatio, *seed)

	model, err := ml.NewClassifier(*family)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := model.Fit(trainX, trainY); err != nil {
		log.Fatalf("failed to train classifier: %v", err)
	}

	metrics, err := ml.Evaluate(model, testX, testY)
	if err != nil {
		log.Fatalf("failed to evaluate classifier: %v", err)
	}
	log.Printf("held-out metrics: AUC=%.4f accuracy=%.4f precision=%.4f recall=%.4f f1=%.4f",
		metrics.AUC, metrics.Accuracy, metrics.Precision, metrics.Recall, metrics.F1)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("failed to create output dir: %v", err)
	}
	if err := preprocessor.Save(filepath.Join(*outDir, "preprocessor.json")); err != nil {
		log.Fatalf("failed to save preprocessor: %v", err)
	}
	if err := model.Save(filepath.Join(*outDir, "model.json")); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}
	if err := buildSchema(preprocessor).Save(filepath.Join(*outDir, "schema.json")); err != nil {
		log.Fatalf("failed to save schema: %v", err)
	}
	if err := metrics.Save(filepath.Join(*outDir, "metrics.json")); err != nil {
		log.Fatalf("failed to save metrics: %v", err)
	}

	if *dbPath != "" {
		if err := db.InitDB(*dbPath); err != nil {
			log.Fatalf("failed to open training log db: %v", err)
		}
		defer db.Close()
		if err := db.SaveTrainingRun(*family, metrics, len(rows)); err != nil {
			log.Fatalf("failed to record training run: %v", err)
		}
	}

	fmt.Printf("artifacts written to %s\n", *outDir)
}

// buildSchema derives the published input schema from the fitted grouping:
// numeric features are free number inputs, binary features are 0/1 selects,
// and categorical features enumerate the fitted vocabulary.
func buildSchema(p *ml.Preprocessor) *schema.Schema {
	meta := make(map[string]schema.FieldMeta)
	for _, name := range p.Groups.Numeric {
		meta[name] = schema.FieldMeta{Type: "number"}
	}
	for _, name := range p.Groups.Binary {
		meta[name] = schema.FieldMeta{Type: "select", Options: []interface{}{0, 1}}
	}
	for _, name := range p.Groups.Categorical {
		options := make([]interface{}, len(p.Vocab[name]))
		for i, v := range p.Vocab[name] {
			options[i] = v
		}
		meta[name] = schema.FieldMeta{Type: "select", Options: options}
	}
	return &schema.Schema{
		FeatureOrder: p.Groups.FeatureOrder(),
		FieldMeta:    meta,
	}
}
