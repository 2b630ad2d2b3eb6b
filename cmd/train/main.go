package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"heartserve/db"
	"heartserve/ml"
)

func main() {
	dataPath := flag.String("data", "data/heart_disease.csv", "dataset CSV path")
	outPath := flag.String("out", "models/heart.model.json", "artifact output path")
	version := flag.String("version", time.Now().UTC().Format("20060102-150405"), "artifact version")
	testRatio := flag.Float64("test_ratio", 0.2, "test set ratio")
	numTrees := flag.Int("trees", 100, "number of forest trees")
	maxDepth := flag.Int("max_depth", 6, "max tree depth")
	learningRate := flag.Float64("lr", 0.1, "logistic regression learning rate")
	epochs := flag.Int("epochs", 1000, "logistic regression epochs")
	dbPath := flag.String("db", "", "optional sqlite path for the training log")
	flag.Parse()

	features, labels, err := ml.LoadDataset(*dataPath)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	log.Printf("loaded %d samples from %s", len(features), *dataPath)

	trainX, trainY, testX, testY := splitDataset(features, labels, *testRatio)

	scaler := &ml.StandardScaler{}
	if err := scaler.Fit(trainX); err != nil {
		log.Fatalf("failed to fit scaler: %v", err)
	}
	scaledTrain, err := scaler.TransformAll(trainX)
	if err != nil {
		log.Fatalf("failed to scale training set: %v", err)
	}
	scaledTest, err := scaler.TransformAll(testX)
	if err != nil {
		log.Fatalf("failed to scale test set: %v", err)
	}

	logistic := ml.NewLogisticRegression(*learningRate, *epochs)
	if err := logistic.Train(scaledTrain, trainY); err != nil {
		log.Fatalf("failed to train logistic regression: %v", err)
	}
	logisticEval := evaluate(logistic, scaledTest, testY)
	log.Printf("logistic_regression %s", logisticEval)

	forest := ml.NewRandomForest(*numTrees, *maxDepth)
	if err := forest.Train(scaledTrain, trainY); err != nil {
		log.Fatalf("failed to train random forest: %v", err)
	}
	forestEval := evaluate(forest, scaledTest, testY)
	log.Printf("random_forest %s", forestEval)

	artifact := &ml.Artifact{
		Version:   *version,
		CreatedAt: time.Now().UTC(),
		Scaler:    scaler,
	}
	if forestEval.Accuracy > logisticEval.Accuracy {
		artifact.ModelType = ml.ModelRandomForest
		artifact.Forest = forest
	} else {
		artifact.ModelType = ml.ModelLogisticRegression
		artifact.Logistic = logistic
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.Fatalf("failed to create model dir: %v", err)
	}
	if err := artifact.Save(*outPath); err != nil {
		log.Fatalf("failed to save artifact: %v", err)
	}
	fmt.Printf("best model (%s) saved to %s\n", artifact.ModelType, *outPath)

	if *dbPath != "" {
		recordTrainingRuns(*dbPath, len(features), logisticEval, forestEval)
	}
}

func recordTrainingRuns(path string, dataPoints int, evals ...evaluation) {
	store, err := db.Open(path)
	if err != nil {
		log.Printf("training log unavailable: %v", err)
		return
	}
	defer store.Close()
	for _, eval := range evals {
		run := db.TrainingRun{
			ModelName:  eval.Model,
			Accuracy:   eval.Accuracy,
			Precision:  eval.Precision,
			Recall:     eval.Recall,
			F1:         eval.F1,
			DataPoints: dataPoints,
			TrainedAt:  time.Now().UTC(),
		}
		if err := store.SaveTrainingRun(run); err != nil {
			log.Printf("failed to record training run: %v", err)
		}
	}
}

// splitDataset shuffles with a fixed seed and holds out the tail as the
// test set.
func splitDataset(features [][]float64, labels []int, testRatio float64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}

	rng := rand.New(rand.NewSource(42))
	order := rng.Perm(len(features))

	split := int(float64(len(features)) * (1 - testRatio))
	for i, j := range order {
		if i < split {
			trainX = append(trainX, features[j])
			trainY = append(trainY, labels[j])
		} else {
			testX = append(testX, features[j])
			testY = append(testY, labels[j])
		}
	}
	return trainX, trainY, testX, testY
}

type evaluation struct {
	Model     string
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
}

func (e evaluation) String() string {
	return fmt.Sprintf("accuracy=%.4f precision=%.4f recall=%.4f f1=%.4f", e.Accuracy, e.Precision, e.Recall, e.F1)
}

func evaluate(classifier ml.Classifier, testX [][]float64, testY []int) evaluation {
	eval := evaluation{}
	switch classifier.(type) {
	case *ml.LogisticRegression:
		eval.Model = ml.ModelLogisticRegression
	case *ml.RandomForest:
		eval.Model = ml.ModelRandomForest
	}
	if len(testX) == 0 {
		return eval
	}

	var correct, truePositive, predictedPositive, actualPositive int
	for i, sample := range testX {
		proba, err := classifier.PredictProba(sample)
		if err != nil {
			continue
		}
		label := ml.LabelNoDisease
		if proba[ml.LabelDisease] > proba[ml.LabelNoDisease] {
			label = ml.LabelDisease
		}
		if label == testY[i] {
			correct++
		}
		if label == ml.LabelDisease {
			predictedPositive++
		}
		if testY[i] == ml.LabelDisease {
			actualPositive++
			if label == ml.LabelDisease {
				truePositive++
			}
		}
	}

	eval.Accuracy = float64(correct) / float64(len(testX))
	if predictedPositive > 0 {
		eval.Precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		eval.Recall = float64(truePositive) / float64(actualPositive)
	}
	if eval.Precision+eval.Recall > 0 {
		eval.F1 = 2 * eval.Precision * eval.Recall / (eval.Precision + eval.Recall)
	}
	return eval
}
