package ml

import (
	"errors"
	"math"
	"math/rand"
)

// RandomForest bags probability-leaf decision trees over bootstrap samples
// and averages their class distributions. Training is seeded so repeated
// runs over the same dataset produce the same artifact.
type RandomForest struct {
	NumTrees int             `json:"num_trees"`
	MaxDepth int             `json:"max_depth"`
	Seed     int64           `json:"seed"`
	Trees    []*DecisionTree `json:"trees"`
}

func NewRandomForest(numTrees, maxDepth int) *RandomForest {
	if numTrees <= 0 {
		numTrees = 50
	}
	if maxDepth <= 0 {
		maxDepth = 6
	}
	return &RandomForest{NumTrees: numTrees, MaxDepth: maxDepth, Seed: 42}
}

func (rf *RandomForest) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}

	rng := rand.New(rand.NewSource(rf.Seed))
	featureCount := len(features[0])
	subsetSize := int(math.Ceil(math.Sqrt(float64(featureCount))))

	rf.Trees = make([]*DecisionTree, 0, rf.NumTrees)
	for t := 0; t < rf.NumTrees; t++ {
		sampleX := make([][]float64, len(features))
		sampleY := make([]int, len(labels))
		for i := range features {
			j := rng.Intn(len(features))
			sampleX[i] = features[j]
			sampleY[i] = labels[j]
		}

		candidates := rng.Perm(featureCount)[:subsetSize]

		tree := NewDecisionTree(rf.MaxDepth)
		if err := tree.trainOn(sampleX, sampleY, candidates); err != nil {
			return err
		}
		rf.Trees = append(rf.Trees, tree)
	}
	return nil
}

func (rf *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, errors.New("model not trained")
	}
	proba := make([]float64, numClasses)
	for _, tree := range rf.Trees {
		treeProba, err := tree.PredictProba(features)
		if err != nil {
			return nil, err
		}
		for i, p := range treeProba {
			proba[i] += p
		}
	}
	for i := range proba {
		proba[i] /= float64(len(rf.Trees))
	}
	return proba, nil
}
