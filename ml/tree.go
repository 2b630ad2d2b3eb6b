package ml

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// numClasses is fixed: the service distinguishes disease / no-disease only.
const numClasses = 2

// DecisionTree is a binary classification tree stored as a flat node array.
// Leaves keep per-class sample counts so prediction yields a probability
// distribution, not just a label.
type DecisionTree struct {
	MaxDepth int        `json:"max_depth"`
	Nodes    []TreeNode `json:"nodes"`
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	Left       int     `json:"left"`
	Right      int     `json:"right"`
	Counts     []int   `json:"counts,omitempty"`
	Leaf       bool    `json:"leaf"`
}

func NewDecisionTree(maxDepth int) *DecisionTree {
	if maxDepth <= 0 {
		maxDepth = 5
	}
	return &DecisionTree{MaxDepth: maxDepth}
}

func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	for _, label := range labels {
		if label < 0 || label >= numClasses {
			return errors.New("label out of range")
		}
	}

	candidates := make([]int, len(features[0]))
	for i := range candidates {
		candidates[i] = i
	}
	dt.Nodes = dt.buildNode(features, labels, candidates, 0)
	return nil
}

// trainOn builds the tree considering only the given feature indices when
// splitting. Used by the forest for per-tree feature subsampling.
func (dt *DecisionTree) trainOn(features [][]float64, labels []int, candidates []int) error {
	if len(features) == 0 || len(features) != len(labels) {
		return errors.New("invalid training data")
	}
	dt.Nodes = dt.buildNode(features, labels, candidates, 0)
	return nil
}

// PredictProba walks the tree and returns the class distribution at the
// reached leaf, ordered [no-disease, disease].
func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	if len(dt.Nodes) == 0 {
		return nil, errors.New("model not trained")
	}
	idx := 0
	for {
		node := dt.Nodes[idx]
		if node.Leaf {
			return leafDistribution(node.Counts), nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return nil, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
		if idx <= 0 || idx >= len(dt.Nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
}

// validate checks the flat array is walkable for inputs of the given
// width: every interior node splits on an existing feature and points at
// strictly later nodes within the array.
func (dt *DecisionTree) validate(featureCount int) error {
	if len(dt.Nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range dt.Nodes {
		if node.Leaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= featureCount {
			return fmt.Errorf("node %d splits on feature %d, want < %d", i, node.FeatureIdx, featureCount)
		}
		if node.Left <= i || node.Left >= len(dt.Nodes) ||
			node.Right <= i || node.Right >= len(dt.Nodes) {
			return fmt.Errorf("node %d child index out of range", i)
		}
	}
	return nil
}

func (dt *DecisionTree) buildNode(features [][]float64, labels []int, candidates []int, depth int) []TreeNode {
	if depth >= dt.MaxDepth || isPure(labels) {
		return []TreeNode{leafNode(labels)}
	}

	bestFeature, threshold, ok := findBestSplit(features, labels, candidates)
	if !ok {
		return []TreeNode{leafNode(labels)}
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := partition(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return []TreeNode{leafNode(labels)}
	}

	leftNodes := dt.buildNode(leftFeatures, leftLabels, candidates, depth+1)
	rightNodes := dt.buildNode(rightFeatures, rightLabels, candidates, depth+1)

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		Left:       1,
		Right:      1 + len(leftNodes),
	})
	nodes = append(nodes, offsetChildren(leftNodes, 1)...)
	nodes = append(nodes, offsetChildren(rightNodes, 1+len(leftNodes))...)
	return nodes
}

// offsetChildren rebases a subtree's child indices for its position in the
// parent's flat array.
func offsetChildren(nodes []TreeNode, offset int) []TreeNode {
	for i := range nodes {
		if nodes[i].Leaf {
			continue
		}
		nodes[i].Left += offset
		nodes[i].Right += offset
	}
	return nodes
}

func leafNode(labels []int) TreeNode {
	counts := make([]int, numClasses)
	for _, label := range labels {
		counts[label]++
	}
	return TreeNode{FeatureIdx: -1, Left: -1, Right: -1, Counts: counts, Leaf: true}
}

func leafDistribution(counts []int) []float64 {
	proba := make([]float64, numClasses)
	total := 0
	for i := 0; i < numClasses && i < len(counts); i++ {
		total += counts[i]
	}
	if total == 0 {
		for i := range proba {
			proba[i] = 1.0 / float64(numClasses)
		}
		return proba
	}
	for i := 0; i < numClasses && i < len(counts); i++ {
		proba[i] = float64(counts[i]) / float64(total)
	}
	return proba
}

func findBestSplit(features [][]float64, labels []int, candidates []int) (int, float64, bool) {
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for _, featureIdx := range candidates {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		threshold := median(values)
		leftLabels, rightLabels := splitLabels(features, labels, featureIdx, threshold)
		if len(leftLabels) == 0 || len(rightLabels) == 0 {
			continue
		}
		impurity := weightedGini(leftLabels, rightLabels)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func partition(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	var leftFeatures, rightFeatures [][]float64
	var leftLabels, rightLabels []int
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func splitLabels(features [][]float64, labels []int, featureIdx int, threshold float64) ([]int, []int) {
	var leftLabels, rightLabels []int
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftLabels, rightLabels
}

func weightedGini(leftLabels, rightLabels []int) float64 {
	leftWeight := float64(len(leftLabels))
	rightWeight := float64(len(rightLabels))
	total := leftWeight + rightWeight
	return (leftWeight/total)*gini(leftLabels) + (rightWeight/total)*gini(rightLabels)
}

func gini(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make([]int, numClasses)
	for _, label := range labels {
		counts[label]++
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(len(labels))
		impurity -= prob * prob
	}
	return impurity
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func isPure(labels []int) bool {
	if len(labels) == 0 {
		return true
	}
	first := labels[0]
	for _, label := range labels[1:] {
		if label != first {
			return false
		}
	}
	return true
}
