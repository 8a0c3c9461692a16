package boost

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/occusim/core/parallel"
	"github.com/YuminosukeSato/occusim/pkg/errors"
	"github.com/YuminosukeSato/occusim/pkg/log"
)

const hessEpsilon = 1e-10

// TrainingParams holds the tree-growing and boosting hyperparameters.
type TrainingParams struct {
	NumTrees       int     `json:"num_trees"`
	MaxDepth       int     `json:"max_depth"`
	Shrinkage      float64 `json:"shrinkage"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`
	Subsample      float64 `json:"subsample"`
	Lambda         float64 `json:"lambda_l2"`
	MinGainToSplit float64 `json:"min_gain_to_split"`
	Seed           int64   `json:"seed"`
}

// SplitInfo describes a candidate split of a node.
type SplitInfo struct {
	Feature    int
	Threshold  float64
	Gain       float64
	LeftCount  int
	RightCount int
}

// Trainer grows an additive ensemble of regression trees by Newton boosting.
type Trainer struct {
	params    TrainingParams
	objective Objective

	rows    [][]float64
	targets []float64

	scores    []float64
	gradients []float64
	hessians  []float64

	initScore float64
	trees     []Tree
	losses    []float64

	rng    *rand.Rand
	logger log.Logger
}

// NewTrainer creates a trainer for the given parameters and objective.
func NewTrainer(params TrainingParams, objective Objective, logger log.Logger) *Trainer {
	if logger == nil {
		logger = log.GetLoggerWithName("boost.trainer")
	}
	return &Trainer{
		params:    params,
		objective: objective,
		rng:       rand.New(rand.NewPCG(uint64(params.Seed), uint64(params.Seed))),
		logger:    logger,
	}
}

// Train fits the ensemble to rows (one feature vector per sample) and
// targets.
func (t *Trainer) Train(rows [][]float64, targets []float64) error {
	n := len(rows)
	t.rows = rows
	t.targets = targets
	t.gradients = make([]float64, n)
	t.hessians = make([]float64, n)
	t.scores = make([]float64, n)
	t.trees = t.trees[:0]
	t.losses = t.losses[:0]

	t.initScore = t.objective.InitScore(targets)
	for i := range t.scores {
		t.scores[i] = t.initScore
	}

	for iter := 0; iter < t.params.NumTrees; iter++ {
		t.calculateGradients()

		tree := t.buildTree(iter, t.bag(n))
		t.trees = append(t.trees, tree)
		t.updateScores(&tree)

		loss := t.calculateLoss()
		if err := errors.CheckScalar("boost.Train", loss, iter); err != nil {
			return err
		}
		t.losses = append(t.losses, loss)

		if iter%10 == 0 {
			t.logger.Debug("Training progress",
				log.IterationKey, iter,
				log.LossKey, loss,
			)
		}
	}
	return nil
}

// calculateGradients evaluates the objective's derivatives at the current scores.
func (t *Trainer) calculateGradients() {
	parallel.ParallelizeWithThreshold(len(t.scores), parallel.DefaultThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			t.gradients[i] = t.objective.Gradient(t.scores[i], t.targets[i])
			t.hessians[i] = t.objective.Hessian(t.scores[i], t.targets[i])
		}
	})
}

// bag returns the sample indices used to grow the next tree. With
// Subsample < 1 a fresh subset is drawn without replacement.
func (t *Trainer) bag(n int) []int {
	if t.params.Subsample >= 1 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	k := int(math.Round(t.params.Subsample * float64(n)))
	if k < 1 {
		k = 1
	}
	return t.rng.Perm(n)[:k]
}

func (t *Trainer) buildTree(iter int, indices []int) Tree {
	tree := Tree{
		TreeIndex:     iter,
		ShrinkageRate: t.params.Shrinkage,
	}
	t.buildNode(&tree, indices, 0)
	for i := range tree.Nodes {
		if tree.Nodes[i].IsLeaf() {
			tree.NumLeaves++
		}
	}
	return tree
}

// buildNode appends the subtree for indices and returns its root index.
func (t *Trainer) buildNode(tree *Tree, indices []int, depth int) int {
	nodeIdx := len(tree.Nodes)
	if depth > tree.Depth {
		tree.Depth = depth
	}

	leaf := Node{
		NodeID:     nodeIdx,
		NodeType:   LeafNode,
		LeafValue:  t.calculateLeafValue(indices),
		Count:      len(indices),
		LeftChild:  -1,
		RightChild: -1,
	}
	if depth >= t.params.MaxDepth || len(indices) < 2*t.params.MinSamplesLeaf {
		tree.Nodes = append(tree.Nodes, leaf)
		return nodeIdx
	}

	best := t.findBestSplit(indices)
	if best.Feature < 0 || best.Gain <= t.params.MinGainToSplit {
		tree.Nodes = append(tree.Nodes, leaf)
		return nodeIdx
	}

	tree.Nodes = append(tree.Nodes, Node{
		NodeID:       nodeIdx,
		NodeType:     NumericalNode,
		SplitFeature: best.Feature,
		Threshold:    best.Threshold,
		Gain:         best.Gain,
		Count:        len(indices),
	})

	left, right := t.splitData(indices, best)
	leftChild := t.buildNode(tree, left, depth+1)
	rightChild := t.buildNode(tree, right, depth+1)
	tree.Nodes[nodeIdx].LeftChild = leftChild
	tree.Nodes[nodeIdx].RightChild = rightChild
	return nodeIdx
}

func (t *Trainer) findBestSplit(indices []int) SplitInfo {
	best := SplitInfo{Feature: -1, Gain: math.Inf(-1)}
	if len(t.rows) == 0 {
		return best
	}
	for j := range t.rows[0] {
		if split := t.findBestSplitForFeature(indices, j); split.Gain > best.Gain {
			best = split
		}
	}
	return best
}

// findBestSplitForFeature scans the sorted feature values once, keeping
// running gradient and hessian sums for the left side.
func (t *Trainer) findBestSplitForFeature(indices []int, feature int) SplitInfo {
	sorted := append([]int(nil), indices...)
	sort.Slice(sorted, func(a, b int) bool {
		return t.rows[sorted[a]][feature] < t.rows[sorted[b]][feature]
	})

	totalGrad, totalHess := 0.0, 0.0
	for _, idx := range sorted {
		totalGrad += t.gradients[idx]
		totalHess += t.hessians[idx]
	}

	best := SplitInfo{Feature: -1, Gain: math.Inf(-1)}
	leftGrad, leftHess := 0.0, 0.0
	minLeaf := t.params.MinSamplesLeaf
	for i := 0; i < len(sorted)-1; i++ {
		idx := sorted[i]
		leftGrad += t.gradients[idx]
		leftHess += t.hessians[idx]

		v, next := t.rows[idx][feature], t.rows[sorted[i+1]][feature]
		if v == next {
			continue
		}
		leftCount := i + 1
		rightCount := len(sorted) - leftCount
		if leftCount < minLeaf || rightCount < minLeaf {
			continue
		}

		gain := t.calculateSplitGain(leftGrad, leftHess, totalGrad-leftGrad, totalHess-leftHess, totalGrad, totalHess)
		if gain > best.Gain {
			best = SplitInfo{
				Feature:    feature,
				Threshold:  (v + next) / 2,
				Gain:       gain,
				LeftCount:  leftCount,
				RightCount: rightCount,
			}
		}
	}
	return best
}

// calculateSplitGain is the LightGBM gain ½[G_L²/(H_L+λ) + G_R²/(H_R+λ) − G²/(H+λ)].
func (t *Trainer) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := t.params.Lambda + hessEpsilon
	leftScore := leftGrad * leftGrad / (leftHess + lambda)
	rightScore := rightGrad * rightGrad / (rightHess + lambda)
	totalScore := totalGrad * totalGrad / (totalHess + lambda)
	return 0.5 * (leftScore + rightScore - totalScore)
}

func (t *Trainer) splitData(indices []int, split SplitInfo) ([]int, []int) {
	left := make([]int, 0, split.LeftCount)
	right := make([]int, 0, split.RightCount)
	for _, idx := range indices {
		if t.rows[idx][split.Feature] <= split.Threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

// calculateLeafValue returns the Newton step −G/(H+λ).
func (t *Trainer) calculateLeafValue(indices []int) float64 {
	sumGrad, sumHess := 0.0, 0.0
	for _, idx := range indices {
		sumGrad += t.gradients[idx]
		sumHess += t.hessians[idx]
	}
	return -sumGrad / (sumHess + t.params.Lambda + hessEpsilon)
}

// updateScores adds the new tree's contribution for every sample, including
// those left out of the bag.
func (t *Trainer) updateScores(tree *Tree) {
	parallel.ParallelizeWithThreshold(len(t.scores), parallel.DefaultThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			t.scores[i] += tree.Predict(t.rows[i])
		}
	})
}

// calculateLoss returns the mean training loss at the current scores.
func (t *Trainer) calculateLoss() float64 {
	if len(t.scores) == 0 {
		return 0
	}
	loss := 0.0
	for i, s := range t.scores {
		loss += t.objective.Loss(s, t.targets[i])
	}
	return loss / float64(len(t.scores))
}

// InitScore returns the constant starting score.
func (t *Trainer) InitScore() float64 {
	return t.initScore
}

// Trees returns the fitted trees.
func (t *Trainer) Trees() []Tree {
	return t.trees
}

// Losses returns the mean training loss after each iteration.
func (t *Trainer) Losses() []float64 {
	return t.losses
}
