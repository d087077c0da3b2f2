package booster

import (
	"math/rand"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"rentsignal/pkg/errors"
	"rentsignal/pkg/log"
)

// Trainer runs gradient boosting: each round computes softmax gradients over
// the current raw scores and grows one depth-limited regression tree per
// class on a row/column subsample.
type Trainer struct {
	params    Params
	objective *SoftmaxObjective

	X     *mat.Dense
	y     []int
	nRows int
	nCols int

	// raw holds the flattened [nRows * NumClass] score matrix.
	raw   []float64
	trees []Tree
	rng   *rand.Rand

	bestScore     float64
	bestIteration int
}

// NewTrainer creates a trainer, filling zero params with the defaults.
func NewTrainer(params Params) *Trainer {
	return &Trainer{params: params.withDefaults()}
}

// Fit trains on X, y without a validation watchlist.
func (t *Trainer) Fit(X mat.Matrix, y []int) (*Model, error) {
	return t.fit(X, y, nil, nil)
}

// FitWithValidation trains with a validation watchlist; early stopping keeps
// the ensemble of the best validation round.
func (t *Trainer) FitWithValidation(X mat.Matrix, y []int, valX mat.Matrix, valY []int) (*Model, error) {
	if valX == nil || len(valY) == 0 {
		return nil, errors.NewModelError("booster.FitWithValidation", "empty validation set", errors.ErrEmptyData)
	}
	return t.fit(X, y, valX, valY)
}

func (t *Trainer) fit(X mat.Matrix, y []int, valX mat.Matrix, valY []int) (*Model, error) {
	if err := t.params.validate(); err != nil {
		return nil, err
	}
	if err := t.setData(X, y); err != nil {
		return nil, err
	}

	k := t.params.NumClass
	t.objective = NewSoftmaxObjective(k)
	t.rng = rand.New(rand.NewSource(t.params.Seed))
	t.raw = make([]float64, t.nRows*k)
	t.trees = t.trees[:0]

	var valDense *mat.Dense
	var valRaw []float64
	if valX != nil {
		valDense = toDense(valX)
		valRows, valCols := valDense.Dims()
		if valCols != t.nCols {
			return nil, errors.NewDimensionError("booster.fit", t.nCols, valCols, 1)
		}
		if valRows != len(valY) {
			return nil, errors.NewDimensionError("booster.fit", valRows, len(valY), 0)
		}
		valRaw = make([]float64, valRows*k)
	}

	earlyStopping := NewEarlyStopping(0)
	if t.params.EarlyStopping > 0 && valDense != nil {
		earlyStopping = NewEarlyStopping(t.params.EarlyStopping)
	}

	logger := log.GetLoggerWithName("booster.trainer")
	rowBuf := make([]float64, t.nCols)

	for round := 0; round < t.params.NumRounds; round++ {
		gradients, hessians := t.objective.GradHess(t.y, t.raw)

		sampledRows := t.sampleRows()
		for class := 0; class < k; class++ {
			feats := t.sampleFeatures()
			tree := t.buildClassTree(round, class, sampledRows, feats, gradients, hessians)
			t.trees = append(t.trees, tree)

			// Update raw scores for every training row.
			for i := 0; i < t.nRows; i++ {
				mat.Row(rowBuf, i, t.X)
				t.raw[i*k+class] += tree.ShrinkageRate * tree.Predict(rowBuf)
			}
		}

		trainLoss := t.objective.Loss(t.y, t.raw)
		t.bestScore = trainLoss
		t.bestIteration = round

		if valDense != nil {
			valLoss := t.updateValidation(valDense, valRaw, valY, round)
			if t.params.Verbosity > 0 && round%10 == 0 {
				logger.Debug("training progress",
					"round", round,
					"train_mlogloss", trainLoss,
					"val_mlogloss", valLoss)
			}
			if earlyStopping.Update(round, valLoss) {
				t.trees = t.trees[:(earlyStopping.BestIteration+1)*k]
				t.bestScore = earlyStopping.BestScore
				t.bestIteration = earlyStopping.BestIteration
				if t.params.Verbosity > 0 {
					logger.Info("early stopping",
						"round", round,
						"best_round", earlyStopping.BestIteration,
						"best_mlogloss", earlyStopping.BestScore)
				}
				break
			}
			t.bestScore = earlyStopping.BestScore
			t.bestIteration = earlyStopping.BestIteration
		} else if t.params.Verbosity > 0 && round%10 == 0 {
			logger.Debug("training progress", "round", round, "train_mlogloss", trainLoss)
		}
	}

	return &Model{
		Trees:         append([]Tree(nil), t.trees...),
		NumClass:      k,
		NumFeatures:   t.nCols,
		Params:        t.params,
		BestScore:     t.bestScore,
		BestIteration: t.bestIteration,
	}, nil
}

func (t *Trainer) setData(X mat.Matrix, y []int) error {
	t.X = toDense(X)
	t.nRows, t.nCols = t.X.Dims()
	if t.nRows == 0 || t.nCols == 0 {
		return errors.NewModelError("booster.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != t.nRows {
		return errors.NewDimensionError("booster.Fit", t.nRows, len(y), 0)
	}
	for i, label := range y {
		if label < 0 || label >= t.params.NumClass {
			return errors.NewValueError("booster.Fit", "label out of range at row "+strconv.Itoa(i))
		}
	}
	t.y = y
	return nil
}

// updateValidation adds the round's trees to the validation scores and
// returns the validation loss.
func (t *Trainer) updateValidation(valX *mat.Dense, valRaw []float64, valY []int, round int) float64 {
	k := t.params.NumClass
	valRows, valCols := valX.Dims()
	rowBuf := make([]float64, valCols)
	newTrees := t.trees[round*k:]
	for i := 0; i < valRows; i++ {
		mat.Row(rowBuf, i, valX)
		for _, tree := range newTrees {
			valRaw[i*k+tree.ClassID] += tree.ShrinkageRate * tree.Predict(rowBuf)
		}
	}
	return t.objective.Loss(valY, valRaw)
}

// sampleRows draws the round's row subsample without replacement.
func (t *Trainer) sampleRows() []int {
	if t.params.Subsample >= 1 {
		rows := make([]int, t.nRows)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	n := int(float64(t.nRows) * t.params.Subsample)
	if n < 1 {
		n = 1
	}
	perm := t.rng.Perm(t.nRows)
	rows := perm[:n]
	sort.Ints(rows)
	return rows
}

// sampleFeatures draws the tree's feature subsample without replacement.
func (t *Trainer) sampleFeatures() []int {
	if t.params.ColsampleByTree >= 1 {
		feats := make([]int, t.nCols)
		for i := range feats {
			feats[i] = i
		}
		return feats
	}
	n := int(float64(t.nCols) * t.params.ColsampleByTree)
	if n < 1 {
		n = 1
	}
	perm := t.rng.Perm(t.nCols)
	feats := perm[:n]
	sort.Ints(feats)
	return feats
}

// buildClassTree grows one regression tree on the class's gradient slice.
func (t *Trainer) buildClassTree(round, class int, rows, feats []int, gradients, hessians []float64) Tree {
	tree := Tree{
		TreeIndex:     round,
		ClassID:       class,
		ShrinkageRate: t.params.LearningRate,
	}
	t.buildNode(&tree, rows, feats, class, 0, 0, gradients, hessians)
	tree.NumLeaves = tree.countLeaves()
	return tree
}

func (t *Trainer) buildNode(tree *Tree, rows, feats []int, class, parentIdx, depth int, gradients, hessians []float64) int {
	nodeIdx := len(tree.Nodes)
	k := t.params.NumClass

	var sumGrad, sumHess float64
	for _, r := range rows {
		sumGrad += gradients[r*k+class]
		sumHess += hessians[r*k+class]
	}

	makeLeaf := func() int {
		tree.Nodes = append(tree.Nodes, Node{
			NodeID:     nodeIdx,
			ParentID:   parentIdx,
			NodeType:   LeafNode,
			LeafValue:  -sumGrad / (sumHess + t.params.Lambda),
			LeftChild:  -1,
			RightChild: -1,
		})
		return nodeIdx
	}

	if depth >= t.params.MaxDepth || len(rows) < 2 || sumHess < 2*t.params.MinChildWeight {
		return makeLeaf()
	}

	best, ok := t.findBestSplit(rows, feats, class, sumGrad, sumHess, gradients, hessians)
	if !ok || best.Gain <= t.params.MinGainToSplit {
		return makeLeaf()
	}

	tree.Nodes = append(tree.Nodes, Node{
		NodeID:       nodeIdx,
		ParentID:     parentIdx,
		NodeType:     NumericalNode,
		SplitFeature: best.Feature,
		Threshold:    best.Threshold,
		Gain:         best.Gain,
	})

	var left, right []int
	for _, r := range rows {
		if t.X.At(r, best.Feature) <= best.Threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	leftChild := t.buildNode(tree, left, feats, class, nodeIdx, depth+1, gradients, hessians)
	rightChild := t.buildNode(tree, right, feats, class, nodeIdx, depth+1, gradients, hessians)
	tree.Nodes[nodeIdx].LeftChild = leftChild
	tree.Nodes[nodeIdx].RightChild = rightChild
	return nodeIdx
}

// splitInfo describes the best candidate split of a node.
type splitInfo struct {
	Feature   int
	Threshold float64
	Gain      float64
}

// findBestSplit scans every sampled feature with the exact greedy algorithm:
// sort rows by feature value, sweep prefix gradient/hessian sums, score
// gain = 0.5*(GL²/(HL+λ) + GR²/(HR+λ) − G²/(H+λ)).
func (t *Trainer) findBestSplit(rows, feats []int, class int, sumGrad, sumHess float64, gradients, hessians []float64) (splitInfo, bool) {
	k := t.params.NumClass
	lambda := t.params.Lambda
	parentScore := sumGrad * sumGrad / (sumHess + lambda)

	best := splitInfo{Gain: 0}
	found := false

	type entry struct {
		value float64
		grad  float64
		hess  float64
	}
	entries := make([]entry, len(rows))

	for _, f := range feats {
		for i, r := range rows {
			entries[i] = entry{
				value: t.X.At(r, f),
				grad:  gradients[r*k+class],
				hess:  hessians[r*k+class],
			}
		}
		sort.Slice(entries, func(a, b int) bool { return entries[a].value < entries[b].value })

		var leftGrad, leftHess float64
		for i := 0; i < len(entries)-1; i++ {
			leftGrad += entries[i].grad
			leftHess += entries[i].hess
			if entries[i].value == entries[i+1].value {
				continue
			}
			rightGrad := sumGrad - leftGrad
			rightHess := sumHess - leftHess
			if leftHess < t.params.MinChildWeight || rightHess < t.params.MinChildWeight {
				continue
			}

			gain := 0.5 * (leftGrad*leftGrad/(leftHess+lambda) +
				rightGrad*rightGrad/(rightHess+lambda) -
				parentScore)
			if gain > best.Gain {
				best = splitInfo{
					Feature:   f,
					Threshold: (entries[i].value + entries[i+1].value) / 2,
					Gain:      gain,
				}
				found = true
			}
		}
	}
	return best, found
}

func toDense(X mat.Matrix) *mat.Dense {
	if d, ok := X.(*mat.Dense); ok {
		return d
	}
	rows, cols := X.Dims()
	d := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d.Set(i, j, X.At(i, j))
		}
	}
	return d
}
