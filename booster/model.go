package booster

import (
	"encoding/json"
	"os"

	"gonum.org/v1/gonum/mat"

	"rentsignal/pkg/errors"
)

// Model is the trained ensemble. Trees are stored round by round, one tree
// per class; prediction sums shrunk leaf values per class and applies
// softmax.
type Model struct {
	Trees         []Tree   `json:"trees"`
	NumClass      int      `json:"num_class"`
	NumFeatures   int      `json:"num_features"`
	Params        Params   `json:"params"`
	BestScore     float64  `json:"best_score"`
	BestIteration int      `json:"best_iteration"`
	FeatureNames  []string `json:"feature_names,omitempty"`
}

// NumRounds returns the number of boosting rounds kept in the ensemble.
func (m *Model) NumRounds() int {
	if m.NumClass == 0 {
		return 0
	}
	return len(m.Trees) / m.NumClass
}

// PredictRaw returns the per-class raw scores for each row of X.
func (m *Model) PredictRaw(X mat.Matrix) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, errors.NewModelError("Model.PredictRaw", "empty data", errors.ErrEmptyData)
	}
	if m.NumFeatures > 0 && cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.PredictRaw", m.NumFeatures, cols, 1)
	}

	dense := toDense(X)
	out := mat.NewDense(rows, m.NumClass, nil)
	rowBuf := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(rowBuf, i, dense)
		for _, tree := range m.Trees {
			v := out.At(i, tree.ClassID) + tree.ShrinkageRate*tree.Predict(rowBuf)
			out.Set(i, tree.ClassID, v)
		}
	}
	return out, nil
}

// PredictProba returns per-class probabilities for each row of X.
func (m *Model) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	raw, err := m.PredictRaw(X)
	if err != nil {
		return nil, err
	}
	rows, _ := raw.Dims()
	out := mat.NewDense(rows, m.NumClass, nil)
	logits := make([]float64, m.NumClass)
	for i := 0; i < rows; i++ {
		mat.Row(logits, i, raw)
		for c, p := range Softmax(logits) {
			out.Set(i, c, p)
		}
	}
	return out, nil
}

// PredictClass returns the argmax class index for each row of X.
func (m *Model) PredictClass(X mat.Matrix) ([]int, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := proba.Dims()
	out := make([]int, rows)
	for i := 0; i < rows; i++ {
		bestClass, bestP := 0, proba.At(i, 0)
		for c := 1; c < m.NumClass; c++ {
			if p := proba.At(i, c); p > bestP {
				bestClass, bestP = c, p
			}
		}
		out[i] = bestClass
	}
	return out, nil
}

// FeatureImportance returns per-feature split counts normalized to
// percentages of all splits.
func (m *Model) FeatureImportance() []float64 {
	counts := make([]float64, m.NumFeatures)
	total := 0.0
	for _, tree := range m.Trees {
		for i := range tree.Nodes {
			node := &tree.Nodes[i]
			if node.IsLeaf() {
				continue
			}
			if node.SplitFeature < len(counts) {
				counts[node.SplitFeature]++
				total++
			}
		}
	}
	if total > 0 {
		for i := range counts {
			counts[i] = counts[i] / total * 100
		}
	}
	return counts
}

// SaveToFile writes the model as JSON.
func (m *Model) SaveToFile(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "Model.SaveToFile: marshal")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "Model.SaveToFile: write %s", path)
	}
	return nil
}

// LoadModelFromFile reads a JSON model written by SaveToFile.
func LoadModelFromFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "booster.LoadModelFromFile: read %s", path)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "booster.LoadModelFromFile: decode %s", path)
	}
	if m.NumClass < 2 {
		return nil, errors.NewValueError("booster.LoadModelFromFile", "model has no classes")
	}
	return &m, nil
}
