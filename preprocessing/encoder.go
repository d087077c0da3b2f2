// Package preprocessing contains the fit/transform encoders of the feature
// pipeline: label and one-hot encoding for categoricals, the smoothed
// target-likelihood encoder, the manager-skill statistic and the tag
// count vectorizer.
package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"rentsignal/core/model"
	"rentsignal/pkg/errors"
)

// LabelEncoder maps string categories to dense integer codes.
type LabelEncoder struct {
	model.BaseEstimator

	// Classes holds the known categories in sorted order; the code of a
	// category is its position here.
	Classes []string

	codes map[string]int
}

// NewLabelEncoder creates an unfitted LabelEncoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit learns the category set.
func (e *LabelEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	seen := map[string]struct{}{}
	for _, v := range values {
		seen[v] = struct{}{}
	}
	e.Classes = make([]string, 0, len(seen))
	for v := range seen {
		e.Classes = append(e.Classes, v)
	}
	sort.Strings(e.Classes)
	e.codes = make(map[string]int, len(e.Classes))
	for i, v := range e.Classes {
		e.codes[v] = i
	}
	e.SetFitted()
	return nil
}

// Transform maps categories to their codes. Unseen categories are an error;
// the encoder is fitted over the pooled corpus so this only fires on misuse.
func (e *LabelEncoder) Transform(values []string) ([]float64, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}
	out := make([]float64, len(values))
	for i, v := range values {
		code, ok := e.codes[v]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform", "unseen category "+v)
		}
		out[i] = float64(code)
	}
	return out, nil
}

// FitTransform fits on values and returns their codes.
func (e *LabelEncoder) FitTransform(values []string) ([]float64, error) {
	if err := e.Fit(values); err != nil {
		return nil, err
	}
	return e.Transform(values)
}

// String returns the encoder's description.
func (e *LabelEncoder) String() string {
	if !e.IsFitted() {
		return "LabelEncoder()"
	}
	return fmt.Sprintf("LabelEncoder(n_classes=%d)", len(e.Classes))
}

// OneHotEncoder expands integer-coded categorical columns into indicator
// columns. Unknown codes at transform time are ignored: the row's block for
// that column stays all-zero, matching handle_unknown='ignore'.
type OneHotEncoder struct {
	model.BaseEstimator

	// Categories holds, per input column, the sorted codes seen during Fit.
	Categories [][]int

	// NFeatures is the number of input columns.
	NFeatures int

	offsets []int
	width   int
	index   []map[int]int
}

// NewOneHotEncoder creates an unfitted OneHotEncoder.
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{}
}

// Fit records the category codes present in each column of X.
func (e *OneHotEncoder) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	e.NFeatures = c
	e.Categories = make([][]int, c)
	e.index = make([]map[int]int, c)
	e.offsets = make([]int, c)
	e.width = 0

	for j := 0; j < c; j++ {
		seen := map[int]struct{}{}
		for i := 0; i < r; i++ {
			seen[int(X.At(i, j))] = struct{}{}
		}
		cats := make([]int, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		sort.Ints(cats)
		e.Categories[j] = cats

		e.index[j] = make(map[int]int, len(cats))
		for pos, v := range cats {
			e.index[j][v] = pos
		}
		e.offsets[j] = e.width
		e.width += len(cats)
	}

	e.SetFitted()
	return nil
}

// Transform expands X into indicator columns.
func (e *OneHotEncoder) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	r, c := X.Dims()
	if c != e.NFeatures {
		return nil, errors.NewDimensionError("OneHotEncoder.Transform", e.NFeatures, c, 1)
	}

	out := mat.NewDense(r, e.width, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			pos, ok := e.index[j][int(X.At(i, j))]
			if !ok {
				continue
			}
			out.Set(i, e.offsets[j]+pos, 1)
		}
	}
	return out, nil
}

// FitTransform fits on X and returns its indicator expansion.
func (e *OneHotEncoder) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := e.Fit(X); err != nil {
		return nil, err
	}
	return e.Transform(X)
}

// NumOutputColumns returns the width of the transformed matrix.
func (e *OneHotEncoder) NumOutputColumns() int {
	return e.width
}

// String returns the encoder's description.
func (e *OneHotEncoder) String() string {
	if !e.IsFitted() {
		return "OneHotEncoder(handle_unknown=ignore)"
	}
	return fmt.Sprintf("OneHotEncoder(handle_unknown=ignore, n_features=%d, n_outputs=%d)", e.NFeatures, e.width)
}
