// Package pipeline composes the feature branches into one matrix: a
// continuous column extraction, a one-hot categorical branch, the
// target-averaging branches and the tag vectorizer, concatenated by a
// feature union.
package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"rentsignal/dataset"
	"rentsignal/pkg/errors"
	"rentsignal/preprocessing"
)

// Transformer is one branch of the feature union: fitted against the
// training table and labels, transforming any table into a matrix block.
type Transformer interface {
	Fit(t *dataset.Table, labels []int) error
	Transform(t *dataset.Table) (*mat.Dense, error)
}

// ColumnExtractor selects named numeric columns, untouched.
type ColumnExtractor struct {
	Fields []string
}

// NewColumnExtractor creates an extractor over the given columns.
func NewColumnExtractor(fields []string) *ColumnExtractor {
	return &ColumnExtractor{Fields: fields}
}

// Fit is a no-op; extraction is stateless.
func (c *ColumnExtractor) Fit(_ *dataset.Table, _ []int) error { return nil }

// Transform assembles the selected columns into a matrix.
func (c *ColumnExtractor) Transform(t *dataset.Table) (*mat.Dense, error) {
	return t.Matrix(c.Fields)
}

// CategoricalOneHot extracts label-encoded code columns and expands them
// with a OneHotEncoder.
type CategoricalOneHot struct {
	Fields  []string
	Encoder *preprocessing.OneHotEncoder
}

// NewCategoricalOneHot creates a one-hot branch over code columns.
func NewCategoricalOneHot(fields []string) *CategoricalOneHot {
	return &CategoricalOneHot{Fields: fields, Encoder: preprocessing.NewOneHotEncoder()}
}

func (c *CategoricalOneHot) Fit(t *dataset.Table, _ []int) error {
	X, err := t.Matrix(c.Fields)
	if err != nil {
		return err
	}
	return c.Encoder.Fit(X)
}

func (c *CategoricalOneHot) Transform(t *dataset.Table) (*mat.Dense, error) {
	X, err := t.Matrix(c.Fields)
	if err != nil {
		return nil, err
	}
	return c.Encoder.Transform(X)
}

// MatrixTransformer is a pipeline stage that operates on an already
// assembled matrix.
type MatrixTransformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (*mat.Dense, error)
}

// Composed chains a table branch with matrix stages: the head extracts a
// matrix from the table, each stage is fitted on and transforms the output
// of the previous one.
type Composed struct {
	Head   Transformer
	Stages []MatrixTransformer
}

// NewComposed creates a sequential pipeline over the given stages.
func NewComposed(head Transformer, stages ...MatrixTransformer) *Composed {
	return &Composed{Head: head, Stages: stages}
}

func (c *Composed) Fit(t *dataset.Table, labels []int) error {
	if err := c.Head.Fit(t, labels); err != nil {
		return err
	}
	X, err := c.Head.Transform(t)
	if err != nil {
		return err
	}
	for _, stage := range c.Stages {
		if err := stage.Fit(X); err != nil {
			return err
		}
		if X, err = stage.Transform(X); err != nil {
			return err
		}
	}
	return nil
}

func (c *Composed) Transform(t *dataset.Table) (*mat.Dense, error) {
	X, err := c.Head.Transform(t)
	if err != nil {
		return nil, err
	}
	for _, stage := range c.Stages {
		if X, err = stage.Transform(X); err != nil {
			return nil, err
		}
	}
	return X, nil
}

// TargetAveraging encodes one categorical string column with the smoothed
// target-likelihood encoder.
type TargetAveraging struct {
	Column  string
	Encoder *preprocessing.TargetEncoder
}

// NewTargetAveraging creates a target-averaging branch for one column.
func NewTargetAveraging(column string, threshold float64, seed int64) *TargetAveraging {
	return &TargetAveraging{
		Column:  column,
		Encoder: preprocessing.NewTargetEncoder(column, threshold, seed),
	}
}

func (b *TargetAveraging) Fit(t *dataset.Table, labels []int) error {
	col, err := t.Strings(b.Column)
	if err != nil {
		return err
	}
	return b.Encoder.Fit(col, labels)
}

func (b *TargetAveraging) Transform(t *dataset.Table) (*mat.Dense, error) {
	col, err := t.Strings(b.Column)
	if err != nil {
		return nil, err
	}
	return b.Encoder.Transform(col)
}

// SkillBranch encodes the manager column with the ManagerSkill statistic.
type SkillBranch struct {
	Column  string
	Encoder *preprocessing.ManagerSkill
}

// NewSkillBranch creates a manager-skill branch.
func NewSkillBranch(column string, threshold int) *SkillBranch {
	return &SkillBranch{Column: column, Encoder: preprocessing.NewManagerSkill(threshold)}
}

func (b *SkillBranch) Fit(t *dataset.Table, labels []int) error {
	col, err := t.Strings(b.Column)
	if err != nil {
		return err
	}
	return b.Encoder.Fit(col, labels)
}

func (b *SkillBranch) Transform(t *dataset.Table) (*mat.Dense, error) {
	col, err := t.Strings(b.Column)
	if err != nil {
		return nil, err
	}
	return b.Encoder.Transform(col)
}

// TagVectorizer runs the count vectorizer over a text column.
type TagVectorizer struct {
	Column     string
	Vectorizer *preprocessing.CountVectorizer
}

// NewTagVectorizer creates a text branch over the given column.
func NewTagVectorizer(column string, maxFeatures int) *TagVectorizer {
	return &TagVectorizer{Column: column, Vectorizer: preprocessing.NewCountVectorizer(maxFeatures)}
}

func (b *TagVectorizer) Fit(t *dataset.Table, _ []int) error {
	col, err := t.Strings(b.Column)
	if err != nil {
		return err
	}
	return b.Vectorizer.Fit(col)
}

func (b *TagVectorizer) Transform(t *dataset.Table) (*mat.Dense, error) {
	col, err := t.Strings(b.Column)
	if err != nil {
		return nil, err
	}
	return b.Vectorizer.Transform(col)
}

// FeatureUnion fits every branch on the same table and concatenates their
// transformed blocks horizontally.
type FeatureUnion struct {
	Branches []Transformer
}

// NewFeatureUnion creates a union over the given branches.
func NewFeatureUnion(branches ...Transformer) *FeatureUnion {
	return &FeatureUnion{Branches: branches}
}

func (u *FeatureUnion) Fit(t *dataset.Table, labels []int) error {
	if len(u.Branches) == 0 {
		return errors.NewModelError("FeatureUnion.Fit", "no branches", errors.ErrEmptyData)
	}
	for _, b := range u.Branches {
		if err := b.Fit(t, labels); err != nil {
			return err
		}
	}
	return nil
}

func (u *FeatureUnion) Transform(t *dataset.Table) (*mat.Dense, error) {
	blocks := make([]*mat.Dense, len(u.Branches))
	for i, b := range u.Branches {
		block, err := b.Transform(t)
		if err != nil {
			return nil, err
		}
		blocks[i] = block
	}
	return HStack(blocks...)
}

// FitTransform fits the union on the training table and transforms it.
func (u *FeatureUnion) FitTransform(t *dataset.Table, labels []int) (*mat.Dense, error) {
	if err := u.Fit(t, labels); err != nil {
		return nil, err
	}
	return u.Transform(t)
}

// HStack concatenates matrices column-wise. All blocks must share a row
// count.
func HStack(blocks ...*mat.Dense) (*mat.Dense, error) {
	if len(blocks) == 0 {
		return nil, errors.NewModelError("pipeline.HStack", "no blocks", errors.ErrEmptyData)
	}
	rows, _ := blocks[0].Dims()
	width := 0
	for _, b := range blocks {
		r, c := b.Dims()
		if r != rows {
			return nil, errors.NewDimensionError("pipeline.HStack", rows, r, 0)
		}
		width += c
	}

	out := mat.NewDense(rows, width, nil)
	offset := 0
	for _, b := range blocks {
		_, c := b.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, offset+j, b.At(i, j))
			}
		}
		offset += c
	}
	return out, nil
}
