package preprocessing

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"rentsignal/core/model"
	"rentsignal/dataset"
	"rentsignal/pkg/errors"
)

// SmoothingWeight is the logistic weight of a category's own empirical share
// against the global share: 1 / (1 + exp(threshold - count)). It is strictly
// increasing in count and bounded in (0, 1), so rare categories regress to
// the global mean and frequent ones trust their own statistics.
func SmoothingWeight(count, threshold float64) float64 {
	return 1.0 / (1.0 + math.Exp(threshold-count))
}

// categoryStats is the fitted statistic for one category value.
type categoryStats struct {
	WeightedHigh   float64
	WeightedMedium float64
}

// TargetEncoder replaces a categorical column with smoothed class-likelihood
// statistics learned from the training labels. For each category it blends
// the empirical high/medium shares toward the global shares with
// SmoothingWeight, then applies small multiplicative jitter to discourage
// the booster from keying on exact leakage values. Unseen categories map to
// the global shares.
type TargetEncoder struct {
	model.BaseEstimator

	// Column is the categorical column this encoder was built for; it only
	// labels errors and log lines.
	Column string

	// Threshold is the frequency at which the logistic weight crosses 0.5.
	Threshold float64

	// JitterScale is the relative jitter amplitude; the fitted statistic is
	// multiplied by 1 + JitterScale*(U-0.5). Zero disables jitter.
	JitterScale float64

	// Seed drives the jitter RNG so fits are reproducible.
	Seed int64

	mapping    map[string]categoryStats
	globalHigh float64
	globalMed  float64
}

// NewTargetEncoder creates an encoder for one categorical column.
func NewTargetEncoder(column string, threshold float64, seed int64) *TargetEncoder {
	return &TargetEncoder{
		Column:      column,
		Threshold:   threshold,
		JitterScale: 0.01,
		Seed:        seed,
	}
}

// Fit learns the per-category smoothed class shares from training labels.
func (e *TargetEncoder) Fit(categories []string, labels []int) error {
	if len(categories) == 0 {
		return errors.NewModelError("TargetEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(labels) != len(categories) {
		return errors.NewDimensionError("TargetEncoder.Fit", len(categories), len(labels), 0)
	}

	type counts struct {
		high, medium, total float64
	}
	perCategory := map[string]*counts{}
	var globalHigh, globalMed, globalTotal float64

	for i, cat := range categories {
		c, ok := perCategory[cat]
		if !ok {
			c = &counts{}
			perCategory[cat] = c
		}
		c.total++
		globalTotal++
		switch labels[i] {
		case dataset.ClassHigh:
			c.high++
			globalHigh++
		case dataset.ClassMedium:
			c.medium++
			globalMed++
		case dataset.ClassLow:
		default:
			return errors.NewValueError("TargetEncoder.Fit", fmt.Sprintf("label %d out of range", labels[i]))
		}
	}

	e.globalHigh = globalHigh / globalTotal
	e.globalMed = globalMed / globalTotal

	// Jitter draws are consumed in sorted category order so a seed fully
	// determines the fit.
	order := make([]string, 0, len(perCategory))
	for cat := range perCategory {
		order = append(order, cat)
	}
	sort.Strings(order)

	rng := rand.New(rand.NewSource(e.Seed))
	e.mapping = make(map[string]categoryStats, len(perCategory))
	for _, cat := range order {
		c := perCategory[cat]
		lambda := SmoothingWeight(c.total, e.Threshold)
		wHigh := lambda*(c.high/c.total) + (1-lambda)*e.globalHigh
		wMed := lambda*(c.medium/c.total) + (1-lambda)*e.globalMed
		if e.JitterScale != 0 {
			wHigh *= 1.0 + e.JitterScale*(rng.Float64()-0.5)
			wMed *= 1.0 + e.JitterScale*(rng.Float64()-0.5)
		}
		e.mapping[cat] = categoryStats{WeightedHigh: wHigh, WeightedMedium: wMed}
	}

	e.SetFitted()
	return nil
}

// Transform emits two columns per row: the weighted high share and the
// weighted medium share of the row's category. Categories never seen during
// Fit fall back to the global shares.
func (e *TargetEncoder) Transform(categories []string) (*mat.Dense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("TargetEncoder", "Transform")
	}
	out := mat.NewDense(len(categories), 2, nil)
	for i, cat := range categories {
		stats, ok := e.mapping[cat]
		if !ok {
			stats = categoryStats{WeightedHigh: e.globalHigh, WeightedMedium: e.globalMed}
		}
		out.Set(i, 0, stats.WeightedHigh)
		out.Set(i, 1, stats.WeightedMedium)
	}
	return out, nil
}

// FitTransform fits on the training column and returns its encoding.
func (e *TargetEncoder) FitTransform(categories []string, labels []int) (*mat.Dense, error) {
	if err := e.Fit(categories, labels); err != nil {
		return nil, err
	}
	return e.Transform(categories)
}

// GlobalShares returns the fitted global high and medium class shares.
func (e *TargetEncoder) GlobalShares() (high, medium float64) {
	return e.globalHigh, e.globalMed
}

// String returns the encoder's description.
func (e *TargetEncoder) String() string {
	if !e.IsFitted() {
		return fmt.Sprintf("TargetEncoder(column=%s, threshold=%.0f)", e.Column, e.Threshold)
	}
	return fmt.Sprintf("TargetEncoder(column=%s, threshold=%.0f, n_categories=%d)", e.Column, e.Threshold, len(e.mapping))
}

// ManagerSkill scores each manager as 2*high_frac + medium_frac over their
// training listings. Managers with fewer than Threshold listings, and
// managers unseen at transform time, receive the mean skill of the frequent
// managers.
type ManagerSkill struct {
	model.BaseEstimator

	// Threshold is the minimum listing count for a manager to keep their
	// own empirical skill.
	Threshold int

	skills    map[string]float64
	meanSkill float64
}

// NewManagerSkill creates an unfitted ManagerSkill transformer.
func NewManagerSkill(threshold int) *ManagerSkill {
	if threshold <= 0 {
		threshold = 5
	}
	return &ManagerSkill{Threshold: threshold}
}

// Fit learns per-manager skill from training labels.
func (m *ManagerSkill) Fit(managers []string, labels []int) error {
	if len(managers) == 0 {
		return errors.NewModelError("ManagerSkill.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(labels) != len(managers) {
		return errors.NewDimensionError("ManagerSkill.Fit", len(managers), len(labels), 0)
	}

	type counts struct {
		high, medium, total float64
	}
	perManager := map[string]*counts{}
	for i, mgr := range managers {
		c, ok := perManager[mgr]
		if !ok {
			c = &counts{}
			perManager[mgr] = c
		}
		c.total++
		switch labels[i] {
		case dataset.ClassHigh:
			c.high++
		case dataset.ClassMedium:
			c.medium++
		}
	}

	var sum float64
	var nFrequent int
	m.skills = make(map[string]float64, len(perManager))
	for mgr, c := range perManager {
		skill := 2*(c.high/c.total) + c.medium/c.total
		if int(c.total) >= m.Threshold {
			m.skills[mgr] = skill
			sum += skill
			nFrequent++
		}
	}
	if nFrequent > 0 {
		m.meanSkill = sum / float64(nFrequent)
	}

	m.SetFitted()
	return nil
}

// Transform returns an n-by-1 matrix of manager skills.
func (m *ManagerSkill) Transform(managers []string) (*mat.Dense, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("ManagerSkill", "Transform")
	}
	out := mat.NewDense(len(managers), 1, nil)
	for i, mgr := range managers {
		skill, ok := m.skills[mgr]
		if !ok {
			skill = m.meanSkill
		}
		out.Set(i, 0, skill)
	}
	return out, nil
}

// FitTransform fits on the training managers and returns their skills.
func (m *ManagerSkill) FitTransform(managers []string, labels []int) (*mat.Dense, error) {
	if err := m.Fit(managers, labels); err != nil {
		return nil, err
	}
	return m.Transform(managers)
}

// MeanSkill returns the fallback skill for infrequent and unseen managers.
func (m *ManagerSkill) MeanSkill() float64 {
	return m.meanSkill
}
