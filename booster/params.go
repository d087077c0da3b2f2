package booster

import (
	"rentsignal/pkg/errors"
)

// Params contains the training hyperparameters. Zero values are replaced by
// the defaults of the reference run (multiclass softprob, eta 0.1, depth 4,
// 0.8 row/column subsampling, logloss early stopping after 50 rounds).
type Params struct {
	NumRounds       int     `json:"num_rounds" yaml:"numRounds"`
	LearningRate    float64 `json:"learning_rate" yaml:"learningRate"`
	MaxDepth        int     `json:"max_depth" yaml:"maxDepth"`
	MinChildWeight  float64 `json:"min_child_weight" yaml:"minChildWeight"`
	Subsample       float64 `json:"subsample" yaml:"subsample"`
	ColsampleByTree float64 `json:"colsample_bytree" yaml:"colsampleByTree"`
	Lambda          float64 `json:"lambda_l2" yaml:"lambda"`
	MinGainToSplit  float64 `json:"min_gain_to_split" yaml:"minGainToSplit"`
	NumClass        int     `json:"num_class" yaml:"numClass"`
	Seed            int64   `json:"seed" yaml:"seed"`
	EarlyStopping   int     `json:"early_stopping_rounds" yaml:"earlyStopping"`
	Verbosity       int     `json:"verbosity" yaml:"verbosity"`
}

// DefaultParams returns the reference-run hyperparameters.
func DefaultParams() Params {
	return Params{
		NumRounds:       2000,
		LearningRate:    0.1,
		MaxDepth:        4,
		MinChildWeight:  1.0,
		Subsample:       0.8,
		ColsampleByTree: 0.8,
		Lambda:          1.0,
		NumClass:        3,
		EarlyStopping:   50,
	}
}

// withDefaults fills zero fields from DefaultParams.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.NumRounds == 0 {
		p.NumRounds = d.NumRounds
	}
	if p.LearningRate == 0 {
		p.LearningRate = d.LearningRate
	}
	if p.MaxDepth == 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.MinChildWeight == 0 {
		p.MinChildWeight = d.MinChildWeight
	}
	if p.Subsample == 0 {
		p.Subsample = d.Subsample
	}
	if p.ColsampleByTree == 0 {
		p.ColsampleByTree = d.ColsampleByTree
	}
	if p.Lambda == 0 {
		p.Lambda = d.Lambda
	}
	if p.NumClass == 0 {
		p.NumClass = d.NumClass
	}
	return p
}

// validate rejects out-of-range hyperparameters.
func (p Params) validate() error {
	if p.NumClass < 2 {
		return errors.NewValidationError("num_class", "must be >= 2", p.NumClass)
	}
	if p.LearningRate <= 0 || p.LearningRate > 1 {
		return errors.NewValidationError("learning_rate", "must be in (0, 1]", p.LearningRate)
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		return errors.NewValidationError("subsample", "must be in (0, 1]", p.Subsample)
	}
	if p.ColsampleByTree <= 0 || p.ColsampleByTree > 1 {
		return errors.NewValidationError("colsample_bytree", "must be in (0, 1]", p.ColsampleByTree)
	}
	if p.MaxDepth <= 0 {
		return errors.NewValidationError("max_depth", "must be > 0", p.MaxDepth)
	}
	if p.NumRounds <= 0 {
		return errors.NewValidationError("num_rounds", "must be > 0", p.NumRounds)
	}
	return nil
}
