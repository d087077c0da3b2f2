package booster

import "math"

// EarlyStopping tracks the validation metric and signals when training has
// stopped improving. The watched metric (multiclass logloss) is minimized.
type EarlyStopping struct {
	Rounds          int
	BestScore       float64
	BestIteration   int
	RoundsNoImprove int
	Enabled         bool
}

// NewEarlyStopping creates an early stopping handler; rounds <= 0 disables it.
func NewEarlyStopping(rounds int) *EarlyStopping {
	if rounds <= 0 {
		return &EarlyStopping{Enabled: false}
	}
	return &EarlyStopping{
		Rounds:    rounds,
		BestScore: math.Inf(1),
		Enabled:   true,
	}
}

// Update records a new validation score and reports whether training should
// stop.
func (es *EarlyStopping) Update(iteration int, score float64) bool {
	if !es.Enabled {
		return false
	}

	if score < es.BestScore {
		es.BestScore = score
		es.BestIteration = iteration
		es.RoundsNoImprove = 0
	} else {
		es.RoundsNoImprove++
	}
	return es.RoundsNoImprove >= es.Rounds
}

// ShouldStop reports whether the improvement budget is exhausted.
func (es *EarlyStopping) ShouldStop() bool {
	if !es.Enabled {
		return false
	}
	return es.RoundsNoImprove >= es.Rounds
}
