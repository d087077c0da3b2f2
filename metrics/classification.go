// Package metrics evaluates classifier predictions.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"rentsignal/pkg/errors"
)

// probabilityClip keeps log arguments away from zero, matching the usual
// log-loss clipping.
const probabilityClip = 1e-15

// LogLoss computes the mean multiclass cross-entropy of predicted
// probabilities against true class indices. Probabilities are clipped to
// [1e-15, 1-1e-15].
func LogLoss(yTrue []int, proba mat.Matrix) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("LogLoss", "empty labels")
	}
	rows, cols := proba.Dims()
	if rows != n {
		return 0, errors.NewDimensionError("LogLoss", n, rows, 0)
	}

	var total float64
	for i, label := range yTrue {
		if label < 0 || label >= cols {
			return 0, errors.NewValueError("LogLoss", "label out of range")
		}
		p := proba.At(i, label)
		if p < probabilityClip {
			p = probabilityClip
		}
		if p > 1-probabilityClip {
			p = 1 - probabilityClip
		}
		total += -math.Log(p)
	}
	return total / float64(n), nil
}

// Accuracy computes the fraction of rows whose argmax probability matches
// the true class.
func Accuracy(yTrue []int, proba mat.Matrix) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty labels")
	}
	rows, cols := proba.Dims()
	if rows != n {
		return 0, errors.NewDimensionError("Accuracy", n, rows, 0)
	}

	correct := 0
	for i, label := range yTrue {
		if label < 0 || label >= cols {
			return 0, errors.NewValueError("Accuracy", "label out of range")
		}
		best, bestP := 0, proba.At(i, 0)
		for c := 1; c < cols; c++ {
			if p := proba.At(i, c); p > bestP {
				best, bestP = c, p
			}
		}
		if best == label {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}
