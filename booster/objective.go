package booster

import "math"

// SoftmaxObjective implements multiclass cross-entropy over raw per-class
// scores. Gradient for class k is p_k - y_k, hessian p_k*(1-p_k) with a
// floor for numerical stability.
type SoftmaxObjective struct {
	numClasses int
}

// NewSoftmaxObjective creates the objective for the given class count.
func NewSoftmaxObjective(numClasses int) *SoftmaxObjective {
	return &SoftmaxObjective{numClasses: numClasses}
}

// Softmax computes a numerically stable softmax of the logits.
func Softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}

	expSum := 0.0
	probabilities := make([]float64, len(logits))
	for i, l := range logits {
		probabilities[i] = math.Exp(l - maxLogit)
		expSum += probabilities[i]
	}
	if expSum > 0 {
		for i := range probabilities {
			probabilities[i] /= expSum
		}
	}
	return probabilities
}

// GradHess computes gradients and hessians for every sample and class.
// raw is the flattened [numSamples * numClasses] score matrix.
func (o *SoftmaxObjective) GradHess(yTrue []int, raw []float64) (gradients, hessians []float64) {
	k := o.numClasses
	n := len(yTrue)
	gradients = make([]float64, n*k)
	hessians = make([]float64, n*k)

	logits := make([]float64, k)
	for i := 0; i < n; i++ {
		copy(logits, raw[i*k:(i+1)*k])
		probabilities := Softmax(logits)

		trueClass := yTrue[i]
		for c := 0; c < k; c++ {
			p := probabilities[c]
			g := p
			if c == trueClass {
				g = p - 1.0
			}
			h := p * (1.0 - p)
			if h < 1e-16 {
				h = 1e-16
			}
			gradients[i*k+c] = g
			hessians[i*k+c] = h
		}
	}
	return gradients, hessians
}

// Loss computes the mean multiclass cross-entropy over raw scores.
func (o *SoftmaxObjective) Loss(yTrue []int, raw []float64) float64 {
	k := o.numClasses
	n := len(yTrue)
	if n == 0 {
		return 0
	}

	total := 0.0
	for i := 0; i < n; i++ {
		logits := raw[i*k : (i+1)*k]

		maxLogit := logits[0]
		for _, l := range logits[1:] {
			if l > maxLogit {
				maxLogit = l
			}
		}
		logSumExp := 0.0
		for _, l := range logits {
			logSumExp += math.Exp(l - maxLogit)
		}
		logSumExp = math.Log(logSumExp) + maxLogit

		total += -(logits[yTrue[i]] - logSumExp)
	}
	return total / float64(n)
}

// Name returns the objective identifier.
func (o *SoftmaxObjective) Name() string {
	return "multi:softprob"
}
