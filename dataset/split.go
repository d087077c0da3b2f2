package dataset

import (
	"math/rand"
	"sort"

	"rentsignal/pkg/errors"
)

// StratifiedHoldout splits row indices into train and validation sets while
// preserving the class distribution. The split is deterministic for a given
// seed.
func StratifiedHoldout(labels []int, testFraction float64, seed int64) (trainIdx, testIdx []int, err error) {
	if len(labels) == 0 {
		return nil, nil, errors.NewModelError("dataset.StratifiedHoldout", "no labels", errors.ErrEmptyData)
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, errors.NewValidationError("testFraction", "must be in (0, 1)", testFraction)
	}

	byClass := map[int][]int{}
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}

	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	for _, c := range classes {
		indices := byClass[c]
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		nTest := int(float64(len(indices)) * testFraction)
		testIdx = append(testIdx, indices[:nTest]...)
		trainIdx = append(trainIdx, indices[nTest:]...)
	}

	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return trainIdx, testIdx, nil
}

// Select picks the labeled values at the given indices.
func Select(labels []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, r := range idx {
		out[i] = labels[r]
	}
	return out
}
