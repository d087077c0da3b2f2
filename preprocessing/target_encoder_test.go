package preprocessing

import (
	"math"
	"testing"

	"rentsignal/dataset"
	"rentsignal/pkg/errors"
)

func TestSmoothingWeight(t *testing.T) {
	threshold := 13.0

	// Strictly increasing in count, bounded in (0, 1).
	prev := 0.0
	for count := 0.0; count <= 100; count++ {
		w := SmoothingWeight(count, threshold)
		if w <= 0 || w >= 1 {
			t.Fatalf("SmoothingWeight(%v) = %v, want in (0, 1)", count, w)
		}
		if w <= prev && count > 0 {
			t.Fatalf("SmoothingWeight not increasing at count=%v: %v <= %v", count, w, prev)
		}
		prev = w
	}

	// The weight crosses one half exactly at the threshold.
	if w := SmoothingWeight(threshold, threshold); math.Abs(w-0.5) > 1e-12 {
		t.Errorf("SmoothingWeight(threshold) = %v, want 0.5", w)
	}
}

// categoryCounts describes one category's label histogram, in class-index
// order (high, medium, low).
type categoryCounts struct {
	category string
	counts   [3]int
}

// repeat builds a categorical column and label vector, rows emitted in the
// given order so positions are deterministic.
func repeat(groups []categoryCounts) ([]string, []int) {
	var cats []string
	var labels []int
	for _, g := range groups {
		for class, n := range g.counts {
			for i := 0; i < n; i++ {
				cats = append(cats, g.category)
				labels = append(labels, class)
			}
		}
	}
	return cats, labels
}

func TestTargetEncoderUnseenFallsBackToGlobalShare(t *testing.T) {
	cats, labels := repeat([]categoryCounts{
		{"a", [3]int{2, 1, 1}}, // high, medium, low counts
		{"b", [3]int{0, 2, 2}},
	})

	enc := NewTargetEncoder("manager_id", 5, 1)
	enc.JitterScale = 0
	if err := enc.Fit(cats, labels); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	out, err := enc.Transform([]string{"never-seen"})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	globalHigh, globalMed := enc.GlobalShares()
	if got := out.At(0, 0); got != globalHigh {
		t.Errorf("unseen high share = %v, want global %v", got, globalHigh)
	}
	if got := out.At(0, 1); got != globalMed {
		t.Errorf("unseen medium share = %v, want global %v", got, globalMed)
	}

	// Sanity on the global shares themselves: 2 high and 3 medium of 8.
	if math.Abs(globalHigh-0.25) > 1e-12 || math.Abs(globalMed-0.375) > 1e-12 {
		t.Errorf("global shares = (%v, %v), want (0.25, 0.375)", globalHigh, globalMed)
	}
}

func TestTargetEncoderFrequentCategoryApproachesEmpiricalShare(t *testing.T) {
	// 400 listings, 300 high and 100 medium: far above the threshold the
	// smoothing weight is ~1 and the output is the raw share.
	cats, labels := repeat([]categoryCounts{
		{"big", [3]int{300, 100, 0}},
		{"other", [3]int{1, 1, 2}},
	})

	enc := NewTargetEncoder("manager_id", 13, 1)
	enc.JitterScale = 0
	out, err := enc.FitTransform(cats, labels)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}

	// First row belongs to "big".
	if got, want := out.At(0, 0), 0.75; math.Abs(got-want) > 1e-6 {
		t.Errorf("frequent high share = %v, want ~%v", got, want)
	}
	if got, want := out.At(0, 1), 0.25; math.Abs(got-want) > 1e-6 {
		t.Errorf("frequent medium share = %v, want ~%v", got, want)
	}
}

func TestTargetEncoderRareCategoryRegressesToGlobal(t *testing.T) {
	cats, labels := repeat([]categoryCounts{
		{"big", [3]int{200, 100, 100}},
		{"rare", [3]int{1, 0, 0}}, // 100% empirical high share, but a single row
	})

	enc := NewTargetEncoder("building_id", 13, 1)
	enc.JitterScale = 0
	if err := enc.Fit(cats, labels); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	out, err := enc.Transform([]string{"rare"})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	globalHigh, _ := enc.GlobalShares()
	got := out.At(0, 0)
	// lambda(1) with threshold 13 is ~6e-6: the blend sits essentially on
	// the global share, far from the raw share of 1.0.
	if math.Abs(got-globalHigh) > 1e-3 {
		t.Errorf("rare category share = %v, want near global %v", got, globalHigh)
	}
}

func TestTargetEncoderJitterIsSeededAndBounded(t *testing.T) {
	cats, labels := repeat([]categoryCounts{
		{"a", [3]int{30, 20, 10}},
		{"b", [3]int{5, 15, 20}},
	})

	fit := func(seed int64) [2]float64 {
		enc := NewTargetEncoder("manager_id", 13, seed)
		out, err := enc.FitTransform(cats, labels)
		if err != nil {
			t.Fatalf("FitTransform: %v", err)
		}
		return [2]float64{out.At(0, 0), out.At(0, 1)}
	}

	first := fit(7)
	second := fit(7)
	if first != second {
		t.Errorf("same seed produced different encodings: %v vs %v", first, second)
	}

	// Jitter stays within 0.5% of the unjittered statistic.
	plain := NewTargetEncoder("manager_id", 13, 7)
	plain.JitterScale = 0
	out, err := plain.FitTransform(cats, labels)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	for col := 0; col < 2; col++ {
		base := out.At(0, col)
		if rel := math.Abs(first[col]-base) / base; rel > 0.005 {
			t.Errorf("jitter moved column %d by %v, want <= 0.005", col, rel)
		}
	}
}

func TestTargetEncoderNotFitted(t *testing.T) {
	enc := NewTargetEncoder("manager_id", 13, 1)
	if _, err := enc.Transform([]string{"a"}); err == nil {
		t.Fatal("Transform before Fit should fail")
	} else {
		var nf *errors.NotFittedError
		if !errors.As(err, &nf) {
			t.Errorf("want NotFittedError, got %v", err)
		}
	}
}

func TestManagerSkill(t *testing.T) {
	managers, labels := repeat([]categoryCounts{
		{"good", [3]int{6, 2, 2}}, // skill 2*0.6 + 0.2 = 1.4
		{"bad", [3]int{0, 0, 10}},
		{"tiny", [3]int{2, 0, 0}}, // below threshold, gets the mean skill
	})

	skill := NewManagerSkill(5)
	if err := skill.Fit(managers, labels); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	out, err := skill.Transform([]string{"good", "bad", "tiny", "unseen"})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if got := out.At(0, 0); math.Abs(got-1.4) > 1e-12 {
		t.Errorf("good skill = %v, want 1.4", got)
	}
	if got := out.At(1, 0); got != 0 {
		t.Errorf("bad skill = %v, want 0", got)
	}
	wantMean := (1.4 + 0.0) / 2
	if got := out.At(2, 0); math.Abs(got-wantMean) > 1e-12 {
		t.Errorf("infrequent manager skill = %v, want mean %v", got, wantMean)
	}
	if got := out.At(3, 0); math.Abs(got-wantMean) > 1e-12 {
		t.Errorf("unseen manager skill = %v, want mean %v", got, wantMean)
	}
}

func TestTargetEncoderLabelOutOfRange(t *testing.T) {
	enc := NewTargetEncoder("manager_id", 13, 1)
	err := enc.Fit([]string{"a"}, []int{dataset.NumClasses})
	if err == nil {
		t.Fatal("Fit with out-of-range label should fail")
	}
}
