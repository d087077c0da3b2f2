package pipeline

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"rentsignal/dataset"
	"rentsignal/preprocessing"
)

func fixtureTable(t *testing.T) (*dataset.Table, []int) {
	t.Helper()
	tbl := dataset.NewTable(4)
	set := func(err error) {
		if err != nil {
			t.Fatalf("build table: %v", err)
		}
	}
	set(tbl.SetNumeric("price", []float64{3000, 2400, 1800, 5200}))
	set(tbl.SetNumeric("bedrooms", []float64{2, 1, 0, 3}))
	set(tbl.SetNumeric("manager_id_code", []float64{0, 0, 1, 2}))
	set(tbl.SetString("manager_id", []string{"m1", "m1", "m2", "m3"}))
	set(tbl.SetString("features", []string{
		"Doorman Elevator",
		"Doorman",
		"Hardwood_Floors",
		"Elevator Hardwood_Floors",
	}))
	labels := []int{dataset.ClassHigh, dataset.ClassMedium, dataset.ClassLow, dataset.ClassLow}
	return tbl, labels
}

func TestColumnExtractor(t *testing.T) {
	tbl, labels := fixtureTable(t)
	ex := NewColumnExtractor([]string{"price", "bedrooms"})
	if err := ex.Fit(tbl, labels); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	out, err := ex.Transform(tbl)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	r, c := out.Dims()
	if r != 4 || c != 2 {
		t.Fatalf("dims = (%d, %d), want (4, 2)", r, c)
	}
	if out.At(3, 0) != 5200 || out.At(2, 1) != 0 {
		t.Errorf("extracted values wrong: %v", mat.Formatted(out))
	}
}

func TestCategoricalOneHot(t *testing.T) {
	tbl, labels := fixtureTable(t)
	oh := NewCategoricalOneHot([]string{"manager_id_code"})
	if err := oh.Fit(tbl, labels); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	out, err := oh.Transform(tbl)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	_, c := out.Dims()
	if c != 3 {
		t.Fatalf("one-hot width = %d, want 3", c)
	}
	// Rows 0 and 1 share code 0.
	if out.At(0, 0) != 1 || out.At(1, 0) != 1 || out.At(3, 2) != 1 {
		t.Errorf("one-hot block wrong: %v", mat.Formatted(out))
	}
}

func TestTargetAveragingBranch(t *testing.T) {
	tbl, labels := fixtureTable(t)
	br := NewTargetAveraging("manager_id", 13, 42)
	br.Encoder.JitterScale = 0
	if err := br.Fit(tbl, labels); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	out, err := br.Transform(tbl)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	r, c := out.Dims()
	if r != 4 || c != 2 {
		t.Fatalf("dims = (%d, %d), want (4, 2)", r, c)
	}
	// Rows sharing a manager share an encoding.
	if out.At(0, 0) != out.At(1, 0) || out.At(0, 1) != out.At(1, 1) {
		t.Error("rows of the same manager should encode identically")
	}
}

func TestSkillBranch(t *testing.T) {
	tbl, labels := fixtureTable(t)
	br := NewSkillBranch("manager_id", 2)
	if err := br.Fit(tbl, labels); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	out, err := br.Transform(tbl)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	// m1 has one high and one medium listing: skill 2*0.5 + 0.5 = 1.5.
	if got := out.At(0, 0); got != 1.5 {
		t.Errorf("m1 skill = %v, want 1.5", got)
	}
}

func TestFeatureUnion(t *testing.T) {
	tbl, labels := fixtureTable(t)

	target := NewTargetAveraging("manager_id", 13, 42)
	target.Encoder.JitterScale = 0
	union := NewFeatureUnion(
		NewColumnExtractor([]string{"price", "bedrooms"}),
		NewCategoricalOneHot([]string{"manager_id_code"}),
		target,
		NewTagVectorizer("features", 400),
	)

	X, err := union.FitTransform(tbl, labels)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	rows, cols := X.Dims()
	if rows != 4 {
		t.Fatalf("rows = %d, want 4", rows)
	}
	// 2 continuous + 3 one-hot + 2 target + 3 tag terms.
	if cols != 10 {
		t.Fatalf("cols = %d, want 10", cols)
	}

	// The continuous block leads, untouched.
	if X.At(0, 0) != 3000 || X.At(0, 1) != 2 {
		t.Errorf("continuous block wrong: first row starts %v %v", X.At(0, 0), X.At(0, 1))
	}

	// Transform on a fresh table reuses the fitted state.
	again, err := union.Transform(tbl)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !mat.Equal(X, again) {
		t.Error("Transform after FitTransform should reproduce the matrix")
	}
}

func TestComposedExtractThenOneHot(t *testing.T) {
	tbl, labels := fixtureTable(t)

	// Extraction followed by one-hot expansion matches the fused branch.
	composed := NewComposed(
		NewColumnExtractor([]string{"manager_id_code"}),
		preprocessing.NewOneHotEncoder(),
	)
	if err := composed.Fit(tbl, labels); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	got, err := composed.Transform(tbl)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	fused := NewCategoricalOneHot([]string{"manager_id_code"})
	if err := fused.Fit(tbl, labels); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	want, err := fused.Transform(tbl)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !mat.Equal(got, want) {
		t.Errorf("composed = %v, want %v", mat.Formatted(got), mat.Formatted(want))
	}
}

func TestFeatureUnionNoBranches(t *testing.T) {
	tbl, labels := fixtureTable(t)
	if err := NewFeatureUnion().Fit(tbl, labels); err == nil {
		t.Error("empty union should fail")
	}
}

func TestHStack(t *testing.T) {
	a := mat.NewDense(2, 1, []float64{1, 2})
	b := mat.NewDense(2, 2, []float64{3, 4, 5, 6})

	out, err := HStack(a, b)
	if err != nil {
		t.Fatalf("HStack: %v", err)
	}
	want := mat.NewDense(2, 3, []float64{1, 3, 4, 2, 5, 6})
	if !mat.Equal(out, want) {
		t.Errorf("HStack = %v, want %v", mat.Formatted(out), mat.Formatted(want))
	}

	if _, err := HStack(a, mat.NewDense(3, 1, nil)); err == nil {
		t.Error("row mismatch should fail")
	}
	if _, err := HStack(); err == nil {
		t.Error("no blocks should fail")
	}
}
