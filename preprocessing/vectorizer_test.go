package preprocessing

import (
	"testing"

	"rentsignal/pkg/errors"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "lowercase and punctuation trim",
			doc:  "Hardwood_Floors Doorman! (Elevator)",
			want: []string{"hardwood_floors", "doorman", "elevator"},
		},
		{
			name: "stop words and short tokens dropped",
			doc:  "the cats on a mat",
			want: []string{"cats", "mat"},
		},
		{
			name: "nfkc folds width variants",
			doc:  "ｃａｔｓ",
			want: []string{"cats"},
		},
		{
			name: "empty document",
			doc:  "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.doc)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.doc, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Tokenize(%q) = %v, want %v", tt.doc, got, tt.want)
				}
			}
		})
	}
}

func TestCountVectorizerFitTransform(t *testing.T) {
	docs := []string{
		"doorman elevator doorman",
		"elevator dishwasher",
	}
	v := NewCountVectorizer(400)
	out, err := v.FitTransform(docs)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}

	// Columns are alphabetical: dishwasher, doorman, elevator.
	names := v.FeatureNames()
	want := []string{"dishwasher", "doorman", "elevator"}
	if len(names) != len(want) {
		t.Fatalf("FeatureNames = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("FeatureNames = %v, want %v", names, want)
		}
	}

	wantCounts := [][]float64{
		{0, 2, 1},
		{1, 0, 1},
	}
	for i, row := range wantCounts {
		for j, w := range row {
			if got := out.At(i, j); got != w {
				t.Errorf("count[%d][%d] = %v, want %v", i, j, got, w)
			}
		}
	}
}

func TestCountVectorizerMaxFeaturesKeepsMostFrequent(t *testing.T) {
	docs := []string{
		"doorman doorman doorman elevator elevator dishwasher",
	}
	v := NewCountVectorizer(2)
	if err := v.Fit(docs); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	names := v.FeatureNames()
	if len(names) != 2 {
		t.Fatalf("vocabulary size = %d, want 2", len(names))
	}
	// dishwasher (count 1) is pruned; retained terms come back sorted.
	if names[0] != "doorman" || names[1] != "elevator" {
		t.Errorf("FeatureNames = %v, want [doorman elevator]", names)
	}
}

func TestCountVectorizerUnseenTermsIgnored(t *testing.T) {
	v := NewCountVectorizer(400)
	if err := v.Fit([]string{"doorman elevator"}); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	out, err := v.Transform([]string{"doorman balcony balcony"})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	r, c := out.Dims()
	if r != 1 || c != 2 {
		t.Fatalf("dims = (%d, %d), want (1, 2)", r, c)
	}
	if out.At(0, 0) != 1 || out.At(0, 1) != 0 {
		t.Errorf("row = [%v %v], want [1 0]", out.At(0, 0), out.At(0, 1))
	}
}

func TestCountVectorizerNotFitted(t *testing.T) {
	_, err := NewCountVectorizer(400).Transform([]string{"doorman"})
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("want NotFittedError, got %v", err)
	}
}
