package submission

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	"rentsignal/booster"
)

var fixedTime = time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)

func TestWriteSubmission(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	proba := mat.NewDense(2, 3, []float64{
		0.5, 0.3, 0.2,
		0.1, 0.2, 0.7,
	})
	path, err := w.WriteSubmission(0.5123, fixedTime, []int64{7211212, 7150865}, proba)
	if err != nil {
		t.Fatalf("WriteSubmission: %v", err)
	}

	if want := filepath.Join(dir, "submit_0.5123_2026-08-25-0930.csv"); path != want {
		t.Errorf("path = %s, want %s", path, want)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2 rows", len(records))
	}
	header := records[0]
	if header[0] != "high" || header[1] != "medium" || header[2] != "low" || header[3] != "listing_id" {
		t.Errorf("header = %v, want [high medium low listing_id]", header)
	}
	if records[1][0] != "0.5" || records[1][3] != "7211212" {
		t.Errorf("first row = %v", records[1])
	}
	if records[2][2] != "0.7" || records[2][3] != "7150865" {
		t.Errorf("second row = %v", records[2])
	}
}

func TestWriteSubmissionDimensionChecks(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	if _, err := w.WriteSubmission(0.5, fixedTime, []int64{1}, mat.NewDense(2, 3, nil)); err == nil {
		t.Error("row mismatch should fail")
	}
	if _, err := w.WriteSubmission(0.5, fixedTime, []int64{1}, mat.NewDense(1, 2, nil)); err == nil {
		t.Error("wrong class count should fail")
	}
}

func TestWriteModel(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	model := &booster.Model{
		NumClass:    3,
		NumFeatures: 2,
		BestScore:   0.6021,
	}
	path, err := w.WriteModel(0.6021, fixedTime, model)
	if err != nil {
		t.Fatalf("WriteModel: %v", err)
	}
	if want := filepath.Join(dir, ".model_0.6021_2026-08-25-0930.model"); path != want {
		t.Errorf("path = %s, want %s", path, want)
	}

	loaded, err := booster.LoadModelFromFile(path)
	if err != nil {
		t.Fatalf("LoadModelFromFile: %v", err)
	}
	if loaded.NumClass != 3 || loaded.BestScore != 0.6021 {
		t.Errorf("loaded model = %+v", loaded)
	}
}

func TestWriteImportance(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	names := []string{"price", "bedrooms", "tag_doorman"}
	importance := []float64{30, 70, 0}
	path, err := w.WriteImportance(0.55, fixedTime, names, importance)
	if err != nil {
		t.Fatalf("WriteImportance: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	// Header, then non-zero features sorted by importance descending.
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[1][0] != "bedrooms" || records[2][0] != "price" {
		t.Errorf("order = [%s %s], want [bedrooms price]", records[1][0], records[2][0])
	}

	if _, err := w.WriteImportance(0.55, fixedTime, names, []float64{1}); err == nil {
		t.Error("length mismatch should fail")
	}
}

func TestNewWriterCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	if _, err := NewWriter(dir); err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("output directory not created: %v", err)
	}
}
