// Package submission writes the run artifacts: the probability CSV, the
// serialized model and the feature-importance sidecar, all stamped with the
// validation score and run timestamp.
package submission

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"rentsignal/booster"
	"rentsignal/dataset"
	"rentsignal/pkg/errors"
)

const stampLayout = "2006-01-02-1504"

// Writer places run artifacts under OutputDir.
type Writer struct {
	OutputDir string
}

// NewWriter creates a writer, creating OutputDir if needed.
func NewWriter(outputDir string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "submission.NewWriter: create %s", outputDir)
	}
	return &Writer{OutputDir: outputDir}, nil
}

// stamp renders the score/timestamp suffix shared by all artifacts.
func stamp(score float64, now time.Time) string {
	return fmt.Sprintf("%.4f_%s", score, now.Format(stampLayout))
}

// WriteSubmission writes the probability CSV (header high,medium,low,
// listing_id) and returns its path.
func (w *Writer) WriteSubmission(score float64, now time.Time, listingIDs []int64, proba *mat.Dense) (string, error) {
	rows, cols := proba.Dims()
	if rows != len(listingIDs) {
		return "", errors.NewDimensionError("submission.WriteSubmission", len(listingIDs), rows, 0)
	}
	if cols != dataset.NumClasses {
		return "", errors.NewDimensionError("submission.WriteSubmission", dataset.NumClasses, cols, 1)
	}

	path := filepath.Join(w.OutputDir, "submit_"+stamp(score, now)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "submission.WriteSubmission: create %s", path)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"high", "medium", "low", "listing_id"}); err != nil {
		return "", errors.Wrap(err, "submission.WriteSubmission: header")
	}
	record := make([]string, 4)
	for i := 0; i < rows; i++ {
		record[0] = strconv.FormatFloat(proba.At(i, dataset.ClassHigh), 'f', -1, 64)
		record[1] = strconv.FormatFloat(proba.At(i, dataset.ClassMedium), 'f', -1, 64)
		record[2] = strconv.FormatFloat(proba.At(i, dataset.ClassLow), 'f', -1, 64)
		record[3] = strconv.FormatInt(listingIDs[i], 10)
		if err := cw.Write(record); err != nil {
			return "", errors.Wrapf(err, "submission.WriteSubmission: row %d", i)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", errors.Wrap(err, "submission.WriteSubmission: flush")
	}
	return path, nil
}

// WriteModel serializes the model next to the submission and returns its
// path.
func (w *Writer) WriteModel(score float64, now time.Time, model *booster.Model) (string, error) {
	path := filepath.Join(w.OutputDir, ".model_"+stamp(score, now)+".model")
	if err := model.SaveToFile(path); err != nil {
		return "", err
	}
	return path, nil
}

// WriteImportance writes the per-feature importance percentages as CSV,
// highest first.
func (w *Writer) WriteImportance(score float64, now time.Time, names []string, importance []float64) (string, error) {
	if len(names) != len(importance) {
		return "", errors.NewDimensionError("submission.WriteImportance", len(names), len(importance), 0)
	}

	order := make([]int, len(importance))
	for i := range order {
		order[i] = i
	}
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			if importance[order[j]] > importance[order[i]] {
				order[i], order[j] = order[j], order[i]
			}
		}
	}

	path := filepath.Join(w.OutputDir, "importance_"+stamp(score, now)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "submission.WriteImportance: create %s", path)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"feature", "importance_pct"}); err != nil {
		return "", errors.Wrap(err, "submission.WriteImportance: header")
	}
	for _, idx := range order {
		if importance[idx] == 0 {
			continue
		}
		rec := []string{names[idx], strconv.FormatFloat(importance[idx], 'f', 4, 64)}
		if err := cw.Write(rec); err != nil {
			return "", errors.Wrap(err, "submission.WriteImportance: row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", errors.Wrap(err, "submission.WriteImportance: flush")
	}
	return path, nil
}
