package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Training.Seed != 42 || cfg.Training.HoldoutFraction != 0.33 {
		t.Errorf("training defaults = %+v", cfg.Training)
	}
	if !cfg.Training.Holdout {
		t.Error("holdout mode should default on")
	}
	if cfg.Encoders.TargetThreshold != 13 || cfg.Encoders.JitterScale != 0.01 {
		t.Errorf("encoder defaults = %+v", cfg.Encoders)
	}
	if cfg.Vectorizer.MaxFeatures != 400 {
		t.Errorf("vectorizer defaults = %+v", cfg.Vectorizer)
	}
	if cfg.Booster.NumRounds != 2000 || cfg.Booster.EarlyStopping != 50 {
		t.Errorf("booster defaults = %+v", cfg.Booster)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Data.TrainPath != "input/train.json" {
		t.Errorf("TrainPath = %s", cfg.Data.TrainPath)
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
data:
  trainPath: corpus/train.json
  outputDir: runs
training:
  holdout: false
  submissionRounds: 500
booster:
  maxDepth: 6
encoders:
  targetThreshold: 20
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Data.TrainPath != "corpus/train.json" || cfg.Data.OutputDir != "runs" {
		t.Errorf("data = %+v", cfg.Data)
	}
	if cfg.Training.Holdout {
		t.Error("holdout should be overridden to false")
	}
	if cfg.Training.SubmissionRounds != 500 {
		t.Errorf("SubmissionRounds = %d, want 500", cfg.Training.SubmissionRounds)
	}
	if cfg.Booster.MaxDepth != 6 {
		t.Errorf("MaxDepth = %d, want 6", cfg.Booster.MaxDepth)
	}
	if cfg.Encoders.TargetThreshold != 20 {
		t.Errorf("TargetThreshold = %v, want 20", cfg.Encoders.TargetThreshold)
	}
	// Untouched fields keep their defaults.
	if cfg.Training.Seed != 42 || cfg.Vectorizer.MaxFeatures != 400 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("RENTSIGNAL_TRAIN_PATH", "/data/train.json")
	t.Setenv("RENTSIGNAL_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Data.TrainPath != "/data/train.json" {
		t.Errorf("TrainPath = %s, want env override", cfg.Data.TrainPath)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
}

func TestLoadValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("training:\n  holdoutFraction: 1.5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("holdout fraction outside (0, 1) should fail")
	}

	if err := os.WriteFile(path, []byte("data:\n  trainPath: \"\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("empty train path should fail")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing config file should fail")
	}
}
