// Package config loads the pipeline configuration: YAML file if present,
// then environment overrides.
package config

import (
	"os"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"rentsignal/booster"
	"rentsignal/pkg/errors"
)

// Config holds every knob of a pipeline run.
type Config struct {
	Data       DataConfig       `yaml:"data"`
	Training   TrainingConfig   `yaml:"training"`
	Booster    booster.Params   `yaml:"booster"`
	Encoders   EncoderConfig    `yaml:"encoders"`
	Vectorizer VectorizerConfig `yaml:"vectorizer"`
	LogLevel   string           `yaml:"logLevel" env:"RENTSIGNAL_LOG_LEVEL"`
}

// DataConfig locates the input corpora and the output directory.
type DataConfig struct {
	TrainPath string `yaml:"trainPath" env:"RENTSIGNAL_TRAIN_PATH"`
	TestPath  string `yaml:"testPath" env:"RENTSIGNAL_TEST_PATH"`
	OutputDir string `yaml:"outputDir" env:"RENTSIGNAL_OUTPUT_DIR"`
}

// TrainingConfig selects holdout validation or full-train submission mode.
type TrainingConfig struct {
	Holdout         bool    `yaml:"holdout" env:"RENTSIGNAL_HOLDOUT"`
	HoldoutFraction float64 `yaml:"holdoutFraction"`
	Seed            int64   `yaml:"seed"`
	// SubmissionRounds caps boosting when training on the full set, where
	// no watchlist can stop early.
	SubmissionRounds int `yaml:"submissionRounds"`
}

// EncoderConfig parameterizes the categorical encoders.
type EncoderConfig struct {
	// TargetThreshold is the frequency where the smoothing weight crosses
	// one half.
	TargetThreshold float64 `yaml:"targetThreshold"`
	// JitterScale is the relative jitter applied to fitted statistics.
	JitterScale float64 `yaml:"jitterScale"`
	// SkillThreshold is the minimum listing count for a manager to keep
	// their own skill statistic.
	SkillThreshold int `yaml:"skillThreshold"`
	// ManagerSkill toggles the manager-skill branch.
	ManagerSkill bool `yaml:"managerSkill"`
}

// VectorizerConfig parameterizes the tag count vectorizer.
type VectorizerConfig struct {
	MaxFeatures int `yaml:"maxFeatures"`
}

// Default returns the reference-run configuration.
func Default() Config {
	return Config{
		Data: DataConfig{
			TrainPath: "input/train.json",
			TestPath:  "input/test.json",
			OutputDir: "output",
		},
		Training: TrainingConfig{
			Holdout:          true,
			HoldoutFraction:  0.33,
			Seed:             42,
			SubmissionRounds: 1000,
		},
		Booster: booster.DefaultParams(),
		Encoders: EncoderConfig{
			TargetThreshold: 13,
			JitterScale:     0.01,
			SkillThreshold:  5,
			ManagerSkill:    true,
		},
		Vectorizer: VectorizerConfig{MaxFeatures: 400},
		LogLevel:   "info",
	}
}

// Load reads the YAML file at path (when non-empty) over the defaults, then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "config.Load: read %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "config.Load: parse %s", path)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, "config.Load: environment overrides")
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Data.TrainPath == "" {
		return errors.NewValidationError("data.trainPath", "must not be empty", c.Data.TrainPath)
	}
	if c.Data.OutputDir == "" {
		return errors.NewValidationError("data.outputDir", "must not be empty", c.Data.OutputDir)
	}
	if c.Training.HoldoutFraction <= 0 || c.Training.HoldoutFraction >= 1 {
		return errors.NewValidationError("training.holdoutFraction", "must be in (0, 1)", c.Training.HoldoutFraction)
	}
	if c.Encoders.TargetThreshold <= 0 {
		return errors.NewValidationError("encoders.targetThreshold", "must be > 0", c.Encoders.TargetThreshold)
	}
	if c.Vectorizer.MaxFeatures <= 0 {
		return errors.NewValidationError("vectorizer.maxFeatures", "must be > 0", c.Vectorizer.MaxFeatures)
	}
	return nil
}
