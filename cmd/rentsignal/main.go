// Command rentsignal runs the rental-listing interest pipeline: load the
// train/test corpora, engineer features, fit the encoding pipeline, train
// the boosted-tree classifier and, in submission mode, write the probability
// CSV and model artifacts.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"rentsignal/booster"
	"rentsignal/config"
	"rentsignal/dataset"
	"rentsignal/features"
	"rentsignal/metrics"
	"rentsignal/pipeline"
	"rentsignal/pkg/log"
	"rentsignal/preprocessing"
	"rentsignal/submission"
)

func main() {
	// Optional .env, mirroring the other listing tools.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("RENTSIGNAL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "rentsignal: %v\n", err)
		os.Exit(1)
	}
	log.SetupLogger(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("pipeline failed", log.ErrAttr(err))
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logger := log.GetLoggerWithName("pipeline")

	train, err := dataset.LoadListings(cfg.Data.TrainPath)
	if err != nil {
		return err
	}
	var test []dataset.Listing
	if cfg.Data.TestPath != "" {
		test, err = dataset.LoadListings(cfg.Data.TestPath)
		if err != nil {
			return err
		}
	}
	logger.Info("corpus loaded", "train_rows", len(train), "test_rows", len(test))

	labels, err := dataset.Labels(train)
	if err != nil {
		return err
	}

	// Group statistics and label encoding pool both corpora, as the
	// reference run does before splitting back.
	joint := make([]dataset.Listing, 0, len(train)+len(test))
	joint = append(joint, train...)
	joint = append(joint, test...)

	table, err := features.Engineer(joint)
	if err != nil {
		return err
	}
	codeFields, err := encodeCategoricals(table)
	if err != nil {
		return err
	}

	trainTable, err := table.Head(len(train))
	if err != nil {
		return err
	}
	testTable, err := table.Tail(len(train))
	if err != nil {
		return err
	}

	branches := buildBranches(cfg, codeFields)
	union := pipeline.NewFeatureUnion(branchTransformers(branches)...)

	if cfg.Training.Holdout {
		return runHoldout(cfg, logger, union, trainTable, labels)
	}
	return runSubmission(cfg, logger, union, branches, trainTable, testTable, labels, test)
}

// encodeCategoricals label-encodes the categorical string columns over the
// pooled corpus into numeric code columns for the one-hot branch.
func encodeCategoricals(table *dataset.Table) ([]string, error) {
	fields := features.CategoricalColumns()
	codeFields := make([]string, len(fields))
	for i, field := range fields {
		col, err := table.Strings(field)
		if err != nil {
			return nil, err
		}
		codes, err := preprocessing.NewLabelEncoder().FitTransform(col)
		if err != nil {
			return nil, err
		}
		codeFields[i] = field + "_code"
		if err := table.SetNumeric(codeFields[i], codes); err != nil {
			return nil, err
		}
	}
	return codeFields, nil
}

// branches keeps the typed branch handles so feature names can be resolved
// after fitting.
type branches struct {
	continuous *pipeline.ColumnExtractor
	onehot     *pipeline.CategoricalOneHot
	targets    []*pipeline.TargetAveraging
	skill      *pipeline.SkillBranch
	tags       *pipeline.TagVectorizer
}

func buildBranches(cfg config.Config, codeFields []string) *branches {
	b := &branches{
		continuous: pipeline.NewColumnExtractor(features.ContinuousColumns()),
		onehot:     pipeline.NewCategoricalOneHot(codeFields),
		tags:       pipeline.NewTagVectorizer(features.ColFeatureText, cfg.Vectorizer.MaxFeatures),
	}
	for _, column := range []string{features.ColManagerID, features.ColBuildingID, features.ColDisplayAddress} {
		b.targets = append(b.targets,
			pipeline.NewTargetAveraging(column, cfg.Encoders.TargetThreshold, cfg.Training.Seed))
	}
	for _, branch := range b.targets {
		branch.Encoder.JitterScale = cfg.Encoders.JitterScale
	}
	if cfg.Encoders.ManagerSkill {
		b.skill = pipeline.NewSkillBranch(features.ColManagerID, cfg.Encoders.SkillThreshold)
	}
	return b
}

func branchTransformers(b *branches) []pipeline.Transformer {
	out := []pipeline.Transformer{b.continuous, b.onehot}
	for _, t := range b.targets {
		out = append(out, t)
	}
	if b.skill != nil {
		out = append(out, b.skill)
	}
	out = append(out, b.tags)
	return out
}

// featureNames resolves the column names of the assembled matrix, in union
// order. Only valid after the union has been fitted.
func featureNames(b *branches) []string {
	names := append([]string(nil), b.continuous.Fields...)
	for j, field := range b.onehot.Fields {
		for _, cat := range b.onehot.Encoder.Categories[j] {
			names = append(names, field+"="+strconv.Itoa(cat))
		}
	}
	for _, t := range b.targets {
		names = append(names, "w_high_"+t.Column, "w_med_"+t.Column)
	}
	if b.skill != nil {
		names = append(names, "manager_skill")
	}
	for _, term := range b.tags.Vectorizer.FeatureNames() {
		names = append(names, "tag_"+term)
	}
	return names
}

func runHoldout(cfg config.Config, logger *slog.Logger, union *pipeline.FeatureUnion, trainTable *dataset.Table, labels []int) error {
	trainIdx, valIdx, err := dataset.StratifiedHoldout(labels, cfg.Training.HoldoutFraction, cfg.Training.Seed)
	if err != nil {
		return err
	}
	fitTable, err := trainTable.Slice(trainIdx)
	if err != nil {
		return err
	}
	valTable, err := trainTable.Slice(valIdx)
	if err != nil {
		return err
	}
	fitLabels := dataset.Select(labels, trainIdx)
	valLabels := dataset.Select(labels, valIdx)

	X, err := union.FitTransform(fitTable, fitLabels)
	if err != nil {
		return err
	}
	valX, err := union.Transform(valTable)
	if err != nil {
		return err
	}
	_, cols := X.Dims()
	logger.Info("feature matrix assembled", "rows", len(fitLabels), "cols", cols)

	model, err := booster.NewTrainer(cfg.Booster).FitWithValidation(X, fitLabels, valX, valLabels)
	if err != nil {
		return err
	}

	proba, err := model.PredictProba(valX)
	if err != nil {
		return err
	}
	logloss, err := metrics.LogLoss(valLabels, proba)
	if err != nil {
		return err
	}
	accuracy, err := metrics.Accuracy(valLabels, proba)
	if err != nil {
		return err
	}
	logger.Info("validation finished",
		"mlogloss", logloss,
		"accuracy", accuracy,
		"best_round", model.BestIteration,
		"rounds_kept", model.NumRounds())
	return nil
}

func runSubmission(cfg config.Config, logger *slog.Logger, union *pipeline.FeatureUnion, b *branches, trainTable, testTable *dataset.Table, labels []int, test []dataset.Listing) error {
	if len(test) == 0 {
		return fmt.Errorf("rentsignal: submission mode needs a test corpus (data.testPath)")
	}

	X, err := union.FitTransform(trainTable, labels)
	if err != nil {
		return err
	}
	testX, err := union.Transform(testTable)
	if err != nil {
		return err
	}

	params := cfg.Booster
	params.NumRounds = cfg.Training.SubmissionRounds
	params.EarlyStopping = 0
	model, err := booster.NewTrainer(params).Fit(X, labels)
	if err != nil {
		return err
	}
	model.FeatureNames = featureNames(b)

	proba, err := model.PredictProba(testX)
	if err != nil {
		return err
	}

	writer, err := submission.NewWriter(cfg.Data.OutputDir)
	if err != nil {
		return err
	}
	now := time.Now()
	listingIDs := make([]int64, len(test))
	for i, l := range test {
		listingIDs[i] = l.ListingID
	}

	subPath, err := writer.WriteSubmission(model.BestScore, now, listingIDs, proba)
	if err != nil {
		return err
	}
	modelPath, err := writer.WriteModel(model.BestScore, now, model)
	if err != nil {
		return err
	}
	impPath, err := writer.WriteImportance(model.BestScore, now, model.FeatureNames, model.FeatureImportance())
	if err != nil {
		return err
	}
	logger.Info("submission written",
		"submission", subPath,
		"model", modelPath,
		"importance", impPath,
		"train_mlogloss", model.BestScore)
	return nil
}
