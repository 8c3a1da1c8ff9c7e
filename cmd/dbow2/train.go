package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	dbow2 "github.com/AutonomousFieldRoboticsLab/DBoW2"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/persist"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/vocab"
)

// trainConfig mirrors the train command flags; a YAML config file sets the
// defaults and explicit flags override it.
type trainConfig struct {
	K                int    `yaml:"k"`
	Depth            int    `yaml:"L"`
	Weighting        string `yaml:"weighting"`
	Scoring          string `yaml:"scoring"`
	DescriptorLength int    `yaml:"descriptorLength"`
	MaxIterations    int    `yaml:"maxIterations"`
	Parallelism      int    `yaml:"parallelism"`
	Output           string `yaml:"output"`
}

func defaultTrainConfig() trainConfig {
	return trainConfig{
		K:                10,
		Depth:            5,
		Weighting:        "tf-idf",
		Scoring:          "l1",
		DescriptorLength: 32,
		MaxIterations:    vocab.DefaultOptions.MaxIterations,
		Parallelism:      runtime.GOMAXPROCS(0),
		Output:           "voc.dbw2",
	}
}

var (
	trainCfgFile string
	trainDBPath  string
)

var trainCmd = &cobra.Command{
	Use:   "train [flags] files...",
	Short: "Train a vocabulary from descriptor files",
	Long: `Train a hierarchical vocabulary from descriptor files, one file per image.

The tree has k branches per node and L levels, giving up to k^L visual
words. Settings can come from a YAML config file; flags given explicitly
override it:

  k: 10
  L: 5
  weighting: tf-idf
  scoring: l1
  descriptorLength: 32
  output: voc.dbw2`,
	Args: cobra.MinimumNArgs(1),
}

func init() {
	cfg := defaultTrainConfig()
	f := trainCmd.Flags()
	f.StringVarP(&trainCfgFile, "config", "c", "", "YAML config file")
	f.IntVarP(&cfg.K, "branching", "k", cfg.K, "branching factor")
	f.IntVarP(&cfg.Depth, "levels", "L", cfg.Depth, "tree depth")
	f.StringVar(&cfg.Weighting, "weighting", cfg.Weighting, "weighting scheme (tf-idf, tf, idf, binary)")
	f.StringVar(&cfg.Scoring, "scoring", cfg.Scoring, "scoring scheme (l1, l2, dot, bhattacharyya)")
	f.IntVar(&cfg.DescriptorLength, "descriptor-length", cfg.DescriptorLength, "descriptor length in bytes")
	f.IntVar(&cfg.MaxIterations, "max-iterations", cfg.MaxIterations, "k-means iteration cap")
	f.IntVar(&cfg.Parallelism, "parallelism", cfg.Parallelism, "concurrent subtree builds")
	f.StringVarP(&cfg.Output, "out", "o", cfg.Output, "output file")
	f.StringVar(&trainDBPath, "db", "", "also index the training images and store the database here")
	trainCmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		return loadTrainConfig(cmd, &cfg)
	}
	trainCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runTrainWith(cmd, args, cfg)
	}
	rootCmd.AddCommand(trainCmd)
}

// loadTrainConfig folds the YAML file under the flags: file values apply
// only where the flag was left at its default.
func loadTrainConfig(cmd *cobra.Command, cfg *trainConfig) error {
	if trainCfgFile == "" {
		return nil
	}
	data, err := os.ReadFile(trainCfgFile)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	fromFile := *cfg
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("parse config %s: %w", trainCfgFile, err)
	}

	changed := cmd.Flags().Changed
	if !changed("branching") {
		cfg.K = fromFile.K
	}
	if !changed("levels") {
		cfg.Depth = fromFile.Depth
	}
	if !changed("weighting") {
		cfg.Weighting = fromFile.Weighting
	}
	if !changed("scoring") {
		cfg.Scoring = fromFile.Scoring
	}
	if !changed("descriptor-length") {
		cfg.DescriptorLength = fromFile.DescriptorLength
	}
	if !changed("max-iterations") {
		cfg.MaxIterations = fromFile.MaxIterations
	}
	if !changed("parallelism") {
		cfg.Parallelism = fromFile.Parallelism
	}
	if !changed("out") {
		cfg.Output = fromFile.Output
	}
	return nil
}

func runTrainWith(cmd *cobra.Command, args []string, cfg trainConfig) error {
	logger := newLogger()
	ctx := cmd.Context()

	weighting, err := parseWeighting(cfg.Weighting)
	if err != nil {
		return err
	}
	scoring, err := parseScoring(cfg.Scoring)
	if err != nil {
		return err
	}
	trait, err := dbow2.NewBinary(cfg.DescriptorLength)
	if err != nil {
		return err
	}

	paths, err := expandArgs(args)
	if err != nil {
		return err
	}
	images, err := readImages(paths, trait)
	if err != nil {
		return err
	}

	opts := dbow2.DefaultTrainOptions
	opts.MaxIterations = cfg.MaxIterations
	opts.Parallelism = cfg.Parallelism
	opts.Logger = logger.Logger

	start := time.Now()
	voc, err := dbow2.TrainWithOptions(ctx, trait, images, dbow2.Params{
		K:         cfg.K,
		Depth:     cfg.Depth,
		Weighting: weighting,
		Scoring:   scoring,
	}, opts)
	logger.LogTrain(ctx, len(images), vocSize(voc), time.Since(start), err)
	if err != nil {
		return err
	}

	if err := persist.SaveVocabularyFile(cfg.Output, voc); err != nil {
		logger.LogSave(ctx, cfg.Output, err)
		return err
	}
	logger.LogSave(ctx, cfg.Output, nil)

	if trainDBPath == "" {
		return nil
	}
	db := dbow2.NewDatabase(voc)
	for _, img := range images {
		id, err := db.Add(img)
		logger.LogAdd(ctx, id, len(img), err)
		if err != nil {
			return err
		}
	}
	if err := persist.SaveDatabaseFile(trainDBPath, db); err != nil {
		logger.LogSave(ctx, trainDBPath, err)
		return err
	}
	logger.LogSave(ctx, trainDBPath, nil)
	return nil
}

func vocSize(voc *dbow2.Vocabulary) int {
	if voc == nil {
		return 0
	}
	return voc.Size()
}
