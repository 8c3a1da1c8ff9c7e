// Command dbow2 trains visual vocabularies, indexes image descriptor sets
// and runs retrieval queries from the command line.
package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	dbow2 "github.com/AutonomousFieldRoboticsLab/DBoW2"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/bow"
)

var (
	flagVerbose  bool
	flagJSONLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "dbow2",
	Short: "Bag-of-words image retrieval over binary descriptors",
	Long: `dbow2 works with descriptor files: plain text, one binary descriptor per
line, each written as space-separated decimal bytes. One file holds the
descriptors of one image.

Typical flow:

  dbow2 train --config train.yaml 'corpus/*.desc'
  dbow2 index --voc voc.dbw2 --out db.dbw2 'corpus/*.desc'
  dbow2 query --db db.dbw2 query.desc
  dbow2 info db.dbw2`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "emit JSON logs")
}

func newLogger() *dbow2.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	if flagJSONLogs {
		return dbow2.NewJSONLogger(level)
	}
	return dbow2.NewTextLogger(level)
}

func parseWeighting(s string) (bow.WeightingType, error) {
	switch strings.ToLower(s) {
	case "tf-idf", "tfidf":
		return bow.TFIDF, nil
	case "tf":
		return bow.TF, nil
	case "idf":
		return bow.IDF, nil
	case "binary":
		return bow.Binary, nil
	default:
		return 0, fmt.Errorf("unknown weighting %q (want tf-idf, tf, idf or binary)", s)
	}
}

func parseScoring(s string) (bow.ScoringType, error) {
	switch strings.ToLower(s) {
	case "l1", "l1-norm":
		return bow.L1Norm, nil
	case "l2", "l2-norm":
		return bow.L2Norm, nil
	case "dot", "dot-product":
		return bow.DotProduct, nil
	case "bhattacharyya":
		return bow.Bhattacharyya, nil
	default:
		return 0, fmt.Errorf("unknown scoring %q (want l1, l2, dot or bhattacharyya)", s)
	}
}
