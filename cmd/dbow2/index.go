package main

import (
	"github.com/spf13/cobra"

	dbow2 "github.com/AutonomousFieldRoboticsLab/DBoW2"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/persist"
)

var (
	indexVocPath     string
	indexOutPath     string
	indexDescLength  int
	indexDirectIndex int
)

var indexCmd = &cobra.Command{
	Use:   "index [flags] files...",
	Short: "Build a database from descriptor files",
	Long: `Build an inverted-index database over a trained vocabulary and store it,
vocabulary included, as a single file. Entry ids follow the sorted file
order, starting at 0.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	f := indexCmd.Flags()
	f.StringVar(&indexVocPath, "voc", "voc.dbw2", "trained vocabulary file")
	f.StringVarP(&indexOutPath, "out", "o", "db.dbw2", "output database file")
	f.IntVar(&indexDescLength, "descriptor-length", 32, "descriptor length in bytes")
	f.IntVar(&indexDirectIndex, "direct-index", -1, "direct index levels (-1 disables)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx := cmd.Context()

	trait, err := dbow2.NewBinary(indexDescLength)
	if err != nil {
		return err
	}
	voc, err := persist.LoadVocabularyFile(indexVocPath, trait)
	if err != nil {
		return err
	}

	var opts []dbow2.DatabaseOption
	if indexDirectIndex >= 0 {
		opts = append(opts, dbow2.WithDirectIndex(indexDirectIndex))
	}
	db := dbow2.NewDatabase(voc, opts...)

	paths, err := expandArgs(args)
	if err != nil {
		return err
	}
	for _, path := range paths {
		ds, err := readDescriptorFile(path, trait)
		if err != nil {
			return err
		}
		id, err := db.Add(ds)
		logger.LogAdd(ctx, id, len(ds), err)
		if err != nil {
			return err
		}
	}

	if err := persist.SaveDatabaseFile(indexOutPath, db); err != nil {
		logger.LogSave(ctx, indexOutPath, err)
		return err
	}
	logger.LogSave(ctx, indexOutPath, nil)
	return nil
}
