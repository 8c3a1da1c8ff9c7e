package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	dbow2 "github.com/AutonomousFieldRoboticsLab/DBoW2"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/persist"
)

var (
	queryDBPath     string
	queryDescLength int
	queryMaxResults int
)

var queryCmd = &cobra.Command{
	Use:   "query [flags] file",
	Short: "Rank database entries against a query descriptor file",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryDBPath, "db", "db.dbw2", "database file")
	f.IntVar(&queryDescLength, "descriptor-length", 32, "descriptor length in bytes")
	f.IntVarP(&queryMaxResults, "max-results", "n", 10, "result count (0 for all)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx := cmd.Context()

	trait, err := dbow2.NewBinary(queryDescLength)
	if err != nil {
		return err
	}

	start := time.Now()
	db, err := persist.LoadDatabaseFile(queryDBPath, trait, persist.WithProgress(progressPrinter()))
	logger.LogLoad(ctx, queryDBPath, time.Since(start), err)
	if err != nil {
		return err
	}

	ds, err := readDescriptorFile(args[0], trait)
	if err != nil {
		return err
	}

	start = time.Now()
	results, err := db.Query(ds, queryMaxResults)
	logger.LogQuery(ctx, len(results), time.Since(start), err)
	if err != nil {
		return err
	}

	for rank, r := range results {
		fmt.Printf("%3d  entry %-6d score %.6f\n", rank+1, r.Entry, r.Score)
	}
	return nil
}
