package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	dbow2 "github.com/AutonomousFieldRoboticsLab/DBoW2"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/persist"
)

var (
	infoLoad       bool
	infoDescLength int
	infoMaxWords   int
	infoYes        bool
)

var infoCmd = &cobra.Command{
	Use:   "info [flags] file",
	Short: "Summarize a stored vocabulary or database",
	Long: `Print the header and vocabulary shape of a stored file. This reads only
the leading scalars, so it is fast no matter how large the file is. With
--load the vocabulary is additionally loaded in full to verify it.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	f := infoCmd.Flags()
	f.BoolVar(&infoLoad, "load", false, "fully load the vocabulary to verify it")
	f.IntVar(&infoDescLength, "descriptor-length", 0, "descriptor length for --load (0 takes the stored value)")
	f.IntVar(&infoMaxWords, "max-words", 1_000_000, "refuse --load above this word count without --yes")
	f.BoolVar(&infoYes, "yes", false, "load regardless of size")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]
	info, err := persist.StatFile(path)
	if err != nil {
		return err
	}

	fmt.Printf("file:        %s\n", path)
	fmt.Printf("version:     %d\n", info.Version)
	fmt.Printf("codec:       %s\n", info.Codec)
	fmt.Printf("compression: %s\n", info.Compression)
	fmt.Printf("branching:   %d\n", info.K)
	fmt.Printf("depth:       %d\n", info.L)
	fmt.Printf("weighting:   %s\n", info.Weighting)
	fmt.Printf("scoring:     %s\n", info.Scoring)
	fmt.Printf("descriptor:  %d bytes\n", info.DescriptorLength)
	fmt.Printf("nodes:       %d\n", info.NodeCount)
	fmt.Printf("words:       %d\n", info.WordCount)

	if !infoLoad {
		return nil
	}
	if info.WordCount > infoMaxWords && !infoYes {
		return fmt.Errorf("%d words exceeds --max-words %d; pass --yes to load anyway", info.WordCount, infoMaxWords)
	}

	length := infoDescLength
	if length == 0 {
		length = info.DescriptorLength
	}
	trait, err := dbow2.NewBinary(length)
	if err != nil {
		return err
	}

	logger := newLogger()
	start := time.Now()
	voc, err := persist.LoadVocabularyFile(path, trait, persist.WithProgress(progressPrinter()))
	logger.LogLoad(cmd.Context(), path, time.Since(start), err)
	if err != nil {
		return err
	}
	fmt.Printf("loaded:      %d words, %d nodes\n", voc.Size(), voc.NodeCount())
	return nil
}

// progressPrinter writes stage progress to stderr, keeping stdout clean for
// the actual command output.
func progressPrinter() persist.ProgressFunc {
	return func(stage string, pct float64) {
		fmt.Fprintf(os.Stderr, "\r%s: %3.0f%%", stage, pct)
		if pct >= 100 {
			fmt.Fprintln(os.Stderr)
		}
	}
}
