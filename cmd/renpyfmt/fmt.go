package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kobaltcore/renpyfmt/pipeline"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt <path>",
	Short: "Format Ren'Py scripts",
	Long:  "Format a script file, or every .rpy and _ren.py file under a directory. By default the formatted output for a single file is printed to stdout; use --write to rewrite files in place.",
	Args:  cobra.ExactArgs(1),
	RunE:  runFmt,
}

func init() {
	fmtCmd.Flags().BoolP("write", "w", false, "Rewrite changed files in place")
	fmtCmd.Flags().BoolP("list", "l", false, "List files whose formatting differs")

	rootCmd.AddCommand(fmtCmd)
}

func runFmt(cmd *cobra.Command, args []string) error {
	target := args[0]
	verbose := viper.GetBool("verbose")
	maxParallel := viper.GetInt("parallel")
	write, _ := cmd.Flags().GetBool("write")
	list, _ := cmd.Flags().GetBool("list")

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("reading target: %w", err)
	}

	var files []string
	if info.IsDir() {
		files, err = pipeline.Discover(target)
		if err != nil {
			return fmt.Errorf("discovering scripts: %w", err)
		}
		if len(files) == 0 {
			return fmt.Errorf("no script files found under %s", target)
		}
	} else {
		files = []string{target}
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "[fmt] Formatting %d file(s)\n", len(files))
	}

	start := time.Now()
	result := pipeline.Run(cmd.Context(), files, pipeline.Options{
		Write:       write,
		MaxParallel: maxParallel,
	})

	failed := 0
	for _, fr := range result.Files {
		switch {
		case fr.Err != nil:
			fmt.Fprintf(os.Stderr, "[fmt] %s: %v\n", fr.Path, fr.Err)
			failed++
		case fr.Changed && (list || (write && verbose)):
			fmt.Fprintln(os.Stderr, fr.Path)
		}
	}

	// Single-file stdout mode mirrors gofmt: print unless writing back.
	if !info.IsDir() && !write && !list && failed == 0 {
		fmt.Print(result.Files[0].Output)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "[fmt] Run %s: %d changed, %d failed in %.1fs\n",
			result.RunID, result.Changed, result.Failed, time.Since(start).Seconds())
	}

	if failed > 0 {
		return fmt.Errorf("%d file(s) failed to format", failed)
	}
	return nil
}
