package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chrissnell/structbreak/internal/analysis"
	"github.com/chrissnell/structbreak/internal/app"
	"github.com/chrissnell/structbreak/internal/dataset"
)

type analyzeOptions struct {
	column    string
	sheet     string
	startYear int
	endYear   int
	breaks    int
	algorithm string
	format    string
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Run a structural break analysis on one column of a CSV or Excel file",
		Example: `  structbreak analyze emissions.xlsx --column CO2 --start 1995 --end 2022 --breaks 4
  structbreak analyze data.csv --column value --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAnalyze(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.column, "column", "c", "", "column to analyse (required)")
	f.StringVar(&opts.sheet, "sheet", "", "worksheet to read from an Excel file (default: first sheet)")
	f.IntVar(&opts.startYear, "start", 0, "year of the first observation (default from config)")
	f.IntVar(&opts.endYear, "end", 0, "last year to include (default from config)")
	f.IntVarP(&opts.breaks, "breaks", "n", 0, "number of breakpoints to look for, 1-10 (default from config)")
	f.StringVar(&opts.algorithm, "algorithm", "", "detection algorithm: binseg, dynp or pelt (default from config)")
	f.StringVarP(&opts.format, "format", "o", formatTable, "output format: table, json, csv or markdown")
	_ = cmd.MarkFlagRequired("column")

	c.bind("analysis.cost", addStringFlag(cmd, "cost", "", "segment cost: l2 or rbf"))
	c.bind("analysis.axis", addStringFlag(cmd, "axis", "", "regression axis: local or global"))
	c.bind("analysis.smoothing_window", addIntFlag(cmd, "smoothing-window", 0, "odd median filter width applied before detection, 1 disables"))

	return cmd
}

func (c *cli) runAnalyze(cmd *cobra.Command, path string, opts *analyzeOptions) error {
	if !validFormat(opts.format) {
		return fmt.Errorf("unknown output format %q (supported: %s)", opts.format, formatList())
	}

	tbl, err := readDataset(path, opts.sheet)
	if err != nil {
		return err
	}

	analyzer, err := app.NewAnalyzer(c.config, c.logger)
	if err != nil {
		return err
	}

	req := analysis.Request{
		Column:    opts.column,
		StartYear: orDefault(opts.startYear, c.config.Analysis.DefaultStartYear),
		EndYear:   orDefault(opts.endYear, c.config.Analysis.DefaultEndYear),
		Breaks:    orDefault(opts.breaks, c.config.Analysis.DefaultBreaks),
		Algorithm: opts.algorithm,
	}

	report, err := analyzer.Run(context.Background(), tbl, req)
	if err != nil {
		return err
	}

	for _, w := range report.Warnings {
		c.logger.Warnf("%s", w)
	}
	return renderReport(cmd.OutOrStdout(), report, opts.format)
}

func readDataset(path, sheet string) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return dataset.Read(filepath.Base(path), f, dataset.ReadOptions{Sheet: sheet})
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func addStringFlag(cmd *cobra.Command, name, value, usage string) *pflag.Flag {
	cmd.Flags().String(name, value, usage)
	return cmd.Flags().Lookup(name)
}

func addIntFlag(cmd *cobra.Command, name string, value int, usage string) *pflag.Flag {
	cmd.Flags().Int(name, value, usage)
	return cmd.Flags().Lookup(name)
}
