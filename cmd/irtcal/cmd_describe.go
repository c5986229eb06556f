package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/spboyer/irtcal/internal/dataset"
	"github.com/spboyer/irtcal/internal/projectconfig"
	"github.com/spboyer/irtcal/internal/reporting"
	"github.com/spboyer/irtcal/internal/statistics"
)

type describeOptions struct {
	inputFormat string
	format      string
	output      string
	interpret   bool
	confidence  float64
	seed        int64
}

func newDescribeCommand() *cobra.Command {
	var opts describeOptions

	cmd := &cobra.Command{
		Use:   "describe <dataset>",
		Short: "Summarize a dataset with classical test statistics",
		Long: `Print classical statistics for a response dataset without fitting the
IRT model: item p-values, item-rest point-biserial correlations,
Cronbach's alpha (with alpha-if-item-deleted) and a bootstrap confidence
interval for the mean raw score.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return describeCommandE(cmd, args[0], &opts)
		},
	}

	defaults := statistics.DefaultOptions()
	f := cmd.Flags()
	f.StringVar(&opts.inputFormat, "input-format", projectconfig.DefaultInputFormat, "Dataset layout: auto, triples, csv, matrix or yaml")
	f.StringVarP(&opts.format, "format", "f", projectconfig.DefaultOutputFormat, "Report format: text, markdown, html, json or yaml")
	f.StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of stdout")
	f.BoolVar(&opts.interpret, "interpret", false, "Label the reliability coefficient")
	f.Float64Var(&opts.confidence, "confidence", defaults.ConfidenceLevel, "Confidence level of the bootstrap interval")
	f.Int64Var(&opts.seed, "seed", defaults.Seed, "Bootstrap seed; negative picks one at random")

	return cmd
}

func describeCommandE(cmd *cobra.Command, location string, opts *describeOptions) error {
	pc, err := projectconfig.Load(".")
	if err != nil {
		return err
	}
	applyOutputFlags(cmd.Flags(), pc, opts.inputFormat, opts.format, opts.interpret)

	if opts.confidence <= 0 || opts.confidence >= 1 {
		return fmt.Errorf("confidence must be between 0 and 1, got %g", opts.confidence)
	}
	inFormat, err := dataset.ParseFormat(pc.Input.Format)
	if err != nil {
		return err
	}
	outFormat, err := reporting.ParseFormat(pc.Output.Format)
	if err != nil {
		return err
	}

	table, err := dataset.NewLoader().WithStdin(cmd.InOrStdin()).Load(cmd.Context(), location, inFormat)
	if err != nil {
		return err
	}

	summary := statistics.Describe(table.Dataset, statistics.Options{
		ConfidenceLevel: opts.confidence,
		Seed:            opts.seed,
	})
	report := reporting.BuildDescribeReport(table, summary, *pc.Output.Interpret)
	return writeOutput(cmd, opts.output, func(w io.Writer) error {
		return reporting.WriteDescribe(w, report, outFormat)
	})
}
