package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/pdm-qc/internal/config"
	"github.com/sells-group/pdm-qc/internal/export"
	"github.com/sells-group/pdm-qc/internal/ingest"
	"github.com/sells-group/pdm-qc/internal/pipeline"
	"github.com/sells-group/pdm-qc/internal/review"
	"github.com/sells-group/pdm-qc/pkg/anthropic"
)

const defaultWorkbook = "pdm-qc-report.xlsx"

type reportOptions struct {
	Afterproof  string
	Beforeproof string
	Pdm         string
	Output      string
	Format      string
	Review      bool
}

var reportOpts reportOptions

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a QC report from heading and PDM exports",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := reportOpts
		opts.Review = opts.Review || cfg.Review.Enabled
		return runReport(cmd.Context(), cfg, opts, os.Stdout)
	},
}

// runReport reads the inputs, generates the report and writes it to
// opts.Output, or to stdout for JSON and YAML when no output is given.
func runReport(ctx context.Context, c *config.Config, opts reportOptions, stdout io.Writer) error {
	format, err := export.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	mode := "report"
	if opts.Review {
		mode = "review"
	}
	if err := c.Validate(mode); err != nil {
		return err
	}

	in, err := readInputs(ctx, c, opts)
	if err != nil {
		return err
	}

	var genOpts []pipeline.Option
	if opts.Review {
		client := anthropic.NewClient(c.Anthropic.Key)
		genOpts = append(genOpts, pipeline.WithReviewer(review.New(client, c.ReviewSettings())))
	}

	policy := c.Policy()
	rep, err := pipeline.New(policy, genOpts...).Generate(ctx, in)
	if err != nil {
		return eris.Wrap(err, "report: generate")
	}

	out := opts.Output
	if out == "" && format == export.FormatXLSX {
		out = defaultWorkbook
	}

	if out == "" || out == "-" {
		return export.Write(stdout, rep, format, policy)
	}

	f, err := os.Create(out)
	if err != nil {
		return eris.Wrap(err, "report: create output")
	}
	if err := export.Write(f, rep, format, policy); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrap(err, "report: close output")
	}

	zap.L().Info("report written",
		zap.String("path", out),
		zap.String("format", string(format)),
		zap.Int("groups", len(rep.PdmGroups)),
		zap.Int("failed_groups", len(rep.ValidationResults)),
	)
	return nil
}

// readInputs loads the three tables concurrently. The previous snapshot is optional.
func readInputs(ctx context.Context, c *config.Config, opts reportOptions) (pipeline.Inputs, error) {
	var after, before, pdm [][]string

	g, gctx := errgroup.WithContext(ctx)
	read := func(path, sheet, what string, dst *[][]string) {
		g.Go(func() error {
			rows, err := ingest.ReadFile(gctx, path, c.IngestOptions(sheet))
			if err != nil {
				return eris.Wrapf(err, "report: read %s %s", what, path)
			}
			*dst = rows
			return nil
		})
	}

	read(opts.Afterproof, c.Ingest.AfterproofSheet, "afterproof", &after)
	read(opts.Pdm, c.Ingest.PdmSheet, "pdm", &pdm)
	if opts.Beforeproof != "" {
		read(opts.Beforeproof, c.Ingest.BeforeproofSheet, "beforeproof", &before)
	}

	if err := g.Wait(); err != nil {
		return pipeline.Inputs{}, err
	}

	zap.L().Debug("inputs loaded",
		zap.Int("afterproof_rows", len(after)),
		zap.Int("beforeproof_rows", len(before)),
		zap.Int("pdm_rows", len(pdm)),
	)
	return pipeline.InputsFromRows(after, before, pdm), nil
}

func init() {
	reportCmd.Flags().StringVar(&reportOpts.Afterproof, "afterproof", "", "current heading export (.xlsx or .csv)")
	reportCmd.Flags().StringVar(&reportOpts.Beforeproof, "beforeproof", "", "previous heading snapshot (.xlsx or .csv)")
	reportCmd.Flags().StringVar(&reportOpts.Pdm, "pdm", "", "PDM number to text library (.xlsx or .csv)")
	reportCmd.Flags().StringVarP(&reportOpts.Output, "output", "o", "", "output path; '-' writes to stdout")
	reportCmd.Flags().StringVar(&reportOpts.Format, "format", "xlsx", "output format: xlsx, json or yaml")
	reportCmd.Flags().BoolVar(&reportOpts.Review, "review", false, "run the text review stage on passing groups")
	_ = reportCmd.MarkFlagRequired("afterproof")
	_ = reportCmd.MarkFlagRequired("pdm")
	rootCmd.AddCommand(reportCmd)
}
