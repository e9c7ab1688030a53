package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/schemaplot/pkg/errors"
	schemaio "github.com/matzehuels/schemaplot/pkg/io"
	"github.com/matzehuels/schemaplot/pkg/pipeline"
	"github.com/matzehuels/schemaplot/pkg/render"
)

// layoutFlags are the flags shared by layout and batch.
type layoutFlags struct {
	formats   []string
	outDir    string
	noCache   bool
	refresh   bool
	compact   bool
	scale     float64
	canvas    string
	margin    int
	maxTables int
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.formats, "format", "f", nil, "output formats: xml, json, dot, svg, png (default from config: xml)")
	cmd.Flags().StringVarP(&f.outDir, "out-dir", "o", "", "write outputs here instead of next to the dataset folder")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached layouts and artifacts")
	cmd.Flags().BoolVar(&f.compact, "compact", false, "draw table headers only (dot, svg, png)")
	cmd.Flags().Float64Var(&f.scale, "scale", 0, "png resolution multiplier")
	cmd.Flags().StringVar(&f.canvas, "canvas", "", "initial canvas size as WIDTHxHEIGHT")
	cmd.Flags().IntVar(&f.margin, "margin", -1, "minimum gap between tables")
	cmd.Flags().IntVar(&f.maxTables, "max-tables", -1, "stop after placing this many tables (0 places all)")
}

// options merges the flags over the configuration.
func (f *layoutFlags) options(cfg Config) (pipeline.Options, error) {
	opts := cfg.pipelineOptions()
	if len(f.formats) > 0 {
		opts.Formats = f.formats
	}
	opts.Compact = opts.Compact || f.compact
	opts.Refresh = f.refresh
	if f.scale > 0 {
		opts.Scale = f.scale
	}
	if f.canvas != "" {
		w, h, err := parseCanvas(f.canvas)
		if err != nil {
			return opts, err
		}
		opts.Layout.CanvasWidth, opts.Layout.CanvasHeight = w, h
	}
	if f.margin >= 0 {
		opts.Layout.Margin = f.margin
	}
	if f.maxTables >= 0 {
		opts.Layout.MaxTables = f.maxTables
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return opts, err
	}
	return opts, nil
}

// parseCanvas parses "2400x1800".
func parseCanvas(s string) (int, int, error) {
	var w, h int
	if n, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &w, &h); err != nil || n != 2 || w <= 0 || h <= 0 {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "canvas %q: want WIDTHxHEIGHT with positive sizes", s)
	}
	return w, h, nil
}

func (c *CLI) layoutCommand() *cobra.Command {
	var flags layoutFlags

	cmd := &cobra.Command{
		Use:   "layout [dataset-dir]",
		Short: "Lay out one dataset of key files",
		Long: `Lay out one dataset and write the diagram next to the dataset folder.

A dataset is a folder holding keys-primary.csv and keys-foreign.csv (or the
legacy primary_keys.csv and foreign_keys.csv). Without an argument, the
datasets under <data_dir>/0-data are listed: a single dataset is used
directly, several open an interactive picker.

The diagram for dataset "shop" is written as shop-schema.xml, and as
shop-schema.svg, shop-schema.png, ... for other formats.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(c.Config)
			if err != nil {
				return err
			}
			ds, err := c.resolveDataset(args)
			if err != nil {
				return err
			}
			return c.runLayout(cmd.Context(), ds, opts, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

// resolveDataset picks the dataset named by args or found under the data
// folder.
func (c *CLI) resolveDataset(args []string) (schemaio.Dataset, error) {
	if len(args) == 1 {
		ds, ok := schemaio.DatasetAt(args[0])
		if !ok {
			return ds, errors.New(errors.ErrCodeDatasetNotFound,
				"%s: no %s/%s pair found", args[0], schemaio.PrimaryKeysFile, schemaio.ForeignKeysFile)
		}
		return ds, nil
	}

	datasets, err := schemaio.FindDatasets(c.Config.DataDir)
	if err != nil {
		return schemaio.Dataset{}, err
	}
	switch {
	case len(datasets) == 0:
		return schemaio.Dataset{}, errors.New(errors.ErrCodeDatasetNotFound,
			"no datasets in %s", filepath.Join(c.Config.DataDir, schemaio.DataDir))
	case len(datasets) == 1:
		return datasets[0], nil
	case !isTerminal(os.Stdin):
		names := make([]string, len(datasets))
		for i, d := range datasets {
			names[i] = d.Name
		}
		return schemaio.Dataset{}, errors.New(errors.ErrCodeInvalidInput,
			"several datasets found (%s); name one as an argument", strings.Join(names, ", "))
	}

	ds, ok, err := pickDataset(datasets)
	if err != nil {
		return ds, err
	}
	if !ok {
		return ds, context.Canceled
	}
	return ds, nil
}

func (c *CLI) runLayout(ctx context.Context, ds schemaio.Dataset, opts pipeline.Options, flags layoutFlags) error {
	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Laying out %s...", ds.Name))
	spinner.Start()
	prog := newProgress(c.Logger)

	res, err := runner.Execute(ctx, ds.Source(), opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("laid out %d tables", res.Stats.Placed))

	paths, err := writeArtifacts(ds, flags.outDir, res.Artifacts)
	if err != nil {
		return err
	}

	printSuccess("Layout complete: %s", StyleHighlight.Render(ds.Name))
	for _, p := range paths {
		printFile(p)
	}
	printStats(res.Stats.Tables, len(res.Diagram.Relations), res.Stats.Growths, res.CacheInfo.LayoutHit)
	if res.Stats.Overlaps > 0 {
		printWarning("%d overlapping table pairs", res.Stats.Overlaps)
	}
	for i, f := range sortedFormats(res.Artifacts) {
		if f == render.FormatXML {
			printNewline()
			printNextStep("Check", "schemaplot verify "+paths[i])
		}
	}
	return nil
}

// writeArtifacts writes each artifact to the dataset's output path for its
// format and returns the paths in format order.
func writeArtifacts(ds schemaio.Dataset, outDir string, artifacts map[render.Format][]byte) ([]string, error) {
	var paths []string
	for _, f := range sortedFormats(artifacts) {
		path := ds.OutputPathExt(f.Ext())
		if outDir != "" {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return nil, err
			}
			path = filepath.Join(outDir, filepath.Base(path))
		}
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func sortedFormats(artifacts map[render.Format][]byte) []render.Format {
	var out []render.Format
	for _, f := range render.Formats {
		if _, ok := artifacts[f]; ok {
			out = append(out, f)
		}
	}
	return out
}
