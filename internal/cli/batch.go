package cli

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/schemaplot/pkg/errors"
	schemaio "github.com/matzehuels/schemaplot/pkg/io"
	"github.com/matzehuels/schemaplot/pkg/pipeline"
)

type batchOutcome struct {
	dataset schemaio.Dataset
	result  *pipeline.Result
	paths   []string
	err     error
}

func (c *CLI) batchCommand() *cobra.Command {
	var (
		flags    layoutFlags
		jobs     int
		failFast bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Lay out every dataset under the data folder",
		Long: `Lay out every dataset under <data_dir>/0-data concurrently.

Each dataset is loaded, placed and rendered on its own; a failing dataset
does not stop the others unless --fail-fast is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(c.Config)
			if err != nil {
				return err
			}
			return c.runBatch(cmd.Context(), opts, flags, jobs, failFast)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.GOMAXPROCS(0), "datasets processed at once")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first failing dataset")
	return cmd
}

func (c *CLI) runBatch(ctx context.Context, opts pipeline.Options, flags layoutFlags, jobs int, failFast bool) error {
	datasets, err := schemaio.FindDatasets(c.Config.DataDir)
	if err != nil {
		return err
	}
	if len(datasets) == 0 {
		printInfo("No datasets found")
		return nil
	}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	outcomes := make([]batchOutcome, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, ds := range datasets {
		g.Go(func() error {
			res, err := runner.Execute(gctx, ds.Source(), opts)
			out := batchOutcome{dataset: ds, result: res, err: err}
			if err == nil {
				out.paths, out.err = writeArtifacts(ds, flags.outDir, res.Artifacts)
			}
			outcomes[i] = out
			if out.err != nil {
				c.Logger.Error("dataset failed", "dataset", ds.Name, "error", out.err)
				if failFast {
					return out.err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := printBatchSummary(outcomes)
	if failed > 0 {
		return errors.New(errors.ErrCodeInvalidInput, "%d of %d datasets failed", failed, len(datasets))
	}
	printSuccess("Laid out %d datasets", len(datasets))
	return nil
}

// printBatchSummary prints one table row per dataset and returns the number
// of failures.
func printBatchSummary(outcomes []batchOutcome) int {
	failed := 0
	var rows [][]string
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			rows = append(rows, []string{o.dataset.Name, "-", "-", "-", StyleError.Render(errors.UserMessage(o.err))})
			continue
		}
		st := o.result.Stats
		status := StyleSuccess.Render("ok")
		if o.result.CacheInfo.LayoutHit {
			status = StyleSuccess.Render("cached")
		}
		if st.Overlaps > 0 {
			status = StyleWarning.Render(strconv.Itoa(st.Overlaps) + " overlaps")
		}
		canvas := fmt.Sprintf("%dx%d", o.result.Diagram.Canvas.Width, o.result.Diagram.Canvas.Height)
		rows = append(rows, []string{o.dataset.Name, strconv.Itoa(st.Tables), strconv.Itoa(len(o.result.Diagram.Relations)), canvas, status})
	}
	printTable([]string{"Dataset", "Tables", "Relations", "Canvas", "Status"}, rows)
	return failed
}
