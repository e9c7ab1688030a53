package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/schemaplot/pkg/errors"
	schemaio "github.com/matzehuels/schemaplot/pkg/io"
	"github.com/matzehuels/schemaplot/pkg/layout"
	"github.com/matzehuels/schemaplot/pkg/schema"
	"github.com/matzehuels/schemaplot/pkg/source"
)

const (
	driverPostgres = "postgres"
	driverMySQL    = "mysql"
)

type introspectFlags struct {
	driver  string
	dsn     string
	schema  string
	name    string
	columns bool
	layout  bool
	layoutFlags
}

func (c *CLI) introspectCommand() *cobra.Command {
	var flags introspectFlags

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Read keys from a live database into a dataset",
		Long: `Read primary and foreign keys from PostgreSQL or MySQL information_schema
and write them as a dataset under <data_dir>/0-data/<name>.

The DSN defaults to $SCHEMAPLOT_POSTGRES_DSN or $SCHEMAPLOT_MYSQL_DSN, which
may also be set in a .env file. With --layout the dataset is laid out right
away, including column types when --columns is set.`,
		Example: `  schemaplot introspect --driver postgres --schema public --name shop
  schemaplot introspect --driver mysql --dsn 'app:secret@tcp(localhost:3306)/shop' --layout -f xml,svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runIntrospect(cmd.Context(), flags)
		},
	}
	cmd.Flags().StringVar(&flags.driver, "driver", driverPostgres, "database driver: postgres, mysql")
	cmd.Flags().StringVar(&flags.dsn, "dsn", "", "connection string (default from config or environment)")
	cmd.Flags().StringVar(&flags.schema, "schema", "", "schema (postgres) or database (mysql) to read")
	cmd.Flags().StringVar(&flags.name, "name", "", "dataset name (default: the schema name)")
	cmd.Flags().BoolVar(&flags.columns, "columns", false, "load every column, not only key columns")
	cmd.Flags().BoolVar(&flags.layout, "layout", false, "lay out the dataset after writing it")
	flags.layoutFlags.register(cmd)
	return cmd
}

// openSource connects to the database named by flags and the config.
func (c *CLI) openSource(ctx context.Context, flags introspectFlags) (source.Source, func(), error) {
	var db DatabaseConfig
	switch flags.driver {
	case driverPostgres:
		db = c.Config.Postgres
	case driverMySQL:
		db = c.Config.MySQL
	default:
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "unknown driver %q (want postgres or mysql)", flags.driver)
	}
	if flags.dsn != "" {
		db.DSN = flags.dsn
	}
	if flags.schema != "" {
		db.Schema = flags.schema
	}
	if db.DSN == "" {
		env := EnvPostgresDSN
		if flags.driver == driverMySQL {
			env = EnvMySQLDSN
		}
		return nil, nil, errors.New(errors.ErrCodeInvalidConfig, "no DSN for %s: pass --dsn or set %s", flags.driver, env)
	}

	var opts []source.Option
	if db.Schema != "" {
		opts = append(opts, source.WithSchema(db.Schema))
	}
	if flags.columns {
		opts = append(opts, source.WithColumns())
	}

	if flags.driver == driverMySQL {
		src, err := source.NewMySQL(ctx, db.DSN, opts...)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	}
	src, err := source.NewPostgres(ctx, db.DSN, opts...)
	if err != nil {
		return nil, nil, err
	}
	return src, src.Close, nil
}

func (c *CLI) runIntrospect(ctx context.Context, flags introspectFlags) error {
	opts, err := flags.layoutFlags.options(c.Config)
	if err != nil {
		return err
	}
	src, closeSrc, err := c.openSource(ctx, flags)
	if err != nil {
		return err
	}
	defer closeSrc()

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Reading keys from "+src.Name()+"...")
	spinner.Start()
	opts.CacheSchema = true
	s, cached, err := runner.LoadWithCacheInfo(ctx, src, opts)
	spinner.Stop()
	if err != nil {
		return err
	}

	name := flags.name
	if name == "" {
		name = datasetName(src.Name())
	}
	if err := errors.ValidateDatasetName(name); err != nil {
		return err
	}
	ds, err := writeDataset(c.Config.DataDir, name, s)
	if err != nil {
		return err
	}

	printSuccess("Wrote dataset %s", StyleHighlight.Render(ds.Name))
	printFile(ds.Primary)
	printFile(ds.Foreign)
	printStats(s.TableCount(), layout.Analyze(s).EdgeCount(), 0, cached)

	if !flags.layout {
		printNewline()
		printNextStep("Lay out", "schemaplot layout "+ds.Dir)
		return nil
	}

	// Lay out the loaded schema directly, so column details from --columns
	// reach the XML sink.
	d, hit, err := runner.LayoutWithCacheInfo(ctx, s, opts)
	if err != nil {
		return err
	}
	artifacts, _, err := runner.RenderWithCacheInfo(ctx, d, opts)
	if err != nil {
		return err
	}
	paths, err := writeArtifacts(ds, flags.outDir, artifacts)
	if err != nil {
		return err
	}
	printSuccess("Layout complete")
	for _, p := range paths {
		printFile(p)
	}
	printStats(len(d.Tables), len(d.Relations), d.Stats.Growths, hit)
	return nil
}

// datasetName derives a dataset name from a source name such as
// "postgres:public".
func datasetName(sourceName string) string {
	return sourceName[strings.LastIndex(sourceName, ":")+1:]
}

// writeDataset writes the keys of s as a dataset folder under baseDir.
func writeDataset(baseDir, name string, s *schema.Schema) (schemaio.Dataset, error) {
	dir := filepath.Join(baseDir, schemaio.DataDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return schemaio.Dataset{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
	}
	ds := schemaio.Dataset{
		Name:    name,
		Dir:     dir,
		Primary: filepath.Join(dir, schemaio.PrimaryKeysFile),
		Foreign: filepath.Join(dir, schemaio.ForeignKeysFile),
	}
	for _, f := range []struct {
		path  string
		write func(*os.File) error
	}{
		{ds.Primary, func(w *os.File) error { return schemaio.WritePrimaryKeys(w, s) }},
		{ds.Foreign, func(w *os.File) error { return schemaio.WriteForeignKeys(w, s) }},
	} {
		file, err := os.Create(f.path)
		if err != nil {
			return ds, errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", f.path)
		}
		err = f.write(file)
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return ds, errors.Wrap(errors.ErrCodeInternal, err, "write %s", f.path)
		}
	}
	return ds, nil
}
