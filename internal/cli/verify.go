package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/schemaplot/pkg/diagram"
	"github.com/matzehuels/schemaplot/pkg/errors"
	schemaio "github.com/matzehuels/schemaplot/pkg/io"
	"github.com/matzehuels/schemaplot/pkg/layout"
	"github.com/matzehuels/schemaplot/pkg/schema"
)

// verifyReport summarizes the geometry of an existing diagram.
type verifyReport struct {
	Path             string           `json:"path"`
	Tables           int              `json:"tables"`
	Relations        int              `json:"relations"`
	Bounds           layout.Canvas    `json:"bounds"`
	Overlaps         []layout.Overlap `json:"overlaps"`
	ConnectionLength float64          `json:"connection_length"`
	CenterCount      int              `json:"center_count"`
}

func (c *CLI) verifyCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "verify <schema.xml>",
		Short: "Check a SQL Designer diagram for overlapping tables",
		Long: `Read a WWW SQL Designer XML file, size every table with the configured
metrics and check that no two tables overlap. Also reports the total
connection length and how many tables sit in the center region.

Exits with an error when any pair of tables overlaps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schemaio.ReadSQLDesignerFile(args[0])
			if err != nil {
				return err
			}
			rep := verifySchema(s, c.Config.Layout)
			rep.Path = args[0]

			if asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					return err
				}
			} else {
				printVerifyReport(rep)
			}
			if n := len(rep.Overlaps); n > 0 {
				return errors.New(errors.ErrCodeInvalidInput, "%s: %d overlapping table pairs", args[0], n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

// verifySchema sizes the tables of s and measures the placement. The center
// region is taken around the center of the configured initial canvas, which
// the planner never moves.
func verifySchema(s *schema.Schema, cfg layout.Config) verifyReport {
	layout.ApplyDimensions(s, cfg.Metrics)
	conn := layout.Analyze(s)

	bounds := diagram.FromSchema(s, cfg.Metrics, nil).Bounds(cfg.Border)
	center := layout.Canvas{
		Width:   bounds.Width,
		Height:  bounds.Height,
		CenterX: cfg.CanvasWidth / 2,
		CenterY: cfg.CanvasHeight / 2,
	}
	return verifyReport{
		Tables:           s.TableCount(),
		Relations:        conn.EdgeCount(),
		Bounds:           bounds,
		Overlaps:         layout.VerifyNoOverlaps(s),
		ConnectionLength: layout.ConnectionLength(s, conn),
		CenterCount:      layout.CenterCount(s, center, cfg.CenterReserve),
	}
}

func printVerifyReport(rep verifyReport) {
	printKeyValue("file", rep.Path)
	printKeyValue("tables", strconv.Itoa(rep.Tables))
	printKeyValue("relations", strconv.Itoa(rep.Relations))
	printKeyValue("bounds", fmt.Sprintf("%dx%d", rep.Bounds.Width, rep.Bounds.Height))
	printKeyValue("connections", strconv.FormatFloat(rep.ConnectionLength, 'f', 1, 64))
	printKeyValue("in center", strconv.Itoa(rep.CenterCount))
	printNewline()

	if len(rep.Overlaps) == 0 {
		printSuccess("No overlapping tables")
		return
	}
	for _, o := range rep.Overlaps {
		printError("%s %v overlaps %s %v", o.A, o.RectA, o.B, o.RectB)
	}
}
