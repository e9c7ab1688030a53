package cli

import (
	"os"

	"github.com/spf13/cobra"

	schemaio "github.com/matzehuels/schemaplot/pkg/io"
)

func (c *CLI) datasetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"ls"},
		Short:   "List the datasets under the data folder",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			datasets, err := schemaio.FindDatasets(c.Config.DataDir)
			if err != nil {
				return err
			}
			if len(datasets) == 0 {
				printInfo("No datasets found")
				return nil
			}
			rows := make([][]string, len(datasets))
			for i, ds := range datasets {
				diagram := StyleDim.Render("-")
				if _, err := os.Stat(ds.OutputPath()); err == nil {
					diagram = ds.OutputPath()
				}
				rows[i] = []string{ds.Name, keyFileKind(ds), diagram}
			}
			printTable([]string{"Dataset", "Key files", "Diagram"}, rows)
			return nil
		},
	}
}
