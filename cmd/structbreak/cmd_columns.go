package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newColumnsCmd(c *cli) *cobra.Command {
	var (
		sheet string
		rows  int
	)

	cmd := &cobra.Command{
		Use:   "columns <file>",
		Short: "List the columns of a dataset and preview its first rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := readDataset(args[0], sheet)
			if err != nil {
				return err
			}
			if rows <= 0 {
				rows = c.config.Datasets.PreviewRows
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d rows, %d columns\n\n", tbl.Name, tbl.NumRows(), len(tbl.Columns()))
			for i, col := range tbl.Columns() {
				fmt.Fprintf(out, "  %2d  %s\n", i+1, col)
			}

			preview := tbl.Preview(rows)
			fmt.Fprintf(out, "\n%s\n", headingStyle.Render("Dataset Preview"))
			fmt.Fprintln(out, renderTable(preview.Columns, preview.Rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "worksheet to read from an Excel file (default: first sheet)")
	cmd.Flags().IntVar(&rows, "rows", 0, "number of preview rows (default from config)")
	return cmd
}
