package command

import (
	"fmt"
	"text/tabwriter"

	"yamdb/internal/importer"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var importDir string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load users, catalog and reviews from CSV dumps",
	Long: `Reads users.csv, category.csv, genre.csv, titles.csv, review.csv,
comments.csv and genre_title.csv from --dir. Rows whose key already
exists are skipped, so the import can be re-run safely.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, log, err := setup()
		if err != nil {
			return err
		}

		results, err := importer.New(db, log).Run(cmd.Context(), importDir)
		printResults(cmd, results)
		return err
	},
}

func init() {
	importCmd.Flags().StringVar(&importDir, "dir", "static/data", "directory holding the CSV files")
}

func printResults(cmd *cobra.Command, results []importer.Result) {
	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tROWS\tINSERTED")

	var total int64
	var missing int
	for _, r := range results {
		if r.Skipped {
			missing++
			fmt.Fprintf(w, "%s\t-\tmissing\n", r.File)
			continue
		}
		total += r.Inserted
		fmt.Fprintf(w, "%s\t%d\t%d\n", r.File, r.Rows, r.Inserted)
	}
	w.Flush()

	if missing > 0 {
		color.New(color.FgYellow).Fprintf(out, "%d file(s) not found\n", missing)
	}
	color.New(color.FgGreen).Fprintf(out, "%d row(s) inserted\n", total)
}
